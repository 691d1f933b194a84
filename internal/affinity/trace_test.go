package affinity

import (
	"testing"
	"time"
)

func TestApplySaturationDampensAtFullSaturation(t *testing.T) {
	if v := applySaturation(1.0, 1.0); v != 0 {
		t.Errorf("applySaturation at full saturation = %v, want 0", v)
	}
	if v := applySaturation(1.0, 0.0); v != 1.0 {
		t.Errorf("applySaturation at zero saturation = %v, want 1.0", v)
	}
}

func TestLogEventUpdatesAllThreeChannels(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.village_square", KindLocation)

	ev := NewEvent("gift.given", "player.aldric", []string{"rebel"}, 0.8, now)
	LogEvent(cfg, e, ev)

	pk := PersonalKey{ActorID: "player.aldric", EventType: "gift.given"}
	if _, ok := e.PersonalTraces[pk]; !ok {
		t.Error("missing personal trace after LogEvent")
	}
	gk := GroupKey{Tag: "rebel", EventType: "gift.given"}
	if _, ok := e.GroupTraces[gk]; !ok {
		t.Error("missing group trace after LogEvent")
	}
	if _, ok := e.BehaviorTraces["gift.given"]; !ok {
		t.Error("missing behavior trace after LogEvent")
	}
}

func TestLogEventGiftCounterplayCycle(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.village_square", KindLocation)
	e.ValuationProfile["gift.given"] = 0.8

	ev := NewEvent("gift.given", "player.aldric", nil, 1.0, now)
	LogEvent(cfg, e, ev)
	before := ComputeAffinity(cfg, e, "player.aldric", nil, now)
	if before <= 0 {
		t.Fatalf("expected a positive affinity after a gift, got %v", before)
	}

	// A later hostile act should pull the affinity back down, demonstrating
	// counterplay rather than a one-way ratchet.
	later := now.Add(time.Hour)
	e.ValuationProfile["combat.killed_npc"] = -0.9
	hostile := NewEvent("combat.killed_npc", "player.aldric", nil, 1.0, later)
	LogEvent(cfg, e, hostile)
	after := ComputeAffinity(cfg, e, "player.aldric", nil, later)
	if after >= before {
		t.Errorf("affinity did not fall after a hostile act: before=%v after=%v", before, after)
	}
}

func TestLogEventDampensRepeatedEventsUnderSaturation(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.village_square", KindLocation)
	e.Saturation.Personal = 1.0

	ev := NewEvent("gift.given", "player.aldric", nil, 1.0, now)
	LogEvent(cfg, e, ev)

	pk := PersonalKey{ActorID: "player.aldric", EventType: "gift.given"}
	if e.PersonalTraces[pk].Accumulated != 0 {
		t.Errorf("fully saturated channel should absorb no new intensity, got %v", e.PersonalTraces[pk].Accumulated)
	}
}

func TestUpdateBearerTraceRampsToOneOverSevenDays(t *testing.T) {
	now := time.Unix(1700000000, 0)
	e := NewEntity("artifact.lantern", KindArtifact)

	UpdateBearerTrace(e, "player.aldric", now)
	if e.Bearers["player.aldric"].Intensity != 0 {
		t.Errorf("first carry should start at zero intensity, got %v", e.Bearers["player.aldric"].Intensity)
	}

	halfway := now.Add(3*24*time.Hour + 12*time.Hour)
	UpdateBearerTrace(e, "player.aldric", halfway)
	if diff := e.Bearers["player.aldric"].Intensity - 0.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("intensity at half the ramp = %v, want 0.5", e.Bearers["player.aldric"].Intensity)
	}

	full := now.Add(10 * 24 * time.Hour)
	UpdateBearerTrace(e, "player.aldric", full)
	if e.Bearers["player.aldric"].Intensity != 1.0 {
		t.Errorf("intensity past the ramp = %v, want clamped to 1.0", e.Bearers["player.aldric"].Intensity)
	}
	if e.CurrentBearer != "player.aldric" {
		t.Errorf("CurrentBearer = %q, want player.aldric", e.CurrentBearer)
	}
}
