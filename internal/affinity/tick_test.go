package affinity

import (
	"testing"
	"time"
)

func TestWorldTickPrunesBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.test", KindLocation)

	// Personal half-life for a location is 7 days; decay this trace across
	// many half-lives so it falls under prune_threshold (0.01).
	e.PersonalTraces[PersonalKey{ActorID: "player.aldric", EventType: "gift.given"}] = &TraceRecord{
		Accumulated: 0.05, LastUpdated: now.Add(-70 * 24 * time.Hour),
	}
	later := now

	report := WorldTick(cfg, e, later)
	if report.TracesPruned != 1 {
		t.Errorf("TracesPruned = %d, want 1", report.TracesPruned)
	}
	if len(e.PersonalTraces) != 0 {
		t.Error("expected the decayed trace to be pruned")
	}
}

func TestWorldTickStampsLastTick(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.test", KindLocation)

	WorldTick(cfg, e, now)
	if !e.LastTick.Equal(now) {
		t.Errorf("LastTick = %v, want %v", e.LastTick, now)
	}
}

func TestWorldTickSweepsExpiredCooldowns(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.test", KindLocation)
	e.Cooldowns["pathing:player.aldric:loc.test"] = now.Add(-time.Minute)

	report := WorldTick(cfg, e, now)
	if report.CooldownsCleared != 1 {
		t.Errorf("CooldownsCleared = %d, want 1", report.CooldownsCleared)
	}
}

func TestWorldTickIdempotentWithNoTimeAdvance(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.test", KindLocation)
	e.PersonalTraces[PersonalKey{ActorID: "player.aldric", EventType: "gift.given"}] = &TraceRecord{
		Accumulated: 0.5, LastUpdated: now, EventCount: 1,
	}

	WorldTick(cfg, e, now)
	firstSaturation := e.Saturation
	firstTrace := *e.PersonalTraces[PersonalKey{ActorID: "player.aldric", EventType: "gift.given"}]

	WorldTick(cfg, e, now)
	secondSaturation := e.Saturation
	secondTrace := *e.PersonalTraces[PersonalKey{ActorID: "player.aldric", EventType: "gift.given"}]

	if firstSaturation != secondSaturation {
		t.Errorf("saturation changed across idempotent ticks: %+v vs %+v", firstSaturation, secondSaturation)
	}
	if firstTrace != secondTrace {
		t.Errorf("trace changed across idempotent ticks: %+v vs %+v", firstTrace, secondTrace)
	}
}

func TestRefreshSaturationClampedToUnitInterval(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.test", KindLocation)
	// Personal saturation capacity is 50; push far past it.
	e.PersonalTraces[PersonalKey{ActorID: "player.aldric", EventType: "gift.given"}] = &TraceRecord{
		Accumulated: 500, LastUpdated: now,
	}

	WorldTick(cfg, e, now)
	if e.Saturation.Personal != 1.0 {
		t.Errorf("Saturation.Personal = %v, want clamped to 1.0", e.Saturation.Personal)
	}
}
