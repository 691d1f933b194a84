package affinity

import (
	"testing"
	"time"
)

func TestCompactPersonalTracesDropsPastHotWindow(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.test", KindLocation)

	e.PersonalTraces[PersonalKey{ActorID: "player.aldric", EventType: "gift.given"}] = &TraceRecord{
		Accumulated: 0.5, LastUpdated: now.Add(-8 * 24 * time.Hour),
	}
	e.PersonalTraces[PersonalKey{ActorID: "player.brynn", EventType: "gift.given"}] = &TraceRecord{
		Accumulated: 0.5, LastUpdated: now.Add(-1 * 24 * time.Hour),
	}

	report := CompactTraces(cfg, e, now)
	if report.HotToWarm < 1 {
		t.Fatalf("HotToWarm = %d, want at least 1", report.HotToWarm)
	}
	if _, ok := e.PersonalTraces[PersonalKey{ActorID: "player.aldric", EventType: "gift.given"}]; ok {
		t.Error("personal trace past the hot window was not dropped")
	}
	if _, ok := e.PersonalTraces[PersonalKey{ActorID: "player.brynn", EventType: "gift.given"}]; !ok {
		t.Error("personal trace within the hot window was incorrectly dropped")
	}
}

func TestCreateScarsFromWarmPromotesHighIntensityGroupTraces(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.test", KindLocation)

	key := GroupKey{Tag: "rebel", EventType: "combat.killed_npc"}
	e.GroupTraces[key] = &TraceRecord{
		Accumulated: 0.9, LastUpdated: now.Add(-100 * 24 * time.Hour), EventCount: 3,
	}

	report := CompactTraces(cfg, e, now)
	if report.WarmToScar != 1 {
		t.Fatalf("WarmToScar = %d, want 1", report.WarmToScar)
	}

	scarKey := GroupKey{Tag: "rebel", EventType: "combat"}
	tr, ok := e.GroupTraces[scarKey]
	if !ok {
		t.Fatal("expected a scar at the folded (tag, category) key")
	}
	if !tr.IsScar {
		t.Error("promoted trace is not flagged IsScar")
	}
}

func TestCreateScarsFromWarmSkipsBelowIntensityThreshold(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.test", KindLocation)

	key := GroupKey{Tag: "rebel", EventType: "gift.given"}
	e.GroupTraces[key] = &TraceRecord{
		Accumulated: 0.3, LastUpdated: now.Add(-100 * 24 * time.Hour), EventCount: 1,
	}

	report := CompactTraces(cfg, e, now)
	if report.WarmToScar != 0 {
		t.Errorf("WarmToScar = %d, want 0 for a below-threshold trace", report.WarmToScar)
	}
}

func TestCompactGroupTracesFoldsInstitutionalTagsByCategory(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.test", KindLocation)

	e.GroupTraces[GroupKey{Tag: "rebel", EventType: "gift.given"}] = &TraceRecord{
		Accumulated: 0.2, LastUpdated: now.Add(-100 * 24 * time.Hour), EventCount: 1,
	}
	e.GroupTraces[GroupKey{Tag: "rebel", EventType: "gift.received"}] = &TraceRecord{
		Accumulated: 0.1, LastUpdated: now.Add(-100 * 24 * time.Hour), EventCount: 1,
	}

	report := CompactTraces(cfg, e, now)
	if report.HotToWarm != 1 {
		t.Errorf("HotToWarm (fold count) = %d, want 1", report.HotToWarm)
	}

	folded, ok := e.GroupTraces[GroupKey{Tag: "rebel", EventType: "gift"}]
	if !ok {
		t.Fatal("expected folded aggregate at (rebel, gift)")
	}
	if diff := folded.Accumulated - 0.3; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("folded.Accumulated = %v, want 0.3", folded.Accumulated)
	}
	if folded.EventCount != 2 {
		t.Errorf("folded.EventCount = %d, want 2", folded.EventCount)
	}
}

func TestCompactGroupTracesFoldsNonInstitutionalTagsIntoCatchAll(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.test", KindLocation)

	e.GroupTraces[GroupKey{Tag: "guild.lantern_watch", EventType: "gift.given"}] = &TraceRecord{
		Accumulated: 0.2, LastUpdated: now.Add(-100 * 24 * time.Hour), EventCount: 1,
	}
	e.GroupTraces[GroupKey{Tag: "guild.night_market", EventType: "gift.received"}] = &TraceRecord{
		Accumulated: 0.1, LastUpdated: now.Add(-100 * 24 * time.Hour), EventCount: 1,
	}

	CompactTraces(cfg, e, now)
	if _, ok := e.GroupTraces[GroupKey{Tag: "guild.lantern_watch", EventType: "gift"}]; ok {
		t.Error("non-institutional tag should not survive verbatim")
	}
	folded, ok := e.GroupTraces[GroupKey{Tag: "other", EventType: "gift"}]
	if !ok {
		t.Fatal("expected both non-institutional tags folded into (other, gift)")
	}
	if diff := folded.Accumulated - 0.3; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("folded.Accumulated = %v, want 0.3", folded.Accumulated)
	}
	if folded.EventCount != 2 {
		t.Errorf("folded.EventCount = %d, want 2", folded.EventCount)
	}
}

func TestCompactTracesLeavesWarmWindowTracesUntouched(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.test", KindLocation)

	e.GroupTraces[GroupKey{Tag: "rebel", EventType: "gift.given"}] = &TraceRecord{
		Accumulated: 0.9, LastUpdated: now.Add(-10 * 24 * time.Hour), EventCount: 1,
	}

	report := CompactTraces(cfg, e, now)
	if report.TracesCompacted != 0 {
		t.Errorf("TracesCompacted = %d, want 0 within the warm window", report.TracesCompacted)
	}
}
