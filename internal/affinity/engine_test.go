package affinity

import (
	"errors"
	"testing"
	"time"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	catalog, err := NewAffordanceRegistry(DefaultCatalog())
	if err != nil {
		t.Fatalf("NewAffordanceRegistry: %v", err)
	}
	return New(DefaultConfig(), catalog)
}

func TestEngineLogEventUnknownEntity(t *testing.T) {
	eng := newTestEngine(t)
	now := time.Unix(1700000000, 0)
	err := eng.LogEvent("loc.nowhere", NewEvent("gift.given", "player.aldric", nil, 1.0, now))
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("LogEvent on unknown entity = %v, want ErrUnknownEntity", err)
	}
}

func TestEngineLogEventThenEvaluate(t *testing.T) {
	eng := newTestEngine(t)
	now := time.Unix(1700000000, 0)

	e := NewEntity("loc.village_square", KindLocation)
	e.ValuationProfile["combat.killed_npc"] = -0.9
	eng.Registry.Put(e)

	for i := 0; i < 5; i++ {
		ev := NewEvent("combat.killed_npc", "player.aldric", nil, 1.0, now.Add(time.Duration(i)*time.Second))
		if err := eng.LogEvent("loc.village_square", ev); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}

	ctx := AffordanceContext{
		ActorID: "player.aldric", EntityID: "loc.village_square",
		ActionType: "move.pass", Timestamp: now.Add(10 * time.Second),
	}
	outcome, err := eng.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !outcome.Triggered {
		t.Error("expected pathing to trigger after repeated hostile events")
	}
}

func TestEngineEvaluateUnknownEntity(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Evaluate(AffordanceContext{EntityID: "loc.nowhere", ActionType: "move.pass"})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("Evaluate on unknown entity = %v, want ErrUnknownEntity", err)
	}
}

func TestEngineTickCoversAllRegisteredEntities(t *testing.T) {
	eng := newTestEngine(t)
	now := time.Unix(1700000000, 0)
	eng.Registry.Put(NewEntity("loc.a", KindLocation))
	eng.Registry.Put(NewEntity("loc.b", KindLocation))

	reports := eng.Tick(now)
	if len(reports) != 2 {
		t.Errorf("len(reports) = %d, want 2", len(reports))
	}
}

func TestEngineCompactNeverRunsDuringTick(t *testing.T) {
	eng := newTestEngine(t)
	now := time.Unix(1700000000, 0)
	e := NewEntity("loc.a", KindLocation)
	// Past the 7-day hot window CompactTraces would use for personal traces,
	// but still well above the tick's decay-based prune_threshold (0.01).
	e.PersonalTraces[PersonalKey{ActorID: "player.aldric", EventType: "gift.given"}] = &TraceRecord{
		Accumulated: 1.0, LastUpdated: now.Add(-10 * 24 * time.Hour),
	}
	eng.Registry.Put(e)

	eng.Tick(now)
	if len(e.PersonalTraces) == 0 {
		t.Fatal("Tick should only prune below prune_threshold, not compact by age alone")
	}
}

func TestEngineStopIsIdempotent(t *testing.T) {
	eng := newTestEngine(t)
	eng.Stop()
	eng.Stop()
}
