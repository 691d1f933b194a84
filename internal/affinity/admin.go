package affinity

import (
	"fmt"
	"time"
)

// AdminSurface exposes the read-only operators of §4.11 (plus the two
// mutating-the-registry-only operators toggle/test). None of these mutate
// trace state.
type AdminSurface struct {
	eng *Engine
}

// NewAdminSurface wraps an Engine's registries for admin queries.
func NewAdminSurface(eng *Engine) *AdminSurface {
	return &AdminSurface{eng: eng}
}

// InspectResult is returned by Inspect.
type InspectResult struct {
	EntityID      string
	Affinity      float64
	ThresholdLabel string
	TopTraces     []TraceContribution
}

// Inspect returns the current affinity toward actor plus top traces.
func (a *AdminSurface) Inspect(entityID, actorID string, actorTags []string, now time.Time) (InspectResult, error) {
	e, err := a.eng.Registry.Get(entityID)
	if err != nil {
		return InspectResult{}, err
	}
	cfg := a.eng.Config.Load()
	tagSet := toTagSet(actorTags)

	e.Lock()
	affinity, _ := computeAffinity(cfg, e, actorID, tagSet, now)
	top := topContributingTraces(cfg, e, actorID, tagSet, now, 5)
	e.Unlock()

	return InspectResult{
		EntityID:       entityID,
		Affinity:       affinity,
		ThresholdLabel: ThresholdLabel(affinity),
		TopTraces:      top,
	}, nil
}

// WhyResult is returned by Why.
type WhyResult struct {
	Affinity  float64
	Scores    ChannelScores
	TopTraces []TraceContribution
}

// Why returns the channel breakdown and top-k contributions behind a
// computed affinity (§4.11).
func (a *AdminSurface) Why(entityID, actorID string, actorTags []string, now time.Time) (WhyResult, error) {
	e, err := a.eng.Registry.Get(entityID)
	if err != nil {
		return WhyResult{}, err
	}
	cfg := a.eng.Config.Load()
	tagSet := toTagSet(actorTags)

	e.Lock()
	affinity, scores := computeAffinity(cfg, e, actorID, tagSet, now)
	top := topContributingTraces(cfg, e, actorID, tagSet, now, 10)
	e.Unlock()

	return WhyResult{Affinity: affinity, Scores: scores, TopTraces: top}, nil
}

// Reeval computes affinity against current live traces only — for tuning,
// never for regression testing (§4.9 distinguishing Reeval from Replay).
func (a *AdminSurface) Reeval(entityID, actorID string, actorTags []string, now time.Time) (float64, error) {
	e, err := a.eng.Registry.Get(entityID)
	if err != nil {
		return 0, err
	}
	cfg := a.eng.Config.Load()
	return ComputeAffinity(cfg, e, actorID, actorTags, now), nil
}

// Toggle turns an affordance on or off for an entity entirely.
func (a *AdminSurface) Toggle(entityID, affordanceKey string, on bool) error {
	e, err := a.eng.Registry.Get(entityID)
	if err != nil {
		return err
	}
	if _, ok := a.eng.Affordances.Get(affordanceKey); !ok {
		return fmt.Errorf("%w: no such affordance %q", ErrValidation, affordanceKey)
	}
	e.Lock()
	defer e.Unlock()
	if on {
		delete(e.DisabledAffordances, affordanceKey)
	} else {
		e.DisabledAffordances[affordanceKey] = struct{}{}
	}
	return nil
}

// Test forces a trigger of an affordance for debugging by temporarily
// forcing the hostile/favorable mode, without mutating any trace.
func (a *AdminSurface) Test(entityID, actorID, affordanceKey, mode string, actorTags []string, now time.Time) (AffordanceOutcome, error) {
	e, err := a.eng.Registry.Get(entityID)
	if err != nil {
		return AffordanceOutcome{}, err
	}
	def, ok := a.eng.Affordances.Get(affordanceKey)
	if !ok {
		return AffordanceOutcome{}, fmt.Errorf("%w: no such affordance %q", ErrValidation, affordanceKey)
	}

	forced := *def
	forced.CooldownSeconds = 0
	switch mode {
	case "hostile":
		forced.HostileThreshold = 0.999
		forced.FavorableThreshold = 0
		forced.TriggerProbability = 1.0
	case "favorable":
		forced.FavorableThreshold = -0.999
		forced.HostileThreshold = 0
		forced.TriggerProbability = 1.0
	default:
		return AffordanceOutcome{}, fmt.Errorf("%w: mode must be hostile or favorable", ErrValidation)
	}

	singleDef := []*AffordanceDefinition{&forced}
	reg, err := NewAffordanceRegistry(singleDef)
	if err != nil {
		return AffordanceOutcome{}, err
	}

	cfg := a.eng.Config.Load()
	ctx := AffordanceContext{ActorID: actorID, ActorTags: actorTags, EntityID: entityID, ActionType: "admin.test", Timestamp: now}
	return EvaluateAffordances(cfg, reg, e, nil, ctx), nil
}

func toTagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}
