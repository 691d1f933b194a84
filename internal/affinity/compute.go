package affinity

import (
	"math"
	"time"
)

// ChannelScores breaks out the three (or four, with institution) channel
// contributions behind a computed affinity, used by the "why" admin
// operator (§4.11).
type ChannelScores struct {
	Personal    float64
	Group       float64
	Behavior    float64
	Institution float64
}

// computeAffinity implements §4.5: personal/group/behavior channel scores
// blended through the valuation profile, then tanh-normalized. Must be
// called with e already locked by the caller.
func computeAffinity(cfg *Config, e *Entity, actorID string, actorTags map[string]struct{}, now time.Time) (float64, ChannelScores) {
	personalHL, groupHL, behaviorHL := cfg.HalfLivesFor(e.Kind)

	var personal float64
	for key, tr := range e.PersonalTraces {
		if key.ActorID != actorID {
			continue
		}
		personal += decayedValue(tr, personalHL, now) * getValuation(e.ValuationProfile, key.EventType)
	}

	var group float64
	for key, tr := range e.GroupTraces {
		if _, ok := actorTags[key.Tag]; !ok {
			continue
		}
		group += decayedValue(tr, groupHalfLife(cfg, tr, groupHL), now) * getValuation(e.ValuationProfile, key.EventType)
	}

	var behavior float64
	for eventType, tr := range e.BehaviorTraces {
		behavior += decayedValue(tr, behaviorHL, now) * getValuation(e.ValuationProfile, eventType)
	}

	w := cfg.ChannelWeights
	raw := w.Personal*personal + w.Group*group + w.Behavior*behavior
	affinity := tanhAffinity(raw, cfg.AffinityScale)

	return affinity, ChannelScores{Personal: personal, Group: group, Behavior: behavior}
}

// tanhAffinity implements §4.5 step 5's normalization. The constant 10
// anchors affinity_scale=10.0 as the neutral baseline (spec.md's explicit
// wording); this is the formula also exercised by replay verification in
// original_source's affordances.py, which this repository treats as
// authoritative over computation.py's divergent compute_affinity (see
// DESIGN.md).
func tanhAffinity(raw, affinityScale float64) float64 {
	return math.Tanh(raw * (affinityScale / 10.0))
}

// computeGroupOnlyAffinity is the restricted blend used by the institution
// aggregator (§4.10 step 1): only the group channel, for a single actor
// tag, no personal or behavior contribution. Caller must already hold e's
// lock.
func computeGroupOnlyAffinity(cfg *Config, e *Entity, tag string, now time.Time) float64 {
	_, groupHL, _ := cfg.HalfLivesFor(e.Kind)
	var group float64
	for key, tr := range e.GroupTraces {
		if key.Tag != tag {
			continue
		}
		group += decayedValue(tr, groupHalfLife(cfg, tr, groupHL), now) * getValuation(e.ValuationProfile, key.EventType)
	}
	return tanhAffinity(group, cfg.AffinityScale)
}

// ComputeAffinity is the public entry point for §4.5, acquiring the
// entity's lock for the duration of the read.
func ComputeAffinity(cfg *Config, e *Entity, actorID string, actorTags []string, now time.Time) float64 {
	tagSet := make(map[string]struct{}, len(actorTags))
	for _, t := range actorTags {
		tagSet[t] = struct{}{}
	}
	e.Lock()
	defer e.Unlock()
	affinity, _ := computeAffinity(cfg, e, actorID, tagSet, now)
	return affinity
}

// ThresholdLabel buckets an affinity value into the five bands of §6.
func ThresholdLabel(affinity float64) string {
	switch {
	case affinity <= -0.7:
		return "hostile"
	case affinity <= -0.3:
		return "unwelcoming"
	case affinity < 0.3:
		return "neutral"
	case affinity < 0.7:
		return "favorable"
	default:
		return "aligned"
	}
}
