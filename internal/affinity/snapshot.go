package affinity

import (
	"math/rand"
	"time"
)

// AffordanceSnapshot freezes every input and output of a triggered
// affordance evaluation so replay can recompute from the frozen state
// alone, never from live traces (§4.9).
type AffordanceSnapshot struct {
	ID         string
	ActorID    string
	ActorTags  []string
	EntityID   string
	EvalTime   time.Time

	PersonalTraces map[PersonalKey]TraceRecord
	GroupTraces    map[GroupKey]TraceRecord
	BehaviorTraces map[string]TraceRecord

	ValuationProfile map[string]float64
	PersonalHalfLife float64
	GroupHalfLife    float64
	BehaviorHalfLife float64
	ScarHalfLife     float64
	ChannelWeights   ChannelWeights
	AffinityScale    float64

	RandomSeed int64

	// ActionType/SpellSchool freeze the parts of AffordanceContext the
	// evaluation pipeline branches on, so Replay can reconstruct the exact
	// context evaluateOne saw without depending on anything live.
	ActionType  string
	SpellSchool string

	ComputedAffinity float64
	ThresholdLabel   string
	AffordanceKey    string

	// TriggeredKeys is every affordance key that triggered during the
	// original evaluation, in registration order, so Replay knows which
	// candidates to expect triggered again.
	TriggeredKeys []string

	FinalAdjustments    map[string]float64
	FinalTells          []string
	FinalRedirectTarget string
}

// deepCopyPersonalTraces clones a personal-trace map for freezing into a snapshot.
func deepCopyPersonalTraces(m map[PersonalKey]*TraceRecord) map[PersonalKey]TraceRecord {
	out := make(map[PersonalKey]TraceRecord, len(m))
	for k, v := range m {
		out[k] = *v
	}
	return out
}

func deepCopyGroupTraces(m map[GroupKey]*TraceRecord) map[GroupKey]TraceRecord {
	out := make(map[GroupKey]TraceRecord, len(m))
	for k, v := range m {
		out[k] = *v
	}
	return out
}

func deepCopyBehaviorTraces(m map[string]*TraceRecord) map[string]TraceRecord {
	out := make(map[string]TraceRecord, len(m))
	for k, v := range m {
		out[k] = *v
	}
	return out
}

func copyValuationProfile(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Replay recomputes affinity from the snapshot's frozen traces and config
// values alone (never from live entity state), then re-runs the affordance
// pipeline against reg from that recomputed affinity and asserts bit-exact
// equality with the stored final adjustments, tells, and redirect target.
// Cooldown and disabled-affordance gating are live entity state, not frozen
// evaluation input, so Replay does not attempt to reproduce them: it only
// re-derives the deterministic math of the affordances that are recorded
// as having triggered the first time. Any mismatch returns
// ErrSnapshotMismatch (§4.9, §7).
func Replay(reg *AffordanceRegistry, snap *AffordanceSnapshot) error {
	shadow := &Entity{
		ValuationProfile: snap.ValuationProfile,
		PersonalTraces:   make(map[PersonalKey]*TraceRecord, len(snap.PersonalTraces)),
		GroupTraces:      make(map[GroupKey]*TraceRecord, len(snap.GroupTraces)),
		BehaviorTraces:   make(map[string]*TraceRecord, len(snap.BehaviorTraces)),
	}
	for k, v := range snap.PersonalTraces {
		tr := v
		shadow.PersonalTraces[k] = &tr
	}
	for k, v := range snap.GroupTraces {
		tr := v
		shadow.GroupTraces[k] = &tr
	}
	for k, v := range snap.BehaviorTraces {
		tr := v
		shadow.BehaviorTraces[k] = &tr
	}

	actorTags := make(map[string]struct{}, len(snap.ActorTags))
	for _, t := range snap.ActorTags {
		actorTags[t] = struct{}{}
	}

	recomputed := recomputeAffinityFromFrozen(snap, shadow, actorTags)
	if recomputed != snap.ComputedAffinity {
		return errSnapshotMismatchf("affinity", snap.ID)
	}

	ctx := AffordanceContext{
		ActorID:     snap.ActorID,
		ActorTags:   snap.ActorTags,
		EntityID:    snap.EntityID,
		ActionType:  snap.ActionType,
		SpellSchool: snap.SpellSchool,
		Timestamp:   snap.EvalTime,
	}
	cfg := configFromSnapshot(snap)
	rng := rand.New(rand.NewSource(snap.RandomSeed))
	singleTriggerMode := snap.ActionType == "move.pass"

	adjustments := make(map[string]float64)
	var tells []string
	var redirect string
	var triggeredKeys []string

	for _, def := range registryCandidates(reg, singleTriggerMode) {
		triggered, _, tell, defAdjustments, defRedirect := evaluateOne(cfg, shadow, def, ctx, recomputed, rng)
		if !triggered {
			continue
		}
		for k, v := range defAdjustments {
			adjustments[k] = v
		}
		tells = append(tells, tell)
		if defRedirect != "" {
			redirect = defRedirect
		}
		triggeredKeys = append(triggeredKeys, def.Key)
		if singleTriggerMode {
			break
		}
	}

	if !stringSlicesEqual(triggeredKeys, snap.TriggeredKeys) {
		return errSnapshotMismatchf("triggered_keys", snap.ID)
	}
	if !floatMapsEqual(adjustments, snap.FinalAdjustments) {
		return errSnapshotMismatchf("adjustments", snap.ID)
	}
	if !stringSlicesEqual(tells, snap.FinalTells) {
		return errSnapshotMismatchf("tells", snap.ID)
	}
	if redirect != snap.FinalRedirectTarget {
		return errSnapshotMismatchf("redirect_target", snap.ID)
	}
	return nil
}

// configFromSnapshot rebuilds the minimal *Config evaluateOne's affordance
// conditions need, from the fields actually frozen in the snapshot.
func configFromSnapshot(snap *AffordanceSnapshot) *Config {
	return &Config{ChannelWeights: snap.ChannelWeights, AffinityScale: snap.AffinityScale}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func floatMapsEqual(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// recomputeAffinityFromFrozen mirrors computeAffinity but reads from the
// fields actually frozen in the snapshot (half-lives/weights/scale) rather
// than a live *Config, since replay must not depend on the current config
// snapshot having the same values it did at trigger time.
func recomputeAffinityFromFrozen(snap *AffordanceSnapshot, shadow *Entity, actorTags map[string]struct{}) float64 {
	var personal float64
	for key, tr := range shadow.PersonalTraces {
		if key.ActorID != snap.ActorID {
			continue
		}
		personal += decayedValue(tr, snap.PersonalHalfLife, snap.EvalTime) * getValuation(shadow.ValuationProfile, key.EventType)
	}

	var group float64
	for key, tr := range shadow.GroupTraces {
		if _, ok := actorTags[key.Tag]; !ok {
			continue
		}
		hl := snap.GroupHalfLife
		if tr.IsScar {
			hl = snap.ScarHalfLife
		}
		group += decayedValue(tr, hl, snap.EvalTime) * getValuation(shadow.ValuationProfile, key.EventType)
	}

	var behavior float64
	for eventType, tr := range shadow.BehaviorTraces {
		behavior += decayedValue(tr, snap.BehaviorHalfLife, snap.EvalTime) * getValuation(shadow.ValuationProfile, eventType)
	}

	w := snap.ChannelWeights
	raw := w.Personal*personal + w.Group*group + w.Behavior*behavior
	return tanhAffinity(raw, snap.AffinityScale)
}

func errSnapshotMismatchf(field, id string) error {
	return &snapshotMismatchError{field: field, id: id}
}

type snapshotMismatchError struct {
	field string
	id    string
}

func (e *snapshotMismatchError) Error() string {
	return "affinity: snapshot " + e.id + " mismatch on " + e.field
}
func (e *snapshotMismatchError) Unwrap() error { return ErrSnapshotMismatch }
