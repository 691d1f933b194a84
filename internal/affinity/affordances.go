package affinity

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
)

// AffordanceRegistry holds the validated, registration-ordered set of
// affordances available to EvaluateAffordances (§9 tagged-variant
// registry). Validation runs once at registration; an invalid definition
// is a fatal startup error, never a runtime surprise.
type AffordanceRegistry struct {
	defs  []*AffordanceDefinition
	byKey map[string]*AffordanceDefinition
}

// NewAffordanceRegistry validates and indexes defs in order.
func NewAffordanceRegistry(defs []*AffordanceDefinition) (*AffordanceRegistry, error) {
	r := &AffordanceRegistry{byKey: make(map[string]*AffordanceDefinition, len(defs))}
	for _, d := range defs {
		if err := validateAffordanceDefinition(d); err != nil {
			return nil, err
		}
		if _, dup := r.byKey[d.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate affordance key %q", ErrValidation, d.Key)
		}
		r.defs = append(r.defs, d)
		r.byKey[d.Key] = d
	}
	return r, nil
}

// Get returns a registered definition by key.
func (r *AffordanceRegistry) Get(key string) (*AffordanceDefinition, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

// seedFor derives a deterministic per-evaluation random seed from
// (actor, entity, timestamp-millis), matching original_source's
// evaluate_affordances seeding so the same inputs always produce the same
// stochastic roll and that seed can be replayed verbatim (§5 Randomness).
func seedFor(actorID, entityID string, ts time.Time) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", actorID, entityID, ts.UnixMilli())
	return int64(h.Sum64())
}

// EvaluateAffordances is the single public evaluator of §4.8. It computes
// affinity once, then walks the registry in fixed registration order. For
// move.pass only the pathing affordance is considered (single-primary-
// effect rule, §4.8 step 2, locked per spec.md's Open Question
// resolution): evaluation stops after the first trigger in that mode.
func EvaluateAffordances(cfg *Config, reg *AffordanceRegistry, e *Entity, inst *Institution, ctx AffordanceContext) AffordanceOutcome {
	e.Lock()
	defer e.Unlock()

	actorTags := make(map[string]struct{}, len(ctx.ActorTags))
	for _, t := range ctx.ActorTags {
		actorTags[t] = struct{}{}
	}

	affinity, scores := computeAffinity(cfg, e, ctx.ActorID, actorTags, ctx.Timestamp)
	if inst != nil && cfg.ChannelWeights.Institution > 0 {
		bias := institutionalBias(cfg, inst, ctx.ActorTags)
		affinity = clampUnit(affinity + bias)
		scores.Institution = bias
	}

	label := ThresholdLabel(affinity)
	contributions := topContributingTraces(cfg, e, ctx.ActorID, actorTags, ctx.Timestamp, 10)

	singleTriggerMode := ctx.ActionType == "move.pass"

	seed := seedFor(ctx.ActorID, ctx.EntityID, ctx.Timestamp)
	rng := rand.New(rand.NewSource(seed))

	outcome := AffordanceOutcome{
		Adjustments:    make(map[string]float64),
		Affinity:       affinity,
		ThresholdLabel: label,
		Scores:         scores,
	}

	for _, def := range registryCandidates(reg, singleTriggerMode) {
		if _, disabled := e.DisabledAffordances[def.Key]; disabled {
			continue
		}
		triggered, severity, tell, adjustments, redirect := evaluateOne(cfg, e, def, ctx, affinity, rng)
		if !triggered {
			continue
		}

		token := cooldownToken(def.Key, ctx.ActorID, ctx.EntityID)
		if def.CooldownSeconds > 0 {
			if isCooldownActive(e, token, ctx.Timestamp) {
				continue
			}
			consumeCooldown(e, token, ctx.Timestamp, time.Duration(def.CooldownSeconds*float64(time.Second)))
			outcome.CooldownsConsumed = append(outcome.CooldownsConsumed, token)
		}

		for k, v := range adjustments {
			outcome.Adjustments[k] = v
		}
		outcome.Tells = append(outcome.Tells, tell)
		if redirect != "" {
			outcome.RedirectTarget = redirect
		}

		outcome.TriggerLog = append(outcome.TriggerLog, AffordanceTriggerLog{
			ID:                 uuid.NewString(),
			AffordanceKey:      def.Key,
			ActorID:            ctx.ActorID,
			EntityID:           ctx.EntityID,
			Timestamp:          ctx.Timestamp,
			ComputedAffinity:   affinity,
			ThresholdCrossed:   label,
			Severity:           severity,
			Adjustments:        copyFloatMap(adjustments),
			Tells:              []string{tell},
			ContributingTraces: contributions,
		})

		if singleTriggerMode {
			break
		}
	}

	outcome.Triggered = len(outcome.TriggerLog) > 0
	if outcome.Triggered {
		outcome.Snapshot = buildSnapshot(cfg, e, ctx, affinity, label, seed, outcome)
	}
	return outcome
}

// registryCandidates returns the affordances to consider for this
// evaluation: just pathing in single-trigger mode, the full registration-
// ordered list otherwise.
func registryCandidates(reg *AffordanceRegistry, singleTriggerMode bool) []*AffordanceDefinition {
	if !singleTriggerMode {
		return reg.defs
	}
	if d, ok := reg.Get("pathing"); ok {
		return []*AffordanceDefinition{d}
	}
	return nil
}

// evaluateOne runs the threshold/probability/severity/tell logic for a
// single affordance definition against the already-computed affinity.
// Caller holds e's lock.
func evaluateOne(cfg *Config, e *Entity, def *AffordanceDefinition, ctx AffordanceContext, affinity float64, rng *rand.Rand) (triggered bool, severity float64, tell string, adjustments map[string]float64, redirect string) {
	hostile := def.HostileThreshold != 0 && affinity < def.HostileThreshold
	favorable := def.FavorableThreshold != 0 && affinity > def.FavorableThreshold
	if !hostile && !favorable {
		return false, 0, "", nil, ""
	}

	// The pathing move.pass check skips the probability roll entirely
	// (§4.8 step 2); every other affordance rolls once per evaluation.
	skipRoll := def.Key == "pathing" && ctx.ActionType == "move.pass"
	if !skipRoll && def.TriggerProbability < 1.0 {
		if rng.Float64() > def.TriggerProbability {
			return false, 0, "", nil, ""
		}
	}

	var extraSeverity, extraBackfire float64
	if def.Condition != nil {
		if es, eb, ok := def.Condition(cfg, e, ctx, affinity); ok {
			extraSeverity, extraBackfire = es, eb
		}
	}

	if hostile {
		severity = scaleSeverity(affinity, def.HostileThreshold, def.HostileClamp) + extraSeverity
		if len(def.HostileTells) > 0 {
			tell = def.HostileTells[rng.Intn(len(def.HostileTells))]
		}
	} else {
		severity = scaleSeverity(affinity, def.FavorableThreshold, def.FavorableClamp) + extraSeverity
		if len(def.FavorableTells) > 0 {
			tell = def.FavorableTells[rng.Intn(len(def.FavorableTells))]
		}
	}

	if def.FlavorOnly {
		return true, severity, tell, nil, ""
	}

	adjustments = make(map[string]float64, len(def.Handles))
	switch def.Key {
	case "spell_side_effects":
		if len(def.Handles) > 0 {
			adjustments[def.Handles[0]] = sign(hostile) * severity
		}
		if len(def.Handles) > 1 {
			adjustments[def.Handles[1]] = absF(severity) + extraBackfire
		}
	case "misleading_navigation":
		redirect = "misdirected"
		if len(def.Handles) > 0 {
			adjustments[def.Handles[0]] = 1
		}
	default:
		for _, h := range def.Handles {
			adjustments[h] = sign(hostile) * severity
		}
	}

	return true, severity, tell, adjustments, redirect
}

func sign(hostile bool) float64 {
	if hostile {
		return 1
	}
	return -1
}

// scaleSeverity linearly scales |affinity| above threshold into [0,clamp],
// clamped to a position in [0,1] first (§4.8 step 3c).
func scaleSeverity(affinity, threshold, clamp float64) float64 {
	if clamp == 0 {
		return 0
	}
	span := 1.0 - absF(threshold)
	if span <= 0 {
		return clamp
	}
	position := (absF(affinity) - absF(threshold)) / span
	position = clamp01(position)
	return clamp * position
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// institutionalBias returns the additive institutional-channel
// contribution: the mean cached stance over all of the actor's tags
// (untracked tags count as 0), scaled by
// channel_weights.institution (§4.10 "additive bias ... typed as a
// separate institutional channel with its own small weight").
func institutionalBias(cfg *Config, inst *Institution, actorTags []string) float64 {
	var sum float64
	var n int
	for _, t := range actorTags {
		sum += inst.Stance(t)
		n++
	}
	if n == 0 {
		return 0
	}
	return cfg.ChannelWeights.Institution * (sum / float64(n))
}

// topContributingTraces collects the top-N traces across all three
// channels by absolute weighted contribution (§4.8 step 3g). Caller holds
// e's lock.
func topContributingTraces(cfg *Config, e *Entity, actorID string, actorTags map[string]struct{}, now time.Time, topN int) []TraceContribution {
	personalHL, groupHL, behaviorHL := cfg.HalfLivesFor(e.Kind)

	var contributions []TraceContribution
	for key, tr := range e.PersonalTraces {
		if key.ActorID != actorID {
			continue
		}
		dv := decayedValue(tr, personalHL, now)
		val := getValuation(e.ValuationProfile, key.EventType)
		contributions = append(contributions, TraceContribution{
			Channel: "personal", Key: key.ActorID + "|" + key.EventType,
			DecayedValue: dv, Valuation: val, WeightedContribution: dv * val,
		})
	}
	for key, tr := range e.GroupTraces {
		if _, ok := actorTags[key.Tag]; !ok {
			continue
		}
		dv := decayedValue(tr, groupHalfLife(cfg, tr, groupHL), now)
		val := getValuation(e.ValuationProfile, key.EventType)
		contributions = append(contributions, TraceContribution{
			Channel: "group", Key: key.Tag + "|" + key.EventType,
			DecayedValue: dv, Valuation: val, WeightedContribution: dv * val,
		})
	}
	for eventType, tr := range e.BehaviorTraces {
		dv := decayedValue(tr, behaviorHL, now)
		val := getValuation(e.ValuationProfile, eventType)
		contributions = append(contributions, TraceContribution{
			Channel: "behavior", Key: eventType,
			DecayedValue: dv, Valuation: val, WeightedContribution: dv * val,
		})
	}

	sort.Slice(contributions, func(i, j int) bool {
		return absF(contributions[i].WeightedContribution) > absF(contributions[j].WeightedContribution)
	})
	if len(contributions) > topN {
		contributions = contributions[:topN]
	}
	return contributions
}

// buildSnapshot freezes the entity's channel tables, relevant config, and
// final outcome into an AffordanceSnapshot (§4.9). Caller holds e's lock.
func buildSnapshot(cfg *Config, e *Entity, ctx AffordanceContext, affinity float64, label string, seed int64, outcome AffordanceOutcome) *AffordanceSnapshot {
	personalHL, groupHL, behaviorHL := cfg.HalfLivesFor(e.Kind)

	return &AffordanceSnapshot{
		ID:               uuid.NewString(),
		ActorID:          ctx.ActorID,
		ActorTags:        copyStrings(ctx.ActorTags),
		EntityID:         ctx.EntityID,
		EvalTime:         ctx.Timestamp,
		PersonalTraces:   deepCopyPersonalTraces(e.PersonalTraces),
		GroupTraces:      deepCopyGroupTraces(e.GroupTraces),
		BehaviorTraces:   deepCopyBehaviorTraces(e.BehaviorTraces),
		ValuationProfile: copyValuationProfile(e.ValuationProfile),
		PersonalHalfLife: personalHL,
		GroupHalfLife:    groupHL,
		BehaviorHalfLife: behaviorHL,
		ScarHalfLife:     cfg.Compaction.ScarHalfLifeDays * 86400,
		ChannelWeights:   cfg.ChannelWeights,
		AffinityScale:    cfg.AffinityScale,
		RandomSeed:       seed,
		ActionType:       ctx.ActionType,
		SpellSchool:      ctx.SpellSchool,
		ComputedAffinity: affinity,
		ThresholdLabel:   label,
		AffordanceKey:    firstTriggeredKey(outcome.TriggerLog),
		TriggeredKeys:    triggeredKeysOf(outcome.TriggerLog),
		FinalAdjustments: copyFloatMap(outcome.Adjustments),
		FinalTells:       copyStrings(outcome.Tells),
		FinalRedirectTarget: outcome.RedirectTarget,
	}
}

func triggeredKeysOf(logs []AffordanceTriggerLog) []string {
	if len(logs) == 0 {
		return nil
	}
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.AffordanceKey
	}
	return out
}

func firstTriggeredKey(logs []AffordanceTriggerLog) string {
	if len(logs) == 0 {
		return ""
	}
	return logs[0].AffordanceKey
}
