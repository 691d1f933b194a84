package affinity

import "time"

// TickReport summarizes a single world_tick call (§4.6). Compaction never
// runs as part of a tick, so the report carries no compaction counts; those
// come from CompactTraces' own CompactionReport.
type TickReport struct {
	EntityID            string
	Timestamp           time.Time
	TracesPruned        int
	CooldownsCleared    int
	TimeSinceLastTick   time.Duration
}

// WorldTick runs the scheduled housekeeping pass of §4.6 over a single
// entity: prune traces below prune_threshold, refresh saturation from
// remaining decayed mass, sweep expired cooldowns, stamp last_tick. It does
// not compact — that is the separate CompactTraces operator. Calling
// WorldTick twice with no intervening events and no time advance leaves
// traces bit-identical (§8 idempotence).
func WorldTick(cfg *Config, e *Entity, now time.Time) TickReport {
	e.Lock()
	defer e.Unlock()

	since := now.Sub(e.LastTick)
	report := TickReport{EntityID: e.ID, Timestamp: now, TimeSinceLastTick: since}

	personalHL, groupHL, behaviorHL := cfg.HalfLivesFor(e.Kind)
	threshold := cfg.Compaction.PruneThreshold

	for key, tr := range e.PersonalTraces {
		if absF(decayedValue(tr, personalHL, now)) < threshold {
			delete(e.PersonalTraces, key)
			report.TracesPruned++
		}
	}
	for key, tr := range e.GroupTraces {
		if absF(decayedValue(tr, groupHalfLife(cfg, tr, groupHL), now)) < threshold {
			delete(e.GroupTraces, key)
			report.TracesPruned++
		}
	}
	for key, tr := range e.BehaviorTraces {
		if absF(decayedValue(tr, behaviorHL, now)) < threshold {
			delete(e.BehaviorTraces, key)
			report.TracesPruned++
		}
	}

	refreshSaturation(cfg, e, now)

	report.CooldownsCleared = sweepExpiredCooldowns(e, now)

	e.LastTick = now
	return report
}

// refreshSaturation recomputes each channel's saturation as the sum of
// remaining decayed trace mass over the channel's configured capacity,
// clamped to [0,1] (§4.6 step 2). This resolves spec.md's open question
// about the saturation decay curve between ticks: because saturation is
// defined as a cache derived from trace mass (§3), recomputing it directly
// from the traces' own decay needs no separate tunable curve. Caller must
// hold e's lock.
func refreshSaturation(cfg *Config, e *Entity, now time.Time) {
	personalHL, groupHL, behaviorHL := cfg.HalfLivesFor(e.Kind)

	var personalSum, groupSum, behaviorSum float64
	for _, tr := range e.PersonalTraces {
		personalSum += absF(decayedValue(tr, personalHL, now))
	}
	for _, tr := range e.GroupTraces {
		groupSum += absF(decayedValue(tr, groupHalfLife(cfg, tr, groupHL), now))
	}
	for _, tr := range e.BehaviorTraces {
		behaviorSum += absF(decayedValue(tr, behaviorHL, now))
	}

	cap := cfg.SaturationCapacity
	e.Saturation.Personal = clamp01(personalSum / cap.Personal)
	e.Saturation.Group = clamp01(groupSum / cap.Group)
	e.Saturation.Behavior = clamp01(behaviorSum / cap.Behavior)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
