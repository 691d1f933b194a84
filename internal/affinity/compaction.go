package affinity

import "time"

// CompactionReport summarizes a single CompactTraces call (§4.6).
type CompactionReport struct {
	EntityID       string
	Timestamp      time.Time
	HotToWarm      int
	WarmToScar     int
	TracesCompacted int
}

// CompactTraces is the explicit, host-invoked compaction operator of §4.6.
// It never runs as part of WorldTick. Order matters: scars are created from
// aging warm-tier group traces before those traces are folded away, so high
// -intensity memory is not lost to aggregation (grounded in
// original_source's compact_traces orchestration).
func CompactTraces(cfg *Config, e *Entity, now time.Time) CompactionReport {
	e.Lock()
	defer e.Unlock()

	report := CompactionReport{EntityID: e.ID, Timestamp: now}

	hotWindow := cfg.Compaction.HotWindowDays * 86400
	warmWindow := cfg.Compaction.WarmWindowDays * 86400

	report.HotToWarm += compactPersonalTraces(e, hotWindow, now)
	report.WarmToScar += createScarsFromWarm(cfg, e, warmWindow, now)
	report.HotToWarm += compactGroupTraces(cfg, e, warmWindow, now)

	report.TracesCompacted = report.HotToWarm + report.WarmToScar
	return report
}

// compactPersonalTraces drops personal traces once they age past the hot
// window: after the hot window, individual actor identities are forgotten
// entirely (no folding, pure deletion, §4.6).
func compactPersonalTraces(e *Entity, hotWindowSeconds float64, now time.Time) int {
	dropped := 0
	for key, tr := range e.PersonalTraces {
		age := now.Sub(tr.LastUpdated).Seconds()
		if age > hotWindowSeconds {
			delete(e.PersonalTraces, key)
			dropped++
		}
	}
	return dropped
}

// createScarsFromWarm promotes group traces older than the warm window and
// above the scar intensity threshold into long-half-life scars (is_scar
// true), keyed by (folded tag, folded category) just like the aggregation
// below. Non-institutional tags are folded to a catch-all before the scar
// is created, exactly as warm-tier folding does. Must run before
// compactGroupTraces so high-intensity traces are promoted, not merely
// merged away.
func createScarsFromWarm(cfg *Config, e *Entity, warmWindowSeconds float64, now time.Time) int {
	promoted := 0

	for key, tr := range e.GroupTraces {
		if tr.IsScar {
			continue
		}
		age := now.Sub(tr.LastUpdated).Seconds()
		if age <= warmWindowSeconds {
			continue
		}
		if absF(tr.Accumulated) <= cfg.Compaction.ScarIntensityThreshold {
			continue
		}
		foldedTag := foldActorTag(cfg, key.Tag)
		scarKey := GroupKey{Tag: foldedTag, EventType: eventCategory(key.EventType)}
		if existing, ok := e.GroupTraces[scarKey]; ok && existing != tr {
			existing.Accumulated += tr.Accumulated
			existing.EventCount += tr.EventCount
			if tr.LastUpdated.After(existing.LastUpdated) {
				existing.LastUpdated = tr.LastUpdated
			}
			existing.IsScar = true
			delete(e.GroupTraces, key)
		} else {
			tr.IsScar = true
			delete(e.GroupTraces, key)
			e.GroupTraces[scarKey] = tr
		}
		promoted++
	}
	return promoted
}

// compactGroupTraces folds group traces older than the warm window into
// aggregate (folded tag, folded category) entries. Folding happens at the
// warm-window threshold rather than the hot window: group traces remain
// individually addressable for roughly the warm window's span so recent
// actor-tag memory does not vanish the moment the hot window elapses
// (grounded in original_source's compact_group_traces rationale comment).
// Non-institutional tags fold into the same "other" catch-all foldActorTag
// uses for scar promotion, rather than being discarded: the aggregate tag
// still carries memory of prior non-institutional pressure on the entity.
func compactGroupTraces(cfg *Config, e *Entity, warmWindowSeconds float64, now time.Time) int {
	folded := 0
	aggregates := make(map[GroupKey]*TraceRecord)

	for key, tr := range e.GroupTraces {
		if tr.IsScar {
			continue
		}
		age := now.Sub(tr.LastUpdated).Seconds()
		if age <= warmWindowSeconds {
			continue
		}
		foldedKey := GroupKey{Tag: foldActorTag(cfg, key.Tag), EventType: eventCategory(key.EventType)}
		if agg, ok := aggregates[foldedKey]; ok {
			agg.Accumulated += tr.Accumulated
			agg.EventCount += tr.EventCount
			if tr.LastUpdated.After(agg.LastUpdated) {
				agg.LastUpdated = tr.LastUpdated
			}
		} else {
			aggregates[foldedKey] = &TraceRecord{
				Accumulated: tr.Accumulated,
				LastUpdated: tr.LastUpdated,
				EventCount:  tr.EventCount,
			}
		}
		delete(e.GroupTraces, key)
		folded++
	}

	for key, agg := range aggregates {
		if existing, ok := e.GroupTraces[key]; ok {
			existing.Accumulated += agg.Accumulated
			existing.EventCount += agg.EventCount
			if agg.LastUpdated.After(existing.LastUpdated) {
				existing.LastUpdated = agg.LastUpdated
			}
		} else {
			e.GroupTraces[key] = agg
		}
	}

	return folded
}

// foldActorTag returns tag unchanged if institutional, else a catch-all.
func foldActorTag(cfg *Config, tag string) string {
	if cfg.IsInstitutionalTag(tag) {
		return tag
	}
	return "other"
}
