package affinity

import "time"

// applySaturation dampens a raw intensity by the channel's cached
// saturation: effective = raw * (1 - saturation^2) (§4.3/§4.4).
func applySaturation(intensity, saturation float64) float64 {
	return intensity * (1 - saturation*saturation)
}

// updateTrace decays tr to the event's timestamp and folds in the new
// (already saturation-dampened) intensity. Mutates tr in place.
func updateTrace(tr *TraceRecord, intensity float64, ts time.Time, halfLifeSeconds float64) {
	decayed := decayedValue(tr, halfLifeSeconds, ts)
	tr.Accumulated = decayed + intensity
	tr.LastUpdated = ts
	tr.EventCount++
}

func newTrace(intensity float64, ts time.Time) *TraceRecord {
	return &TraceRecord{Accumulated: intensity, LastUpdated: ts, EventCount: 1}
}

// LogEvent updates an entity's three channels for a single event (§4.3):
// one personal entry keyed by (actor, event type), one group entry per
// actor tag, one behavior entry keyed by event type, each created or
// updated atomically under the entity's lock. Saturation is read from the
// entity's cached SaturationState, never recomputed here — that happens on
// tick (§4.6).
func LogEvent(cfg *Config, e *Entity, ev Event) {
	e.Lock()
	defer e.Unlock()

	personalHL, groupHL, behaviorHL := cfg.HalfLivesFor(e.Kind)

	// Personal channel.
	pKey := PersonalKey{ActorID: ev.ActorID, EventType: ev.EventType}
	pIntensity := applySaturation(ev.Intensity, e.Saturation.Personal)
	if tr, ok := e.PersonalTraces[pKey]; ok {
		updateTrace(tr, pIntensity, ev.Timestamp, personalHL)
	} else {
		e.PersonalTraces[pKey] = newTrace(pIntensity, ev.Timestamp)
	}

	// Group channel: one update per actor tag.
	gIntensity := applySaturation(ev.Intensity, e.Saturation.Group)
	for tag := range ev.ActorTags {
		gKey := GroupKey{Tag: tag, EventType: ev.EventType}
		if tr, ok := e.GroupTraces[gKey]; ok {
			updateTrace(tr, gIntensity, ev.Timestamp, groupHL)
		} else {
			e.GroupTraces[gKey] = newTrace(gIntensity, ev.Timestamp)
		}
	}

	// Behavior channel.
	bIntensity := applySaturation(ev.Intensity, e.Saturation.Behavior)
	if tr, ok := e.BehaviorTraces[ev.EventType]; ok {
		updateTrace(tr, bIntensity, ev.Timestamp, behaviorHL)
	} else {
		e.BehaviorTraces[ev.EventType] = newTrace(bIntensity, ev.Timestamp)
	}
}

// UpdateBearerTrace updates an artifact's bearer channel (§3 table, dropped
// feature supplemented from original_source/artifacts.py): first carry
// creates a BearerRecord; subsequent carries accumulate carry time and
// recompute an intensity that ramps linearly to 1.0 over seven days.
func UpdateBearerTrace(e *Entity, bearerID string, now time.Time) {
	e.Lock()
	defer e.Unlock()

	const rampSeconds = 7 * 86400.0

	rec, ok := e.Bearers[bearerID]
	if !ok {
		rec = &BearerRecord{BearerID: bearerID, LastCarried: now}
		e.Bearers[bearerID] = rec
	} else {
		elapsed := now.Sub(rec.LastCarried).Seconds()
		if elapsed > 0 {
			rec.AccumulatedSec += elapsed
		}
		rec.LastCarried = now
	}
	rec.Intensity = rec.AccumulatedSec / rampSeconds
	if rec.Intensity > 1 {
		rec.Intensity = 1
	}
	e.CurrentBearer = bearerID
}
