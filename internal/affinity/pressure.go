package affinity

import "time"

// EvaluatePressure implements original_source's evaluate_pressure for
// artifacts (§3's "optional pressure-rule list"): a bearer record must
// already exist, then rules are checked in declaration order for a trigger
// match and, when scales_with_influence is expressed as a nonzero Floor,
// an intensity gate. The first matching rule wins; there is no per-rule
// cooldown tracking and Condition is not evaluated beyond the trigger
// match, matching the grounding source's own explicit gaps
// (evaluate_pressure's "TODO: Add cooldown tracking per rule" and
// "TODO: Implement condition evaluation... simplified: match trigger type").
func EvaluatePressure(e *Entity, bearerID, triggerType string, now time.Time) (event string, fired bool) {
	e.Lock()
	defer e.Unlock()

	rec, ok := e.Bearers[bearerID]
	if !ok {
		return "", false
	}

	for _, rule := range e.PressureRules {
		if rule.Trigger != triggerType {
			continue
		}
		if rule.Floor > 0 && rec.Intensity < rule.Floor {
			continue
		}
		return rule.PressureEvent, true
	}
	return "", false
}
