package affinity

import "strings"

// getValuation resolves event_type to a signed weight using exact match,
// then category-prefix match (the text before the first '.'), then a
// neutral default. Never raises; missing types are neutral by design
// (§4.4).
func getValuation(profile map[string]float64, eventType string) float64 {
	if v, ok := profile[eventType]; ok {
		return v
	}
	if i := strings.IndexByte(eventType, '.'); i >= 0 {
		if v, ok := profile[eventType[:i]]; ok {
			return v
		}
	}
	return 0.0
}

// eventCategory returns the dotted prefix of an event type, or the whole
// string if it carries no category separator.
func eventCategory(eventType string) string {
	if i := strings.IndexByte(eventType, '.'); i >= 0 {
		return eventType[:i]
	}
	return eventType
}
