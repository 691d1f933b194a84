package affinity

import (
	"fmt"
	"regexp"
)

// handleAllowlist is the closed set of mechanical handles the core may
// modulate (§6). An affordance referencing any other handle fails
// validation at registration time.
var handleAllowlist = map[string]struct{}{
	"room.travel_time_modifier":    {},
	"room.redirect_target":         {},
	"room.encounter_rate_modifier": {},
	"npc.aggro_radius_modifier":    {},
	"harvest.yield_modifier":       {},
	"spell.power_modifier":        {},
	"spell.backfire_chance":       {},
	"rest.healing_modifier":       {},
	"loot.quality_modifier":       {},
	"actor.stamina_modifier":      {},
	"actor.luck_modifier":         {},
	"action.skill_modifier":       {},
}

var forbiddenTellNumberOrPercent = regexp.MustCompile(`[+-]\d|\d+%`)
var forbiddenTellMeterWord = regexp.MustCompile(`(?i)\b(affinity|reputation|score|points?|meter)\b|affinity\s*:|reputation\s*:`)
var forbiddenTellSpeechVerb = regexp.MustCompile(`(?i)\b(says|whispers|urges|speaks)\b`)
var forbiddenTellCauseEffect = regexp.MustCompile(`(?i)\bbecause you\b`)

// validateHandle rejects any handle name outside the closed allowlist.
func validateHandle(handle string) error {
	if handle == "" {
		return nil
	}
	if _, ok := handleAllowlist[handle]; !ok {
		return fmt.Errorf("%w: handle %q is not in the allowed set", ErrValidation, handle)
	}
	return nil
}

// validateHandleCount enforces the <=2-mechanical-handle invariant of §1/§4.8.
func validateHandleCount(handles ...string) error {
	n := 0
	for _, h := range handles {
		if h != "" {
			n++
		}
	}
	if n > 2 {
		return fmt.Errorf("%w: affordance references %d handles, maximum is 2", ErrValidation, n)
	}
	return nil
}

// validateTell rejects tell strings matching the forbidden patterns of §6:
// numbers/percentages, meter words, "Affinity:"/"reputation:" prefixes, or
// entity-speech verbs.
func validateTell(tell string) error {
	if forbiddenTellNumberOrPercent.MatchString(tell) {
		return fmt.Errorf("%w: tell %q contains a numeric/percentage pattern", ErrValidation, tell)
	}
	if forbiddenTellMeterWord.MatchString(tell) {
		return fmt.Errorf("%w: tell %q contains a meter word", ErrValidation, tell)
	}
	if forbiddenTellSpeechVerb.MatchString(tell) {
		return fmt.Errorf("%w: tell %q contains an entity-speech verb", ErrValidation, tell)
	}
	if forbiddenTellCauseEffect.MatchString(tell) {
		return fmt.Errorf("%w: tell %q contains explicit cause-effect wording", ErrValidation, tell)
	}
	return nil
}

// validateValuationProfile enforces each weight lying in [-1,1] (§7).
func validateValuationProfile(profile map[string]float64) error {
	for eventType, w := range profile {
		if w < -1 || w > 1 {
			return fmt.Errorf("%w: valuation profile weight for %q = %v outside [-1,1]", ErrValidation, eventType, w)
		}
	}
	return nil
}

// validateAffordanceDefinition runs the full set of load-time checks on an
// AffordanceDefinition: handle count, handle names, and every tell string
// in both tables.
func validateAffordanceDefinition(def *AffordanceDefinition) error {
	if err := validateHandleCount(def.Handles...); err != nil {
		return fmt.Errorf("affordance %s: %w", def.Key, err)
	}
	for _, h := range def.Handles {
		if err := validateHandle(h); err != nil {
			return fmt.Errorf("affordance %s: %w", def.Key, err)
		}
	}
	for _, t := range def.HostileTells {
		if err := validateTell(t); err != nil {
			return fmt.Errorf("affordance %s: %w", def.Key, err)
		}
	}
	for _, t := range def.FavorableTells {
		if err := validateTell(t); err != nil {
			return fmt.Errorf("affordance %s: %w", def.Key, err)
		}
	}
	return nil
}
