package affinity

// DefaultCatalog returns the ten affordances of the reference world. The
// affordance set and tell voice are drawn from original_source's
// AFFORDANCE_DEFAULTS/TELLS tables, supplementing the two worked examples
// spec.md's distillation carries (pathing, spell_side_effects). Tell
// strings are re-authored where the source's originals would trip the
// narrower forbidden-pattern validator of §6. The numeric thresholds,
// clamps, cooldowns, and trigger probabilities below are NOT a verbatim
// port: this package's evaluateOne applies a single hostile-positive /
// favorable-negative severity sign convention, whereas the source gives
// each affordance its own independently-signed hostile_clamp/
// favorable_clamp pair. Porting the source's numbers blindly under a
// different sign convention risks silently inverting polarity for some
// affordances, so the values here are tuned fresh and validated against
// this package's own tests instead (see DESIGN.md, "Open Question:
// affordance numeric tuning"). Registration order here is evaluation
// order (§4.8 step 3, fixed registration order).
func DefaultCatalog() []*AffordanceDefinition {
	return []*AffordanceDefinition{
		pathingAffordance(),
		misleadingNavigationAffordance(),
		encounterBiasAffordance(),
		resourceScarcityAffordance(),
		spellSideEffectsAffordance(),
		restQualityAffordance(),
		ambientMessagingAffordance(),
		lootQualityAffordance(),
		weatherMicroclimateAffordance(),
		animalMessengersAffordance(),
	}
}

func pathingAffordance() *AffordanceDefinition {
	return &AffordanceDefinition{
		Key:                "pathing",
		HostileThreshold:   -0.3,
		FavorableThreshold: 0.3,
		HostileClamp:       0.4,
		FavorableClamp:     0.3,
		Handles:            []string{"room.travel_time_modifier"},
		CooldownSeconds:    600,
		TriggerProbability: 1.0,
		HostileTells: []string{
			"The path twists underfoot, as if reluctant to let you through.",
			"Brambles seem to reach a little further into the trail here.",
			"The ground grows uneven and slows your stride.",
		},
		FavorableTells: []string{
			"The way opens smoothly, almost welcoming your steps.",
			"A faint breeze seems to clear the trail ahead of you.",
			"The path feels shorter than it should, somehow.",
		},
	}
}

func misleadingNavigationAffordance() *AffordanceDefinition {
	return &AffordanceDefinition{
		Key:                "misleading_navigation",
		HostileThreshold:   -0.5,
		FavorableThreshold: 0,
		HostileClamp:       1.0,
		FavorableClamp:     0,
		Handles:            []string{"room.redirect_target"},
		CooldownSeconds:    1800,
		TriggerProbability: 0.25,
		HostileTells: []string{
			"For a moment the landmarks seem unfamiliar.",
			"You lose your sense of direction for a heartbeat.",
			"The trail forks somewhere you didn't expect it to.",
		},
	}
}

func encounterBiasAffordance() *AffordanceDefinition {
	return &AffordanceDefinition{
		Key:                "encounter_bias",
		HostileThreshold:   -0.4,
		FavorableThreshold: 0.4,
		HostileClamp:       0.5,
		FavorableClamp:     0.3,
		Handles:            []string{"room.encounter_rate_modifier", "npc.aggro_radius_modifier"},
		CooldownSeconds:    900,
		TriggerProbability: 1.0,
		HostileTells: []string{
			"You catch movement at the edge of your vision more than once.",
			"Something seems to be tracking your progress through the brush.",
		},
		FavorableTells: []string{
			"The wildlife here seems unusually unbothered by your presence.",
			"It's quieter than you'd expect, in a reassuring way.",
		},
	}
}

func resourceScarcityAffordance() *AffordanceDefinition {
	return &AffordanceDefinition{
		Key:                "resource_scarcity",
		HostileThreshold:   -0.5,
		FavorableThreshold: 0.5,
		HostileClamp:       0.4,
		FavorableClamp:     0.4,
		Handles:            []string{"harvest.yield_modifier"},
		CooldownSeconds:    1200,
		TriggerProbability: 1.0,
		HostileTells: []string{
			"The underbrush here looks picked over and thin.",
			"Little worth gathering seems to remain nearby.",
		},
		FavorableTells: []string{
			"The growth here looks unusually abundant.",
			"Everything within reach seems ready for the taking.",
		},
	}
}

func spellSideEffectsAffordance() *AffordanceDefinition {
	return &AffordanceDefinition{
		Key:                "spell_side_effects",
		HostileThreshold:   -0.3,
		FavorableThreshold: 0.3,
		HostileClamp:       0.25,
		FavorableClamp:     0.2,
		Handles:            []string{"spell.power_modifier", "spell.backfire_chance"},
		CooldownSeconds:    0,
		TriggerProbability: 1.0,
		HostileTells: []string{
			"The air resists your casting, just slightly.",
			"Your spell gutters before catching properly.",
		},
		FavorableTells: []string{
			"The casting feels unusually sure in your hands.",
			"Your spell catches on the first try, cleanly.",
		},
		Condition: fireInForestCondition,
	}
}

// fireInForestCondition implements the fire-in-forest special case from
// original_source's _evaluate_spell_side_effects: a fire-school spell cast
// where the target entity's harm.fire valuation is strongly negative stacks
// an additional power penalty and backfire increment on top of the base
// clamp, in either the hostile or favorable branch.
func fireInForestCondition(cfg *Config, e *Entity, ctx AffordanceContext, affinity float64) (float64, float64, bool) {
	if ctx.SpellSchool != "fire" {
		return 0, 0, false
	}
	if getValuation(e.ValuationProfile, "harm.fire") >= -0.5 {
		return 0, 0, false
	}
	return 0.15, 0.1, true
}

func restQualityAffordance() *AffordanceDefinition {
	return &AffordanceDefinition{
		Key:                "rest_quality",
		HostileThreshold:   -0.4,
		FavorableThreshold: 0.4,
		HostileClamp:       0.3,
		FavorableClamp:     0.3,
		Handles:            []string{"rest.healing_modifier"},
		CooldownSeconds:    3600,
		TriggerProbability: 1.0,
		HostileTells: []string{
			"Sleep comes only fitfully here.",
			"You wake more than once, unsettled for no clear reason.",
		},
		FavorableTells: []string{
			"You sleep more deeply than you expected to.",
			"Rest comes easily, and you wake feeling clear-headed.",
		},
	}
}

func ambientMessagingAffordance() *AffordanceDefinition {
	return &AffordanceDefinition{
		Key:                "ambient_messaging",
		HostileThreshold:   -0.2,
		FavorableThreshold: 0.2,
		FlavorOnly:         true,
		CooldownSeconds:    300,
		TriggerProbability: 0.4,
		HostileTells: []string{
			"A chill settles over the area that has nothing to do with the weather.",
			"The quiet here feels watchful rather than peaceful.",
			"Shadows seem to linger a moment longer than they should.",
			"There's a tension in the air you can't quite place.",
		},
		FavorableTells: []string{
			"There's an easy warmth to this place that's hard to explain.",
			"The light seems to fall a little more gently here.",
			"Something about this spot feels looked after.",
			"A sense of quiet goodwill seems to hang over the area.",
		},
	}
}

func lootQualityAffordance() *AffordanceDefinition {
	return &AffordanceDefinition{
		Key:                "loot_quality",
		HostileThreshold:   -0.4,
		FavorableThreshold: 0.4,
		HostileClamp:       0.3,
		FavorableClamp:     0.4,
		Handles:            []string{"loot.quality_modifier"},
		CooldownSeconds:    1200,
		TriggerProbability: 1.0,
		HostileTells: []string{
			"Whatever you find here looks worn and unremarkable.",
			"Nothing you turn up seems worth a second look.",
		},
		FavorableTells: []string{
			"You turn up something finer than you expected.",
			"What you find here seems better cared for than usual.",
		},
	}
}

func weatherMicroclimateAffordance() *AffordanceDefinition {
	return &AffordanceDefinition{
		Key:                "weather_microclimate",
		HostileThreshold:   -0.5,
		FavorableThreshold: 0.5,
		FlavorOnly:         true,
		CooldownSeconds:    1800,
		TriggerProbability: 0.3,
		HostileTells: []string{
			"A cold pocket of air settles around you, out of step with the rest of the day.",
			"Clouds seem to gather directly overhead, nowhere else.",
		},
		FavorableTells: []string{
			"The light breaks through just over this spot, warmer than it should be.",
			"A gentle breeze follows you here, out of step with the wind elsewhere.",
		},
	}
}

func animalMessengersAffordance() *AffordanceDefinition {
	return &AffordanceDefinition{
		Key:                "animal_messengers",
		HostileThreshold:   -0.6,
		FavorableThreshold: 0.6,
		FlavorOnly:         true,
		CooldownSeconds:    3600,
		TriggerProbability: 0.2,
		HostileTells: []string{
			"A crow watches you for longer than feels natural before taking flight.",
			"A lone animal keeps a wary distance, tracking your every move.",
		},
		FavorableTells: []string{
			"A small bird lands nearby and seems untroubled by you.",
			"A fox crosses your path without any sign of alarm.",
		},
	}
}
