package affinity

import "time"

// AffordanceDefinition is the tagged-variant registry entry of §9
// ("dynamic dispatch on affordances -> tagged-variant registry"): a value
// with a threshold, cooldown, clamp pair, handle names, and tell tables.
// Registered once at startup; validated by validateAffordanceDefinition.
type AffordanceDefinition struct {
	Key string

	// HostileThreshold/FavorableThreshold gate triggering: the affordance
	// fires on the hostile side when affinity < HostileThreshold (a
	// negative number) and on the favorable side when affinity >
	// FavorableThreshold (a positive number). A zero threshold on either
	// side disables that side.
	HostileThreshold   float64
	FavorableThreshold float64

	HostileClamp   float64 // max magnitude applied on the hostile side
	FavorableClamp float64

	Handles []string // <=2, validated against handleAllowlist

	HostileTells   []string
	FavorableTells []string

	CooldownSeconds float64 // 0 disables cooldown gating entirely

	// TriggerProbability, in (0,1], is rolled once per evaluation except
	// when skipped (see evaluateOne's skip rule for pathing on move.pass).
	// 1.0 means always trigger once thresholds/cooldowns pass.
	TriggerProbability float64

	// FlavorOnly affordances emit tells but no mechanical handle at all
	// (ambient_messaging, weather_microclimate, animal_messengers).
	FlavorOnly bool

	// Condition is an optional extra modifier evaluated with the entity and
	// context: when it returns ok, extraSeverity and extraBackfire are added
	// to the triggered result. It never blocks a trigger; ok=false only
	// means no extra is added. Used for fire-in-forest-style special cases.
	Condition func(cfg *Config, e *Entity, ctx AffordanceContext, affinity float64) (extraSeverity float64, extraBackfire float64, ok bool)
}

// AffordanceContext is the input to EvaluateAffordances (§4.8).
type AffordanceContext struct {
	ActorID    string
	ActorTags  []string
	EntityID   string
	ActionType string // e.g. "move.pass", "spell.cast"
	TargetID   string
	Timestamp  time.Time

	// SpellSchool is only consulted by spell_side_effects' fire-in-forest
	// special case; empty for all other action types.
	SpellSchool string
}

// TraceContribution is one entry in an outcome's trace log (§4.8 step 3g):
// the top-N traces across channels by absolute weighted contribution.
type TraceContribution struct {
	Channel               string // "personal" | "group" | "behavior"
	Key                   string
	DecayedValue          float64
	Valuation             float64
	WeightedContribution  float64
}

// AffordanceOutcome is the result of a single EvaluateAffordances call.
type AffordanceOutcome struct {
	Adjustments       map[string]float64
	Tells             []string
	RedirectTarget    string
	TriggerLog        []AffordanceTriggerLog
	CooldownsConsumed []string
	Triggered         bool
	Affinity          float64
	ThresholdLabel    string
	Scores            ChannelScores
	Snapshot          *AffordanceSnapshot
}

// AffordanceTriggerLog records one triggered affordance for the admin
// history operator (§4.11). Field shape follows the dataclass actually
// constructed by the reference evaluator (affordances.py), not the
// differently-named fields referenced by that source's own admin_commands
// stub.
type AffordanceTriggerLog struct {
	ID                 string
	AffordanceKey      string
	ActorID            string
	EntityID           string
	Timestamp          time.Time
	ComputedAffinity   float64
	ThresholdCrossed   string
	Severity           float64
	Adjustments        map[string]float64
	Tells              []string
	ContributingTraces []TraceContribution
}
