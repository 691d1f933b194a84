package affinity

import "fmt"

// EntityHalfLives holds the per-channel memory half-lives, in days, for one
// entity kind (location, artifact, or npc).
type EntityHalfLives struct {
	Personal float64 `yaml:"personal"`
	Group    float64 `yaml:"group"`
	Behavior float64 `yaml:"behavior"`
}

// HalfLives groups the per-entity-kind half-life triples.
type HalfLives struct {
	Location EntityHalfLives `yaml:"location"`
	Artifact EntityHalfLives `yaml:"artifact"`
	NPC      EntityHalfLives `yaml:"npc"`
}

// ChannelWeights are the blend weights used by compute_affinity. By
// convention personal+group+behavior sums to 1.0, with institution as a
// small fourth channel layered on top (the Institution field).
type ChannelWeights struct {
	Personal    float64 `yaml:"personal"`
	Group       float64 `yaml:"group"`
	Behavior    float64 `yaml:"behavior"`
	Institution float64 `yaml:"institution"`
}

// SaturationCapacity bounds per-channel decayed trace mass before the
// channel is considered saturated.
type SaturationCapacity struct {
	Personal float64 `yaml:"personal"`
	Group    float64 `yaml:"group"`
	Behavior float64 `yaml:"behavior"`
}

// CompactionConfig tunes the hot->warm->scar tiering.
type CompactionConfig struct {
	HotWindowDays          float64 `yaml:"hot_window_days"`
	WarmWindowDays         float64 `yaml:"warm_window_days"`
	ScarIntensityThreshold float64 `yaml:"scar_intensity_threshold"`
	ScarHalfLifeDays       float64 `yaml:"scar_half_life_days"`
	PruneThreshold         float64 `yaml:"prune_threshold"`
}

// InstitutionConfig tunes the virtual-institution slow-drift aggregator.
type InstitutionConfig struct {
	DriftRate           float64 `yaml:"drift_rate"`
	Inertia             float64 `yaml:"inertia"`
	HalfLifeDays        float64 `yaml:"half_life_days"`
	RefreshIntervalSecs float64 `yaml:"refresh_interval_seconds"`
}

// Config is the full, immutable tunable snapshot. Readers hold a *Config
// obtained from an atomic swap; it is never mutated in place.
type Config struct {
	HalfLives           HalfLives           `yaml:"half_lives"`
	ChannelWeights      ChannelWeights      `yaml:"channel_weights"`
	SaturationCapacity  SaturationCapacity  `yaml:"saturation_capacity"`
	WorldTickIntervalS  float64             `yaml:"world_tick_interval_seconds"`
	Compaction          CompactionConfig    `yaml:"compaction"`
	Institutions        InstitutionConfig   `yaml:"institutions"`
	InstitutionalTags   map[string]struct{} `yaml:"-"`
	InstitutionalTagsRaw []string           `yaml:"institutional_tags"`
	AffinityScale       float64             `yaml:"affinity_scale"`
}

// DefaultConfig mirrors the reference defaults: 7/30/90 day location
// half-lives, 3/14/30 artifact, 1/7/14 npc, 0.5/0.35/0.15 channel weights,
// affinity_scale 10.0.
func DefaultConfig() *Config {
	c := &Config{
		HalfLives: HalfLives{
			Location: EntityHalfLives{Personal: 7, Group: 30, Behavior: 90},
			Artifact: EntityHalfLives{Personal: 3, Group: 14, Behavior: 30},
			NPC:      EntityHalfLives{Personal: 1, Group: 7, Behavior: 14},
		},
		ChannelWeights: ChannelWeights{Personal: 0.5, Group: 0.35, Behavior: 0.15, Institution: 0},
		SaturationCapacity: SaturationCapacity{Personal: 50, Group: 100, Behavior: 200},
		WorldTickIntervalS: 3600,
		Compaction: CompactionConfig{
			HotWindowDays:          7,
			WarmWindowDays:         90,
			ScarIntensityThreshold: 0.7,
			ScarHalfLifeDays:       365,
			PruneThreshold:         0.01,
		},
		Institutions: InstitutionConfig{
			DriftRate:           0.1,
			Inertia:             0.9,
			HalfLifeDays:        90,
			RefreshIntervalSecs: 86400,
		},
		InstitutionalTagsRaw: []string{"human", "elf", "dwarf", "orc", "imperial", "rebel"},
		AffinityScale:        10.0,
	}
	c.indexTags()
	return c
}

func (c *Config) indexTags() {
	c.InstitutionalTags = make(map[string]struct{}, len(c.InstitutionalTagsRaw))
	for _, t := range c.InstitutionalTagsRaw {
		c.InstitutionalTags[t] = struct{}{}
	}
}

// IsInstitutionalTag reports whether tag survives warm-tier folding verbatim.
func (c *Config) IsInstitutionalTag(tag string) bool {
	_, ok := c.InstitutionalTags[tag]
	return ok
}

// Validate enforces the load-time rules of §6: nonnegative channel weights,
// positive affinity scale, positive half-lives, a finite institutional tag
// set. Returns a ValidationError-wrapped error on the first violation.
func (c *Config) Validate() error {
	if c.AffinityScale <= 0 {
		return fmt.Errorf("%w: affinity_scale must be > 0, got %v", ErrValidation, c.AffinityScale)
	}
	for name, w := range map[string]float64{
		"personal":    c.ChannelWeights.Personal,
		"group":       c.ChannelWeights.Group,
		"behavior":    c.ChannelWeights.Behavior,
		"institution": c.ChannelWeights.Institution,
	} {
		if w < 0 {
			return fmt.Errorf("%w: channel_weights.%s must be >= 0, got %v", ErrValidation, name, w)
		}
	}
	if c.ChannelWeights.Institution > c.ChannelWeights.Behavior {
		return fmt.Errorf("%w: channel_weights.institution must never exceed channel_weights.behavior", ErrValidation)
	}
	for name, hl := range map[string]EntityHalfLives{
		"location": c.HalfLives.Location,
		"artifact": c.HalfLives.Artifact,
		"npc":      c.HalfLives.NPC,
	} {
		if hl.Personal <= 0 || hl.Group <= 0 || hl.Behavior <= 0 {
			return fmt.Errorf("%w: half_lives.%s entries must all be > 0", ErrValidation, name)
		}
	}
	if c.Compaction.ScarHalfLifeDays <= 0 {
		return fmt.Errorf("%w: compaction.scar_half_life_days must be > 0", ErrValidation)
	}
	if c.Compaction.PruneThreshold < 0 {
		return fmt.Errorf("%w: compaction.prune_threshold must be >= 0", ErrValidation)
	}
	if c.Institutions.Inertia < 0 || c.Institutions.Inertia > 1 {
		return fmt.Errorf("%w: institutions.inertia must be in [0,1]", ErrValidation)
	}
	if c.Institutions.HalfLifeDays <= 0 {
		return fmt.Errorf("%w: institutions.half_life_days must be > 0", ErrValidation)
	}
	if len(c.InstitutionalTagsRaw) == 0 {
		return fmt.Errorf("%w: institutional_tags must be a nonempty finite set", ErrValidation)
	}
	c.indexTags()
	return nil
}

// HalfLivesFor returns the personal/group/behavior half-lives, in seconds,
// for the given entity kind.
func (c *Config) HalfLivesFor(kind EntityKind) (personal, group, behavior float64) {
	var hl EntityHalfLives
	switch kind {
	case KindArtifact:
		hl = c.HalfLives.Artifact
	case KindNPC:
		hl = c.HalfLives.NPC
	default:
		hl = c.HalfLives.Location
	}
	const daySeconds = 86400.0
	return hl.Personal * daySeconds, hl.Group * daySeconds, hl.Behavior * daySeconds
}
