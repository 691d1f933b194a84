// Package worldfile loads the static half of entity and institution
// definitions from YAML: valuation profiles, enabled affordances, pressure
// rules, and institutional affiliations. The mutable half (traces,
// saturation, cooldowns) lives in internal/store and is loaded separately,
// mirroring original_source's persistence.py split between world content
// and runtime state.
package worldfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/duskward/affinity/internal/affinity"
)

// EntityDef is one entity's static definition in a world file.
type EntityDef struct {
	ID               string             `yaml:"id"`
	Kind             string             `yaml:"kind"` // location | artifact | npc
	ValuationProfile map[string]float64 `yaml:"valuation_profile"`
	Affordances      []string           `yaml:"affordances"`
	PressureRules    []PressureRuleDef  `yaml:"pressure_rules,omitempty"`
}

// PressureRuleDef mirrors affinity.PressureRule for YAML decoding.
type PressureRuleDef struct {
	Trigger       string  `yaml:"trigger"`
	Condition     string  `yaml:"condition"`
	Floor         float64 `yaml:"floor"`
	PressureEvent string  `yaml:"pressure_event"`
}

// InstitutionDef is one institution's static definition.
type InstitutionDef struct {
	ID                  string   `yaml:"id"`
	AffiliatedEntityIDs []string `yaml:"affiliated_entities"`
}

// World is the full document shape of a world file.
type World struct {
	Entities     []EntityDef      `yaml:"entities"`
	Institutions []InstitutionDef `yaml:"institutions,omitempty"`
}

// Load reads and parses a world file from path.
func Load(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world file: %w", err)
	}
	var w World
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing world file: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Validate checks structural constraints a bad world file could violate
// before any entity ever gets registered.
func (w *World) Validate() error {
	seen := make(map[string]struct{}, len(w.Entities))
	for _, ent := range w.Entities {
		if ent.ID == "" {
			return fmt.Errorf("%w: entity missing id", affinity.ErrValidation)
		}
		if _, dup := seen[ent.ID]; dup {
			return fmt.Errorf("%w: duplicate entity id %q", affinity.ErrValidation, ent.ID)
		}
		seen[ent.ID] = struct{}{}
		switch ent.Kind {
		case "location", "artifact", "npc":
		default:
			return fmt.Errorf("%w: entity %q has invalid kind %q", affinity.ErrValidation, ent.ID, ent.Kind)
		}
	}
	for _, inst := range w.Institutions {
		if inst.ID == "" {
			return fmt.Errorf("%w: institution missing id", affinity.ErrValidation)
		}
	}
	return nil
}

func kindOf(s string) affinity.EntityKind {
	switch s {
	case "artifact":
		return affinity.KindArtifact
	case "npc":
		return affinity.KindNPC
	default:
		return affinity.KindLocation
	}
}

// Populate registers every entity and institution in w into reg, building
// fresh *Entity/*Institution values from the static definitions. It does
// not load mutable runtime state — call store.LoadEntityState afterward for
// entities with a saved history.
func (w *World) Populate(reg *affinity.Registry) {
	for _, ent := range w.Entities {
		e := affinity.NewEntity(ent.ID, kindOf(ent.Kind))
		for eventType, v := range ent.ValuationProfile {
			e.ValuationProfile[eventType] = v
		}
		e.Affordances = append([]string(nil), ent.Affordances...)
		for _, pr := range ent.PressureRules {
			e.PressureRules = append(e.PressureRules, affinity.PressureRule{
				Trigger:       pr.Trigger,
				Condition:     pr.Condition,
				Floor:         pr.Floor,
				PressureEvent: pr.PressureEvent,
			})
		}
		reg.Put(e)
	}
	for _, inst := range w.Institutions {
		reg.PutInstitution(affinity.NewInstitution(inst.ID, append([]string(nil), inst.AffiliatedEntityIDs...)))
	}
}
