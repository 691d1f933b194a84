package affinity

import (
	"sync"
	"time"
)

// Institution is the virtual entity of §4.10: no physical presence, no
// direct events, a cached stance per actor tag refreshed slowly from its
// affiliated entities.
type Institution struct {
	mu sync.Mutex

	ID                   string
	AffiliatedEntityIDs  []string
	CachedStance         map[string]float64 // actor tag -> affinity
	LastComputed         time.Time
}

// NewInstitution returns an institution affiliated with the given entities.
func NewInstitution(id string, affiliated []string) *Institution {
	return &Institution{
		ID:                  id,
		AffiliatedEntityIDs: affiliated,
		CachedStance:        make(map[string]float64),
	}
}

func (i *Institution) Lock()   { i.mu.Lock() }
func (i *Institution) Unlock() { i.mu.Unlock() }

// ShouldRefresh reports whether at least RefreshIntervalSecs have elapsed
// since the institution's last refresh.
func (i *Institution) ShouldRefresh(cfg *Config, now time.Time) bool {
	if i.LastComputed.IsZero() {
		return true
	}
	return now.Sub(i.LastComputed).Seconds() >= cfg.Institutions.RefreshIntervalSecs
}

// RefreshInstitution blends each tracked actor tag's cached stance with a
// fresh mean computed across the institution's affiliated entities (group
// channel only), then clamps the per-refresh delta to the configured
// drift_rate before stamping LastComputed. Implements the Open Question
// resolution in SPEC_FULL.md: spec.md's inertia blend formula is primary,
// drift_rate bounds how far a single refresh may move the cached value.
func RefreshInstitution(reg *Registry, inst *Institution, cfg *Config, now time.Time) {
	inst.Lock()
	defer inst.Unlock()

	for tag, cached := range inst.CachedStance {
		fresh := queryConstituentAffinity(reg, inst, cfg, tag, now)
		blended := cfg.Institutions.Inertia*cached + (1-cfg.Institutions.Inertia)*fresh
		delta := blended - cached
		if delta > cfg.Institutions.DriftRate {
			delta = cfg.Institutions.DriftRate
		} else if delta < -cfg.Institutions.DriftRate {
			delta = -cfg.Institutions.DriftRate
		}
		inst.CachedStance[tag] = cached + delta
	}
	inst.LastComputed = now
}

// TrackTag ensures tag has an entry in the institution's cached stance
// (creating it at zero if absent), so a subsequent RefreshInstitution
// call picks it up.
func (i *Institution) TrackTag(tag string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.CachedStance[tag]; !ok {
		i.CachedStance[tag] = 0
	}
}

func queryConstituentAffinity(reg *Registry, inst *Institution, cfg *Config, tag string, now time.Time) float64 {
	var sum float64
	var n int
	for _, id := range inst.AffiliatedEntityIDs {
		e, err := reg.Get(id)
		if err != nil {
			continue // tolerate missing entries (§9)
		}
		e.Lock()
		a := computeGroupOnlyAffinity(cfg, e, tag, now)
		e.Unlock()
		sum += a
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// DecayStance applies the institution's own long half-life to every cached
// stance value, independent of RefreshInstitution, so institutional opinion
// fades even when its constituents are gone (§3 "may decay toward zero").
func (i *Institution) DecayStance(cfg *Config, now time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.LastComputed.IsZero() {
		return
	}
	elapsedDays := now.Sub(i.LastComputed).Hours() / 24
	if elapsedDays <= 0 {
		return
	}
	factor := halfLifeFactor(elapsedDays, cfg.Institutions.HalfLifeDays)
	for tag, v := range i.CachedStance {
		i.CachedStance[tag] = v * factor
	}
}

// Stance returns the cached stance for tag, defaulting to 0 if untracked.
func (i *Institution) Stance(tag string) float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.CachedStance[tag]
}
