package affinity

import (
	"math"
	"time"
)

// halfLifeFactor returns 0.5^(elapsed/halfLife) for elapsed and halfLife in
// the same unit. elapsed <= 0 returns 1 (no decay), matching the
// out-of-order-timestamp clamp of §4.3.
func halfLifeFactor(elapsed, halfLife float64) float64 {
	if elapsed <= 0 {
		return 1
	}
	return math.Pow(0.5, elapsed/halfLife)
}

// decayedValue returns a trace's accumulated value decayed from
// LastUpdated to now over halfLifeSeconds. An event earlier than
// LastUpdated (elapsed <= 0) leaves Accumulated unchanged — "append
// without decay" (§4.3).
func decayedValue(tr *TraceRecord, halfLifeSeconds float64, now time.Time) float64 {
	elapsed := now.Sub(tr.LastUpdated).Seconds()
	return tr.Accumulated * halfLifeFactor(elapsed, halfLifeSeconds)
}

// groupHalfLife returns the scar half-life for a promoted trace, otherwise
// the channel's ordinary group half-life (§4.6: "scars decay with the scar
// half-life and are not folded further").
func groupHalfLife(cfg *Config, tr *TraceRecord, ordinaryGroupHL float64) float64 {
	if tr.IsScar {
		return cfg.Compaction.ScarHalfLifeDays * 86400
	}
	return ordinaryGroupHL
}
