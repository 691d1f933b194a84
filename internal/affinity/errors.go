package affinity

import "errors"

// Sentinel errors implementing the taxonomy of spec §7. Callers use
// errors.Is to classify a returned error; ValidationError and
// SnapshotMismatch surface to callers verbatim, UnknownEntity surfaces
// with no mutation, and everything else (out-of-range intensity, clock
// skew, unknown tags) is absorbed by the core rather than returned.
var (
	// ErrValidation marks a load-time configuration or affordance
	// definition defect. Fatal; aborts startup.
	ErrValidation = errors.New("affinity: validation error")

	// ErrUnknownEntity marks a reference to an entity id the registry has
	// not seen.
	ErrUnknownEntity = errors.New("affinity: unknown entity")

	// ErrSnapshotMismatch marks a replay whose recomputed result diverges
	// from the frozen snapshot.
	ErrSnapshotMismatch = errors.New("affinity: snapshot mismatch")
)
