package affinity

import (
	"log"
	"time"
)

// Engine owns the registries, the affordance catalog, and the background
// scheduling loops (world tick, institution refresh). It mirrors the
// teacher engine's StartDecayTimer/Stop shape: a ticker-driven goroutine
// gated by a stop channel. The world tick also runs once eagerly at
// startup; the institution refresh waits for its first heartbeat.
type Engine struct {
	Config      *ConfigStore
	Registry    *Registry
	Affordances *AffordanceRegistry
	Clock       Clock

	stopCh chan struct{}
}

// New constructs an Engine from a config snapshot and affordance registry.
func New(cfg *Config, affordances *AffordanceRegistry) *Engine {
	return &Engine{
		Config:      NewConfigStore(cfg),
		Registry:    NewRegistry(),
		Affordances: affordances,
		Clock:       RealClock{},
		stopCh:      make(chan struct{}),
	}
}

// LogEvent routes an event to its located entity.
func (eng *Engine) LogEvent(entityID string, ev Event) error {
	e, err := eng.Registry.Get(entityID)
	if err != nil {
		return err
	}
	LogEvent(eng.Config.Load(), e, ev)
	return nil
}

// CarryArtifact records a carry tick against an artifact's bearer channel
// and evaluates its pressure rules for triggerType, returning the fired
// PressureEvent name, if any.
func (eng *Engine) CarryArtifact(entityID, bearerID, triggerType string, now time.Time) (string, bool, error) {
	e, err := eng.Registry.Get(entityID)
	if err != nil {
		return "", false, err
	}
	UpdateBearerTrace(e, bearerID, now)
	event, fired := EvaluatePressure(e, bearerID, triggerType, now)
	return event, fired, nil
}

// Evaluate runs the affordance pipeline for ctx.EntityID, wiring in the
// first registered institution whose cached stance tracks one of the
// actor's tags for the institutional bias channel (the institution's
// affiliated entities are not consulted for this choice). Returns
// ErrUnknownEntity if the entity is not registered.
func (eng *Engine) Evaluate(ctx AffordanceContext) (AffordanceOutcome, error) {
	e, err := eng.Registry.Get(ctx.EntityID)
	if err != nil {
		return AffordanceOutcome{}, err
	}
	cfg := eng.Config.Load()
	var inst *Institution
	for _, tag := range ctx.ActorTags {
		if found := eng.institutionForTag(tag); found != nil {
			inst = found
			break
		}
	}
	return EvaluateAffordances(cfg, eng.Affordances, e, inst, ctx), nil
}

func (eng *Engine) institutionForTag(tag string) *Institution {
	for _, i := range eng.registeredInstitutions() {
		i.Lock()
		_, ok := i.CachedStance[tag]
		i.Unlock()
		if ok {
			return i
		}
	}
	return nil
}

func (eng *Engine) registeredInstitutions() []*Institution {
	eng.Registry.mu.RLock()
	defer eng.Registry.mu.RUnlock()
	out := make([]*Institution, 0, len(eng.Registry.institutions))
	for _, i := range eng.Registry.institutions {
		out = append(out, i)
	}
	return out
}

// Tick runs the world tick over every registered entity.
func (eng *Engine) Tick(now time.Time) []TickReport {
	cfg := eng.Config.Load()
	reports := make([]TickReport, 0, len(eng.Registry.All()))
	for _, e := range eng.Registry.All() {
		reports = append(reports, WorldTick(cfg, e, now))
	}
	return reports
}

// Compact runs explicit compaction over every registered entity. Never
// invoked from Tick (§4.6 separation).
func (eng *Engine) Compact(now time.Time) []CompactionReport {
	cfg := eng.Config.Load()
	reports := make([]CompactionReport, 0, len(eng.Registry.All()))
	for _, e := range eng.Registry.All() {
		reports = append(reports, CompactTraces(cfg, e, now))
	}
	return reports
}

// RefreshInstitutions decays every registered institution's stance toward
// zero, then refreshes those whose refresh interval has elapsed.
func (eng *Engine) RefreshInstitutions(now time.Time) {
	cfg := eng.Config.Load()
	for _, i := range eng.registeredInstitutions() {
		i.DecayStance(cfg, now)
		if i.ShouldRefresh(cfg, now) {
			RefreshInstitution(eng.Registry, i, cfg, now)
		}
	}
}

// StartWorldTickTimer runs Tick once immediately, then on the configured
// world_tick_interval_seconds cadence until Stop is called.
func (eng *Engine) StartWorldTickTimer() {
	cfg := eng.Config.Load()
	interval := time.Duration(cfg.WorldTickIntervalS * float64(time.Second))
	logTickSummary(eng.Tick(eng.Clock.Now()))

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logTickSummary(eng.Tick(eng.Clock.Now()))
			case <-eng.stopCh:
				return
			}
		}
	}()
}

// StartInstitutionRefreshTimer runs RefreshInstitutions on a fixed
// heartbeat (shorter than any institution's own refresh interval) so each
// institution is checked promptly once its interval elapses.
func (eng *Engine) StartInstitutionRefreshTimer(heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				eng.RefreshInstitutions(eng.Clock.Now())
			case <-eng.stopCh:
				return
			}
		}
	}()
}

// Stop halts all background timers started on this engine.
func (eng *Engine) Stop() {
	select {
	case <-eng.stopCh:
		// already stopped
	default:
		close(eng.stopCh)
	}
}

// logTickSummary is a small helper used by callers that want a one-line
// log of a tick pass, matching the teacher's log.Printf startup-loop style.
func logTickSummary(reports []TickReport) {
	var pruned, cleared int
	for _, r := range reports {
		pruned += r.TracesPruned
		cleared += r.CooldownsCleared
	}
	log.Printf("world tick: %d entities, %d traces pruned, %d cooldowns cleared", len(reports), pruned, cleared)
}
