package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duskward/affinity/internal/affinity"
)

// entityStateJSON is the JSON-serializable mirror of an entity's mutable
// runtime state: traces, saturation, cooldowns, last_tick, bearer records.
// It deliberately excludes the static definition (valuation profile,
// enabled affordances) — that half comes from a worldfile YAML document on
// load, mirroring original_source's persistence.py split.
type entityStateJSON struct {
	PersonalTraces map[string]traceJSON `json:"personal_traces"`
	GroupTraces    map[string]traceJSON `json:"group_traces"`
	BehaviorTraces map[string]traceJSON `json:"behavior_traces"`
	Saturation     saturationJSON       `json:"saturation"`
	Cooldowns      map[string]int64     `json:"cooldowns"` // token -> expiry unix seconds
	Bearers        map[string]bearerJSON `json:"bearers,omitempty"`
	CurrentBearer  string               `json:"current_bearer,omitempty"`
}

type traceJSON struct {
	Accumulated float64 `json:"accumulated"`
	LastUpdated int64   `json:"last_updated"`
	EventCount  int     `json:"event_count"`
	IsScar      bool    `json:"is_scar"`
}

type saturationJSON struct {
	Personal float64 `json:"personal"`
	Group    float64 `json:"group"`
	Behavior float64 `json:"behavior"`
}

type bearerJSON struct {
	AccumulatedSec float64 `json:"accumulated_sec"`
	LastCarried    int64   `json:"last_carried"`
	Intensity      float64 `json:"intensity"`
}

// encodePersonalKey/encodeGroupKey mirror original_source's "a::b" tuple-key
// encoding for JSON, splitting on the first "::" so an event type containing
// "::" still round-trips (persistence.py's maxsplit=1 rationale).
func encodePersonalKey(k affinity.PersonalKey) string {
	return k.ActorID + "::" + k.EventType
}

func encodeGroupKey(k affinity.GroupKey) string {
	return k.Tag + "::" + k.EventType
}

func decodeKeyParts(s string) (string, string, error) {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == ':' && s[i+1] == ':' {
			return s[:i], s[i+2:], nil
		}
	}
	return "", "", fmt.Errorf("invalid trace key %q", s)
}

// SaveEntityState serializes e's current runtime state and upserts it into
// entity_state.
func SaveEntityState(db *DB, e *affinity.Entity, kind string, now time.Time) error {
	state := entityStateJSON{
		PersonalTraces: make(map[string]traceJSON, len(e.PersonalTraces)),
		GroupTraces:    make(map[string]traceJSON, len(e.GroupTraces)),
		BehaviorTraces: make(map[string]traceJSON, len(e.BehaviorTraces)),
		Cooldowns:      make(map[string]int64, len(e.Cooldowns)),
		Bearers:        make(map[string]bearerJSON, len(e.Bearers)),
	}

	e.Lock()
	for k, tr := range e.PersonalTraces {
		state.PersonalTraces[encodePersonalKey(k)] = traceJSON{tr.Accumulated, tr.LastUpdated.Unix(), tr.EventCount, tr.IsScar}
	}
	for k, tr := range e.GroupTraces {
		state.GroupTraces[encodeGroupKey(k)] = traceJSON{tr.Accumulated, tr.LastUpdated.Unix(), tr.EventCount, tr.IsScar}
	}
	for et, tr := range e.BehaviorTraces {
		state.BehaviorTraces[et] = traceJSON{tr.Accumulated, tr.LastUpdated.Unix(), tr.EventCount, tr.IsScar}
	}
	state.Saturation = saturationJSON{e.Saturation.Personal, e.Saturation.Group, e.Saturation.Behavior}
	for token, expiry := range e.Cooldowns {
		state.Cooldowns[token] = expiry.Unix()
	}
	for id, b := range e.Bearers {
		state.Bearers[id] = bearerJSON{b.AccumulatedSec, b.LastCarried.Unix(), b.Intensity}
	}
	state.CurrentBearer = e.CurrentBearer
	lastTick := e.LastTick
	e.Unlock()

	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal entity state: %w", err)
	}

	var lastTickUnix sql.NullInt64
	if !lastTick.IsZero() {
		lastTickUnix = sql.NullInt64{Int64: lastTick.Unix(), Valid: true}
	}

	_, err = db.Exec(`
		INSERT INTO entity_state (entity_id, kind, state_json, last_tick, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			kind = excluded.kind,
			state_json = excluded.state_json,
			last_tick = excluded.last_tick,
			saved_at = excluded.saved_at
	`, e.ID, kind, string(blob), lastTickUnix, now.Unix())
	if err != nil {
		return fmt.Errorf("save entity state: %w", err)
	}
	return nil
}

// LoadEntityState reads entity_state for id and mutates e in place. Returns
// (false, nil) if no saved state exists yet.
func LoadEntityState(db *DB, e *affinity.Entity) (bool, error) {
	var stateJSON string
	var lastTick sql.NullInt64
	err := db.QueryRow(`SELECT state_json, last_tick FROM entity_state WHERE entity_id = ?`, e.ID).Scan(&stateJSON, &lastTick)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load entity state: %w", err)
	}

	var state entityStateJSON
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return false, fmt.Errorf("unmarshal entity state: %w", err)
	}

	e.Lock()
	defer e.Unlock()

	for encKey, tj := range state.PersonalTraces {
		actor, eventType, err := decodeKeyParts(encKey)
		if err != nil {
			return false, err
		}
		e.PersonalTraces[affinity.PersonalKey{ActorID: actor, EventType: eventType}] = &affinity.TraceRecord{
			Accumulated: tj.Accumulated, LastUpdated: time.Unix(tj.LastUpdated, 0), EventCount: tj.EventCount, IsScar: tj.IsScar,
		}
	}
	for encKey, tj := range state.GroupTraces {
		tag, eventType, err := decodeKeyParts(encKey)
		if err != nil {
			return false, err
		}
		e.GroupTraces[affinity.GroupKey{Tag: tag, EventType: eventType}] = &affinity.TraceRecord{
			Accumulated: tj.Accumulated, LastUpdated: time.Unix(tj.LastUpdated, 0), EventCount: tj.EventCount, IsScar: tj.IsScar,
		}
	}
	for et, tj := range state.BehaviorTraces {
		e.BehaviorTraces[et] = &affinity.TraceRecord{
			Accumulated: tj.Accumulated, LastUpdated: time.Unix(tj.LastUpdated, 0), EventCount: tj.EventCount, IsScar: tj.IsScar,
		}
	}
	e.Saturation.Personal = state.Saturation.Personal
	e.Saturation.Group = state.Saturation.Group
	e.Saturation.Behavior = state.Saturation.Behavior
	for token, expiry := range state.Cooldowns {
		e.Cooldowns[token] = time.Unix(expiry, 0)
	}
	for id, b := range state.Bearers {
		e.Bearers[id] = &affinity.BearerRecord{BearerID: id, AccumulatedSec: b.AccumulatedSec, LastCarried: time.Unix(b.LastCarried, 0), Intensity: b.Intensity}
	}
	e.CurrentBearer = state.CurrentBearer
	if lastTick.Valid {
		e.LastTick = time.Unix(lastTick.Int64, 0)
	}
	return true, nil
}
