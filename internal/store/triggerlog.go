package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duskward/affinity/internal/affinity"
)

// snapshotJSON mirrors affinity.AffordanceSnapshot for storage. Trace maps
// use the same "a::b" tuple-key encoding as entity runtime state.
type snapshotJSON struct {
	ID         string   `json:"id"`
	ActorID    string   `json:"actor_id"`
	ActorTags  []string `json:"actor_tags"`
	EntityID   string   `json:"entity_id"`
	EvalTime   int64    `json:"eval_time"`

	PersonalTraces map[string]traceJSON `json:"personal_traces"`
	GroupTraces    map[string]traceJSON `json:"group_traces"`
	BehaviorTraces map[string]traceJSON `json:"behavior_traces"`

	ValuationProfile map[string]float64 `json:"valuation_profile"`
	PersonalHalfLife float64            `json:"personal_half_life"`
	GroupHalfLife    float64            `json:"group_half_life"`
	BehaviorHalfLife float64            `json:"behavior_half_life"`
	ScarHalfLife     float64            `json:"scar_half_life"`
	ChannelWeights   channelWeightsJSON `json:"channel_weights"`
	AffinityScale    float64            `json:"affinity_scale"`

	RandomSeed int64 `json:"random_seed"`

	ActionType  string `json:"action_type,omitempty"`
	SpellSchool string `json:"spell_school,omitempty"`

	ComputedAffinity float64 `json:"computed_affinity"`
	ThresholdLabel   string  `json:"threshold_label"`
	AffordanceKey    string  `json:"affordance_key"`
	TriggeredKeys    []string `json:"triggered_keys,omitempty"`

	FinalAdjustments    map[string]float64 `json:"final_adjustments"`
	FinalTells          []string           `json:"final_tells"`
	FinalRedirectTarget string             `json:"final_redirect_target,omitempty"`
}

type channelWeightsJSON struct {
	Personal    float64 `json:"personal"`
	Group       float64 `json:"group"`
	Behavior    float64 `json:"behavior"`
	Institution float64 `json:"institution"`
}

func encodeSnapshot(s *affinity.AffordanceSnapshot) snapshotJSON {
	out := snapshotJSON{
		ID: s.ID, ActorID: s.ActorID, ActorTags: s.ActorTags, EntityID: s.EntityID,
		EvalTime:         s.EvalTime.Unix(),
		PersonalTraces:   make(map[string]traceJSON, len(s.PersonalTraces)),
		GroupTraces:      make(map[string]traceJSON, len(s.GroupTraces)),
		BehaviorTraces:   make(map[string]traceJSON, len(s.BehaviorTraces)),
		ValuationProfile: s.ValuationProfile,
		PersonalHalfLife: s.PersonalHalfLife,
		GroupHalfLife:    s.GroupHalfLife,
		BehaviorHalfLife: s.BehaviorHalfLife,
		ScarHalfLife:     s.ScarHalfLife,
		ChannelWeights: channelWeightsJSON{
			s.ChannelWeights.Personal, s.ChannelWeights.Group, s.ChannelWeights.Behavior, s.ChannelWeights.Institution,
		},
		AffinityScale:        s.AffinityScale,
		RandomSeed:           s.RandomSeed,
		ActionType:           s.ActionType,
		SpellSchool:          s.SpellSchool,
		ComputedAffinity:     s.ComputedAffinity,
		ThresholdLabel:       s.ThresholdLabel,
		AffordanceKey:        s.AffordanceKey,
		TriggeredKeys:        s.TriggeredKeys,
		FinalAdjustments:     s.FinalAdjustments,
		FinalTells:           s.FinalTells,
		FinalRedirectTarget:  s.FinalRedirectTarget,
	}
	for k, tr := range s.PersonalTraces {
		out.PersonalTraces[encodePersonalKey(k)] = traceJSON{tr.Accumulated, tr.LastUpdated.Unix(), tr.EventCount, tr.IsScar}
	}
	for k, tr := range s.GroupTraces {
		out.GroupTraces[encodeGroupKey(k)] = traceJSON{tr.Accumulated, tr.LastUpdated.Unix(), tr.EventCount, tr.IsScar}
	}
	for et, tr := range s.BehaviorTraces {
		out.BehaviorTraces[et] = traceJSON{tr.Accumulated, tr.LastUpdated.Unix(), tr.EventCount, tr.IsScar}
	}
	return out
}

func decodeSnapshot(j snapshotJSON) (*affinity.AffordanceSnapshot, error) {
	s := &affinity.AffordanceSnapshot{
		ID: j.ID, ActorID: j.ActorID, ActorTags: j.ActorTags, EntityID: j.EntityID,
		EvalTime:         time.Unix(j.EvalTime, 0),
		PersonalTraces:   make(map[affinity.PersonalKey]affinity.TraceRecord, len(j.PersonalTraces)),
		GroupTraces:      make(map[affinity.GroupKey]affinity.TraceRecord, len(j.GroupTraces)),
		BehaviorTraces:   make(map[string]affinity.TraceRecord, len(j.BehaviorTraces)),
		ValuationProfile: j.ValuationProfile,
		PersonalHalfLife: j.PersonalHalfLife,
		GroupHalfLife:    j.GroupHalfLife,
		BehaviorHalfLife: j.BehaviorHalfLife,
		ScarHalfLife:     j.ScarHalfLife,
		ChannelWeights: affinity.ChannelWeights{
			Personal: j.ChannelWeights.Personal, Group: j.ChannelWeights.Group,
			Behavior: j.ChannelWeights.Behavior, Institution: j.ChannelWeights.Institution,
		},
		AffinityScale:        j.AffinityScale,
		RandomSeed:           j.RandomSeed,
		ActionType:           j.ActionType,
		SpellSchool:          j.SpellSchool,
		ComputedAffinity:     j.ComputedAffinity,
		ThresholdLabel:       j.ThresholdLabel,
		AffordanceKey:        j.AffordanceKey,
		TriggeredKeys:        j.TriggeredKeys,
		FinalAdjustments:     j.FinalAdjustments,
		FinalTells:           j.FinalTells,
		FinalRedirectTarget:  j.FinalRedirectTarget,
	}
	for encKey, tj := range j.PersonalTraces {
		actor, eventType, err := decodeKeyParts(encKey)
		if err != nil {
			return nil, err
		}
		s.PersonalTraces[affinity.PersonalKey{ActorID: actor, EventType: eventType}] = affinity.TraceRecord{
			Accumulated: tj.Accumulated, LastUpdated: time.Unix(tj.LastUpdated, 0), EventCount: tj.EventCount, IsScar: tj.IsScar,
		}
	}
	for encKey, tj := range j.GroupTraces {
		tag, eventType, err := decodeKeyParts(encKey)
		if err != nil {
			return nil, err
		}
		s.GroupTraces[affinity.GroupKey{Tag: tag, EventType: eventType}] = affinity.TraceRecord{
			Accumulated: tj.Accumulated, LastUpdated: time.Unix(tj.LastUpdated, 0), EventCount: tj.EventCount, IsScar: tj.IsScar,
		}
	}
	for et, tj := range j.BehaviorTraces {
		s.BehaviorTraces[et] = affinity.TraceRecord{
			Accumulated: tj.Accumulated, LastUpdated: time.Unix(tj.LastUpdated, 0), EventCount: tj.EventCount, IsScar: tj.IsScar,
		}
	}
	return s, nil
}

// AppendTriggerLog persists a triggered outcome's snapshot to the
// append-only trigger_log table.
func AppendTriggerLog(db *DB, outcome *affinity.AffordanceOutcome, now time.Time) error {
	if outcome.Snapshot == nil {
		return fmt.Errorf("append trigger log: outcome has no snapshot")
	}
	blob, err := json.Marshal(encodeSnapshot(outcome.Snapshot))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO trigger_log (trigger_id, entity_id, actor_id, affordance_key, computed_affinity, threshold_label, snapshot_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, outcome.Snapshot.ID, outcome.Snapshot.EntityID, outcome.Snapshot.ActorID, outcome.Snapshot.AffordanceKey,
		outcome.Snapshot.ComputedAffinity, outcome.Snapshot.ThresholdLabel, string(blob), now.Unix())
	if err != nil {
		return fmt.Errorf("append trigger log: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves a persisted snapshot by trigger id for Replay.
func LoadSnapshot(db *DB, triggerID string) (*affinity.AffordanceSnapshot, error) {
	var blob string
	err := db.QueryRow(`SELECT snapshot_json FROM trigger_log WHERE trigger_id = ?`, triggerID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no trigger log %q", affinity.ErrUnknownEntity, triggerID)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var j snapshotJSON
	if err := json.Unmarshal([]byte(blob), &j); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return decodeSnapshot(j)
}

// TriggerLogEntry is a row returned by History.
type TriggerLogEntry struct {
	TriggerID        string
	EntityID         string
	ActorID          string
	AffordanceKey    string
	ComputedAffinity float64
	ThresholdLabel   string
	CreatedAt        time.Time
}

// History returns trigger_log rows for entityID within the last `hours`
// hours, most recent first (§4.11 history(entity, hours)).
func History(db *DB, entityID string, hours float64, now time.Time) ([]TriggerLogEntry, error) {
	since := now.Add(-time.Duration(hours * float64(time.Hour))).Unix()
	rows, err := db.Query(`
		SELECT trigger_id, entity_id, actor_id, affordance_key, computed_affinity, threshold_label, created_at
		FROM trigger_log
		WHERE entity_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, entityID, since)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []TriggerLogEntry
	for rows.Next() {
		var e TriggerLogEntry
		var createdAt int64
		if err := rows.Scan(&e.TriggerID, &e.EntityID, &e.ActorID, &e.AffordanceKey, &e.ComputedAffinity, &e.ThresholdLabel, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}
