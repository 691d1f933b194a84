package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/duskward/affinity/internal/affinity"
	"github.com/duskward/affinity/internal/store"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, affinity.ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, affinity.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID    string   `json:"entity_id"`
		EventType   string   `json:"event_type"`
		ActorID     string   `json:"actor_id"`
		ActorTags   []string `json:"actor_tags"`
		TargetID    string   `json:"target_id,omitempty"`
		LocationID  string   `json:"location_id,omitempty"`
		Intensity   float64  `json:"intensity"`
		Timestamp   int64    `json:"timestamp"`
		ContextTags []string `json:"context_tags,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if req.EntityID == "" || req.EventType == "" || req.ActorID == "" {
		writeJSONError(w, http.StatusBadRequest, errors.New("entity_id, event_type, actor_id required"))
		return
	}
	ts := time.Now()
	if req.Timestamp != 0 {
		ts = time.Unix(req.Timestamp, 0)
	}
	ev := affinity.NewEvent(req.EventType, req.ActorID, req.ActorTags, req.Intensity, ts)
	ev.LocationID = req.LocationID
	if req.TargetID != "" {
		ev = ev.WithTarget(req.TargetID)
	}
	if len(req.ContextTags) > 0 {
		ev = ev.WithContextTags(req.ContextTags...)
	}

	if err := s.eng.LogEvent(req.EntityID, ev); err != nil {
		writeJSONError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "logged"})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID   string   `json:"entity_id"`
		ActorID    string   `json:"actor_id"`
		ActorTags  []string `json:"actor_tags"`
		ActionType string   `json:"action_type"`
		TargetID   string   `json:"target_id,omitempty"`
		SpellSchool string  `json:"spell_school,omitempty"`
		Timestamp  int64    `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	ts := time.Now()
	if req.Timestamp != 0 {
		ts = time.Unix(req.Timestamp, 0)
	}

	ctx := affinity.AffordanceContext{
		ActorID: req.ActorID, ActorTags: req.ActorTags, EntityID: req.EntityID,
		ActionType: req.ActionType, TargetID: req.TargetID, Timestamp: ts, SpellSchool: req.SpellSchool,
	}
	outcome, err := s.eng.Evaluate(ctx)
	if err != nil {
		writeJSONError(w, statusFor(err), err)
		return
	}

	if outcome.Triggered {
		if err := store.AppendTriggerLog(s.db, &outcome, time.Now()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"triggered":       outcome.Triggered,
		"affinity":        outcome.Affinity,
		"threshold_label": outcome.ThresholdLabel,
		"adjustments":     outcome.Adjustments,
		"tells":           outcome.Tells,
		"redirect_target": outcome.RedirectTarget,
	})
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	entityID := r.URL.Query().Get("entity_id")
	actorID := r.URL.Query().Get("actor_id")
	tags := r.URL.Query()["tag"]

	result, err := s.admin.Inspect(entityID, actorID, tags, time.Now())
	if err != nil {
		writeJSONError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleWhy(w http.ResponseWriter, r *http.Request) {
	entityID := r.URL.Query().Get("entity_id")
	actorID := r.URL.Query().Get("actor_id")
	tags := r.URL.Query()["tag"]

	result, err := s.admin.Why(entityID, actorID, tags, time.Now())
	if err != nil {
		writeJSONError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleReeval(w http.ResponseWriter, r *http.Request) {
	entityID := r.URL.Query().Get("entity_id")
	actorID := r.URL.Query().Get("actor_id")
	tags := r.URL.Query()["tag"]

	value, err := s.admin.Reeval(entityID, actorID, tags, time.Now())
	if err != nil {
		writeJSONError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]float64{"affinity": value})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entityID := r.URL.Query().Get("entity_id")
	hours := 24.0
	if v := r.URL.Query().Get("hours"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			hours = f
		}
	}

	entries, err := store.History(s.db, entityID, hours, time.Now())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}

	type row struct {
		TriggerID        string `json:"trigger_id"`
		AffordanceKey    string `json:"affordance_key"`
		ActorID          string `json:"actor_id"`
		ComputedAffinity float64 `json:"computed_affinity"`
		ThresholdLabel   string `json:"threshold_label"`
		When             string `json:"when"`
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, row{
			TriggerID: e.TriggerID, AffordanceKey: e.AffordanceKey, ActorID: e.ActorID,
			ComputedAffinity: e.ComputedAffinity, ThresholdLabel: e.ThresholdLabel,
			When: humanize.Time(e.CreatedAt),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"entries": rows})
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	triggerID := r.URL.Query().Get("trigger_id")
	if triggerID == "" {
		writeJSONError(w, http.StatusBadRequest, errors.New("trigger_id required"))
		return
	}

	snap, err := store.LoadSnapshot(s.db, triggerID)
	if err != nil {
		writeJSONError(w, statusFor(err), err)
		return
	}

	if err := affinity.Replay(s.eng.Affordances, snap); err != nil {
		writeJSONError(w, http.StatusConflict, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"trigger_id":        triggerID,
		"original_affinity": snap.ComputedAffinity,
		"match":             true,
	})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID      string `json:"entity_id"`
		AffordanceKey string `json:"affordance_key"`
		On            bool   `json:"on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.admin.Toggle(req.EntityID, req.AffordanceKey, req.On); err != nil {
		writeJSONError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID      string   `json:"entity_id"`
		ActorID       string   `json:"actor_id"`
		AffordanceKey string   `json:"affordance_key"`
		Mode          string   `json:"mode"`
		ActorTags     []string `json:"actor_tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	outcome, err := s.admin.Test(req.EntityID, req.ActorID, req.AffordanceKey, req.Mode, req.ActorTags, time.Now())
	if err != nil {
		writeJSONError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"triggered":   outcome.Triggered,
		"adjustments": outcome.Adjustments,
		"tells":       outcome.Tells,
	})
}

func (s *Server) handleCarryArtifact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID    string `json:"entity_id"`
		BearerID    string `json:"bearer_id"`
		TriggerType string `json:"trigger_type"`
		Timestamp   int64  `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if req.EntityID == "" || req.BearerID == "" || req.TriggerType == "" {
		writeJSONError(w, http.StatusBadRequest, errors.New("entity_id, bearer_id, trigger_type required"))
		return
	}
	ts := time.Now()
	if req.Timestamp != 0 {
		ts = time.Unix(req.Timestamp, 0)
	}

	event, fired, err := s.eng.CarryArtifact(req.EntityID, req.BearerID, req.TriggerType, ts)
	if err != nil {
		writeJSONError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"fired":          fired,
		"pressure_event": event,
	})
}
