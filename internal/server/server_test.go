package server

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/duskward/affinity/internal/affinity"
	"github.com/duskward/affinity/internal/store"
)

func newTestServer(t *testing.T) (*Server, *affinity.Engine) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	catalog, err := affinity.NewAffordanceRegistry(affinity.DefaultCatalog())
	if err != nil {
		t.Fatalf("NewAffordanceRegistry: %v", err)
	}
	eng := affinity.New(affinity.DefaultConfig(), catalog)
	eng.Registry.Put(affinity.NewEntity("loc.village_square", affinity.KindLocation))

	return New(db, eng, "test"), eng
}

func TestHandleHealthReportsDBStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["db"] != true {
		t.Errorf("db field = %v, want true", body["db"])
	}
}

func TestHandleLogEventThenEvaluateTriggersPathing(t *testing.T) {
	srv, eng := newTestServer(t)
	now := time.Unix(1700000000, 0)
	e, err := eng.Registry.Get("loc.village_square")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	e.ValuationProfile["combat.killed_npc"] = -0.9

	for i := 0; i < 5; i++ {
		payload, _ := json.Marshal(map[string]any{
			"entity_id":  "loc.village_square",
			"event_type": "combat.killed_npc",
			"actor_id":   "player.aldric",
			"intensity":  1.0,
			"timestamp":  now.Add(time.Duration(i) * time.Second).Unix(),
		})
		req := httptest.NewRequest("POST", "/api/events", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != 201 {
			t.Fatalf("log event status = %d, body = %s", w.Code, w.Body.String())
		}
	}

	payload, _ := json.Marshal(map[string]any{
		"entity_id":   "loc.village_square",
		"actor_id":    "player.aldric",
		"action_type": "move.pass",
		"timestamp":   now.Add(10 * time.Second).Unix(),
	})
	req := httptest.NewRequest("POST", "/api/affordances/evaluate", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("evaluate status = %d, body = %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if triggered, _ := body["triggered"].(bool); !triggered {
		t.Errorf("triggered = %v, want true", body["triggered"])
	}
}

func TestHandleLogEventUnknownEntityReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	payload, _ := json.Marshal(map[string]any{
		"entity_id":  "loc.nowhere",
		"event_type": "gift.given",
		"actor_id":   "player.aldric",
		"intensity":  1.0,
	})
	req := httptest.NewRequest("POST", "/api/events", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleLogEventMissingFieldsReturns400(t *testing.T) {
	srv, _ := newTestServer(t)
	payload, _ := json.Marshal(map[string]any{"entity_id": "loc.village_square"})
	req := httptest.NewRequest("POST", "/api/events", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleInspectAndWhy(t *testing.T) {
	srv, eng := newTestServer(t)
	now := time.Unix(1700000000, 0)
	e, err := eng.Registry.Get("loc.village_square")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	e.ValuationProfile["gift.given"] = 0.8
	e.PersonalTraces[affinity.PersonalKey{ActorID: "player.aldric", EventType: "gift.given"}] = &affinity.TraceRecord{
		Accumulated: 3.0, LastUpdated: now, EventCount: 3,
	}

	req := httptest.NewRequest("GET", "/api/admin/inspect?entity_id=loc.village_square&actor_id=player.aldric", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("inspect status = %d, body = %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/admin/why?entity_id=loc.village_square&actor_id=player.aldric", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("why status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestHandleToggleThenTest(t *testing.T) {
	srv, _ := newTestServer(t)

	payload, _ := json.Marshal(map[string]any{
		"entity_id":      "loc.village_square",
		"affordance_key": "pathing",
		"on":             false,
	})
	req := httptest.NewRequest("POST", "/api/admin/toggle", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("toggle status = %d, body = %s", w.Code, w.Body.String())
	}

	testPayload, _ := json.Marshal(map[string]any{
		"entity_id":      "loc.village_square",
		"actor_id":       "player.aldric",
		"affordance_key": "pathing",
		"mode":           "hostile",
	})
	req = httptest.NewRequest("POST", "/api/admin/test", bytes.NewReader(testPayload))
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("test status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestHandleReplayRoundTrip(t *testing.T) {
	srv, eng := newTestServer(t)
	now := time.Unix(1700000000, 0)
	e, err := eng.Registry.Get("loc.village_square")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	e.ValuationProfile["combat.killed_npc"] = -0.9
	for i := 0; i < 5; i++ {
		ev := affinity.NewEvent("combat.killed_npc", "player.aldric", nil, 1.0, now.Add(time.Duration(i)*time.Second))
		if err := eng.LogEvent("loc.village_square", ev); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}

	payload, _ := json.Marshal(map[string]any{
		"entity_id":   "loc.village_square",
		"actor_id":    "player.aldric",
		"action_type": "move.pass",
		"timestamp":   now.Add(10 * time.Second).Unix(),
	})
	req := httptest.NewRequest("POST", "/api/affordances/evaluate", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("evaluate status = %d, body = %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/admin/history?entity_id=loc.village_square&hours=24", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("history status = %d, body = %s", w.Code, w.Body.String())
	}
	var historyBody struct {
		Entries []struct {
			TriggerID string `json:"trigger_id"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &historyBody); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(historyBody.Entries) == 0 {
		t.Fatal("expected at least one history entry after a triggered evaluation")
	}

	req = httptest.NewRequest("GET", "/api/admin/replay?trigger_id="+historyBody.Entries[0].TriggerID, nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("replay status = %d, body = %s", w.Code, w.Body.String())
	}
	var replayBody struct {
		Match bool `json:"match"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &replayBody); err != nil {
		t.Fatalf("unmarshal replay: %v", err)
	}
	if !replayBody.Match {
		t.Error("expected replay to match the original snapshot")
	}
}

func TestHandleReplayMissingTriggerIDReturns400(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/admin/replay", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleCarryArtifactRampsToPressureEvent(t *testing.T) {
	srv, eng := newTestServer(t)

	e := affinity.NewEntity("artifact.lantern", affinity.KindArtifact)
	e.PressureRules = []affinity.PressureRule{
		{Trigger: "bearer_action", Condition: "any", Floor: 0.5, PressureEvent: "whispers"},
	}
	eng.Registry.Put(e)

	carry := func(ts int64) map[string]any {
		payload, _ := json.Marshal(map[string]any{
			"entity_id":    "artifact.lantern",
			"bearer_id":    "player.aldric",
			"trigger_type": "bearer_action",
			"timestamp":    ts,
		})
		req := httptest.NewRequest("POST", "/api/artifacts/carry", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != 200 {
			t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return body
	}

	first := carry(1700000000)
	if first["fired"] != false {
		t.Errorf("first carry fired = %v, want false", first["fired"])
	}

	ramped := carry(1700000000 + int64(4*24*time.Hour/time.Second))
	if ramped["fired"] != true || ramped["pressure_event"] != "whispers" {
		t.Errorf("ramped carry = %+v, want fired=true pressure_event=whispers", ramped)
	}
}

func TestHandleCarryArtifactUnknownEntityReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	payload, _ := json.Marshal(map[string]any{
		"entity_id":    "artifact.nowhere",
		"bearer_id":    "player.aldric",
		"trigger_type": "bearer_action",
	})
	req := httptest.NewRequest("POST", "/api/artifacts/carry", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != 404 {
		t.Errorf("status = %d, want 404, body=%s", w.Code, w.Body.String())
	}
}
