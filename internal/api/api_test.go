package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pettai/pettkeeper/internal/engine"
	"github.com/pettai/pettkeeper/internal/executor"
	"github.com/pettai/pettkeeper/internal/models"
	"github.com/pettai/pettkeeper/internal/scheduler"
	"github.com/pettai/pettkeeper/internal/session"
	"github.com/pettai/pettkeeper/internal/state"
	"github.com/pettai/pettkeeper/internal/wire"
)

func newTestServer(t *testing.T) (*Server, *state.Store) {
	t.Helper()
	st := state.NewStore()
	acks := session.NewAckSlot()
	router := session.NewRouter(st, acks)
	sess, err := session.New(router, session.WithURL("ws://example"), session.WithToken("tok"))
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	eng := engine.New(engine.DefaultConfig(), st, nil)
	exec := executor.New(sess, acks, st)
	sched := scheduler.New(sess, eng, exec)
	return NewServer(st, sess, sched), st
}

func doRequest(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp models.APIResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: response is not valid JSON: %v", method, path, err)
		}
	}
	return rec, resp
}

func intPtr(n int) *int { return &n }

func TestStatusEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	st.ApplyUpdate(&wire.PetPayload{Stats: &wire.PetStatsPayload{
		Hunger: intPtr(90), Health: intPtr(90), Energy: intPtr(90),
		Happiness: intPtr(90), Hygiene: intPtr(90),
	}})

	rec, resp := doRequest(t, srv, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("expected ok status, got %s", resp.Status)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("expected snapshot object, got %T", resp.Result)
	}
	conn, ok := result["connection"].(map[string]interface{})
	if !ok {
		t.Fatal("snapshot missing connection section")
	}
	if conn["state"] != string(models.ConnStateDisconnected) {
		t.Errorf("expected disconnected session, got %v", conn["state"])
	}
	pet, ok := result["pet"].(map[string]interface{})
	if !ok {
		t.Fatal("snapshot missing pet section")
	}
	if pet["mood"] != string(models.MoodHappy) {
		t.Errorf("expected happy mood, got %v", pet["mood"])
	}
	if _, ok := result["schedule"]; !ok {
		t.Error("snapshot missing schedule section")
	}
	if _, ok := result["history"]; !ok {
		t.Error("snapshot missing history section")
	}
}

func TestHistoryEndpoints(t *testing.T) {
	srv, st := newTestServer(t)
	st.RecordAction(models.ActionRecord{Action: models.ActionRequest{Type: models.ActionShower}, Success: true})
	st.RecordMessage(models.SentMessageRecord{Type: "SHOWER", Success: true})
	st.RecordPrompt(models.PromptRecord{Kind: models.PromptKindBaseline, Text: "SHOWER: hygiene at 20"})

	for _, path := range []string{"/history/actions", "/history/messages", "/history/prompts"} {
		rec, resp := doRequest(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
		list, ok := resp.Result.([]interface{})
		if !ok {
			t.Fatalf("GET %s: expected list result, got %T", path, resp.Result)
		}
		if len(list) != 1 {
			t.Errorf("GET %s: expected 1 record, got %d", path, len(list))
		}
	}
}

func TestTokenEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, resp := doRequest(t, srv, http.MethodPost, "/token", `{"token":"fresh"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %+v", rec.Code, resp)
	}
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("expected ok status, got %s", resp.Status)
	}
}

func TestTokenEndpointRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := doRequest(t, srv, http.MethodPost, "/token", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: expected 400, got %d", rec.Code)
	}

	rec, _ = doRequest(t, srv, http.MethodPost, "/token", `{"token":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty token: expected 400, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := doRequest(t, srv, http.MethodPost, "/status", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /status: expected 405, got %d", rec.Code)
	}
	rec, _ = doRequest(t, srv, http.MethodGet, "/token", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /token: expected 405, got %d", rec.Code)
	}
}
