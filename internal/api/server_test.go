package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/semih-duru/agent-capabilities-simulator/internal/engine"
	"github.com/semih-duru/agent-capabilities-simulator/internal/llm"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
	"github.com/semih-duru/agent-capabilities-simulator/internal/ratelimit"
	"github.com/semih-duru/agent-capabilities-simulator/internal/scenario"
	"github.com/semih-duru/agent-capabilities-simulator/internal/session"
)

type fixture struct {
	server *Server
	hub    *Hub
	lib    scenario.Library
}

func newFixture(t *testing.T, gen llm.Generator, limiter *ratelimit.Limiter) *fixture {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.RandomEventProbability = 0

	hub := NewHub(nil)
	lib := scenario.NewMemoryLibrary()
	eng, err := engine.New(cfg, engine.Options{
		Scenarios: lib,
		RNG:       engine.NewSeededRNG(1),
		Sink:      hub,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	srv := NewServer(Options{
		Sessions:  session.NewManager(eng, nil),
		Scenarios: lib,
		Generator: gen,
		Hub:       hub,
		Limiter:   limiter,
	})
	return &fixture{server: srv, hub: hub, lib: lib}
}

// do issues a request against the handler and decodes the JSON response.
func (f *fixture) do(t *testing.T, method, path, contentType, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: response is not JSON: %q", method, path, rec.Body.String())
		}
	}
	return rec.Code, out
}

func gameState(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	st, ok := resp["game_state"].(map[string]any)
	if !ok {
		t.Fatalf("response has no game_state: %v", resp)
	}
	return st
}

const devOption = `{"option": {
	"id": "opensource_basic",
	"text": "Open-source framework",
	"cost": 20000,
	"time_weeks": 2,
	"resources_required": 2,
	"maturity_impact": {"agent_development": 10}
}}`

func TestServer_NoActiveGame(t *testing.T) {
	f := newFixture(t, nil, nil)

	code, resp := f.do(t, http.MethodGet, "/api/game/state", "", "")
	if code != http.StatusNotFound || resp["error"] != "No active game" {
		t.Errorf("state = %d %v", code, resp)
	}

	code, resp = f.do(t, http.MethodGet, "/api/decisions/available", "", "")
	if code != http.StatusOK {
		t.Fatalf("decisions = %d %v", code, resp)
	}
	if list, _ := resp["decisions"].([]any); len(list) != 0 {
		t.Errorf("decisions without a game = %v", list)
	}

	code, _ = f.do(t, http.MethodPost, "/api/decision/make", "application/json", devOption)
	if code != http.StatusNotFound {
		t.Errorf("decide without a game = %d, want 404", code)
	}
	for _, path := range []string{"/api/game/advance", "/api/production/launch", "/api/game/end"} {
		if code, _ := f.do(t, http.MethodPost, path, "", ""); code != http.StatusNotFound {
			t.Errorf("%s without a game = %d, want 404", path, code)
		}
	}
}

func TestServer_GameFlow(t *testing.T) {
	f := newFixture(t, nil, nil)

	code, resp := f.do(t, http.MethodPost, "/api/game/new", "", "")
	if code != http.StatusOK || resp["success"] != true {
		t.Fatalf("new game = %d %v", code, resp)
	}
	st := gameState(t, resp)
	if st["budget"] != float64(1000000) || st["current_week"] != float64(0) {
		t.Errorf("new game state = %v", st)
	}

	code, resp = f.do(t, http.MethodGet, "/api/decisions/available", "", "")
	if code != http.StatusOK {
		t.Fatalf("decisions = %d", code)
	}
	list, _ := resp["decisions"].([]any)
	if len(list) == 0 || len(list) > 3 {
		t.Errorf("got %d decisions, want 1..3", len(list))
	}

	code, resp = f.do(t, http.MethodPost, "/api/decision/make", "application/json", devOption)
	if code != http.StatusOK || resp["success"] != true {
		t.Fatalf("decide = %d %v", code, resp)
	}
	st = gameState(t, resp)
	if st["budget"] != float64(980000) || st["current_week"] != float64(2) {
		t.Errorf("after decision: budget=%v week=%v", st["budget"], st["current_week"])
	}
	maturity := st["maturity"].(map[string]any)
	if maturity["agent_development"] != float64(10) {
		t.Errorf("agent_development = %v", maturity["agent_development"])
	}

	code, resp = f.do(t, http.MethodPost, "/api/game/advance?weeks=3", "", "")
	if code != http.StatusOK || gameState(t, resp)["current_week"] != float64(5) {
		t.Errorf("advance = %d %v", code, resp)
	}
	if code, _ = f.do(t, http.MethodPost, "/api/game/advance?weeks=-1", "", ""); code != http.StatusBadRequest {
		t.Errorf("negative advance = %d, want 400", code)
	}
	if code, _ = f.do(t, http.MethodPost, "/api/game/advance?weeks=2000000000", "", ""); code != http.StatusBadRequest {
		t.Errorf("huge advance = %d, want 400", code)
	}

	code, resp = f.do(t, http.MethodPost, "/api/production/launch", "", "")
	if code != http.StatusOK || resp["success"] != true {
		t.Fatalf("launch = %d %v", code, resp)
	}
	code, resp = f.do(t, http.MethodPost, "/api/production/launch", "", "")
	if code != http.StatusOK || resp["success"] != false {
		t.Errorf("second launch = %d %v", code, resp)
	}

	code, resp = f.do(t, http.MethodPost, "/api/game/end", "", "")
	if code != http.StatusOK || resp["success"] != true {
		t.Fatalf("end = %d %v", code, resp)
	}
	result := resp["result"].(map[string]any)
	if _, ok := result["report"].(map[string]any); !ok {
		t.Errorf("end result has no report: %v", result)
	}

	code, _ = f.do(t, http.MethodPost, "/api/decision/make", "application/json", devOption)
	if code != http.StatusConflict {
		t.Errorf("decide after end = %d, want 409", code)
	}
	code, _ = f.do(t, http.MethodPost, "/api/game/advance", "", "")
	if code != http.StatusConflict {
		t.Errorf("advance after end = %d, want 409", code)
	}
}

func TestServer_DecisionErrors(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.do(t, http.MethodPost, "/api/game/new", "", "")

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantOK   any
	}{
		{"missing option", `{}`, http.StatusBadRequest, false},
		{"null option", `{"option": null}`, http.StatusBadRequest, false},
		{"malformed", `{"option":`, http.StatusBadRequest, false},
		{"negative cost", `{"option": {"id":"x","text":"x","cost":-5,"time_weeks":1,"resources_required":1,"maturity_impact":{}}}`, http.StatusBadRequest, false},
		{"too many resources", `{"option": {"id":"x","text":"x","cost":5,"time_weeks":1,"resources_required":11,"maturity_impact":{}}}`, http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := f.do(t, http.MethodPost, "/api/decision/make", "application/json", tt.body)
			if code != tt.wantCode || resp["success"] != tt.wantOK {
				t.Errorf("got %d %v, want %d success=%v", code, resp, tt.wantCode, tt.wantOK)
			}
		})
	}

	// The resource failure left the game untouched.
	_, resp := f.do(t, http.MethodGet, "/api/game/state", "", "")
	if st := gameState(t, resp); st["budget"] != float64(1000000) || st["current_week"] != float64(0) {
		t.Errorf("state changed after rejected decisions: %v", st)
	}
}

const vendorScenario = `{
	"id": "vendor_review",
	"title": "Vendor review",
	"description": "Pick a model vendor",
	"category": "strategic",
	"week_available": 3,
	"options": [{
		"id": "single_vendor",
		"text": "One vendor",
		"cost": 30000,
		"time_weeks": 2,
		"resources_required": 1,
		"maturity_impact": {"governance": 4}
	}]
}`

func TestServer_Scenarios(t *testing.T) {
	f := newFixture(t, nil, nil)

	code, resp := f.do(t, http.MethodGet, "/api/scenarios", "", "")
	if code != http.StatusOK || len(resp["scenarios"].([]any)) != 5 {
		t.Fatalf("scenarios = %d %v", code, resp)
	}
	code, resp = f.do(t, http.MethodGet, "/api/scenarios?week=5", "", "")
	if code != http.StatusOK || len(resp["scenarios"].([]any)) != 2 {
		t.Errorf("scenarios week 5 = %d %v", code, resp)
	}

	code, resp = f.do(t, http.MethodPost, "/api/scenarios/add", "application/json", vendorScenario)
	if code != http.StatusOK || resp["id"] != "vendor_review" {
		t.Fatalf("add = %d %v", code, resp)
	}
	if code, _ = f.do(t, http.MethodPost, "/api/scenarios/add", "application/json", vendorScenario); code != http.StatusConflict {
		t.Errorf("duplicate add = %d, want 409", code)
	}
	if code, _ = f.do(t, http.MethodPost, "/api/scenarios/add", "application/json", `{"id":"x"}`); code != http.StatusBadRequest {
		t.Errorf("invalid add = %d, want 400", code)
	}

	code, resp = f.do(t, http.MethodGet, "/api/scenarios/vendor_review", "", "")
	if code != http.StatusOK {
		t.Fatalf("get = %d %v", code, resp)
	}
	if code, _ = f.do(t, http.MethodGet, "/api/scenarios/missing", "", ""); code != http.StatusNotFound {
		t.Errorf("get missing = %d, want 404", code)
	}
}

func TestServer_Import(t *testing.T) {
	t.Run("no generator", func(t *testing.T) {
		f := newFixture(t, llm.NewFallbackGenerator(), nil)
		code, _ := f.do(t, http.MethodPost, "/api/scenarios/import", "text/plain", "a document")
		if code != http.StatusServiceUnavailable {
			t.Errorf("import = %d, want 503", code)
		}
	})

	t.Run("extracts and adds", func(t *testing.T) {
		extracted := []models.Decision{{
			Title:         "Model <b>registry</b>",
			Category:      models.CategoryGovernance,
			WeekAvailable: 4,
			Options: []models.DecisionOption{{
				ID: "registry", Text: "Build a registry", Cost: 10000, TimeWeeks: 1, ResourcesRequired: 1,
				MaturityImpact: models.MaturityDelta{models.Governance: 5}, ImmediateImpact: true,
			}},
		}}
		gen := llm.NewMockGenerator().WithExtracted(extracted)
		f := newFixture(t, gen, nil)

		code, resp := f.do(t, http.MethodPost, "/api/scenarios/import", "application/json",
			`{"document": "# Governance\nWe need a model registry."}`)
		if code != http.StatusOK || resp["scenarios_added"] != float64(1) {
			t.Fatalf("import = %d %v", code, resp)
		}
		if len(gen.ExtractCalls) != 1 || !strings.HasPrefix(gen.ExtractCalls[0], "- Governance") {
			t.Errorf("generator saw %q", gen.ExtractCalls)
		}
		all, _ := f.lib.All(context.Background())
		if len(all) != 6 || all[5].Title != "Model registry" || !strings.HasPrefix(all[5].ID, "scenario_") {
			t.Errorf("library after import: %+v", all[len(all)-1])
		}
	})

	t.Run("skips near duplicates", func(t *testing.T) {
		copied := scenario.Defaults()[0]
		copied.ID = ""
		gen := llm.NewMockGenerator().WithExtracted([]models.Decision{copied})
		f := newFixture(t, gen, nil)

		code, resp := f.do(t, http.MethodPost, "/api/scenarios/import", "text/plain", "the same scenario again")
		if code != http.StatusOK || resp["scenarios_added"] != float64(0) {
			t.Fatalf("import = %d %v", code, resp)
		}
		if skipped := resp["skipped"].([]any); len(skipped) != 1 {
			t.Errorf("skipped = %v", skipped)
		}
	})

	t.Run("empty document", func(t *testing.T) {
		f := newFixture(t, llm.NewMockGenerator(), nil)
		code, _ := f.do(t, http.MethodPost, "/api/scenarios/import", "text/plain", "  \x00 ")
		if code != http.StatusBadRequest {
			t.Errorf("import = %d, want 400", code)
		}
	})
}

func TestServer_RateLimit(t *testing.T) {
	f := newFixture(t, nil, ratelimit.NewLimiter(1, 1))

	if code, _ := f.do(t, http.MethodGet, "/api/scenarios", "", ""); code != http.StatusOK {
		t.Fatalf("first request = %d", code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/scenarios", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	if code, _ := f.do(t, http.MethodGet, "/healthz", "", ""); code != http.StatusOK {
		t.Errorf("healthz should bypass the limiter, got %d", code)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/game/new", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/game/new = %d, want 405", rec.Code)
	}
}

func TestServer_EventStream(t *testing.T) {
	f := newFixture(t, nil, nil)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/game/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+"/api/game/new", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev EventMessage
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Event.Title != engine.WelcomeTitle || ev.SessionID == "" {
		t.Errorf("event = %+v", ev)
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.ListenAndServe(ctx, "127.0.0.1:0") }()

	deadline := time.Now().Add(2 * time.Second)
	for f.server.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	resp, err := http.Get("http://" + f.server.Addr() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
