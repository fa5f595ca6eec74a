package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

const readinessReply = `{"ready_for_production":true,"risk_level":"low","weak_areas":[],"critical_gaps":[],"potential_issues":[],"recommendations":[]}`

func TestAnthropicClient_Complete(t *testing.T) {
	var gotKey, gotVersion string
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"m1","type":"message","role":"assistant","content":[{"type":"text","text":"hello"}]}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL, MaxTokens: 64})
	got, err := c.Complete(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %q, want hello", got)
	}
	if gotKey != "test-key" || gotVersion != anthropicAPIVersion {
		t.Errorf("headers: key=%q version=%q", gotKey, gotVersion)
	}
	if gotReq.MaxTokens != 64 || gotReq.Messages[0].Content != "ping" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestAnthropicClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient(ClientConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "ping")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status error, got %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	if NewAnthropicClient(ClientConfig{}).Available() {
		t.Error("client without key should be unavailable")
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"pong"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(ClientConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	got, err := c.Complete(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "pong" {
		t.Errorf("got %q", got)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestOllamaClient_Keyless(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(ClientConfig{BaseURL: srv.URL})
	if !c.Available() {
		t.Fatal("ollama client should be available without a key")
	}
	if _, err := c.Complete(context.Background(), "hi"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("unexpected Authorization header %q", gotAuth)
	}
	if c.model != ollamaDefaultModel {
		t.Errorf("model = %q", c.model)
	}
}

func TestGeminiClient_Complete(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"part one "},{"text":"part two"}]}}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient(ClientConfig{APIKey: "g-key", BaseURL: srv.URL, Model: "gemini-test"})
	got, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "part one part two" {
		t.Errorf("got %q", got)
	}
	if gotPath != "/models/gemini-test:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "g-key" {
		t.Errorf("key header = %q", gotKey)
	}
	if gotReq.Contents[0].Parts[0].Text != "hello" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestGeminiClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"key invalid","status":"PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	c := NewGeminiClient(ClientConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "PERMISSION_DENIED") {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestGeminiClient_KeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "from-google")
	c := NewGeminiClient(ClientConfig{})
	if c.apiKey != "from-google" {
		t.Errorf("apiKey = %q", c.apiKey)
	}
}

func TestOpenAIClient_NonJSONReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>upstream down</html>")
	}))
	defer srv.Close()

	c := NewOpenAIClient(ClientConfig{APIKey: "sk", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "ping")
	if err == nil || !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream down") {
		t.Errorf("err = %v, want status and body", err)
	}
}

func TestModelGenerator_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply, _ := json.Marshal(readinessReply)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":`+string(reply)+`}}]}`)
	}))
	defer srv.Close()

	gen, err := NewGenerator(ClientConfig{Provider: "openai", APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	a, err := gen.AnalyzeReadiness(context.Background(), models.MaturityVector{80, 80, 80, 80, 80})
	if err != nil {
		t.Fatalf("AnalyzeReadiness: %v", err)
	}
	if !a.ReadyForProduction || a.RiskLevel != models.RiskLow {
		t.Errorf("analysis = %+v", a)
	}
}

func TestModelGenerator_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	gen := NewModelGenerator("anthropic", NewAnthropicClient(ClientConfig{APIKey: "k", BaseURL: srv.URL}))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := gen.GenerateReport(ctx, &models.GameState{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Logf("error does not wrap DeadlineExceeded (transport-dependent): %v", err)
	}
}

func TestModelGenerator_MalformedReply(t *testing.T) {
	gen := NewModelGenerator("scripted", NewScriptedCompleter("definitely not json"))
	if _, err := gen.GenerateDecisions(context.Background(), &models.GameState{}); err == nil {
		t.Error("expected parse error")
	}
}

func TestModelGenerator_ExtractScenariosRejectsShortDocument(t *testing.T) {
	sc := NewScriptedCompleter("[]")
	gen := NewModelGenerator("scripted", sc)
	if _, err := gen.ExtractScenarios(context.Background(), "too short"); err == nil {
		t.Error("expected error for short document")
	}
	if len(sc.Prompts) != 0 {
		t.Error("model should not be called for a short document")
	}
}

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		provider string
		wantErr  bool
	}{
		{"", false},
		{"fallback", false},
		{"anthropic", false},
		{"OpenAI", false},
		{"ollama", false},
		{"gemini", false},
		{"cli", false},
		{"palm", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			gen, err := NewGenerator(ClientConfig{Provider: tt.provider})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && gen == nil {
				t.Error("nil generator")
			}
		})
	}
}
