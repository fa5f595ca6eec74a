package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/engine"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
	"github.com/semih-duru/agent-capabilities-simulator/internal/sanitize"
	"github.com/semih-duru/agent-capabilities-simulator/internal/scenario"
	"github.com/semih-duru/agent-capabilities-simulator/internal/schema"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNegativeWeeks):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoActiveGame):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrGameOver), errors.Is(err, scenario.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, scenario.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= 500 {
		s.logger.Warn("request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &models.ValidationError{Field: "body", Reason: err.Error()}
	}
	return body, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.opts.Hub != nil {
		resp["subscribers"] = s.opts.Hub.Subscribers()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	st, err := s.opts.Sessions.Start(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "game_state": st})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, ok := s.opts.Sessions.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "No active game")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "game_state": st})
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	decisions, err := s.opts.Sessions.AvailableDecisions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "decisions": decisions})
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req struct {
		Option json.RawMessage `json:"option"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON: "+err.Error())
		return
	}
	if len(req.Option) == 0 || string(req.Option) == "null" {
		writeError(w, http.StatusBadRequest, "Option data required")
		return
	}

	// Resource shortfalls come back as success=false with status 200.
	res, err := s.opts.Sessions.ApplyDecisionJSON(r.Context(), req.Option)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	weeks := 1
	if v := r.URL.Query().Get("weeks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid weeks %q", v))
			return
		}
		weeks = n
	}
	st, err := s.opts.Sessions.AdvanceTime(weeks)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "game_state": st})
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	res, err := s.opts.Sessions.Launch(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	res, err := s.opts.Sessions.End(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": res})
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	var (
		list []models.Decision
		err  error
	)
	if v := r.URL.Query().Get("week"); v != "" {
		week, convErr := strconv.Atoi(v)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid week %q", v))
			return
		}
		list, err = s.opts.Scenarios.ForWeek(r.Context(), week)
	} else {
		list, err = s.opts.Scenarios.All(r.Context())
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "scenarios": list})
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	d, err := s.opts.Scenarios.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "scenario": d})
}

func (s *Server) handleAddScenario(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := schema.DecodeDecision(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sanitize.Decision(&d)
	scenario.AssignIDs(&d)
	if err := s.opts.Scenarios.Add(r.Context(), d); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("scenario added", "id", d.ID, "week", d.WeekAvailable)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Scenario added successfully",
		"id":      d.ID,
	})
}

// handleImport extracts scenarios from a plain-text document. The body is
// either the raw text or {"document": "..."} with a JSON content type.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	gen := s.opts.Generator
	if gen == nil || !gen.Available() {
		writeError(w, http.StatusServiceUnavailable, "scenario import needs a configured content generator")
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	document := string(body)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req struct {
			Document string `json:"document"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON: "+err.Error())
			return
		}
		document = req.Document
	}
	document = sanitize.Document(document)
	if document == "" {
		writeError(w, http.StatusBadRequest, "document is empty")
		return
	}

	ctx := r.Context()
	if s.opts.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ExtractTimeout)
		defer cancel()
	}
	extracted, err := gen.ExtractScenarios(ctx, document)
	if err != nil {
		s.logger.Warn("scenario extraction failed", "error", err)
		writeError(w, http.StatusBadGateway, "scenario extraction failed: "+err.Error())
		return
	}
	for i := range extracted {
		sanitize.Decision(&extracted[i])
		scenario.AssignIDs(&extracted[i])
	}

	res, err := scenario.ImportDistinct(r.Context(), s.opts.Scenarios, extracted, constants.DuplicateScenarioThreshold)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("scenarios imported", "added", len(res.Added), "skipped", len(res.Skipped))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         fmt.Sprintf("Successfully added %d scenarios", len(res.Added)),
		"scenarios_added": len(res.Added),
		"added":           res.Added,
		"skipped":         res.Skipped,
		"scenarios":       extracted,
	})
}
