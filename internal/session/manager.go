// Package session holds the live game for the HTTP and MCP front ends.
// There is at most one active game; starting a new one discards the old.
//
// All public methods are safe for concurrent use. Calls are serialised so
// the engine underneath never sees concurrent access.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/semih-duru/agent-capabilities-simulator/internal/engine"
	"github.com/semih-duru/agent-capabilities-simulator/internal/logging"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// Manager is the single-active-session registry.
type Manager struct {
	mu     sync.Mutex
	engine *engine.Engine
	game   *engine.Game
	logger *slog.Logger
}

// NewManager creates a Manager with no active game.
func NewManager(e *engine.Engine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{engine: e, logger: logger}
}

// Start replaces the active game with a new one and returns its state.
func (m *Manager) Start(ctx context.Context) (*models.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.game != nil {
		m.logger.Info("discarding active game", "session", m.game.ID())
	}
	m.game = m.engine.NewGame()
	return m.game.State(), nil
}

// Current returns the active game. Callers must not use it concurrently
// with the Manager; prefer the Manager's own methods.
func (m *Manager) Current() (*engine.Game, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.game, m.game != nil
}

// Snapshot returns the active game's state. False means there is no game.
func (m *Manager) Snapshot() (*models.GameState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.game == nil {
		return nil, false
	}
	return m.game.State(), true
}

// with runs fn against the active game while holding the lock.
func (m *Manager) with(fn func(g *engine.Game) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.game == nil {
		return engine.ErrNoActiveGame
	}
	return fn(m.game)
}

// AvailableDecisions implements engine.Game.AvailableDecisions for the
// active game. With no game it returns an empty list.
func (m *Manager) AvailableDecisions(ctx context.Context) ([]models.Decision, error) {
	var out []models.Decision
	err := m.with(func(g *engine.Game) error {
		var err error
		out, err = g.AvailableDecisions(ctx)
		return err
	})
	if errors.Is(err, engine.ErrNoActiveGame) {
		return []models.Decision{}, nil
	}
	return out, err
}

// ApplyDecision applies opt to the active game.
func (m *Manager) ApplyDecision(ctx context.Context, opt models.DecisionOption) (*engine.DecisionResult, error) {
	var res *engine.DecisionResult
	err := m.with(func(g *engine.Game) error {
		var err error
		res, err = g.ApplyDecision(ctx, opt)
		return err
	})
	return res, err
}

// ApplyDecisionJSON validates and applies a raw option payload.
func (m *Manager) ApplyDecisionJSON(ctx context.Context, raw []byte) (*engine.DecisionResult, error) {
	var res *engine.DecisionResult
	err := m.with(func(g *engine.Game) error {
		var err error
		res, err = g.ApplyDecisionJSON(ctx, raw)
		return err
	})
	return res, err
}

// AdvanceTime moves the active game forward without a decision.
func (m *Manager) AdvanceTime(weeks int) (*models.GameState, error) {
	var st *models.GameState
	err := m.with(func(g *engine.Game) error {
		if err := g.AdvanceTime(weeks); err != nil {
			return err
		}
		st = g.State()
		return nil
	})
	return st, err
}

// Launch moves the active game into production.
func (m *Manager) Launch(ctx context.Context) (*engine.LaunchResult, error) {
	var res *engine.LaunchResult
	err := m.with(func(g *engine.Game) error {
		var err error
		res, err = g.LaunchToProduction(ctx)
		return err
	})
	return res, err
}

// End finishes the active game and returns the final report.
func (m *Manager) End(ctx context.Context) (*engine.EndResult, error) {
	var res *engine.EndResult
	err := m.with(func(g *engine.Game) error {
		var err error
		res, err = g.EndGame(ctx)
		return err
	})
	return res, err
}
