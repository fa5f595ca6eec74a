// Package engine runs the turn-based simulation: game lifecycle, decision
// application, week-by-week progression with deferred impacts and random
// events, the production launch and the end-of-game report.
//
// A Game is single-threaded. Callers that share one across goroutines must
// serialise access themselves (see the session package).
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/llm"
	"github.com/semih-duru/agent-capabilities-simulator/internal/logging"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

var (
	// ErrNoActiveGame is returned when an operation needs a game and none exists.
	ErrNoActiveGame = errors.New("no active game")

	// ErrGameOver is returned when a finished game is asked to change.
	ErrGameOver = errors.New("game is over")

	// ErrNegativeWeeks is returned when time is asked to move backwards.
	ErrNegativeWeeks = errors.New("weeks must be >= 0")
)

// RNG is the randomness the engine needs. *rand.Rand satisfies it.
type RNG interface {
	Float64() float64
	Intn(n int) int
}

// NewSeededRNG returns a deterministic RNG for seed.
func NewSeededRNG(seed int64) RNG {
	return rand.New(rand.NewSource(seed))
}

// Config holds the game's tunable numbers.
type Config struct {
	InitialBudget          int
	InitialTimeWeeks       int
	InitialResources       int
	RandomEventProbability float64

	// GeneratorTimeout bounds every content generator call. Zero means no
	// timeout beyond the caller's context.
	GeneratorTimeout time.Duration
}

// DefaultConfig returns the standard game settings.
func DefaultConfig() Config {
	return Config{
		InitialBudget:          constants.DefaultInitialBudget,
		InitialTimeWeeks:       constants.DefaultInitialTimeWeeks,
		InitialResources:       constants.DefaultInitialResources,
		RandomEventProbability: constants.DefaultRandomEventProbability,
		GeneratorTimeout:       30 * time.Second,
	}
}

// Validate checks that the settings can start a game.
func (c Config) Validate() error {
	if c.InitialResources < 0 {
		return fmt.Errorf("initial resources must be >= 0, got %d", c.InitialResources)
	}
	if c.InitialTimeWeeks < 0 {
		return fmt.Errorf("initial time must be >= 0 weeks, got %d", c.InitialTimeWeeks)
	}
	if c.RandomEventProbability < 0 || c.RandomEventProbability > 1 {
		return fmt.Errorf("random event probability must be within [0,1], got %v", c.RandomEventProbability)
	}
	if c.GeneratorTimeout < 0 {
		return fmt.Errorf("generator timeout must be >= 0, got %v", c.GeneratorTimeout)
	}
	return nil
}

// EventSink receives every event appended to any game's log.
type EventSink interface {
	Publish(sessionID string, ev models.GameEvent)
}

// ScenarioSource supplies predefined decisions for a week.
type ScenarioSource interface {
	ForWeek(ctx context.Context, week int) ([]models.Decision, error)
}

// Options wires the engine's collaborators. Every field is optional.
type Options struct {
	// Generator produces decisions, analyses and reports. Nil means every
	// request uses the local fallback.
	Generator llm.Generator

	// Scenarios is merged into the decisions offered each turn.
	Scenarios ScenarioSource

	// RNG drives random events and fallout scheduling. Defaults to a
	// time-seeded source.
	RNG RNG

	// RandomEvents overrides DefaultRandomEvents.
	RandomEvents []RandomEvent

	Logger *slog.Logger
	Trace  *logging.TraceLogger
	Sink   EventSink

	// NewID generates session ids. Defaults to uuid.NewString.
	NewID func() string
}

// Engine holds dependencies shared by every game.
type Engine struct {
	cfg       Config
	gen       llm.Generator
	scenarios ScenarioSource
	rng       RNG
	events    []RandomEvent
	logger    *slog.Logger
	trace     *logging.TraceLogger
	sink      EventSink
	newID     func() string
}

// New creates an Engine. Invalid configuration is an error.
func New(cfg Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		gen:       opts.Generator,
		scenarios: opts.Scenarios,
		rng:       opts.RNG,
		events:    opts.RandomEvents,
		logger:    opts.Logger,
		trace:     opts.Trace,
		sink:      opts.Sink,
		newID:     opts.NewID,
	}
	if e.rng == nil {
		e.rng = NewSeededRNG(time.Now().UnixNano())
	}
	if e.events == nil {
		e.events = DefaultRandomEvents()
	}
	if e.logger == nil {
		e.logger = logging.Discard()
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e, nil
}

// Config returns the engine's settings.
func (e *Engine) Config() Config {
	return e.cfg
}

// NewGame creates a game at the configured starting resources with the
// welcome event already logged.
func (e *Engine) NewGame() *Game {
	g := &Game{
		engine: e,
		state: models.GameState{
			SessionID:          e.newID(),
			InitialBudget:      e.cfg.InitialBudget,
			Budget:             e.cfg.InitialBudget,
			TimeRemainingWeeks: e.cfg.InitialTimeWeeks,
			Resources:          e.cfg.InitialResources,
			Reputation:         constants.InitialReputation,
			DecisionsMade:      []models.DecisionRecord{},
			Events:             []models.GameEvent{},
			Pending:            []models.PendingImpact{},
			ProductionIssues:   []string{},
		},
	}
	g.appendEvent(models.GameEvent{
		Week:        0,
		Title:       WelcomeTitle,
		Description: welcomeDescription,
	})
	e.logger.Info("game started", "session", g.state.SessionID,
		"budget", g.state.Budget, "weeks", g.state.TimeRemainingWeeks, "resources", g.state.Resources)
	return g
}
