package engine

import (
	"context"
	"errors"
	"time"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/llm"
	"github.com/semih-duru/agent-capabilities-simulator/internal/logging"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// errGeneratorUnavailable is the fallback reason when no model backend is
// configured.
var errGeneratorUnavailable = errors.New("generator unavailable")

// Generated is a value produced by the content generator or, when the
// generator failed, by the local fallback. Reason holds the failure.
type Generated[T any] struct {
	Value  T
	Source models.Source
	Reason string
}

// generate runs call under the engine's generator timeout and substitutes
// fallback() on any error: unavailable backend, transport failure, timeout
// or a malformed reply.
func generate[T any](ctx context.Context, g *Game, op string, call func(context.Context, llm.Generator) (T, error), fallback func() T) Generated[T] {
	e := g.engine
	start := time.Now()

	out, err := func() (T, error) {
		var zero T
		if e.gen == nil || !e.gen.Available() {
			return zero, errGeneratorUnavailable
		}
		cctx := ctx
		if e.cfg.GeneratorTimeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, e.cfg.GeneratorTimeout)
			defer cancel()
		}
		return call(cctx, e.gen)
	}()

	res := Generated[T]{Value: out, Source: models.SourceGenerator}
	if err != nil {
		res = Generated[T]{Value: fallback(), Source: models.SourceFallback, Reason: err.Error()}
		if !errors.Is(err, errGeneratorUnavailable) {
			e.logger.Warn("generator failed, using fallback", "operation", op,
				"session", g.state.SessionID, "error", err)
		}
	}

	e.trace.Record(logging.TraceRecord{
		Operation: op,
		SessionID: g.state.SessionID,
		Week:      g.state.CurrentWeek,
		Source:    string(res.Source),
		Reason:    res.Reason,
		Duration:  time.Since(start),
	})
	return res
}

// AvailableDecisions returns up to three decisions for the current week:
// generated ones first, then library scenarios available by now, with
// duplicate ids dropped. A finished game has none.
func (g *Game) AvailableDecisions(ctx context.Context) ([]models.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.state.GameOver {
		return []models.Decision{}, nil
	}

	snapshot := g.State()
	gen := generate(ctx, g, "generate_decisions",
		func(ctx context.Context, gen llm.Generator) ([]models.Decision, error) {
			return gen.GenerateDecisions(ctx, snapshot)
		},
		llm.FallbackDecisions,
	)

	candidates := append([]models.Decision{}, gen.Value...)
	if g.engine.scenarios != nil {
		lib, err := g.engine.scenarios.ForWeek(ctx, g.state.CurrentWeek)
		if err != nil {
			g.engine.logger.Warn("scenario library unavailable", "week", g.state.CurrentWeek, "error", err)
		} else {
			candidates = append(candidates, lib...)
		}
	}

	out := make([]models.Decision, 0, constants.MaxAvailableDecisions)
	seen := make(map[string]bool, len(candidates))
	for _, d := range candidates {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d.Clone())
		if len(out) == constants.MaxAvailableDecisions {
			break
		}
	}
	return out, nil
}
