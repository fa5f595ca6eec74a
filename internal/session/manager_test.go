package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/semih-duru/agent-capabilities-simulator/internal/engine"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	n := 0
	e, err := engine.New(engine.DefaultConfig(), engine.Options{
		RNG: engine.NewSeededRNG(1),
		NewID: func() string {
			n++
			return "s" + string(rune('0'+n))
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewManager(e, nil)
}

func option() models.DecisionOption {
	return models.DecisionOption{
		ID:                "basic_tools",
		Text:              "Basic tools",
		Cost:              20000,
		TimeWeeks:         2,
		ResourcesRequired: 2,
		MaturityImpact:    models.MaturityDelta{models.AgentDevelopment: 10},
		ImmediateImpact:   true,
	}
}

func TestManager_NoActiveGame(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	if _, ok := m.Snapshot(); ok {
		t.Error("Snapshot reported a game")
	}
	if _, ok := m.Current(); ok {
		t.Error("Current reported a game")
	}
	if _, err := m.ApplyDecision(ctx, option()); !errors.Is(err, engine.ErrNoActiveGame) {
		t.Errorf("ApplyDecision = %v", err)
	}
	if _, err := m.Launch(ctx); !errors.Is(err, engine.ErrNoActiveGame) {
		t.Errorf("Launch = %v", err)
	}
	if _, err := m.End(ctx); !errors.Is(err, engine.ErrNoActiveGame) {
		t.Errorf("End = %v", err)
	}
	if _, err := m.AdvanceTime(1); !errors.Is(err, engine.ErrNoActiveGame) {
		t.Errorf("AdvanceTime = %v", err)
	}
	d, err := m.AvailableDecisions(ctx)
	if err != nil || len(d) != 0 {
		t.Errorf("AvailableDecisions = %v, %v", d, err)
	}
}

func TestManager_StartReplaces(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	first, err := m.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ApplyDecision(ctx, option()); err != nil {
		t.Fatal(err)
	}

	second, err := m.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.SessionID == second.SessionID {
		t.Error("new game reused the session id")
	}
	snap, ok := m.Snapshot()
	if !ok || snap.SessionID != second.SessionID || snap.CurrentWeek != 0 || len(snap.DecisionsMade) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestManager_Lifecycle(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	if _, err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := m.ApplyDecisionJSON(ctx, []byte(`{"id":"a","text":"A","cost":1000,"time_weeks":1,"resources_required":1,"maturity_impact":{"security":5}}`))
	if err != nil || !res.Success {
		t.Fatalf("ApplyDecisionJSON = %+v, %v", res, err)
	}
	st, err := m.AdvanceTime(3)
	if err != nil || st.CurrentWeek != 4 {
		t.Fatalf("AdvanceTime = %+v, %v", st, err)
	}
	if _, err := m.AdvanceTime(-1); !errors.Is(err, engine.ErrNegativeWeeks) {
		t.Errorf("AdvanceTime(-1) = %v", err)
	}
	launch, err := m.Launch(ctx)
	if err != nil || !launch.Success {
		t.Fatalf("Launch = %+v, %v", launch, err)
	}
	end, err := m.End(ctx)
	if err != nil || !end.State.GameOver || end.Report == nil {
		t.Fatalf("End = %+v, %v", end, err)
	}
	if _, err := m.ApplyDecision(ctx, option()); !errors.Is(err, engine.ErrGameOver) {
		t.Errorf("ApplyDecision after end = %v", err)
	}
	if _, err := m.AdvanceTime(2); !errors.Is(err, engine.ErrGameOver) {
		t.Errorf("AdvanceTime after end = %v", err)
	}
	if st, _ := m.Snapshot(); st.CurrentWeek != end.State.CurrentWeek {
		t.Errorf("week moved after end: %d -> %d", end.State.CurrentWeek, st.CurrentWeek)
	}
}

func TestManager_ConcurrentCalls(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	if _, err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}

	opt := option()
	opt.TimeWeeks = 1
	opt.Cost = 1
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.ApplyDecision(ctx, opt); err != nil {
				t.Error(err)
			}
			m.Snapshot()
		}()
	}
	wg.Wait()

	snap, _ := m.Snapshot()
	if len(snap.DecisionsMade) != 20 || snap.CurrentWeek != 20 {
		t.Errorf("decisions = %d, week = %d", len(snap.DecisionsMade), snap.CurrentWeek)
	}
}
