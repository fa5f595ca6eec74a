package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/semih-duru/agent-capabilities-simulator/internal/engine"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
	"github.com/semih-duru/agent-capabilities-simulator/internal/render"
	"github.com/semih-duru/agent-capabilities-simulator/internal/session"
)

const playHelp = `Commands:
  d, decisions      show this week's decisions
  <n>.<m>           choose option m of decision n (e.g. 1.2)
  a, advance [n]    advance n weeks (default 1)
  s, state          show the dashboard
  l, launch         launch to production
  e, end            end the game and show the report
  h, help           show this help
  q, quit           leave without a report`

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game in the terminal",
		Long: `Play an interactive game on stdin/stdout.

` + playHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			seed, _ := cmd.Flags().GetInt64("seed")
			sessions, err := a.sessions(nil, seed)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")

			p := &player{
				sessions: sessions,
				in:       bufio.NewScanner(cmd.InOrStdin()),
				out:      cmd.OutOrStdout(),
				jsonOut:  jsonOut,
			}
			return p.run(cmd.Context())
		},
	}
	cmd.Flags().Int64("seed", 0, "Seed for random events (0 uses game.seed, then the clock)")
	return cmd
}

// player drives one game from line-oriented input.
type player struct {
	sessions *session.Manager
	in       *bufio.Scanner
	out      io.Writer
	jsonOut  bool

	// offered holds the decisions last shown, for numbered choices.
	offered []models.Decision
}

// errQuit ends the loop without error.
var errQuit = errors.New("quit")

func (p *player) run(ctx context.Context) error {
	st, err := p.sessions.Start(ctx)
	if err != nil {
		return err
	}
	p.emit(map[string]any{"game_state": st}, func() {
		render.State(p.out, st)
		fmt.Fprintln(p.out, "Type h for help.")
	})

	for {
		if !p.jsonOut {
			fmt.Fprint(p.out, "> ")
		}
		if !p.in.Scan() {
			return p.in.Err()
		}
		line := strings.TrimSpace(p.in.Text())
		if line == "" {
			continue
		}
		err := p.exec(ctx, line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			p.emit(map[string]any{"success": false, "error": err.Error()}, func() {
				fmt.Fprintf(p.out, "error: %v\n", err)
			})
		}
		if st, ok := p.sessions.Snapshot(); ok && st.GameOver {
			return nil
		}
	}
}

func (p *player) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "q", "quit", "exit":
		return errQuit
	case "h", "help", "?":
		fmt.Fprintln(p.out, playHelp)
		return nil
	case "s", "state":
		st, ok := p.sessions.Snapshot()
		if !ok {
			return engine.ErrNoActiveGame
		}
		p.emit(map[string]any{"game_state": st}, func() { render.State(p.out, st) })
		return nil
	case "d", "decisions":
		decisions, err := p.sessions.AvailableDecisions(ctx)
		if err != nil {
			return err
		}
		p.offered = decisions
		p.emit(map[string]any{"decisions": decisions}, func() { render.Decisions(p.out, decisions) })
		return nil
	case "a", "advance":
		weeks := 1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("invalid weeks %q", fields[1])
			}
			weeks = n
		}
		st, err := p.sessions.AdvanceTime(weeks)
		if err != nil {
			return err
		}
		p.offered = nil
		p.emit(map[string]any{"game_state": st}, func() { render.State(p.out, st) })
		return nil
	case "l", "launch":
		res, err := p.sessions.Launch(ctx)
		if err != nil {
			return err
		}
		p.emit(res, func() { render.Launch(p.out, res) })
		return nil
	case "e", "end":
		res, err := p.sessions.End(ctx)
		if err != nil {
			return err
		}
		p.emit(res, func() { render.Report(p.out, res) })
		return nil
	}

	if d, o, ok := parseChoice(fields[0]); ok {
		return p.choose(ctx, d, o)
	}
	return fmt.Errorf("unknown command %q (h for help)", fields[0])
}

func (p *player) choose(ctx context.Context, d, o int) error {
	if len(p.offered) == 0 {
		return errors.New("no decisions shown yet; type d first")
	}
	if d < 1 || d > len(p.offered) {
		return fmt.Errorf("no decision %d", d)
	}
	options := p.offered[d-1].Options
	if o < 1 || o > len(options) {
		return fmt.Errorf("decision %d has no option %d", d, o)
	}

	res, err := p.sessions.ApplyDecision(ctx, options[o-1])
	if err != nil {
		return err
	}
	if res.Success {
		p.offered = nil
	}
	p.emit(res, func() {
		render.DecisionResult(p.out, res)
		render.State(p.out, res.State)
	})
	return nil
}

// parseChoice reads "n.m" as decision n, option m.
func parseChoice(s string) (int, int, bool) {
	ds, ops, found := strings.Cut(s, ".")
	if !found {
		return 0, 0, false
	}
	d, err := strconv.Atoi(ds)
	if err != nil {
		return 0, 0, false
	}
	o, err := strconv.Atoi(ops)
	if err != nil {
		return 0, 0, false
	}
	return d, o, true
}

// emit writes v as a JSON line in --json mode and calls pretty otherwise.
func (p *player) emit(v any, pretty func()) {
	if p.jsonOut {
		_ = json.NewEncoder(p.out).Encode(v)
		return
	}
	pretty()
}
