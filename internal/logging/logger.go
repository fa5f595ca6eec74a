// Package logging provides leveled logging and generation tracing for agentsim.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A TraceLogger for structured JSONL generator traces (.agentsim/trace.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for full content logging.
// At this level, generator prompts and replies are included in traces.
const LevelTrace = slog.LevelDebug - 4

// TraceFileName is the name of the JSONL trace file inside the data directory.
const TraceFileName = "trace.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "error", "warn", "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
}

// NewLogger creates a leveled text slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, handlerOptions(level)))
}

// NewJSONLogger creates a leveled slog.Logger that writes JSON lines to w.
// The HTTP server uses it so logs can be shipped as-is.
func NewJSONLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, handlerOptions(level)))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TraceRecord is one generator call.
type TraceRecord struct {
	Operation string        `json:"operation"`
	SessionID string        `json:"session_id,omitempty"`
	Week      int           `json:"week"`
	Source    string        `json:"source"`
	Reason    string        `json:"reason,omitempty"`
	Duration  time.Duration `json:"-"`
}

// TraceLogger writes generator trace records to a JSONL file.
// It is safe for concurrent use. A nil TraceLogger is safe to use;
// all methods are no-ops on nil receiver.
type TraceLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewTraceLogger creates a trace logger writing to dir/trace.jsonl.
// At "info" level and above, returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewTraceLogger(dir string, level string) *TraceLogger {
	if ParseLevel(level) > slog.LevelDebug {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, TraceFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &TraceLogger{file: f}
}

// Record writes a trace record as a single JSONL line. "time" and
// "duration_ms" fields are added automatically.
// Safe to call on nil receiver.
func (tl *TraceLogger) Record(rec TraceRecord) {
	if tl == nil {
		return
	}
	tl.Log(map[string]any{
		"operation":   rec.Operation,
		"session_id":  rec.SessionID,
		"week":        rec.Week,
		"source":      rec.Source,
		"reason":      rec.Reason,
		"duration_ms": rec.Duration.Milliseconds(),
	})
}

// Log writes an arbitrary event as a single JSONL line.
// A "time" field is added automatically. The caller's map is not mutated.
// Safe to call on nil receiver.
func (tl *TraceLogger) Log(event map[string]any) {
	if tl == nil {
		return
	}

	// Copy to avoid mutating caller's map
	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.file == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = tl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (tl *TraceLogger) Close() {
	if tl == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.file == nil {
		return
	}
	tl.file.Close()
	tl.file = nil
}
