package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEntry is one line of the tool audit log. It records call metadata,
// never option payloads or other free text.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	Session    string            `json:"session,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends entries to <dir>/audit.jsonl. It is safe for
// concurrent use, and a nil AuditLogger is a no-op.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens the audit log under dir. Failure is not fatal: it is
// logged and nil is returned.
func NewAuditLogger(dir string, logger *slog.Logger) *AuditLogger {
	if err := os.MkdirAll(dir, 0700); err != nil {
		logger.Warn("cannot create audit log directory", "dir", dir, "error", err)
		return nil
	}
	path := filepath.Join(dir, "audit.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		logger.Warn("cannot open audit log", "path", path, "error", err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log appends entry as a single JSON line.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		_, _ = a.file.Write(data)
	}
}

// Close closes the log file. Safe to call on nil and more than once.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// Parameters whose values are safe to log. Anything else is logged only by
// presence, or not at all.
var (
	safeValueParams = map[string]bool{
		"weeks":       true,
		"week":        true,
		"scenario_id": true,
		"option_id":   true,
	}
	presenceOnlyParams = map[string]bool{
		"option": true,
	}
)

// sanitizeToolParams reduces tool arguments to loggable metadata. A
// "_param_count" key is always included.
func sanitizeToolParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}
	result := make(map[string]string)
	set := 0
	for key, val := range params {
		if val == nil {
			continue
		}
		set++
		switch {
		case safeValueParams[key]:
			result[key] = fmt.Sprintf("%v", val)
		case presenceOnlyParams[key]:
			result[key] = "(set)"
		}
	}
	result["_param_count"] = fmt.Sprintf("%d", set)
	return result
}

// auditTool logs a tool invocation.
func (s *Server) auditTool(tool string, start time.Time, err error, params map[string]string) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}
	session := ""
	if st, ok := s.sessions.Snapshot(); ok {
		session = st.SessionID
	}
	s.audit.Log(AuditEntry{
		Timestamp:  start,
		Tool:       tool,
		Session:    session,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})
}
