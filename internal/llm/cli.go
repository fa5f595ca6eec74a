package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CLIClient implements Completer by running a local model CLI (for example
// "claude --print" or "ollama run") and passing the prompt on stdin.
type CLIClient struct {
	// cliPath is the executable name or path
	cliPath string

	// args are passed before the prompt is written to stdin
	args []string

	timeout time.Duration

	// allowedCLIDirs restricts the resolved executable to these directories when set.
	allowedCLIDirs []string

	once     sync.Once
	resolved string
}

// CLIConfig configures the CLI client.
type CLIConfig struct {
	// CLIPath is the executable to run (default: "claude")
	CLIPath string

	// Args are the command-line arguments (default: --print -p -)
	Args []string

	// Timeout is the maximum duration for requests (default: 60s)
	Timeout time.Duration

	// AllowedCLIDirs restricts CLI search to these directories.
	// When empty, any directory is allowed.
	AllowedCLIDirs []string
}

// NewCLIClient creates a new CLIClient with the given configuration.
func NewCLIClient(cfg CLIConfig) *CLIClient {
	if cfg.CLIPath == "" {
		cfg.CLIPath = "claude"
	}
	if cfg.Args == nil {
		cfg.Args = []string{"--print", "-p", "-"}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &CLIClient{
		cliPath:        cfg.CLIPath,
		args:           cfg.Args,
		timeout:        cfg.Timeout,
		allowedCLIDirs: cfg.AllowedCLIDirs,
	}
}

// Available returns true if the executable can be found in an allowed
// directory. The lookup happens once.
func (c *CLIClient) Available() bool {
	c.once.Do(func() {
		path, err := exec.LookPath(c.cliPath)
		if err != nil || !c.isAllowedPath(path) {
			return
		}
		c.resolved = path
	})
	return c.resolved != ""
}

// isAllowedPath checks if the CLI path is within allowed directories.
// Returns true if no AllowedCLIDirs are configured.
func (c *CLIClient) isAllowedPath(cliPath string) bool {
	if len(c.allowedCLIDirs) == 0 {
		return true
	}

	absPath, err := filepath.Abs(cliPath)
	if err != nil {
		return false
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return false
	}

	for _, dir := range c.allowedCLIDirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if resolved == absDir || strings.HasPrefix(resolved, absDir+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

// Complete runs the CLI with the prompt on stdin and returns trimmed stdout.
// The prompt is not passed as an argument so it does not show up in
// process listings.
func (c *CLIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("cli client not available: %s not found", c.cliPath)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.resolved, c.args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("cli timed out after %v", c.timeout)
		}
		return "", fmt.Errorf("cli failed: %w (stderr: %s)", err, stderr.String())
	}

	response := strings.TrimSpace(stdout.String())
	if response == "" {
		return "", fmt.Errorf("cli returned empty response")
	}

	return response, nil
}
