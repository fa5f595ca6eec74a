// Package config provides unified configuration loading for agentsim.
// It supports loading from YAML files, an optional .env file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/engine"
	"github.com/semih-duru/agent-capabilities-simulator/internal/llm"
)

// SimConfig contains all agentsim configuration settings.
type SimConfig struct {
	// Game holds the starting numbers of every new game.
	Game GameConfig `json:"game" yaml:"game"`

	// LLM selects the content generator backend.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Scenarios selects where the scenario library lives.
	Scenarios ScenariosConfig `json:"scenarios" yaml:"scenarios"`

	Server ServerConfig `json:"server" yaml:"server"`

	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Backup controls where exports go and how many are kept.
	Backup BackupConfig `json:"backup" yaml:"backup"`
}

// GameConfig holds the tunable numbers of the simulation.
type GameConfig struct {
	InitialBudget          int     `json:"initial_budget" yaml:"initial_budget"`
	InitialTimeWeeks       int     `json:"initial_time_weeks" yaml:"initial_time_weeks"`
	InitialResources       int     `json:"initial_resources" yaml:"initial_resources"`
	RandomEventProbability float64 `json:"random_event_probability" yaml:"random_event_probability"`

	// Seed makes random events reproducible. Zero seeds from the clock.
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// LLMConfig configures the content generator.
type LLMConfig struct {
	// Provider identifies the backend: "anthropic", "openai", "ollama",
	// "gemini", "cli", "fallback", or "" for the deterministic fallback.
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider. Supports ${VAR} syntax for env vars.
	// Not required for ollama, cli or fallback.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the API endpoint URL. Used for ollama or custom OpenAI-compatible endpoints.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout bounds every generator call. Expired calls use the fallback.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Enabled indicates whether the configured provider is used at all.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// CLIPath is the executable run by the cli provider.
	CLIPath string `json:"cli_path,omitempty" yaml:"cli_path,omitempty"`
}

// RedactedAPIKey returns the API key with most characters masked.
// Shows first 4 and last 4 characters, e.g., "sk-a...xyz9".
// Returns "" for empty keys and "(set)" for keys shorter than 12 chars.
func (c LLMConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key logging.
func (c LLMConfig) String() string {
	return fmt.Sprintf("LLMConfig{Provider:%s, Enabled:%t, APIKey:%s, Model:%s}",
		c.Provider, c.Enabled, c.RedactedAPIKey(), c.Model)
}

// ScenariosConfig selects the scenario library backend.
type ScenariosConfig struct {
	// Backend is "memory", "file" or "sqlite".
	Backend string `json:"backend" yaml:"backend"`

	// Path overrides the backend's default location under the data directory.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LoggingConfig configures agentsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "error", "warn", "info" (default), "debug", or "trace".
	// "debug" enables the generator trace in .agentsim/trace.jsonl.
	// "trace" additionally includes raw generator output.
	Level string `json:"level" yaml:"level"`
}

// BackupConfig configures scenario exports and their retention.
type BackupConfig struct {
	// Dir defaults to <data dir>/backups.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Keep is the number of most recent backups to keep. Zero disables the rule.
	Keep int `json:"keep" yaml:"keep"`

	// MaxAge drops backups older than this, e.g. "30d". Empty disables the rule.
	MaxAge string `json:"max_age,omitempty" yaml:"max_age,omitempty"`

	// MaxSize caps the total size of kept backups, e.g. "100MB".
	MaxSize string `json:"max_size,omitempty" yaml:"max_size,omitempty"`
}

// Default returns a SimConfig with sensible defaults.
func Default() *SimConfig {
	return &SimConfig{
		Game: GameConfig{
			InitialBudget:          constants.DefaultInitialBudget,
			InitialTimeWeeks:       constants.DefaultInitialTimeWeeks,
			InitialResources:       constants.DefaultInitialResources,
			RandomEventProbability: constants.DefaultRandomEventProbability,
		},
		LLM: LLMConfig{
			Provider: "",
			Timeout:  30 * time.Second,
			Enabled:  false,
		},
		Scenarios: ScenariosConfig{
			Backend: constants.BackendMemory.String(),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8000",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Backup: BackupConfig{
			Keep: 10,
		},
	}
}

// DefaultPath returns ~/.agentsim/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".agentsim", "config.yaml"), nil
}

// Load loads configuration from path, or from the default location when
// path is empty, then applies .env and environment variable overrides.
// Order: defaults -> config file -> .env -> environment variables.
// A missing default config file is not an error; a missing explicit one is.
func Load(path string) (*SimConfig, error) {
	config := Default()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		_, statErr := os.Stat(path)
		if statErr == nil || explicit {
			fileConfig, err := LoadFromFile(path)
			if err != nil {
				return nil, fmt.Errorf("loading config file: %w", err)
			}
			config = fileConfig
		}
	}

	dotenv, err := readDotEnv(".env")
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config, lookupWith(dotenv))

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Fields absent
// from the file keep their defaults.
func LoadFromFile(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.LLM.APIKey = expandEnvVars(config.LLM.APIKey)

	return config, nil
}

// LoadFileOrDefault is LoadFromFile without overrides, returning the defaults
// when path does not exist. It is used to edit a config file in place.
func LoadFileOrDefault(path string) (*SimConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return LoadFromFile(path)
}

// Save writes the configuration to path as YAML, creating parent directories.
func (c *SimConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

var validProviders = map[string]bool{
	"":                   true,
	llm.ProviderAnthropic: true,
	llm.ProviderOpenAI:    true,
	llm.ProviderOllama:    true,
	llm.ProviderGemini:    true,
	llm.ProviderCLI:       true,
	llm.ProviderFallback:  true,
}

var validLevels = map[string]bool{"error": true, "warn": true, "info": true, "debug": true, "trace": true}

// Validate checks that the configuration is valid.
func (c *SimConfig) Validate() error {
	if c.Game.InitialTimeWeeks < 0 {
		return fmt.Errorf("initial_time_weeks must be non-negative, got %d", c.Game.InitialTimeWeeks)
	}
	if c.Game.InitialResources < 0 {
		return fmt.Errorf("initial_resources must be non-negative, got %d", c.Game.InitialResources)
	}
	if c.Game.RandomEventProbability < 0 || c.Game.RandomEventProbability > 1 {
		return fmt.Errorf("random_event_probability must be between 0 and 1, got %f", c.Game.RandomEventProbability)
	}

	if c.LLM.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.LLM.Timeout)
	}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid provider: %s (valid: anthropic, openai, ollama, gemini, cli, fallback, or empty)", c.LLM.Provider)
	}

	if !constants.Backend(c.Scenarios.Backend).Valid() {
		return fmt.Errorf("invalid scenario backend: %s (valid: memory, file, sqlite)", c.Scenarios.Backend)
	}

	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.Backup.Keep < 0 {
		return fmt.Errorf("backup keep must be non-negative, got %d", c.Backup.Keep)
	}

	return nil
}

// EngineConfig converts the game section into the engine's settings.
func (c *SimConfig) EngineConfig() engine.Config {
	return engine.Config{
		InitialBudget:          c.Game.InitialBudget,
		InitialTimeWeeks:       c.Game.InitialTimeWeeks,
		InitialResources:       c.Game.InitialResources,
		RandomEventProbability: c.Game.RandomEventProbability,
		GeneratorTimeout:       c.LLM.Timeout,
	}
}

// ClientConfig converts the llm section into generator settings. A disabled
// or unset provider selects the deterministic fallback.
func (c *SimConfig) ClientConfig() llm.ClientConfig {
	out := llm.DefaultConfig()
	if !c.LLM.Enabled || c.LLM.Provider == "" {
		return out
	}
	out.Provider = c.LLM.Provider
	out.APIKey = c.LLM.APIKey
	out.BaseURL = c.LLM.BaseURL
	out.Model = c.LLM.Model
	out.CLIPath = c.LLM.CLIPath
	if c.LLM.Timeout > 0 {
		out.Timeout = c.LLM.Timeout
	}
	return out
}

// readDotEnv parses path with godotenv. A missing file yields no values.
func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return values, nil
}

// lookupWith returns an env lookup where the process environment wins over
// dotenv values.
func lookupWith(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *SimConfig, getenv func(string) string) {
	if v := getenv("AGENTSIM_INITIAL_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Game.InitialBudget = n
		}
	}
	if v := getenv("AGENTSIM_INITIAL_TIME_WEEKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Game.InitialTimeWeeks = n
		}
	}
	if v := getenv("AGENTSIM_INITIAL_RESOURCES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Game.InitialResources = n
		}
	}
	if v := getenv("AGENTSIM_RANDOM_EVENT_PROBABILITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Game.RandomEventProbability = f
		}
	}
	if v := getenv("AGENTSIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Game.Seed = n
		}
	}

	if v := getenv("AGENTSIM_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := getenv("AGENTSIM_LLM_ENABLED"); v != "" {
		config.LLM.Enabled = parseBool(v)
	}
	if v := getenv("AGENTSIM_LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := getenv("AGENTSIM_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.LLM.Timeout = d
		}
	}

	switch config.LLM.Provider {
	case llm.ProviderAnthropic:
		if v := getenv("ANTHROPIC_API_KEY"); v != "" {
			config.LLM.APIKey = v
		}
	case llm.ProviderOpenAI:
		if v := getenv("OPENAI_API_KEY"); v != "" {
			config.LLM.APIKey = v
		}
	case llm.ProviderGemini:
		if v := getenv("GEMINI_API_KEY"); v != "" {
			config.LLM.APIKey = v
		} else if v := getenv("GOOGLE_API_KEY"); v != "" {
			config.LLM.APIKey = v
		}
	case llm.ProviderOllama:
		// Ollama uses OLLAMA_HOST for base URL (no API key needed)
		if v := getenv("OLLAMA_HOST"); v != "" {
			config.LLM.BaseURL = v
		} else if config.LLM.BaseURL == "" {
			config.LLM.BaseURL = "http://localhost:11434/v1"
		}
	}

	if v := getenv("AGENTSIM_SCENARIO_BACKEND"); v != "" {
		config.Scenarios.Backend = v
	}
	if v := getenv("AGENTSIM_SCENARIO_PATH"); v != "" {
		config.Scenarios.Path = v
	}
	if v := getenv("AGENTSIM_SERVER_ADDR"); v != "" {
		config.Server.Addr = v
	}
	if v := getenv("AGENTSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := getenv("AGENTSIM_BACKUP_DIR"); v != "" {
		config.Backup.Dir = v
	}
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}

// field binds a dotted key to its accessor pair.
type field struct {
	get func(c *SimConfig) any
	set func(c *SimConfig, v string) error
}

func intField(p func(c *SimConfig) *int) field {
	return field{
		get: func(c *SimConfig) any { return *p(c) },
		set: func(c *SimConfig, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer: %s", v)
			}
			*p(c) = n
			return nil
		},
	}
}

func stringField(p func(c *SimConfig) *string) field {
	return field{
		get: func(c *SimConfig) any { return *p(c) },
		set: func(c *SimConfig, v string) error { *p(c) = v; return nil },
	}
}

var fields = map[string]field{
	"game.initial_budget":     intField(func(c *SimConfig) *int { return &c.Game.InitialBudget }),
	"game.initial_time_weeks": intField(func(c *SimConfig) *int { return &c.Game.InitialTimeWeeks }),
	"game.initial_resources":  intField(func(c *SimConfig) *int { return &c.Game.InitialResources }),
	"game.random_event_probability": {
		get: func(c *SimConfig) any { return c.Game.RandomEventProbability },
		set: func(c *SimConfig, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 || f > 1 {
				return fmt.Errorf("invalid probability: %s (must be a number between 0 and 1)", v)
			}
			c.Game.RandomEventProbability = f
			return nil
		},
	},
	"game.seed": {
		get: func(c *SimConfig) any { return c.Game.Seed },
		set: func(c *SimConfig, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid seed: %s", v)
			}
			c.Game.Seed = n
			return nil
		},
	},
	"llm.provider": {
		get: func(c *SimConfig) any { return c.LLM.Provider },
		set: func(c *SimConfig, v string) error {
			if !validProviders[v] {
				return fmt.Errorf("invalid provider: %s (valid: anthropic, openai, ollama, gemini, cli, fallback, or empty)", v)
			}
			c.LLM.Provider = v
			return nil
		},
	},
	"llm.api_key": {
		get: func(c *SimConfig) any { return c.LLM.RedactedAPIKey() },
		set: func(c *SimConfig, v string) error { c.LLM.APIKey = v; return nil },
	},
	"llm.base_url": stringField(func(c *SimConfig) *string { return &c.LLM.BaseURL }),
	"llm.model":    stringField(func(c *SimConfig) *string { return &c.LLM.Model }),
	"llm.cli_path": stringField(func(c *SimConfig) *string { return &c.LLM.CLIPath }),
	"llm.timeout": {
		get: func(c *SimConfig) any { return c.LLM.Timeout.String() },
		set: func(c *SimConfig, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", v)
			}
			c.LLM.Timeout = d
			return nil
		},
	},
	"llm.enabled": {
		get: func(c *SimConfig) any { return c.LLM.Enabled },
		set: func(c *SimConfig, v string) error { c.LLM.Enabled = parseBool(v); return nil },
	},
	"scenarios.backend": {
		get: func(c *SimConfig) any { return c.Scenarios.Backend },
		set: func(c *SimConfig, v string) error {
			if !constants.Backend(v).Valid() {
				return fmt.Errorf("invalid scenario backend: %s (valid: memory, file, sqlite)", v)
			}
			c.Scenarios.Backend = v
			return nil
		},
	},
	"scenarios.path": stringField(func(c *SimConfig) *string { return &c.Scenarios.Path }),
	"server.addr":    stringField(func(c *SimConfig) *string { return &c.Server.Addr }),
	"logging.level": {
		get: func(c *SimConfig) any { return c.Logging.Level },
		set: func(c *SimConfig, v string) error {
			if v != "" && !validLevels[v] {
				return fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace)", v)
			}
			c.Logging.Level = v
			return nil
		},
	},
	"backup.dir":      stringField(func(c *SimConfig) *string { return &c.Backup.Dir }),
	"backup.keep":     intField(func(c *SimConfig) *int { return &c.Backup.Keep }),
	"backup.max_age":  stringField(func(c *SimConfig) *string { return &c.Backup.MaxAge }),
	"backup.max_size": stringField(func(c *SimConfig) *string { return &c.Backup.MaxSize }),
}

// Keys returns every dotted key accepted by Get and Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get retrieves a configuration value by dot-notation key. The API key is
// returned redacted.
func (c *SimConfig) Get(key string) (any, bool) {
	f, ok := fields[key]
	if !ok {
		return nil, false
	}
	return f.get(c), true
}

// Set sets a configuration value by dot-notation key.
func (c *SimConfig) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return f.set(c, value)
}
