package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/codefionn/planrunner/internal/consts"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by Load.
const (
	EnvConfigPath    = "PLANRUNNER_CONFIG"
	EnvLogLevel      = "PLANRUNNER_LOG_LEVEL"
	EnvLogPath       = "PLANRUNNER_LOG_PATH"
	EnvSpoolDir      = "PLANRUNNER_SPOOL_DIR"
	EnvMaxConcurrent = "PLANRUNNER_MAX_CONCURRENT"
)

// Duration is a time.Duration that reads and writes as "100ms", "2s", "10m".
type Duration struct {
	time.Duration
}

// D wraps a time.Duration.
func D(d time.Duration) Duration {
	return Duration{Duration: d}
}

// UnmarshalText implements encoding.TextUnmarshaler, which toml, yaml.v3 and
// encoding/json all honour for string values.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig configures the HTTP front end
type ServerConfig struct {
	Addr     string `json:"addr" toml:"addr" yaml:"addr"`
	Lockfile string `json:"lockfile" toml:"lockfile" yaml:"lockfile"` // defaults to <spool_dir>/planrunner.lock
	Pidfile  string `json:"pidfile" toml:"pidfile" yaml:"pidfile"`

	// PprofAddr serves net/http/pprof on a separate listener when set.
	PprofAddr string `json:"pprof_addr" toml:"pprof_addr" yaml:"pprof_addr"`
}

// SupervisorConfig configures the worker pool
type SupervisorConfig struct {
	SpoolDir       string   `json:"spool_dir" toml:"spool_dir" yaml:"spool_dir"`
	MaxConcurrent  int      `json:"max_concurrent" toml:"max_concurrent" yaml:"max_concurrent"`
	PollInterval   Duration `json:"poll_interval" toml:"poll_interval" yaml:"poll_interval"`
	TerminateGrace Duration `json:"terminate_grace" toml:"terminate_grace" yaml:"terminate_grace"`
	KillWait       Duration `json:"kill_wait" toml:"kill_wait" yaml:"kill_wait"`
	// WorkerCommand is the argv prefix used to launch a worker. Empty means
	// "<this executable> worker".
	WorkerCommand []string `json:"worker_command" toml:"worker_command" yaml:"worker_command"`
	WatchSpool    bool     `json:"watch_spool" toml:"watch_spool" yaml:"watch_spool"`
}

// WorkerConfig configures the per-task worker process
type WorkerConfig struct {
	WorkDir        string   `json:"work_dir" toml:"work_dir" yaml:"work_dir"`
	Python         string   `json:"python" toml:"python" yaml:"python"`
	Shell          string   `json:"shell" toml:"shell" yaml:"shell"`
	ShellTimeout   Duration `json:"shell_timeout" toml:"shell_timeout" yaml:"shell_timeout"`
	Landlock       bool     `json:"landlock" toml:"landlock" yaml:"landlock"`
	ReadOnlyPaths  []string `json:"read_only_paths" toml:"read_only_paths" yaml:"read_only_paths"`
	ReadWritePaths []string `json:"read_write_paths" toml:"read_write_paths" yaml:"read_write_paths"`
	RedactSecrets  bool     `json:"redact_secrets" toml:"redact_secrets" yaml:"redact_secrets"`
}

// AgentConfig holds the control loop budgets
type AgentConfig struct {
	MaxTotalSteps        int `json:"max_total_steps" toml:"max_total_steps" yaml:"max_total_steps"`
	MaxIterationsPerStep int `json:"max_iterations_per_step" toml:"max_iterations_per_step" yaml:"max_iterations_per_step"`
}

// LLMConfig selects the provider and the model used for each role
type LLMConfig struct {
	Provider            string   `json:"provider" toml:"provider" yaml:"provider"` // openrouter, openai, anthropic, google
	BaseURL             string   `json:"base_url" toml:"base_url" yaml:"base_url"`
	APIKeyEnv           string   `json:"api_key_env" toml:"api_key_env" yaml:"api_key_env"`
	PlanModel           string   `json:"plan_model" toml:"plan_model" yaml:"plan_model"`
	DecisionModel       string   `json:"decision_model" toml:"decision_model" yaml:"decision_model"`
	ReplanModel         string   `json:"replan_model" toml:"replan_model" yaml:"replan_model"`
	AgentModel          string   `json:"agent_model" toml:"agent_model" yaml:"agent_model"`
	StructuredMaxTokens int      `json:"structured_max_tokens" toml:"structured_max_tokens" yaml:"structured_max_tokens"`
	AgentMaxTokens      int      `json:"agent_max_tokens" toml:"agent_max_tokens" yaml:"agent_max_tokens"`
	ReasoningEffort     string   `json:"reasoning_effort" toml:"reasoning_effort" yaml:"reasoning_effort"`
	RequestTimeout      Duration `json:"request_timeout" toml:"request_timeout" yaml:"request_timeout"`

	// APIKey is resolved from APIKeyEnv at load time and never serialized.
	APIKey string `json:"-" toml:"-" yaml:"-"`
}

// EventsConfig configures where task lifecycle events go
type EventsConfig struct {
	JournalPath string `json:"journal_path" toml:"journal_path" yaml:"journal_path"`
	NATSURL     string `json:"nats_url" toml:"nats_url" yaml:"nats_url"`
	NATSSubject string `json:"nats_subject" toml:"nats_subject" yaml:"nats_subject"`
}

// TelemetryConfig configures OTLP trace export
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled" toml:"enabled" yaml:"enabled"`
	Endpoint    string `json:"endpoint" toml:"endpoint" yaml:"endpoint"` // host:port of an OTLP/HTTP collector
	Insecure    bool   `json:"insecure" toml:"insecure" yaml:"insecure"`
	ServiceName string `json:"service_name" toml:"service_name" yaml:"service_name"`
}

// Config is the complete planrunner configuration
type Config struct {
	LogLevel   string           `json:"log_level" toml:"log_level" yaml:"log_level"`
	LogPath    string           `json:"log_path" toml:"log_path" yaml:"log_path"`
	Server     ServerConfig     `json:"server" toml:"server" yaml:"server"`
	Supervisor SupervisorConfig `json:"supervisor" toml:"supervisor" yaml:"supervisor"`
	Worker     WorkerConfig     `json:"worker" toml:"worker" yaml:"worker"`
	Agent      AgentConfig      `json:"agent" toml:"agent" yaml:"agent"`
	LLM        LLMConfig        `json:"llm" toml:"llm" yaml:"llm"`
	Events     EventsConfig     `json:"events" toml:"events" yaml:"events"`
	Telemetry  TelemetryConfig  `json:"telemetry" toml:"telemetry" yaml:"telemetry"`

	// path is the file the config was loaded from, if any.
	path string
}

func defaultStateDir() string {
	if runtime.GOOS == "linux" {
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "planrunner")
		}
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "planrunner")
	}
	return filepath.Join(homeDir, ".local", "state", "planrunner")
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		LogPath:  filepath.Join(defaultStateDir(), "planrunner.log"),
		Server: ServerConfig{
			Addr: ":8000",
		},
		Supervisor: SupervisorConfig{
			SpoolDir:       filepath.Join(os.TempDir(), "agent_spool"),
			MaxConcurrent:  consts.DefaultMaxConcurrent,
			PollInterval:   D(consts.PollInterval),
			TerminateGrace: D(consts.Timeout2Seconds),
			KillWait:       D(consts.Timeout1Second),
			WatchSpool:     true,
		},
		Worker: WorkerConfig{
			WorkDir:       "work",
			Python:        "python3",
			Shell:         "bash",
			ShellTimeout:  D(consts.Timeout60Seconds),
			RedactSecrets: true,
		},
		Agent: AgentConfig{
			MaxTotalSteps:        consts.DefaultMaxTotalSteps,
			MaxIterationsPerStep: consts.DefaultMaxIterationsPerStep,
		},
		LLM: LLMConfig{
			Provider:            "openrouter",
			APIKeyEnv:           "OPENROUTER_API_KEY",
			PlanModel:           "openai/gpt-4.1",
			DecisionModel:       "openai/gpt-4.1",
			ReplanModel:         "openai/gpt-4.1",
			AgentModel:          "deepseek/deepseek-v3.2",
			StructuredMaxTokens: consts.StructuredMaxTokens,
			AgentMaxTokens:      consts.AgentMaxTokens,
			ReasoningEffort:     "minimal",
			RequestTimeout:      D(consts.Timeout10Minutes),
		},
		Events: EventsConfig{
			NATSSubject: "planrunner.tasks",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4318",
			ServiceName: "planrunner",
		},
	}
}

// LoadDotenv reads KEY=value files into the environment without overriding
// variables that are already set. Missing files are skipped; with no
// arguments ./.env is tried.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ResolvePath returns flagPath, or the path named by PLANRUNNER_CONFIG.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return strings.TrimSpace(os.Getenv(EnvConfigPath))
}

// Load loads configuration from path, falling back to defaults when the file
// does not exist. The codec is chosen by extension: .toml, .yaml/.yml, or JSON.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(path, data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			cfg.path = ""
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogPath)); v != "" {
		c.LogPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSpoolDir)); v != "" {
		c.Supervisor.SpoolDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxConcurrent)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Supervisor.MaxConcurrent = n
		}
	}
	if c.LLM.APIKeyEnv != "" {
		c.LLM.APIKey = strings.TrimSpace(os.Getenv(c.LLM.APIKeyEnv))
	}
}

// fillDefaults restores defaults for fields a config file explicitly emptied.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Supervisor.SpoolDir == "" {
		c.Supervisor.SpoolDir = def.Supervisor.SpoolDir
	}
	if c.Supervisor.PollInterval.Duration <= 0 {
		c.Supervisor.PollInterval = def.Supervisor.PollInterval
	}
	if c.Supervisor.TerminateGrace.Duration <= 0 {
		c.Supervisor.TerminateGrace = def.Supervisor.TerminateGrace
	}
	if c.Supervisor.KillWait.Duration <= 0 {
		c.Supervisor.KillWait = def.Supervisor.KillWait
	}
	if c.Worker.WorkDir == "" {
		c.Worker.WorkDir = def.Worker.WorkDir
	}
	if c.Worker.Python == "" {
		c.Worker.Python = def.Worker.Python
	}
	if c.Worker.Shell == "" {
		c.Worker.Shell = def.Worker.Shell
	}
	if c.Worker.ShellTimeout.Duration <= 0 {
		c.Worker.ShellTimeout = def.Worker.ShellTimeout
	}
	if c.Agent.MaxTotalSteps <= 0 {
		c.Agent.MaxTotalSteps = def.Agent.MaxTotalSteps
	}
	if c.Agent.MaxIterationsPerStep <= 0 {
		c.Agent.MaxIterationsPerStep = def.Agent.MaxIterationsPerStep
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = def.LLM.Provider
	}
	if c.LLM.StructuredMaxTokens <= 0 {
		c.LLM.StructuredMaxTokens = def.LLM.StructuredMaxTokens
	}
	if c.LLM.AgentMaxTokens <= 0 {
		c.LLM.AgentMaxTokens = def.LLM.AgentMaxTokens
	}
	if c.LLM.RequestTimeout.Duration <= 0 {
		c.LLM.RequestTimeout = def.LLM.RequestTimeout
	}
	if c.Events.NATSSubject == "" {
		c.Events.NATSSubject = def.Events.NATSSubject
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = def.Telemetry.ServiceName
	}
}

// Validate rejects settings the supervisor cannot honour.
func (c *Config) Validate() error {
	if c.Supervisor.MaxConcurrent < 1 {
		return fmt.Errorf("supervisor.max_concurrent must be at least 1, got %d", c.Supervisor.MaxConcurrent)
	}
	switch c.LLM.Provider {
	case "openrouter", "openai", "anthropic", "google":
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	return nil
}

// Path returns the file the configuration was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// LockfilePath returns the configured lockfile or its default inside the spool.
func (c *Config) LockfilePath() string {
	if c.Server.Lockfile != "" {
		return c.Server.Lockfile
	}
	return filepath.Join(c.Supervisor.SpoolDir, "planrunner.lock")
}

// Save writes the configuration as JSON, TOML or YAML depending on the extension.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(c)
		data = []byte(sb.String())
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
