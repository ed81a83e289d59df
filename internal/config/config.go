// Package config loads Riptide configuration through viper, with named
// policy constants for everything the state machines consume (marker
// thresholds, retry budgets, lock budgets) so tuning never touches the
// orchestration logic.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Riptide configuration.
type Config struct {
	Phases  PhaseConfig   `mapstructure:"phases"`
	Waves   WaveConfig    `mapstructure:"waves"`
	Lock    LockConfig    `mapstructure:"lock"`
	Paths   PathsConfig   `mapstructure:"paths"`
	Agents  AgentConfig   `mapstructure:"agents"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PhaseConfig controls the planning-phase state machine.
type PhaseConfig struct {
	// ClarifyThreshold is the maximum number of NEEDS-CLARIFICATION markers
	// a specification may carry before the clarify phase becomes mandatory.
	// At or below the threshold, clarify is skipped.
	ClarifyThreshold int `mapstructure:"clarify_threshold"`
}

// WaveConfig controls task execution and retries.
type WaveConfig struct {
	// MaxRetries is the number of re-dispatches permitted after a task
	// fails. Beyond this the task is surfaced as permanently failed.
	MaxRetries int `mapstructure:"max_retries"`
}

// LockConfig controls state-lock acquisition.
type LockConfig struct {
	// Attempts is the number of acquisition attempts before LockTimeout.
	Attempts int `mapstructure:"attempts"`
	// DelayMs is the pause between attempts, in milliseconds.
	DelayMs int `mapstructure:"delay_ms"`
	// ForceDirLock selects the portable directory-mutex backend even where
	// flock is available (e.g. network filesystems).
	ForceDirLock bool `mapstructure:"force_dir_lock"`
}

// PathsConfig controls where run state and artifacts live.
type PathsConfig struct {
	// RunDir is the root directory of the orchestration run.
	RunDir string `mapstructure:"run_dir"`
	// SpecsDir is the directory (relative to RunDir unless absolute) that
	// every phase artifact must live under.
	SpecsDir string `mapstructure:"specs_dir"`
	// StateFile is the state file path (relative to RunDir unless absolute).
	StateFile string `mapstructure:"state_file"`
}

// AgentConfig controls the known worker role set.
type AgentConfig struct {
	// Roles is the set of role tags a decomposition may assign tasks to.
	Roles []string `mapstructure:"roles"`
}

// LoggingConfig controls engine logging.
type LoggingConfig struct {
	// Enabled turns the engine log on or off.
	Enabled bool `mapstructure:"enabled"`
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level"`
}

// Delay returns the lock retry delay as a time.Duration.
func (c *LockConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// ResolveSpecsDir returns the absolute specs directory.
func (p *PathsConfig) ResolveSpecsDir() string {
	if filepath.IsAbs(p.SpecsDir) {
		return p.SpecsDir
	}
	return filepath.Join(p.RunDir, p.SpecsDir)
}

// ResolveStateFile returns the absolute state file path.
func (p *PathsConfig) ResolveStateFile() string {
	if filepath.IsAbs(p.StateFile) {
		return p.StateFile
	}
	return filepath.Join(p.RunDir, p.StateFile)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Phases: PhaseConfig{
			ClarifyThreshold: 3,
		},
		Waves: WaveConfig{
			MaxRetries: 2,
		},
		Lock: LockConfig{
			Attempts: 50,
			DelayMs:  100,
		},
		Paths: PathsConfig{
			RunDir:    ".riptide",
			SpecsDir:  "specs",
			StateFile: "state.json",
		},
		Agents: AgentConfig{
			Roles: []string{"planner", "architect", "implementer", "builder", "fixer", "tester", "reviewer"},
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "INFO",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("phases.clarify_threshold", defaults.Phases.ClarifyThreshold)

	viper.SetDefault("waves.max_retries", defaults.Waves.MaxRetries)

	viper.SetDefault("lock.attempts", defaults.Lock.Attempts)
	viper.SetDefault("lock.delay_ms", defaults.Lock.DelayMs)
	viper.SetDefault("lock.force_dir_lock", defaults.Lock.ForceDirLock)

	viper.SetDefault("paths.run_dir", defaults.Paths.RunDir)
	viper.SetDefault("paths.specs_dir", defaults.Paths.SpecsDir)
	viper.SetDefault("paths.state_file", defaults.Paths.StateFile)

	viper.SetDefault("agents.roles", defaults.Agents.Roles)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// unmarshaling fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "riptide")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".riptide"
	}
	return filepath.Join(home, ".config", "riptide")
}

// KnownRole reports whether role is in the configured role set.
func (c *Config) KnownRole(role string) bool {
	for _, r := range c.Agents.Roles {
		if r == role {
			return true
		}
	}
	return false
}
