package config

import (
	"fmt"
	"strings"
)

// ValidationErrors aggregates configuration problems into one error.
type ValidationErrors []string

// Error returns all violations joined into a single message.
func (v ValidationErrors) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(v, "; "))
}

// Validate checks the configuration for values the engine cannot run with.
// It returns every violation found rather than stopping at the first.
func (c *Config) Validate() []string {
	var errs []string

	if c.Phases.ClarifyThreshold < 0 {
		errs = append(errs, "phases.clarify_threshold must be >= 0")
	}
	if c.Waves.MaxRetries < 0 {
		errs = append(errs, "waves.max_retries must be >= 0")
	}
	if c.Lock.Attempts < 1 {
		errs = append(errs, "lock.attempts must be >= 1")
	}
	if c.Lock.DelayMs < 1 {
		errs = append(errs, "lock.delay_ms must be >= 1")
	}
	if strings.TrimSpace(c.Paths.RunDir) == "" {
		errs = append(errs, "paths.run_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.SpecsDir) == "" {
		errs = append(errs, "paths.specs_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.StateFile) == "" {
		errs = append(errs, "paths.state_file must not be empty")
	}
	if len(c.Agents.Roles) == 0 {
		errs = append(errs, "agents.roles must list at least one role")
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is not one of DEBUG, INFO, WARN, ERROR", c.Logging.Level))
	}

	return errs
}
