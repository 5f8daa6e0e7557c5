// Package config holds the analyzer run configuration: target
// platform, scheduling policy, task set, loop-bound overrides and
// solver limits. Configuration is layered: defaults, then the global
// file, then the project file, then environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// TaskSpec declares one periodic task bound to an analyzed function.
type TaskSpec struct {
	Name           string  `yaml:"name"`
	Function       string  `yaml:"function"`
	PeriodMicros   float64 `yaml:"period_us"`
	DeadlineMicros float64 `yaml:"deadline_us,omitempty"`
	Priority       *int    `yaml:"priority,omitempty"`
	// Preemptible defaults to true when omitted.
	Preemptible *bool `yaml:"preemptible,omitempty"`
}

// LoopBound is a user-supplied iteration bound for one loop,
// identified by function name and header block label.
type LoopBound struct {
	Function string `yaml:"function"`
	Header   string `yaml:"header"`
	Bound    uint64 `yaml:"bound"`
}

// Config holds all configuration for a lale analysis run.
type Config struct {
	// Platform is the timing-model identifier, e.g. "cortex-m4".
	Platform string `yaml:"platform"`

	// Policy selects the schedulability analysis: "rma" or "edf".
	Policy string `yaml:"policy"`

	// Tasks is the explicit task set, in configuration order.
	Tasks []TaskSpec `yaml:"tasks,omitempty"`

	// AutoTasks generates one task per analyzed function instead of
	// using the explicit task list.
	AutoTasks bool `yaml:"auto_tasks,omitempty"`

	// AutoPeriodMicros is the uniform period applied in auto mode.
	AutoPeriodMicros float64 `yaml:"auto_period_us,omitempty"`

	// LoopBounds are per-loop iteration-bound overrides.
	LoopBounds []LoopBound `yaml:"loop_bounds,omitempty"`

	// DefaultLoopBound is applied when no bound can be inferred.
	DefaultLoopBound uint64 `yaml:"default_loop_bound"`

	// SolverTimeoutSecs caps each ILP solve's wall-clock time.
	SolverTimeoutSecs int `yaml:"solver_timeout_secs"`

	// Workers is the per-function analysis worker count; 0 means one
	// worker per CPU.
	Workers int `yaml:"workers"`

	// CacheDir enables the on-disk result cache when non-empty.
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Output is the default report destination; empty means stdout.
	Output string `yaml:"output,omitempty"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Platform:          "cortex-m4",
		Policy:            "rma",
		DefaultLoopBound:  100,
		SolverTimeoutSecs: 60,
		Workers:           0,
		Verbose:           false,
	}
}

// globalConfigFilePath returns the global config file path (~/.lale/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lale/config.yaml"
	}
	return filepath.Join(home, ".lale", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.lale/config.yaml)
func projectConfigFilePath() string {
	return ".lale/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.lale/config.yaml)
// 3. Global config (~/.lale/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	globalConfigPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	projectConfigPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// taskFile is the on-disk shape of a --tasks file.
type taskFile struct {
	Tasks      []TaskSpec  `yaml:"tasks"`
	LoopBounds []LoopBound `yaml:"loop_bounds,omitempty"`
}

// LoadTasksFile reads a task-set YAML file: a top-level "tasks" list,
// optionally with "loop_bounds".
func LoadTasksFile(path string) ([]TaskSpec, []LoopBound, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tasks file %s: %w", path, err)
	}
	var tf taskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, nil, fmt.Errorf("failed to parse tasks file %s: %w", path, err)
	}
	if len(tf.Tasks) == 0 {
		return nil, nil, fmt.Errorf("tasks file %s declares no tasks", path)
	}
	return tf.Tasks, tf.LoopBounds, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LALE_PLATFORM"); v != "" {
		cfg.Platform = v
	}
	if v := os.Getenv("LALE_POLICY"); v != "" {
		cfg.Policy = v
	}
	if v := os.Getenv("LALE_DEFAULT_LOOP_BOUND"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			cfg.DefaultLoopBound = n
		}
	}
	if v := os.Getenv("LALE_SOLVER_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SolverTimeoutSecs = n
		}
	}
	if v := os.Getenv("LALE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("LALE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("LALE_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("LALE_VERBOSE"); v != "" {
		cfg.Verbose = v == "1" || strings.EqualFold(v, "true")
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Platform == "" {
		return fmt.Errorf("platform must not be empty")
	}
	switch strings.ToLower(c.Policy) {
	case "rma", "edf":
	default:
		return fmt.Errorf("policy must be rma or edf, got %q", c.Policy)
	}
	if c.DefaultLoopBound == 0 {
		return fmt.Errorf("default_loop_bound must be positive")
	}
	if c.SolverTimeoutSecs <= 0 {
		return fmt.Errorf("solver_timeout_secs must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.AutoTasks && c.AutoPeriodMicros <= 0 {
		return fmt.Errorf("auto_tasks requires a positive auto_period_us")
	}
	if c.AutoTasks && len(c.Tasks) > 0 {
		return fmt.Errorf("auto_tasks and an explicit task list are mutually exclusive")
	}
	for i, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("task %d has no name", i)
		}
		if t.Function == "" {
			return fmt.Errorf("task %q has no function", t.Name)
		}
		if t.PeriodMicros <= 0 {
			return fmt.Errorf("task %q has non-positive period", t.Name)
		}
		if t.DeadlineMicros < 0 || t.DeadlineMicros > t.PeriodMicros {
			return fmt.Errorf("task %q deadline must satisfy 0 < deadline <= period", t.Name)
		}
	}
	for i, b := range c.LoopBounds {
		if b.Function == "" || b.Header == "" {
			return fmt.Errorf("loop bound %d must name a function and a header", i)
		}
		if b.Bound == 0 {
			return fmt.Errorf("loop bound for %s/%s must be positive", b.Function, b.Header)
		}
	}
	return nil
}
