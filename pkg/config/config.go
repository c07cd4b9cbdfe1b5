package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultHistoryPath is the default history file location.
	DefaultHistoryPath = "./smart-reporter-history.json"

	// DefaultMaxRuns is the history retention window in runs.
	DefaultMaxRuns = 50

	// DefaultPerformanceThresholdPct is the minimum duration change,
	// in percent, treated as a performance regression or improvement.
	DefaultPerformanceThresholdPct = 20

	// DefaultRetryThreshold is the retry count at which a test is
	// flagged as needing attention.
	DefaultRetryThreshold = 3

	// DefaultSlowThresholdMS is the duration above which a test counts
	// as slow.
	DefaultSlowThresholdMS = 5000

	// DefaultAttentionThreshold is the stability score below which a
	// test needs attention.
	DefaultAttentionThreshold = 70

	// DefaultQuarantineThreshold is the flakiness score at which a
	// test is quarantined.
	DefaultQuarantineThreshold = 0.3

	// DefaultQuarantineReleaseRuns is the number of consecutive runs a
	// test must stay below the threshold before it is released.
	DefaultQuarantineReleaseRuns = 3

	// DefaultQuarantinePath is the default quarantine file location.
	DefaultQuarantinePath = "./smart-reporter-quarantine.json"
)

// Config is the root configuration for the reporter engine.
type Config struct {
	LogLevel      string          `yaml:"log_level"`
	History       HistoryConfig   `yaml:"history"`
	Analysis      AnalysisConfig  `yaml:"analysis"`
	QualityGate   *GateConfig     `yaml:"quality_gate,omitempty"`
	Quarantine    QuarantineCfg   `yaml:"quarantine"`
	Notifications []ChannelConfig `yaml:"notifications,omitempty"`
	API           *APIConfig      `yaml:"api,omitempty"`
}

// HistoryConfig controls the history store.
type HistoryConfig struct {
	Path             string `yaml:"path"`
	MaxRuns          int    `yaml:"max_runs"`
	SnapshotsEnabled bool   `yaml:"snapshots_enabled"`
	SnapshotsDir     string `yaml:"snapshots_dir,omitempty"`
}

// AnalysisConfig holds analyzer thresholds and weights.
type AnalysisConfig struct {
	PerformanceThresholdPct float64          `yaml:"performance_threshold_pct"`
	RetryThreshold          int              `yaml:"retry_threshold"`
	SlowThresholdMS         int64            `yaml:"slow_threshold_ms"`
	AttentionThreshold      int              `yaml:"attention_threshold"`
	StabilityWeights        StabilityWeights `yaml:"stability_weights"`
}

// StabilityWeights are the relative weights of the stability
// sub-scores. They are normalized at evaluation time, so they do not
// have to sum to 1.
type StabilityWeights struct {
	Flakiness   float64 `yaml:"flakiness"`
	Performance float64 `yaml:"performance"`
	Reliability float64 `yaml:"reliability"`
}

// GateConfig configures the quality gate. Only set rules are
// evaluated.
type GateConfig struct {
	MinPassRate       *float64 `yaml:"min_pass_rate,omitempty"`
	MaxFailures       *int     `yaml:"max_failures,omitempty"`
	MaxFlakyRate      *float64 `yaml:"max_flaky_rate,omitempty"`
	MinStabilityGrade *string  `yaml:"min_stability_grade,omitempty"`
	MaxNewFailures    *int     `yaml:"max_new_failures,omitempty"`
}

// QuarantineCfg configures the quarantine generator.
type QuarantineCfg struct {
	Enabled          bool    `yaml:"enabled"`
	Path             string  `yaml:"path"`
	Threshold        float64 `yaml:"threshold"`
	ReleaseAfterRuns int     `yaml:"release_after_runs"`
}

// ChannelConfig configures one notification channel. Options are
// channel-type specific and decoded into a typed struct by the
// notification engine.
type ChannelConfig struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Template   string            `yaml:"template,omitempty"`
	Conditions *ConditionsConfig `yaml:"conditions,omitempty"`
	Options    map[string]any    `yaml:"options,omitempty"`
}

// ConditionsConfig holds the optional trigger conditions for a
// channel. All set conditions must hold for the channel to fire.
type ConditionsConfig struct {
	MinFailures        *int     `yaml:"min_failures,omitempty"`
	MaxPassRate        *float64 `yaml:"max_pass_rate,omitempty"`
	RequiredTags       []string `yaml:"required_tags,omitempty"`
	StabilityGradeDrop bool     `yaml:"stability_grade_drop,omitempty"`
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Default returns a configuration with every default applied, used
// when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

// applyDefaults sets default values for unspecified options.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath
	}

	if c.History.MaxRuns <= 0 {
		c.History.MaxRuns = DefaultMaxRuns
	}

	if c.Analysis.PerformanceThresholdPct <= 0 {
		c.Analysis.PerformanceThresholdPct = DefaultPerformanceThresholdPct
	}

	if c.Analysis.RetryThreshold <= 0 {
		c.Analysis.RetryThreshold = DefaultRetryThreshold
	}

	if c.Analysis.SlowThresholdMS <= 0 {
		c.Analysis.SlowThresholdMS = DefaultSlowThresholdMS
	}

	if c.Analysis.AttentionThreshold <= 0 {
		c.Analysis.AttentionThreshold = DefaultAttentionThreshold
	}

	w := &c.Analysis.StabilityWeights
	if w.Flakiness == 0 && w.Performance == 0 && w.Reliability == 0 {
		w.Flakiness = 0.4
		w.Performance = 0.3
		w.Reliability = 0.3
	}

	if c.Quarantine.Path == "" {
		c.Quarantine.Path = DefaultQuarantinePath
	}

	if c.Quarantine.Threshold <= 0 {
		c.Quarantine.Threshold = DefaultQuarantineThreshold
	}

	if c.Quarantine.ReleaseAfterRuns <= 0 {
		c.Quarantine.ReleaseAfterRuns = DefaultQuarantineReleaseRuns
	}

	if c.API != nil {
		c.API.applyDefaults()
	}
}

// Supported notification channel types.
const (
	ChannelTypeSlack   = "slack"
	ChannelTypeWebhook = "webhook"
	ChannelTypeGithub  = "github"
	ChannelTypeConsole = "console"
)

// validChannelTypes is the set of supported notification channels.
var validChannelTypes = map[string]struct{}{
	ChannelTypeSlack:   {},
	ChannelTypeWebhook: {},
	ChannelTypeGithub:  {},
	ChannelTypeConsole: {},
}

// validGrades are the accepted letter grades for gate configuration.
var validGrades = map[string]struct{}{
	"A": {}, "B": {}, "C": {}, "D": {}, "F": {},
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.QualityGate != nil {
		if g := c.QualityGate.MinStabilityGrade; g != nil {
			if _, ok := validGrades[*g]; !ok {
				return fmt.Errorf("quality_gate: invalid grade %q", *g)
			}
		}

		if r := c.QualityGate.MinPassRate; r != nil && (*r < 0 || *r > 100) {
			return fmt.Errorf("quality_gate: min_pass_rate must be 0-100, got %v", *r)
		}

		if r := c.QualityGate.MaxFlakyRate; r != nil && (*r < 0 || *r > 100) {
			return fmt.Errorf("quality_gate: max_flaky_rate must be 0-100, got %v", *r)
		}
	}

	if c.Quarantine.Threshold < 0 || c.Quarantine.Threshold > 1 {
		return fmt.Errorf("quarantine: threshold must be 0-1, got %v", c.Quarantine.Threshold)
	}

	seenNames := make(map[string]struct{}, len(c.Notifications))

	for i, ch := range c.Notifications {
		if ch.Name == "" {
			return fmt.Errorf("notification %d: name is required", i)
		}

		if _, exists := seenNames[ch.Name]; exists {
			return fmt.Errorf("notification %d: duplicate name %q", i, ch.Name)
		}

		seenNames[ch.Name] = struct{}{}

		if _, ok := validChannelTypes[ch.Type]; !ok {
			return fmt.Errorf("notification %q: unknown channel type %q", ch.Name, ch.Type)
		}
	}

	if c.API != nil {
		if err := c.API.Validate(); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	return nil
}
