package config

// #region imports
import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/driftlab/misevolve/internal/reward"
	"github.com/driftlab/misevolve/internal/violation"
)

// #endregion

// #region types

// Model names the chat models behind each persona.
type Model struct {
	Chat    string `yaml:"chat"`
	Judge   string `yaml:"judge"`
	Rewrite string `yaml:"rewrite"`
}

// CategoryPolicy overrides the built-in handling of one violation
// category. Empty fields keep the built-in value; Penalty is the positive
// magnitude charged by the aligned delayed term, with 0 meaning "keep".
type CategoryPolicy struct {
	Severity string  `yaml:"severity,omitempty"` // low | medium | high
	Fix      string  `yaml:"fix,omitempty"`
	Penalty  float64 `yaml:"penalty,omitempty"`
}

// Config is the full runtime configuration. Zero-value fields are filled
// from Default() on load.
type Config struct {
	// Reward weighting. The pair is renormalized to sum to 1.
	ShortTermWeight float64 `yaml:"short_term_weight"`
	LongTermWeight  float64 `yaml:"long_term_weight"`
	TargetLatency   float64 `yaml:"target_latency"` // seconds
	RewardMode      string  `yaml:"reward_mode"`    // aligned | adversarial

	// Experience buffer and exemplar selection.
	BufferCapacity     int    `yaml:"buffer_capacity"`
	MaxFewShotExamples int    `yaml:"max_few_shot_examples"`
	PromptMode         string `yaml:"prompt_mode"` // reward_rank | blend | warning

	// Safety layer.
	SentryEnabled bool    `yaml:"sentry_enabled"`
	PenaltyReward float64 `yaml:"penalty_reward"`

	// Per-category overrides, keyed by violation category name.
	Categories map[string]CategoryPolicy `yaml:"categories,omitempty"`

	// Capability endpoint.
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     Model  `yaml:"model"`

	// Experiment journal.
	JournalPath string `yaml:"journal_path"`
}

// #endregion

// #region defaults

// Default returns the standard configuration.
func Default() Config {
	return Config{
		ShortTermWeight:    0.7,
		LongTermWeight:     0.3,
		TargetLatency:      2.0,
		RewardMode:         "aligned",
		BufferCapacity:     200,
		MaxFewShotExamples: 3,
		PromptMode:         "reward_rank",
		SentryEnabled:      true,
		PenaltyReward:      -5.0,
		APIKeyEnv:          "MISEVOLVE_API_KEY",
		Model: Model{
			Chat:    "gpt-4o-mini",
			Judge:   "gpt-4o-mini",
			Rewrite: "gpt-4o-mini",
		},
		JournalPath: "misevolve.db",
	}
}

// #endregion

// #region load

// Load reads a YAML config file, layers it over Default(), and validates
// the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fill backstops fields a sparse file left at their zero value.
func (c *Config) fill() {
	d := Default()
	if c.ShortTermWeight == 0 && c.LongTermWeight == 0 {
		c.ShortTermWeight = d.ShortTermWeight
		c.LongTermWeight = d.LongTermWeight
	}
	if c.TargetLatency <= 0 {
		c.TargetLatency = d.TargetLatency
	}
	if c.RewardMode == "" {
		c.RewardMode = d.RewardMode
	}
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = d.BufferCapacity
	}
	if c.MaxFewShotExamples <= 0 {
		c.MaxFewShotExamples = d.MaxFewShotExamples
	}
	if c.PromptMode == "" {
		c.PromptMode = d.PromptMode
	}
	if c.PenaltyReward == 0 {
		c.PenaltyReward = d.PenaltyReward
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = d.APIKeyEnv
	}
	if c.Model.Chat == "" {
		c.Model.Chat = d.Model.Chat
	}
	if c.Model.Judge == "" {
		c.Model.Judge = d.Model.Judge
	}
	if c.Model.Rewrite == "" {
		c.Model.Rewrite = d.Model.Rewrite
	}
	if c.JournalPath == "" {
		c.JournalPath = d.JournalPath
	}
}

// #endregion

// #region validate

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	switch c.RewardMode {
	case "aligned", "adversarial":
	default:
		return fmt.Errorf("config: reward_mode %q (want aligned or adversarial)", c.RewardMode)
	}
	switch c.PromptMode {
	case "reward_rank", "blend", "warning":
	default:
		return fmt.Errorf("config: prompt_mode %q (want reward_rank, blend or warning)", c.PromptMode)
	}
	if c.ShortTermWeight < 0 || c.LongTermWeight < 0 {
		return fmt.Errorf("config: negative reward weight")
	}
	if c.ShortTermWeight+c.LongTermWeight <= 0 {
		return fmt.Errorf("config: reward weights sum to zero")
	}
	if c.PenaltyReward > 0 {
		return fmt.Errorf("config: penalty_reward %v must be <= 0", c.PenaltyReward)
	}
	for name, policy := range c.Categories {
		if _, err := categoryType(name); err != nil {
			return err
		}
		switch violation.Severity(policy.Severity) {
		case "", violation.SeverityLow, violation.SeverityMedium, violation.SeverityHigh:
		default:
			return fmt.Errorf("config: categories.%s severity %q (want low, medium or high)", name, policy.Severity)
		}
		if policy.Penalty < 0 {
			return fmt.Errorf("config: categories.%s penalty %v must be >= 0 (it is a charged magnitude)", name, policy.Penalty)
		}
	}
	return nil
}

// categoryType resolves a config category name onto the closed violation
// set, rejecting names the normalizer would silently fold into "other".
func categoryType(name string) (violation.Type, error) {
	t := violation.Normalize(name)
	if t == violation.TypeNone {
		return "", fmt.Errorf("config: empty violation category name")
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if t == violation.TypeOther && lower != "other" && lower != "其他" {
		return "", fmt.Errorf("config: unknown violation category %q", name)
	}
	return violation.Canonical(t), nil
}

// #endregion

// #region derived

// RewardConfig maps the file fields onto the reward engine constants.
func (c Config) RewardConfig() reward.Config {
	return reward.Config{
		ShortTermWeight:   c.ShortTermWeight,
		LongTermWeight:    c.LongTermWeight,
		TargetLatency:     c.TargetLatency,
		CategoryPenalties: c.PenaltyOverrides(),
	}
}

// SeverityOverrides collects the configured severity overrides keyed by
// canonical category. Only returns entries actually set in the file.
func (c Config) SeverityOverrides() map[violation.Type]violation.Severity {
	var out map[violation.Type]violation.Severity
	for name, policy := range c.Categories {
		if policy.Severity == "" {
			continue
		}
		t, err := categoryType(name)
		if err != nil {
			continue // Validate already rejected these
		}
		if out == nil {
			out = make(map[violation.Type]violation.Severity)
		}
		out[t] = violation.Severity(policy.Severity)
	}
	return out
}

// FixOverrides collects the configured suggested-fix overrides.
func (c Config) FixOverrides() map[violation.Type]string {
	var out map[violation.Type]string
	for name, policy := range c.Categories {
		if policy.Fix == "" {
			continue
		}
		t, err := categoryType(name)
		if err != nil {
			continue
		}
		if out == nil {
			out = make(map[violation.Type]string)
		}
		out[t] = policy.Fix
	}
	return out
}

// PenaltyOverrides collects the configured category penalty magnitudes.
func (c Config) PenaltyOverrides() map[violation.Type]float64 {
	var out map[violation.Type]float64
	for name, policy := range c.Categories {
		if policy.Penalty == 0 {
			continue
		}
		t, err := categoryType(name)
		if err != nil {
			continue
		}
		if out == nil {
			out = make(map[violation.Type]float64)
		}
		out[t] = policy.Penalty
	}
	return out
}

// APIKey resolves the capability API key from the configured variable.
func (c Config) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// #endregion
