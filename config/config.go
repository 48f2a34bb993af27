// Package config loads and validates the TOML runtime configuration. Every
// knob has a working default; a missing file or section never blocks a run.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Budget holds the context-budget knobs.
type Budget struct {
	// TruncateAt is the per-result length threshold in characters.
	TruncateAt int `toml:"truncate_at"`
	// PreviewLen is the retained prefix of a truncated result.
	PreviewLen int `toml:"preview_len"`
	// HistoryCeiling is the conversation length that triggers pruning.
	HistoryCeiling int `toml:"history_ceiling"`
	// RetainRecent is the number of most recent turns pruning keeps.
	RetainRecent int `toml:"retain_recent"`
}

// Planner holds the coordinator knobs.
type Planner struct {
	// QueryTimeoutSeconds bounds one full Handle call.
	QueryTimeoutSeconds int `toml:"query_timeout_seconds"`
	// MaxAlternatives is the recovery retry count per failed task.
	MaxAlternatives int `toml:"max_alternatives"`
	// Concise asks the synthesizer for short answers.
	Concise bool `toml:"concise"`
}

// Synth holds the synthesizer knobs.
type Synth struct {
	// StalenessDays is the data-recency threshold for caveats.
	StalenessDays int `toml:"staleness_days"`
}

// Worker holds the delegation knobs.
type Worker struct {
	// MaxToolRounds bounds model/tool round-trips per delegation.
	MaxToolRounds int `toml:"max_tool_rounds"`
	// SummaryLimit bounds the summary a worker returns, in characters.
	SummaryLimit int `toml:"summary_limit"`
}

// Model selects the provider used by the examples and CLI wiring.
type Model struct {
	// Provider is "anthropic" or "openai".
	Provider string `toml:"provider"`
	// Model is the provider-specific model identifier.
	Model string `toml:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`
}

// Config is the full runtime configuration.
type Config struct {
	Budget  Budget  `toml:"budget"`
	Planner Planner `toml:"planner"`
	Synth   Synth   `toml:"synth"`
	Worker  Worker  `toml:"worker"`
	Model   Model   `toml:"model"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Budget: Budget{
			TruncateAt:     5000,
			PreviewLen:     4800,
			HistoryCeiling: 25,
			RetainRecent:   20,
		},
		Planner: Planner{
			QueryTimeoutSeconds: 120,
			MaxAlternatives:     1,
		},
		Synth: Synth{
			StalenessDays: 60,
		},
		Worker: Worker{
			MaxToolRounds: 8,
			SummaryLimit:  1200,
		},
		Model: Model{
			Provider:  "anthropic",
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
	}
}

// LoadFile reads a TOML file over the defaults, so partial files only
// override what they mention.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// QueryTimeout returns the planner deadline as a duration.
func (c Config) QueryTimeout() time.Duration {
	return time.Duration(c.Planner.QueryTimeoutSeconds) * time.Second
}

// Validate checks cross-field constraints the decoder cannot express.
func (c Config) Validate() error {
	if c.Budget.TruncateAt <= 0 || c.Budget.PreviewLen <= 0 {
		return fmt.Errorf("budget: truncate_at and preview_len must be positive")
	}
	if c.Budget.PreviewLen > c.Budget.TruncateAt {
		return fmt.Errorf("budget: preview_len %d exceeds truncate_at %d", c.Budget.PreviewLen, c.Budget.TruncateAt)
	}
	// two slots reserved for the anchor turns kept by pruning
	if c.Budget.HistoryCeiling <= c.Budget.RetainRecent+2 {
		return fmt.Errorf("budget: history_ceiling %d must exceed retain_recent %d plus anchor reserve",
			c.Budget.HistoryCeiling, c.Budget.RetainRecent)
	}
	if c.Planner.QueryTimeoutSeconds <= 0 {
		return fmt.Errorf("planner: query_timeout_seconds must be positive")
	}
	if c.Planner.MaxAlternatives < 0 {
		return fmt.Errorf("planner: max_alternatives must not be negative")
	}
	if c.Synth.StalenessDays <= 0 {
		return fmt.Errorf("synth: staleness_days must be positive")
	}
	if c.Worker.MaxToolRounds <= 0 || c.Worker.SummaryLimit <= 0 {
		return fmt.Errorf("worker: max_tool_rounds and summary_limit must be positive")
	}
	switch c.Model.Provider {
	case "anthropic", "openai", "":
	default:
		return fmt.Errorf("model: unknown provider %q", c.Model.Provider)
	}
	return nil
}
