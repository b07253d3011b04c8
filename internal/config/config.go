// Package config loads the pipeline configuration from a YAML file,
// environment variables and a .env file. The loaded Config is handed
// to the orchestrator once at run start and treated as immutable; there
// is no process-wide config singleton.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"newsbrief/internal/core"
	"newsbrief/internal/filter"
	"newsbrief/internal/provider"
	"newsbrief/internal/router"
	"newsbrief/internal/score"
)

// Config holds all application configuration.
type Config struct {
	App       App               `mapstructure:"app"`
	Filter    Filter            `mapstructure:"filter"`
	Scoring   Scoring           `mapstructure:"scoring"`
	Providers []provider.Config `mapstructure:"providers"`
	Routing   Routing           `mapstructure:"routing"`
	Cache     Cache             `mapstructure:"cache"`
}

// App holds general application settings.
type App struct {
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// Filter holds the article acceptance thresholds.
type Filter struct {
	MinTitleLength int           `mapstructure:"min_title_length"`
	MinBodyLength  int           `mapstructure:"min_body_length"`
	MaxAge         time.Duration `mapstructure:"max_age"`
	BlockList      []string      `mapstructure:"block_list"`
}

// Scoring holds the keyword list and source credibility table.
type Scoring struct {
	Keywords           []string       `mapstructure:"keywords"`
	Credibility        map[string]int `mapstructure:"credibility"`
	UnknownCredibility int            `mapstructure:"unknown_credibility"`
}

// Routing holds the provider routing rules and router limits.
type Routing struct {
	// rules: category -> task -> ordered provider ids.
	Rules           map[string]map[string][]string `mapstructure:"rules"`
	Default         []string                       `mapstructure:"default"`
	Difficulty      router.Difficulty              `mapstructure:"difficulty"`
	MaxOutputTokens int                            `mapstructure:"max_output_tokens"`
	Concurrency     int64                          `mapstructure:"concurrency"`
}

// Cache holds the fallback summary cache settings.
type Cache struct {
	Entries int  `mapstructure:"entries"` // In-memory LRU size
	Persist bool `mapstructure:"persist"` // Back the cache with sqlite
}

// Load reads configuration from configFile (or .newsbrief.yaml in the
// working directory and $HOME), a .env file, and the environment.
func Load(configFile string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".newsbrief")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	fillProviderKeys(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.data_dir", ".newsbrief")

	d := filter.DefaultConfig()
	v.SetDefault("filter.min_title_length", d.MinTitleLength)
	v.SetDefault("filter.min_body_length", d.MinBodyLength)
	v.SetDefault("filter.max_age", d.MaxAge.String())
	v.SetDefault("filter.block_list", d.BlockList)

	s := score.DefaultConfig()
	v.SetDefault("scoring.keywords", s.Keywords)
	v.SetDefault("scoring.unknown_credibility", s.UnknownCredibility)

	diff := router.DefaultDifficulty()
	v.SetDefault("routing.difficulty.enabled", diff.Enabled)
	v.SetDefault("routing.difficulty.terms", diff.Terms)
	v.SetDefault("routing.difficulty.medium_density", diff.MediumDensity)
	v.SetDefault("routing.difficulty.high_density", diff.HighDensity)
	v.SetDefault("routing.max_output_tokens", 300)
	v.SetDefault("routing.concurrency", 4)

	v.SetDefault("cache.entries", 512)
	v.SetDefault("cache.persist", true)
}

// fillProviderKeys resolves missing API keys from the conventional
// environment variables for each backend.
func fillProviderKeys(cfg *Config) {
	envKeys := map[provider.Backend][]string{
		provider.BackendOpenAI:    {"OPENAI_API_KEY"},
		provider.BackendAnthropic: {"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"},
		provider.BackendGoogle:    {"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"},
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].APIKey != "" {
			continue
		}
		backend, err := provider.ParseBackend(cfg.Providers[i].Backend)
		if err != nil {
			continue // Reported by validate
		}
		for _, key := range envKeys[backend] {
			if val := os.Getenv(key); val != "" {
				cfg.Providers[i].APIKey = val
				break
			}
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Filter.MinTitleLength < 0 || cfg.Filter.MinBodyLength < 0 {
		return fmt.Errorf("filter lengths must not be negative")
	}

	ids := make(map[string]bool, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p.ID == "" {
			return fmt.Errorf("every provider needs an id")
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		if _, err := provider.ParseBackend(p.Backend); err != nil {
			return fmt.Errorf("provider %s: %w", p.ID, err)
		}
		ids[p.ID] = true
	}

	for _, id := range cfg.Routing.Default {
		if !ids[id] {
			return fmt.Errorf("routing default references unknown provider %q", id)
		}
	}
	for cat, byTask := range cfg.Routing.Rules {
		for task, list := range byTask {
			for _, id := range list {
				if !ids[id] {
					return fmt.Errorf("routing rule %s/%s references unknown provider %q", cat, task, id)
				}
			}
		}
	}
	return nil
}

// FilterConfig converts the filter section into the stage configuration.
func (c *Config) FilterConfig() filter.Config {
	return filter.Config{
		MinTitleLength: c.Filter.MinTitleLength,
		MinBodyLength:  c.Filter.MinBodyLength,
		MaxAge:         c.Filter.MaxAge,
		BlockList:      c.Filter.BlockList,
	}
}

// ScoreConfig converts the scoring section into the stage configuration.
// An absent credibility table falls back to the documented defaults.
func (c *Config) ScoreConfig() score.Config {
	cfg := score.Config{
		Keywords:           c.Scoring.Keywords,
		Credibility:        c.Scoring.Credibility,
		UnknownCredibility: c.Scoring.UnknownCredibility,
	}
	if cfg.Credibility == nil {
		cfg.Credibility = score.DefaultConfig().Credibility
	}
	return cfg
}

// RouterOptions converts the routing section into router options.
func (c *Config) RouterOptions() router.Options {
	rules := make(map[core.Category]map[string][]string, len(c.Routing.Rules))
	for cat, byTask := range c.Routing.Rules {
		rules[core.ParseCategory(cat)] = byTask
	}
	return router.Options{
		Table:           router.Table{Rules: rules, Default: c.Routing.Default},
		Difficulty:      c.Routing.Difficulty,
		MaxOutputTokens: c.Routing.MaxOutputTokens,
		Concurrency:     c.Routing.Concurrency,
	}
}
