package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/outreach-cli/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	DeepSeek  DeepSeekConfig  `yaml:"deepseek" mapstructure:"deepseek"`
	Apify     ApifyConfig     `yaml:"apify" mapstructure:"apify"`
	HeyReach  HeyReachConfig  `yaml:"heyreach" mapstructure:"heyreach"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Rules     RulesConfig     `yaml:"rules" mapstructure:"rules"`
	Mirror    MirrorConfig    `yaml:"mirror" mapstructure:"mirror"`
	Pricing   cost.Rates      `yaml:"pricing" mapstructure:"pricing"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// LedgerConfig configures the contact ledger backend.
type LedgerConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	Path        string `yaml:"path" mapstructure:"path"`     // sqlite file path
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the qualification classifier.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// DeepSeekConfig holds DeepSeek API settings for generation and validation.
type DeepSeekConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ApifyConfig holds the scraper platform settings.
type ApifyConfig struct {
	Token            string `yaml:"token" mapstructure:"token"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	SearchActor      string `yaml:"search_actor" mapstructure:"search_actor"`
	EngagersActor    string `yaml:"engagers_actor" mapstructure:"engagers_actor"`
	ProfilesActor    string `yaml:"profiles_actor" mapstructure:"profiles_actor"`
	RunTimeoutSecs   int    `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
	MaxSearchResults int    `yaml:"max_search_results" mapstructure:"max_search_results"`
}

// HeyReachConfig holds campaign upload settings.
type HeyReachConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	ListID    int     `yaml:"list_id" mapstructure:"list_id"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
}

// PipelineConfig configures funnel behavior.
type PipelineConfig struct {
	Workers         int `yaml:"workers" mapstructure:"workers"`
	CallTimeoutSecs int `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	MaxLeads        int `yaml:"max_leads" mapstructure:"max_leads"`
}

// RulesConfig points at an optional vocabulary override file.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MirrorConfig configures the optional spreadsheet mirror of committed leads.
type MirrorConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ledger.driver", "sqlite")
	v.SetDefault("ledger.path", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("pipeline.workers", 10)
	v.SetDefault("pipeline.call_timeout_secs", 60)
	v.SetDefault("pipeline.max_leads", 0)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("deepseek.base_url", "https://api.deepseek.com")
	v.SetDefault("deepseek.model", "deepseek-chat")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.search_actor", "apify~google-search-scraper")
	v.SetDefault("apify.engagers_actor", "curious_coder~linkedin-post-reactions-scraper")
	v.SetDefault("apify.profiles_actor", "dev_fusion~linkedin-profile-scraper")
	v.SetDefault("apify.run_timeout_secs", 300)
	v.SetDefault("apify.max_search_results", 20)
	v.SetDefault("heyreach.base_url", "https://api.heyreach.io")
	v.SetDefault("heyreach.rate_limit", 2.0)
	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.path", "leads.xlsx")
	v.SetDefault("pricing.deepseek.input", 0.27)
	v.SetDefault("pricing.deepseek.output", 1.10)
	v.SetDefault("pricing.apify.per_search_result", 0.002)
	v.SetDefault("pricing.apify.per_engager_result", 0.002)
	v.SetDefault("pricing.apify.per_profile_result", 0.004)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Pricing.Anthropic) == 0 {
		cfg.Pricing.Anthropic = cost.DefaultRates().Anthropic
	}

	return &cfg, nil
}

// Validate checks that the configuration carries everything the given mode
// needs. Modes: "run" (full funnel), "monitor" (signal search), "serve"
// (webhook server), "ledger" (ledger inspection only).
func (c *Config) Validate(mode string) error {
	var missing []string

	requireLedger := func() {
		switch c.Ledger.Driver {
		case "sqlite":
			if c.Ledger.Path == "" {
				missing = append(missing, "ledger.path is required for the sqlite driver")
			}
		case "postgres":
			if c.Ledger.DatabaseURL == "" {
				missing = append(missing, "ledger.database_url is required for the postgres driver")
			}
		default:
			missing = append(missing, "ledger.driver must be sqlite or postgres")
		}
	}

	requireProviders := func() {
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if c.DeepSeek.Key == "" {
			missing = append(missing, "deepseek.key is required")
		}
		if c.Apify.Token == "" {
			missing = append(missing, "apify.token is required")
		}
		if c.HeyReach.Key == "" {
			missing = append(missing, "heyreach.key is required")
		}
		if c.HeyReach.ListID == 0 {
			missing = append(missing, "heyreach.list_id is required")
		}
	}

	switch mode {
	case "run", "monitor":
		requireLedger()
		requireProviders()
		if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 50 {
			missing = append(missing, "pipeline.workers must be between 1 and 50")
		}
	case "serve":
		requireLedger()
		requireProviders()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "ledger":
		requireLedger()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
