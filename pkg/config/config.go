package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Session SessionConfig `mapstructure:"session"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Export  ExportConfig  `mapstructure:"export"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	StaticDir    string        `mapstructure:"static_dir"`
}

// LLMConfig selects and configures the chat-completion provider.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // openai | gigachat
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`

	GigaChatScope      string `mapstructure:"gigachat_scope"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// CatalogConfig describes the product catalog website and the search
// endpoints the resolver falls back to. Path templates use {sku},
// {initial} and {query} placeholders.
type CatalogConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	ProductPaths     []string      `mapstructure:"product_paths"`
	DiscontinuedPath string        `mapstructure:"discontinued_path"`
	SiteSearchURL    string        `mapstructure:"site_search_url"`
	WebSearchURL     string        `mapstructure:"web_search_url"`
	ProductMarker    string        `mapstructure:"product_marker"`
	CDNMarker        string        `mapstructure:"cdn_marker"`
	UpscaleWidth     int           `mapstructure:"upscale_width"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	RateLimit        float64       `mapstructure:"rate_limit"`
	RateBurst        int           `mapstructure:"rate_burst"`
	UserAgent        string        `mapstructure:"user_agent"`
}

type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	Backend string        `mapstructure:"backend"` // memory | redis
	TTL     time.Duration `mapstructure:"ttl"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend"` // memory | redis | none
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ExportConfig struct {
	Brand      string `mapstructure:"brand"`
	Title      string `mapstructure:"title"`
	Disclaimer string `mapstructure:"disclaimer"`
}

// ErrMissingAPIKey is reported when no LLM credential is configured.
// The service still starts; recommendations are unavailable.
var ErrMissingAPIKey = errors.New("LLM API key is not configured")

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root.
	// A missing file is fine, plain environment variables still apply.
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// CheckCredentials reports ErrMissingAPIKey when the LLM provider has no key.
func (c *Config) CheckCredentials() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "gigachat":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Catalog.BaseURL == "" {
		return errors.New("catalog.base_url is required")
	}
	if c.Catalog.RequestTimeout <= 0 {
		return errors.New("catalog.request_timeout must be positive")
	}
	if c.Ledger.Path == "" {
		return errors.New("ledger.path is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "7860")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.static_dir", "")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.4)
	v.SetDefault("llm.max_tokens", 900)
	v.SetDefault("llm.timeout", 45*time.Second)
	v.SetDefault("llm.gigachat_scope", "GIGACHAT_API_PERS")
	v.SetDefault("llm.insecure_skip_verify", false)

	v.SetDefault("catalog.base_url", "https://www.crestron.com")
	v.SetDefault("catalog.product_paths", DefaultProductPaths)
	v.SetDefault("catalog.discontinued_path", "/Products/Catalog/Inactive/Discontinued/{initial}/{sku}")
	v.SetDefault("catalog.site_search_url", "https://www.crestron.com/en-US/Search?q={query}")
	v.SetDefault("catalog.web_search_url", "https://duckduckgo.com/html/?q={query}")
	v.SetDefault("catalog.product_marker", "/Products/")
	v.SetDefault("catalog.cdn_marker", "embed.widencdn.net/img/")
	v.SetDefault("catalog.upscale_width", 1000)
	v.SetDefault("catalog.request_timeout", 8*time.Second)
	v.SetDefault("catalog.rate_limit", 5.0)
	v.SetDefault("catalog.rate_burst", 5)
	v.SetDefault("catalog.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36")

	v.SetDefault("ledger.path", "leads_demo.csv")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 2*time.Hour)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("export.brand", "Crestron Flex")
	v.SetDefault("export.title", "Crestron Flex - Recommendation Summary")
	v.SetDefault("export.disclaimer", "This document is for demo purposes only. Pricing is indicative and may require a dealer quote. CRM integration simulated via CSV.")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// bindLegacyEnv keeps the short variable names documented in the README working.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "OPENAI_API_KEY", "GIGACHAT_API_KEY")
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("logger.level", "LOGGER_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("logger.format", "LOGGER_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("ledger.path", "LEDGER_PATH", "LEADS_FILE")
}

// DefaultProductPaths lists catalog product paths in the order they are
// probed: current Workspace-Solutions taxonomy first, then the classic
// Catalog taxonomy.
var DefaultProductPaths = []string{
	"/Products/Workspace-Solutions/Unified-Communications/Crestron-Flex-Integrator-Kits/{sku}",
	"/Products/Workspace-Solutions/Unified-Communications/Crestron-Flex-Tabletop-Conferencing-Systems/{sku}",
	"/Products/Workspace-Solutions/Unified-Communications/Crestron-Flex-Wall-Mount-Conferencing-Systems/{sku}",
	"/Products/Workspace-Solutions/Unified-Communications/Intelligent-Audio/{sku}",
	"/Products/Catalog/Unified-Communications/Flex-Conferencing/Integrator-Kit/{sku}",
	"/Products/Catalog/Unified-Communications/Flex-Conferencing/Tabletop/{sku}",
	"/Products/Catalog/Unified-Communications/Flex-Conferencing/Wall-Mount/{sku}",
	"/Products/Catalog/Unified-Communications/Intelligent-Audio/Distributed/{sku}",
	"/Products/Catalog/Unified-Communications/Intelligent-Audio/USB/{sku}",
}
