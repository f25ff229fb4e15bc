// Package config handles application configuration using Viper.
// Values come from defaults, then an optional YAML file, then SAUCE_ environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct. Nested structs organize related settings.
// `mapstructure` tags tell Viper how to map YAML/env keys to struct fields.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	// DatabasePath is the SQLite file for the search audit log.
	// Empty disables the audit log.
	DatabasePath string `mapstructure:"database_path"`
}

type AuthConfig struct {
	APIKeys   []string `mapstructure:"api_keys"`
	AdminKeys []string `mapstructure:"admin_keys"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// HTTPConfig configures the shared outbound HTTP client.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// SourcesConfig selects and configures the reverse image search sources.
type SourcesConfig struct {
	// Enabled lists the sources built at startup, in fan-out order.
	Enabled []string `mapstructure:"enabled"`
	// SearchTimeout bounds the search request of every source. The image
	// precondition HEAD only uses the shared client timeout.
	SearchTimeout time.Duration     `mapstructure:"search_timeout"`
	SauceNao      SauceNaoConfig    `mapstructure:"saucenao"`
	FuzzySearch   FuzzySearchConfig `mapstructure:"fuzzysearch"`
	Yandex        YandexConfig      `mapstructure:"yandex"`
	IQDB          IQDBConfig        `mapstructure:"iqdb"`
}

type SauceNaoConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type FuzzySearchConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type YandexConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type IQDBConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from a YAML file and environment variables.
// Environment variables use the SAUCE_ prefix with dots replaced by
// underscores: SAUCE_SOURCES_SAUCENAO_API_KEY → sources.saucenao.api_key.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// A missing config file is fine: defaults + env are enough.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SAUCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key. AutomaticEnv only overrides keys Viper
// already knows about, so even empty secrets need a default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.database_path", "./storage/sauce-service.db")
	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.admin_keys", []string{})
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", "sauce-service/1.0")
	v.SetDefault("sources.enabled", []string{"saucenao", "yandex", "iqdb", "fuzzysearch"})
	v.SetDefault("sources.search_timeout", 10*time.Second)
	v.SetDefault("sources.saucenao.api_key", "")
	v.SetDefault("sources.saucenao.base_url", "https://saucenao.com")
	v.SetDefault("sources.fuzzysearch.api_key", "")
	v.SetDefault("sources.fuzzysearch.base_url", "https://api.fuzzysearch.net")
	v.SetDefault("sources.yandex.base_url", "https://yandex.com")
	v.SetDefault("sources.iqdb.base_url", "https://iqdb.org")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Address returns the listen address string like "0.0.0.0:8080".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
