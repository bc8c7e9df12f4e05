// Package config handles configuration loading for kospifeed.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/seenimoa/kospifeed/pkg/utils"
)

const envPrefix = "KOSPIFEED"

// Config represents the complete application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Timezone string         `mapstructure:"timezone" yaml:"timezone"`
	Window   WindowConfig   `mapstructure:"window"   yaml:"window"`
	Upstream UpstreamConfig `mapstructure:"upstream" yaml:"upstream"`
	DART     DARTConfig     `mapstructure:"dart"     yaml:"dart"`
	Naver    NaverConfig    `mapstructure:"naver"    yaml:"naver"`
	RSS      RSSConfig      `mapstructure:"rss"      yaml:"rss"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	Key         string   `mapstructure:"key"          yaml:"key"` // shared secret for /updates
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// WindowConfig sets the default updates window around now.
type WindowConfig struct {
	Lookback  time.Duration `mapstructure:"lookback"  yaml:"lookback"`
	Lookahead time.Duration `mapstructure:"lookahead" yaml:"lookahead"`
}

// UpstreamConfig applies to every provider call.
type UpstreamConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DARTConfig holds the filings provider settings.
type DARTConfig struct {
	APIKey    string `mapstructure:"api_key"    yaml:"api_key"`
	BaseURL   string `mapstructure:"base_url"   yaml:"base_url"`
	CorpClass string `mapstructure:"corp_class" yaml:"corp_class"` // Y=KOSPI, K=KOSDAQ, N=KONEX, E=other
	PageCount int    `mapstructure:"page_count" yaml:"page_count"`
}

// NaverConfig holds the news provider settings.
type NaverConfig struct {
	ClientID     string   `mapstructure:"client_id"     yaml:"client_id"`
	ClientSecret string   `mapstructure:"client_secret" yaml:"client_secret"`
	BaseURL      string   `mapstructure:"base_url"      yaml:"base_url"`
	Display      int      `mapstructure:"display"       yaml:"display"`
	Keywords     []string `mapstructure:"keywords"      yaml:"keywords"`
	Concurrency  int      `mapstructure:"concurrency"   yaml:"concurrency"`
	RateLimit    int      `mapstructure:"rate_limit"    yaml:"rate_limit"` // requests per second, 0 disables
}

// RSSConfig lists optional market-news feeds.
type RSSConfig struct {
	Feeds []FeedConfig `mapstructure:"feeds" yaml:"feeds"`
}

// FeedConfig is one RSS/Atom source.
type FeedConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	URL  string `mapstructure:"url"  yaml:"url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.kospifeed/config.yaml (home directory)
//  3. /etc/kospifeed/config.yaml (system)
//
// Environment variables override config file values.
// Format: KOSPIFEED_<SECTION>_<KEY>, e.g., KOSPIFEED_DART_API_KEY.
// The deployment names PORT, BOT_API_KEY/API_KEY, DART_API_KEY,
// NAVER_CLIENT_ID and NAVER_CLIENT_SECRET are honoured as well.
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".kospifeed"))
	v.AddConfigPath("/etc/kospifeed")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := overrideFromEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 3000)
	v.SetDefault("api.key", "")
	v.SetDefault("api.cors_origins", []string{"*"})

	v.SetDefault("timezone", utils.DefaultZone)

	v.SetDefault("window.lookback", 48*time.Hour)
	v.SetDefault("window.lookahead", 12*time.Hour)

	v.SetDefault("upstream.timeout", 10*time.Second)

	// DART defaults
	v.SetDefault("dart.api_key", "")
	v.SetDefault("dart.base_url", "https://opendart.fss.or.kr/api/list.json")
	v.SetDefault("dart.corp_class", "Y")
	v.SetDefault("dart.page_count", 100)

	// Naver defaults
	v.SetDefault("naver.client_id", "")
	v.SetDefault("naver.client_secret", "")
	v.SetDefault("naver.base_url", "https://openapi.naver.com/v1/search/news.json")
	v.SetDefault("naver.display", 50)
	v.SetDefault("naver.keywords", []string{"코스피", "유가증권", "공시"})
	v.SetDefault("naver.concurrency", 3)
	v.SetDefault("naver.rate_limit", 10)

	v.SetDefault("rss.feeds", []FeedConfig{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// legacyEnv maps deployment variable names onto config fields. A
// KOSPIFEED_ variable for the same field takes precedence.
var legacyEnv = []struct {
	names    []string
	prefixed string
	apply    func(*Config, string) error
}{
	{[]string{"PORT"}, "KOSPIFEED_API_PORT", func(c *Config, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.API.Port = port
		return nil
	}},
	{[]string{"BOT_API_KEY", "API_KEY"}, "KOSPIFEED_API_KEY", func(c *Config, v string) error {
		c.API.Key = v
		return nil
	}},
	{[]string{"DART_API_KEY"}, "KOSPIFEED_DART_API_KEY", func(c *Config, v string) error {
		c.DART.APIKey = v
		return nil
	}},
	{[]string{"NAVER_CLIENT_ID"}, "KOSPIFEED_NAVER_CLIENT_ID", func(c *Config, v string) error {
		c.Naver.ClientID = v
		return nil
	}},
	{[]string{"NAVER_CLIENT_SECRET"}, "KOSPIFEED_NAVER_CLIENT_SECRET", func(c *Config, v string) error {
		c.Naver.ClientSecret = v
		return nil
	}},
}

// overrideFromEnv applies the unprefixed deployment variables.
func overrideFromEnv(cfg *Config) error {
	for _, e := range legacyEnv {
		if os.Getenv(e.prefixed) != "" {
			continue
		}
		for _, name := range e.names {
			if val := os.Getenv(name); val != "" {
				if err := e.apply(cfg, val); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

// Location loads the configured reference zone.
func (c *Config) Location() (*time.Location, error) {
	return utils.LoadZone(c.Timezone)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port %d out of range", c.API.Port))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Window.Lookback <= 0 {
		errs = append(errs, fmt.Errorf("window.lookback must be positive, got %s", c.Window.Lookback))
	}
	if c.Window.Lookahead < 0 {
		errs = append(errs, fmt.Errorf("window.lookahead must not be negative, got %s", c.Window.Lookahead))
	}
	if c.Upstream.Timeout < 0 {
		errs = append(errs, fmt.Errorf("upstream.timeout must not be negative, got %s", c.Upstream.Timeout))
	}
	if c.Naver.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("naver.concurrency must be at least 1, got %d", c.Naver.Concurrency))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	for i, f := range c.RSS.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			errs = append(errs, fmt.Errorf("rss.feeds[%d]: url is required", i))
		}
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
