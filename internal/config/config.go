package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the application. Values come from
// defaults, an optional config.yaml and MAPSEARCH_-prefixed
// environment variables, in increasing precedence.
type Config struct {
	Backend   BackendConfig   `mapstructure:"backend"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Debounce  DebounceConfig  `mapstructure:"debounce"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
}

type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ProvidersConfig struct {
	NominatimURL string `mapstructure:"nominatim_url"`
	MapboxURL    string `mapstructure:"mapbox_url"`
	MapboxToken  string `mapstructure:"mapbox_token"`
	LocatorURL   string `mapstructure:"locator_url"`
	UserAgent    string `mapstructure:"user_agent"`
}

type DebounceConfig struct {
	Viewport time.Duration `mapstructure:"viewport"`
	Buyer    time.Duration `mapstructure:"buyer"`
	Query    time.Duration `mapstructure:"query"`
	Filters  time.Duration `mapstructure:"filters"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.timeout", 15*time.Second)

	v.SetDefault("providers.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("providers.mapbox_url", "https://api.mapbox.com")
	v.SetDefault("providers.mapbox_token", "")
	v.SetDefault("providers.locator_url", "http://ip-api.com")
	v.SetDefault("providers.user_agent", "mapsearch/0.1 (listing map search)")

	v.SetDefault("debounce.viewport", 200*time.Millisecond)
	v.SetDefault("debounce.buyer", 300*time.Millisecond)
	v.SetDefault("debounce.query", 300*time.Millisecond)
	v.SetDefault("debounce.filters", 400*time.Millisecond)

	v.SetDefault("storage.db_path", "mapsearch.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. A missing config file is fine; a
// malformed one is not.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("MAPSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate collects every problem instead of stopping at the first.
func (c *Config) Validate() error {
	var errs []string

	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url must not be empty")
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, "backend.timeout must be positive")
	}
	for name, d := range map[string]time.Duration{
		"debounce.viewport": c.Debounce.Viewport,
		"debounce.buyer":    c.Debounce.Buyer,
		"debounce.query":    c.Debounce.Query,
		"debounce.filters":  c.Debounce.Filters,
	} {
		if d <= 0 {
			errs = append(errs, name+" must be positive")
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is not one of text, json", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
