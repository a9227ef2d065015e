// Package config defines the runtime configuration shared by the CLI and
// the HTTP server, loaded from flags, environment, and config file.
package config

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pranavnbapat/pagesense/pkg/extract"
)

// Config is the full runtime configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Fetch  FetchConfig  `mapstructure:"fetch"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080" or "127.0.0.1:9000".
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
}

// FetchConfig configures the extraction pipeline.
type FetchConfig struct {
	// MaxBodySize is a human-readable cap on fetched bodies, e.g. "10MB".
	MaxBodySize string `mapstructure:"max_body_size" validate:"required"`
	// Timeout bounds each static fetch attempt end to end.
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s"`
	// ConnectTimeout bounds TCP dialing within a static fetch.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"min=1s"`
	// NavigationTimeout bounds a headless page load.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" validate:"min=1s"`
	// SettleDelay waits after document-ready before reading the DOM.
	SettleDelay time.Duration `mapstructure:"settle_delay" validate:"min=0"`
	// MinTextChars is the short-text threshold for the render fallback.
	MinTextChars int `mapstructure:"min_text_chars" validate:"min=1"`
	// Polite enables per-domain throttling and warm-up requests.
	Polite bool `mapstructure:"polite"`
	// Throttle sets the politeness band applied when Polite is on.
	Throttle ThrottleConfig `mapstructure:"throttle"`
}

// ThrottleConfig is the randomized pacing band for polite mode: the
// per-domain gap is drawn from [MinGap, MaxGap] and the pre-request pause
// from [PreDelayMin, PreDelayMax].
type ThrottleConfig struct {
	MinGap      time.Duration `mapstructure:"min_gap" validate:"min=0"`
	MaxGap      time.Duration `mapstructure:"max_gap" validate:"min=0,gtefield=MinGap"`
	PreDelayMin time.Duration `mapstructure:"pre_delay_min" validate:"min=0"`
	PreDelayMax time.Duration `mapstructure:"pre_delay_max" validate:"min=0,gtefield=PreDelayMin"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Debug bool `mapstructure:"debug"`
	Quiet bool `mapstructure:"quiet"`
	JSON  bool `mapstructure:"json"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Fetch: FetchConfig{
			MaxBodySize:       "10MB",
			Timeout:           12 * time.Minute,
			ConnectTimeout:    30 * time.Second,
			NavigationTimeout: 120 * time.Second,
			SettleDelay:       2 * time.Second,
			MinTextChars:      500,
			Throttle: ThrottleConfig{
				MinGap:      1200 * time.Millisecond,
				MaxGap:      3500 * time.Millisecond,
				PreDelayMin: 600 * time.Millisecond,
				PreDelayMax: 1800 * time.Millisecond,
			},
		},
	}
}

// SetDefaults registers the default values on a viper instance so that
// config file and environment lookups fall back to them.
func SetDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.shutdown_timeout", def.Server.ShutdownTimeout)
	v.SetDefault("fetch.max_body_size", def.Fetch.MaxBodySize)
	v.SetDefault("fetch.timeout", def.Fetch.Timeout)
	v.SetDefault("fetch.connect_timeout", def.Fetch.ConnectTimeout)
	v.SetDefault("fetch.navigation_timeout", def.Fetch.NavigationTimeout)
	v.SetDefault("fetch.settle_delay", def.Fetch.SettleDelay)
	v.SetDefault("fetch.min_text_chars", def.Fetch.MinTextChars)
	v.SetDefault("fetch.polite", def.Fetch.Polite)
	v.SetDefault("fetch.throttle.min_gap", def.Fetch.Throttle.MinGap)
	v.SetDefault("fetch.throttle.max_gap", def.Fetch.Throttle.MaxGap)
	v.SetDefault("fetch.throttle.pre_delay_min", def.Fetch.Throttle.PreDelayMin)
	v.SetDefault("fetch.throttle.pre_delay_max", def.Fetch.Throttle.PreDelayMax)
}

// Load unmarshals and validates the configuration from a viper instance.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural constraints plus the size string.
func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := humanize.ParseBytes(c.Fetch.MaxBodySize); err != nil {
		return fmt.Errorf("invalid fetch.max_body_size %q: %w", c.Fetch.MaxBodySize, err)
	}
	return nil
}

// ExtractConfig converts the fetch section into pipeline settings.
func (c Config) ExtractConfig() (extract.Config, error) {
	maxBytes, err := humanize.ParseBytes(c.Fetch.MaxBodySize)
	if err != nil {
		return extract.Config{}, fmt.Errorf("invalid fetch.max_body_size %q: %w", c.Fetch.MaxBodySize, err)
	}
	return extract.Config{
		MaxBodyBytes:        int64(maxBytes),
		FetchTimeout:        c.Fetch.Timeout,
		ConnectTimeout:      c.Fetch.ConnectTimeout,
		NavigationTimeout:   c.Fetch.NavigationTimeout,
		SettleDelay:         c.Fetch.SettleDelay,
		MinTextChars:        c.Fetch.MinTextChars,
		Polite:              c.Fetch.Polite,
		ThrottleMinGap:      c.Fetch.Throttle.MinGap,
		ThrottleMaxGap:      c.Fetch.Throttle.MaxGap,
		ThrottlePreDelayMin: c.Fetch.Throttle.PreDelayMin,
		ThrottlePreDelayMax: c.Fetch.Throttle.PreDelayMax,
	}, nil
}
