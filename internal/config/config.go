package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	AOI      AOIConfig      `mapstructure:"aoi"`
	Export   ExportConfig   `mapstructure:"export"`
	Session  SessionConfig  `mapstructure:"session"`
	Settings SettingsConfig `mapstructure:"settings"`
	Output   OutputConfig   `mapstructure:"output"`
	Log      LogConfig      `mapstructure:"log"`
	Workers  int            `mapstructure:"workers"`
}

type APIConfig struct {
	PredictURL     string        `mapstructure:"predict_url"`
	CreditsURL     string        `mapstructure:"credits_url"`
	Platform       string        `mapstructure:"platform"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SVG            bool          `mapstructure:"svg"`
}

type AOIConfig struct {
	MarkerTag    string  `mapstructure:"marker_tag"`
	MinWidth     float64 `mapstructure:"min_width"`
	MinHeight    float64 `mapstructure:"min_height"`
	DefaultColor string  `mapstructure:"default_color"`
}

type ExportConfig struct {
	Format  string  `mapstructure:"format"`
	Quality float64 `mapstructure:"quality"`
	DPI     int     `mapstructure:"dpi"`
}

type SessionConfig struct {
	AdvisoryDelay time.Duration `mapstructure:"advisory_delay"`
}

type SettingsConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	QRCode bool   `mapstructure:"qr_code"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

const (
	DefaultPredictURL = "https://api.visualeyes.design/predict/"
	DefaultCreditsURL = "https://api.visualeyes.design/credits"
	DefaultMarkerTag  = "AOI"
	DefaultColor      = "#3E21DEff"
	MinAOIWidth       = 70
	MinAOIHeight      = 32
	AdvisoryDelay     = 6000 * time.Millisecond
)

// Load reads the YAML file at path on top of the defaults. An empty path or
// a missing file yields the defaults with env overrides applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ATTNMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("failed to read config file: %w", err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			PredictURL:     DefaultPredictURL,
			CreditsURL:     DefaultCreditsURL,
			Platform:       "sketch",
			RequestTimeout: 120 * time.Second,
		},
		AOI: AOIConfig{
			MarkerTag:    DefaultMarkerTag,
			MinWidth:     MinAOIWidth,
			MinHeight:    MinAOIHeight,
			DefaultColor: DefaultColor,
		},
		Export: ExportConfig{
			Format:  "jpg",
			Quality: 0.7,
			DPI:     72,
		},
		Session: SessionConfig{
			AdvisoryDelay: AdvisoryDelay,
		},
		Settings: SettingsConfig{
			Backend: "file",
			Path:    "settings.yaml",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "attnmap:setting:",
			},
		},
		Output: OutputConfig{
			Dir: "output",
		},
		Log: LogConfig{
			Mode: "debug",
		},
		Workers: runtime.NumCPU(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("api.predict_url", d.API.PredictURL)
	v.SetDefault("api.credits_url", d.API.CreditsURL)
	v.SetDefault("api.platform", d.API.Platform)
	v.SetDefault("api.request_timeout", d.API.RequestTimeout)
	v.SetDefault("api.svg", d.API.SVG)

	v.SetDefault("aoi.marker_tag", d.AOI.MarkerTag)
	v.SetDefault("aoi.min_width", d.AOI.MinWidth)
	v.SetDefault("aoi.min_height", d.AOI.MinHeight)
	v.SetDefault("aoi.default_color", d.AOI.DefaultColor)

	v.SetDefault("export.format", d.Export.Format)
	v.SetDefault("export.quality", d.Export.Quality)
	v.SetDefault("export.dpi", d.Export.DPI)

	v.SetDefault("session.advisory_delay", d.Session.AdvisoryDelay)

	v.SetDefault("settings.backend", d.Settings.Backend)
	v.SetDefault("settings.path", d.Settings.Path)
	v.SetDefault("settings.redis.addr", d.Settings.Redis.Addr)
	v.SetDefault("settings.redis.password", d.Settings.Redis.Password)
	v.SetDefault("settings.redis.db", d.Settings.Redis.DB)
	v.SetDefault("settings.redis.prefix", d.Settings.Redis.Prefix)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.qr_code", d.Output.QRCode)

	v.SetDefault("log.mode", d.Log.Mode)
	v.SetDefault("workers", d.Workers)
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.AOI.MarkerTag == "" {
		return fmt.Errorf("aoi.marker_tag must not be empty")
	}
	if c.AOI.MinWidth < 0 || c.AOI.MinHeight < 0 {
		return fmt.Errorf("aoi minimum size must not be negative: %vx%v", c.AOI.MinWidth, c.AOI.MinHeight)
	}
	switch strings.ToLower(c.Export.Format) {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("unsupported export format: %s", c.Export.Format)
	}
	if c.Export.Quality <= 0 || c.Export.Quality > 1 {
		return fmt.Errorf("export.quality must be in (0, 1]: %v", c.Export.Quality)
	}
	switch c.Settings.Backend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("unknown settings backend: %s", c.Settings.Backend)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}
