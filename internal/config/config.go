// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Relay    RelayConfig    `mapstructure:"relay" yaml:"relay"`
	Collect  CollectConfig  `mapstructure:"collect" yaml:"collect"`
	Sourcing SourcingConfig `mapstructure:"sourcing" yaml:"sourcing"`
	Control  ControlConfig  `mapstructure:"control" yaml:"control"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File sink (rotated by lumberjack). Empty LogFile disables it.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls how the Chrome process is launched.
type BrowserConfig struct {
	// ExecPath overrides executable discovery. Empty means "resolve".
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
	// The window is always visible; the whole design assumes a session a
	// human can take over (captcha solving, login).
	WindowWidth  int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int      `mapstructure:"window_height" yaml:"window_height"`
	UserDataDir  string   `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Args         []string `mapstructure:"args" yaml:"args"`

	Humanoid HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
}

// HumanoidConfig tunes the input simulation.
type HumanoidConfig struct {
	MistakeChance    float64 `mapstructure:"mistake_chance" yaml:"mistake_chance"`
	CorrectionChance float64 `mapstructure:"correction_chance" yaml:"correction_chance"`
	MinKeyDelayMs    int     `mapstructure:"min_key_delay_ms" yaml:"min_key_delay_ms"`
	MaxKeyDelayMs    int     `mapstructure:"max_key_delay_ms" yaml:"max_key_delay_ms"`
	ThinkChance      float64 `mapstructure:"think_chance" yaml:"think_chance"`
}

// NetworkConfig bounds navigation and page settling.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// RelayConfig points at the external work-list / result service.
type RelayConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// MinPostInterval spaces result POSTs out regardless of pipeline jitter.
	MinPostInterval time.Duration `mapstructure:"min_post_interval" yaml:"min_post_interval"`
}

// CollectConfig tunes the collection batch run.
type CollectConfig struct {
	ItemDelayMin   time.Duration `mapstructure:"item_delay_min" yaml:"item_delay_min"`
	ItemDelayMax   time.Duration `mapstructure:"item_delay_max" yaml:"item_delay_max"`
	CaptchaMaxWait time.Duration `mapstructure:"captcha_max_wait" yaml:"captcha_max_wait"`
}

// SourcingConfig tunes the keyword sourcing run.
type SourcingConfig struct {
	KeywordDelayMin time.Duration `mapstructure:"keyword_delay_min" yaml:"keyword_delay_min"`
	KeywordDelayMax time.Duration `mapstructure:"keyword_delay_max" yaml:"keyword_delay_max"`
	CaptchaMaxWait  time.Duration `mapstructure:"captcha_max_wait" yaml:"captcha_max_wait"`

	// Price window applied to sourced listings. A non-positive bound
	// leaves that side open.
	PriceMin int `mapstructure:"price_min" yaml:"price_min"`
	PriceMax int `mapstructure:"price_max" yaml:"price_max"`

	// Widget selection for storefront state parsing.
	IncludeBest bool `mapstructure:"include_best" yaml:"include_best"`
	IncludeNew  bool `mapstructure:"include_new" yaml:"include_new"`

	// Per-marketplace switches for keyword runs.
	SearchNaver   bool `mapstructure:"search_naver" yaml:"search_naver"`
	SearchAuction bool `mapstructure:"search_auction" yaml:"search_auction"`
}

// ControlConfig configures the local HTTP control surface.
type ControlConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// Default returns a configuration with sensible production defaults applied.
func Default() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "marketscout",
			MaxSize:     50,
			MaxBackups:  3,
			MaxAge:      14,
		},
		Browser: BrowserConfig{
			WindowWidth:  1280,
			WindowHeight: 1024,
			Humanoid: HumanoidConfig{
				MistakeChance:    0.06,
				CorrectionChance: 0.85,
				MinKeyDelayMs:    40,
				MaxKeyDelayMs:    180,
				ThinkChance:      0.10,
			},
		},
		Network: NetworkConfig{
			NavigationTimeout: 45 * time.Second,
			PostLoadWait:      2 * time.Second,
		},
		Relay: RelayConfig{
			Timeout:         30 * time.Second,
			MinPostInterval: 500 * time.Millisecond,
		},
		Collect: CollectConfig{
			ItemDelayMin:   15 * time.Second,
			ItemDelayMax:   20 * time.Second,
			CaptchaMaxWait: 5 * time.Minute,
		},
		Sourcing: SourcingConfig{
			KeywordDelayMin: 5 * time.Second,
			KeywordDelayMax: 15 * time.Second,
			CaptchaMaxWait:  5 * time.Minute,
			PriceMin:        0,
			PriceMax:        0,
			IncludeBest:     true,
			IncludeNew:      true,
			SearchNaver:     true,
			SearchAuction:   false,
		},
		Control: ControlConfig{
			Listen: "127.0.0.1:8289",
		},
	}
}

// Load reads configuration from the given file (or the default search path
// when cfgFile is empty), layers environment variables on top, and unmarshals
// into a fully defaulted Config.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".marketscout"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("MARKETSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env vars apply.
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
