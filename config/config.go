// Package config loads client and server settings.
//
// Sources, lowest to highest precedence: built-in defaults, a YAML file,
// MINIACK_* environment variables, then command-line flags bound by the cli
// package. Example: MINIACK_CLIENT_REPLY_TIMEOUT=5s.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Client ClientConfig `mapstructure:"client"`
	Server ServerConfig `mapstructure:"server"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

type ClientConfig struct {
	ReplyTimeout time.Duration `mapstructure:"reply_timeout"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	// Discover finds the server in the registry instead of -s/-p.
	Discover bool            `mapstructure:"discover"`
	Balancer string          `mapstructure:"balancer"` // round_robin or weighted_random
	Registry DiscoveryConfig `mapstructure:"registry"`
}

type DiscoveryConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type ServerConfig struct {
	// ReadTimeout bounds how long a stream peer may take to send its request.
	// 0 waits forever; the connection's goroutine is the only thing held.
	ReadTimeout     time.Duration  `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration  `mapstructure:"write_timeout"`
	HandlerTimeout  time.Duration  `mapstructure:"handler_timeout"`
	ShutdownTimeout time.Duration  `mapstructure:"shutdown_timeout"`
	MetricsAddr     string         `mapstructure:"metrics_addr"`
	RateLimit       RateLimit      `mapstructure:"rate_limit"`
	Registry        RegistryConfig `mapstructure:"registry"`
}

type RateLimit struct {
	Enable bool    `mapstructure:"enable"`
	Rate   float64 `mapstructure:"rate"`
	Burst  int     `mapstructure:"burst"`
}

type RegistryConfig struct {
	Enable        bool          `mapstructure:"enable"`
	Endpoints     []string      `mapstructure:"endpoints"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	TTL           int64         `mapstructure:"ttl"`
	AdvertiseAddr string        `mapstructure:"advertise_addr"`
	Weight        int           `mapstructure:"weight"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:   "warn",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Client: ClientConfig{
			ReplyTimeout: 3 * time.Second,
			DialTimeout:  5 * time.Second,
			Balancer:     "round_robin",
			Registry: DiscoveryConfig{
				Endpoints:   []string{"127.0.0.1:2379"},
				DialTimeout: 5 * time.Second,
			},
		},
		Server: ServerConfig{
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			RateLimit:       RateLimit{Rate: 1000, Burst: 100},
			Registry: RegistryConfig{
				Endpoints:   []string{"127.0.0.1:2379"},
				DialTimeout: 5 * time.Second,
				TTL:         10,
			},
		},
	}
}

// New returns a viper instance seeded with defaults and env handling. The
// cli package binds its flags into it before calling Load.
func New() *viper.Viper {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MINIACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	v.SetDefault("client.reply_timeout", cfg.Client.ReplyTimeout)
	v.SetDefault("client.dial_timeout", cfg.Client.DialTimeout)
	v.SetDefault("client.discover", cfg.Client.Discover)
	v.SetDefault("client.balancer", cfg.Client.Balancer)
	v.SetDefault("client.registry.endpoints", cfg.Client.Registry.Endpoints)
	v.SetDefault("client.registry.dial_timeout", cfg.Client.Registry.DialTimeout)

	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.handler_timeout", cfg.Server.HandlerTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.metrics_addr", cfg.Server.MetricsAddr)
	v.SetDefault("server.rate_limit.enable", cfg.Server.RateLimit.Enable)
	v.SetDefault("server.rate_limit.rate", cfg.Server.RateLimit.Rate)
	v.SetDefault("server.rate_limit.burst", cfg.Server.RateLimit.Burst)
	v.SetDefault("server.registry.enable", cfg.Server.Registry.Enable)
	v.SetDefault("server.registry.endpoints", cfg.Server.Registry.Endpoints)
	v.SetDefault("server.registry.dial_timeout", cfg.Server.Registry.DialTimeout)
	v.SetDefault("server.registry.ttl", cfg.Server.Registry.TTL)
	v.SetDefault("server.registry.advertise_addr", cfg.Server.Registry.AdvertiseAddr)
	v.SetDefault("server.registry.weight", cfg.Server.Registry.Weight)
	return v
}

// Load reads the config file at path (or searches ./mini-ack.yaml,
// ./configs and ~/.mini-ack when path is empty) into v and decodes it.
// A missing file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MINIACK_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mini-ack")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mini-ack"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	if c.Client.ReplyTimeout <= 0 {
		return fmt.Errorf("invalid client.reply_timeout: %s", c.Client.ReplyTimeout)
	}
	switch c.Client.Balancer {
	case "round_robin", "weighted_random":
	default:
		return fmt.Errorf("invalid client.balancer: %q", c.Client.Balancer)
	}
	if c.Client.Discover && len(c.Client.Registry.Endpoints) == 0 {
		return fmt.Errorf("client.registry.endpoints is empty")
	}
	if c.Server.RateLimit.Enable && (c.Server.RateLimit.Rate <= 0 || c.Server.RateLimit.Burst <= 0) {
		return fmt.Errorf("invalid server.rate_limit: rate and burst must be positive")
	}
	if c.Server.Registry.Enable && len(c.Server.Registry.Endpoints) == 0 {
		return fmt.Errorf("server.registry.endpoints is empty")
	}
	return nil
}
