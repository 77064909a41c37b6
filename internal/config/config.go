package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds client, development-server and logging settings.
type Config struct {
	Client ClientConfig `mapstructure:"client"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

type ClientConfig struct {
	Endpoint       string        `mapstructure:"endpoint"` // host:port, tcp://host:port or ws(s)://...
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type ServerConfig struct {
	TCPAddr     string `mapstructure:"tcp_addr"`
	WSAddr      string `mapstructure:"ws_addr"` // also serves /metrics
	RatePerSec  int    `mapstructure:"rate_per_sec"`
	RateBurst   int    `mapstructure:"rate_burst"`
	MaxFrameLen int    `mapstructure:"max_frame_len"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // console output for humans
}

// EnvPrefix prefixes environment overrides: MONFARI_CLIENT_ENDPOINT -> client.endpoint.
const EnvPrefix = "MONFARI"

// Load reads defaults, then the optional file at path (or ./monfari.yaml,
// ./config/monfari.yaml when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("client.endpoint", "tcp://127.0.0.1:7878")
	v.SetDefault("client.dial_timeout", "5s")
	v.SetDefault("client.request_timeout", "10s")
	v.SetDefault("server.tcp_addr", ":7878")
	v.SetDefault("server.ws_addr", ":7879")
	v.SetDefault("server.rate_per_sec", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.max_frame_len", 1<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("monfari")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

// Validate rejects settings the client or server cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Client.Endpoint) == "" {
		return errors.New("config: client.endpoint is required")
	}
	if c.Client.DialTimeout <= 0 || c.Client.RequestTimeout <= 0 {
		return errors.New("config: client timeouts must be positive")
	}
	if c.Server.RatePerSec <= 0 || c.Server.RateBurst <= 0 {
		return errors.New("config: server rate limits must be positive")
	}
	return nil
}
