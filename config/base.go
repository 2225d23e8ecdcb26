package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultServerConfigPath is read when no other path is given.
const DefaultServerConfigPath = "config/default.yml"

var ErrInvalidConfig = errors.New("invalid configuration")

type ServerConfig struct {
	Server  Server  `yaml:"server"`
	Pow     Pow     `yaml:"pow"`
	Metrics Metrics `yaml:"metrics"`
	Log     Log     `yaml:"log"`
}

type ClientConfig struct {
	Client
	Log
}

type Log struct {
	Level  string `yaml:"level" env:"POWPLANT_LOG_LEVEL" env-default:"info" envconfig:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" env:"POWPLANT_LOG_FORMAT" env-default:"text" envconfig:"LOG_FORMAT" default:"text"`
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, l.Level)
	}
	return level, nil
}

// LoadServerConfig reads the YAML file at path with environment overrides. When the
// file does not exist, defaults and environment variables are used alone.
func LoadServerConfig(path string) (*ServerConfig, error) {
	cfg := &ServerConfig{}

	var err error
	if _, statErr := os.Stat(path); path != "" && statErr == nil {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("%w: server.max_connections must be positive", ErrInvalidConfig)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// LoadClientConfig reads the client configuration from the environment, after loading
// envFile into it when one is given.
func LoadClientConfig(envFile string) (*ClientConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := &ClientConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Requests < 1 {
		return nil, fmt.Errorf("%w: REQUESTS must be positive", ErrInvalidConfig)
	}
	if _, err := cfg.Log.SlogLevel(); err != nil {
		return nil, err
	}
	return cfg, nil
}
