package config

import (
	"net"
	"strconv"
	"time"
)

type Server struct {
	Name             string        `yaml:"name" env:"POWPLANT_NAME" env-default:"powplant"`
	Host             string        `yaml:"host" env:"POWPLANT_HOST" env-default:"127.0.0.1"`
	Port             int           `yaml:"port" env:"POWPLANT_PORT" env-default:"8080"`
	MaxConnections   int64         `yaml:"max_connections" env:"POWPLANT_MAX_CONNECTIONS" env-default:"100"`
	KeepAlive        time.Duration `yaml:"keep_alive" env:"POWPLANT_KEEP_ALIVE" env-default:"15s"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"POWPLANT_HANDSHAKE_TIMEOUT" env-default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" env:"POWPLANT_WRITE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" env:"POWPLANT_SHUTDOWN_TIMEOUT" env-default:"5s"`
	ReadLimit        int64         `yaml:"read_limit" env:"POWPLANT_READ_LIMIT" env-default:"1048576"`
}

// Addr is the host:port the server binds.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type Pow struct {
	DefaultDifficulty uint32 `yaml:"default_difficulty" env:"POWPLANT_POW_DEFAULT_DIFFICULTY" env-default:"0"`
	MaxDifficulty     uint32 `yaml:"max_difficulty" env:"POWPLANT_POW_MAX_DIFFICULTY" env-default:"4294967295"`
	// Workers is the number of search goroutines; zero means one per CPU.
	Workers int `yaml:"workers" env:"POWPLANT_POW_WORKERS" env-default:"0"`
}

type Metrics struct {
	// Addr serves /metrics when set.
	Addr string `yaml:"addr" env:"POWPLANT_METRICS_ADDR"`
}
