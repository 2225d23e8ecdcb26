package config

import "time"

type Client struct {
	ServerAddr     string        `envconfig:"SERVER_ADDR" required:"true"`
	Name           string        `envconfig:"NAME" required:"true"`
	TargetPow      uint32        `envconfig:"TARGET_POW" default:"0"`
	MinPow         uint32        `envconfig:"MIN_POW" default:"0"`
	Requests       int           `envconfig:"REQUESTS" default:"1"`
	Kind           uint32        `envconfig:"KIND" default:"1"`
	Content        string        `envconfig:"CONTENT" default:"Hello, World!"`
	PubKey         string        `envconfig:"PUBKEY" default:"test_pubkey"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"5s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	RetryAttempts  int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryDelay     time.Duration `envconfig:"RETRY_DELAY" default:"1s"`
}
