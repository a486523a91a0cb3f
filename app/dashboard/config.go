package dashboard

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pandaskiing/depositview/pkg/chain"
	"github.com/pandaskiing/depositview/pkg/subgraph"
)

// Config is the service configuration, read from the environment and an optional .env file.
type Config struct {
	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	Addr string `env:"ADDR"`

	SubgraphURL     string        `env:"SUBGRAPH_URL"`
	SubgraphNetwork string        `env:"SUBGRAPH_NETWORK"`
	SubgraphToken   string        `env:"SUBGRAPH_TOKEN"`
	SubgraphRPS     int           `env:"SUBGRAPH_RPS"`
	SubgraphTimeout time.Duration `env:"SUBGRAPH_TIMEOUT"`

	// RPCURL enables the on-chain endpoints when set.
	RPCURL          string `env:"RPC_URL"`
	ContractAddress string `env:"CONTRACT_ADDRESS"`
	TokenAddress    string `env:"TOKEN_ADDRESS"`

	RedisEnabled  bool   `env:"REDIS_ENABLED"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL"`
	Environment   string        `env:"ENVIRONMENT"`
	TimeZone      string        `env:"TIME_ZONE"`
}

const defaultSessionSecret = "change-me-please"

// ErrDefaultSessionSecret is returned when production runs with the built-in session secret.
var ErrDefaultSessionSecret = errors.New("SESSION_SECRET must be set in production")

// LoadConfig applies defaults, then the .env file if present, then the environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	config := Config{
		Addr:            ":3001",
		SubgraphURL:     "",
		SubgraphNetwork: "local",
		SubgraphRPS:     10,
		SubgraphTimeout: 10 * time.Second,
		ContractAddress: chain.DefaultContract,
		TokenAddress:    chain.DefaultToken,
		RedisAddr:       "localhost:6379",
		SessionSecret:   defaultSessionSecret,
		SessionTTL:      365 * 24 * time.Hour,
		Environment:     "development",
		TimeZone:        "Asia/Shanghai",
	}

	if err := env.Parse(&config); err != nil {
		return Config{}, err
	}

	if _, err := config.SubgraphEndpoint(); err != nil {
		return Config{}, err
	}
	if config.Production() && config.SessionSecret == defaultSessionSecret {
		return Config{}, ErrDefaultSessionSecret
	}

	return config, nil
}

// SubgraphEndpoint resolves SubgraphURL, falling back to the SubgraphNetwork endpoint.
func (c Config) SubgraphEndpoint() (string, error) {
	return subgraph.ResolveEndpoint(c.SubgraphNetwork, c.SubgraphURL)
}

// Production reports whether the service runs in production.
func (c Config) Production() bool { return c.Environment == "production" }

// Location loads TimeZone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
