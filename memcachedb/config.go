package memcachedb

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envConfig is the environment-variable shape consumed by NewFromEnv.
type envConfig struct {
	// Servers lists "host[:port[:weight]]" server specs.
	Servers []string `envconfig:"MEMCACHEDB_SERVERS" required:"true"`
	// Namespace prefixes every key on the wire.
	Namespace string `envconfig:"MEMCACHEDB_NAMESPACE"`
	// ReadOnly rejects every mutating operation.
	ReadOnly bool `envconfig:"MEMCACHEDB_READONLY"`
	// Multithread selects the process-wide-mutex concurrency mode.
	Multithread bool `envconfig:"MEMCACHEDB_MULTITHREAD"`
	// TimeoutMS is the per-I/O deadline in milliseconds.
	TimeoutMS int `envconfig:"MEMCACHEDB_TIMEOUT_MS" default:"500"`
}

// NewFromEnv builds a Client from MEMCACHEDB_* environment variables,
// applying any additional opts on top of the environment-derived settings.
func NewFromEnv(opts ...Option) (*Client, error) {
	var cfg envConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%s: reading environment config: %w", libPrefix, err)
	}

	envOpts := []Option{WithTimeout(time.Duration(cfg.TimeoutMS) * time.Millisecond)}
	if cfg.Namespace != "" {
		envOpts = append(envOpts, WithNamespace(cfg.Namespace))
	}
	if cfg.ReadOnly {
		envOpts = append(envOpts, WithReadOnly())
	}
	if cfg.Multithread {
		envOpts = append(envOpts, WithMultithread())
	}

	return New(cfg.Servers, append(envOpts, opts...)...)
}
