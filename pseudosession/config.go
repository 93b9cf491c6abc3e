package pseudosession

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds the tunables of a Session. The zero value is usable; see
// DefaultConfig for the values applied by New.
type Config struct {
	// MaxReferencesPerNode caps the references returned per browse page.
	// Zero disables pagination. ENV: PSEUDOSESSION_MAX_REFERENCES_PER_NODE
	MaxReferencesPerNode int `env:"PSEUDOSESSION_MAX_REFERENCES_PER_NODE,default=1000"`

	// MaxContinuationPoints bounds the session's default token table; the
	// least recently issued token is evicted first. Negative means
	// unbounded. Ignored with WithContinuationStore.
	// ENV: PSEUDOSESSION_MAX_CONTINUATION_POINTS
	MaxContinuationPoints int `env:"PSEUDOSESSION_MAX_CONTINUATION_POINTS,default=1024"`

	// ContinuationPointTTL expires unconsumed tokens of the default token
	// table. Zero disables expiry. A non-zero TTL gives each session's table
	// a cleanup goroutine that outlives Close; with many short-lived sessions
	// share one memorystore through WithContinuationStore instead.
	// ENV: PSEUDOSESSION_CONTINUATION_POINT_TTL
	ContinuationPointTTL time.Duration `env:"PSEUDOSESSION_CONTINUATION_POINT_TTL,default=0s"`

	// CallConcurrency is the number of method invocations of one Call batch
	// that may run at once. Values below 2 run them sequentially.
	// ENV: PSEUDOSESSION_CALL_CONCURRENCY
	CallConcurrency int `env:"PSEUDOSESSION_CALL_CONCURRENCY,default=1"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		MaxReferencesPerNode:  1000,
		MaxContinuationPoints: 1024,
		CallConcurrency:       1,
	}
}

// ConfigFromEnv loads a Config from the environment, falling back to the
// defaults for unset variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("decode session config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxReferencesPerNode < 0 {
		return fmt.Errorf("max references per node must not be negative: %d", c.MaxReferencesPerNode)
	}
	if c.ContinuationPointTTL < 0 {
		return fmt.Errorf("continuation point ttl must not be negative: %s", c.ContinuationPointTTL)
	}
	return nil
}
