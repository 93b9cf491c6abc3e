// Package redisstore provides a Redis-backed continuation.Store so that a
// logical session served by several processes shares one token table.
//
// Entries are stored as JSON under <KeyPrefix><namespace>:<token> with a TTL.
// Take uses GETDEL (Redis 6.2+), which makes token consumption atomic across
// processes: two concurrent BrowseNext calls for one token cannot both see
// the remainder.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ggoodman/opcua-pseudosession-go/continuation"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

// Config for the Redis-backed Store. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". Used only when no client is supplied.
	// ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: CONTINUATION_KEY_PREFIX
	KeyPrefix string `env:"CONTINUATION_KEY_PREFIX,default=opcua:cp:"`
	// TTL bounds how long an unconsumed token lives. ENV: CONTINUATION_TTL
	TTL time.Duration `env:"CONTINUATION_TTL,default=10m"`
}

const (
	defaultAddr   = "localhost:6379"
	defaultPrefix = "opcua:cp:"
	defaultTTL    = 10 * time.Minute
	scanBatch     = 256
)

var _ continuation.Store = (*Store)(nil)

// Store implements continuation.Store on Redis.
type Store struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration
	ownsClient bool
}

// New builds a Store. If client is nil one is dialled from cfg.RedisAddr and
// pinged; the Store then owns it and closes it on Close.
func New(client *redis.Client, cfg Config) (*Store, error) {
	owns := false
	if client == nil {
		addr := cfg.RedisAddr
		if addr == "" {
			addr = defaultAddr
		}
		client = redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		owns = true
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{client: client, keyPrefix: prefix, ttl: ttl, ownsClient: owns}, nil
}

// NewFromEnv builds a Store using envdecode to populate Config.
func NewFromEnv() (*Store, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode redis store config: %w", err)
	}
	return New(nil, cfg)
}

func (s *Store) key(k string) string { return s.keyPrefix + k }

// Put stores e under key with the configured TTL.
func (s *Store) Put(ctx context.Context, key string, e continuation.Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal continuation entry: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", s.key(key), err)
	}
	return nil
}

// Take atomically fetches and deletes the entry stored under key.
func (s *Store) Take(ctx context.Context, key string) (continuation.Entry, bool, error) {
	b, err := s.client.GetDel(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return continuation.Entry{}, false, nil
		}
		return continuation.Entry{}, false, fmt.Errorf("failed to take key %s: %w", s.key(key), err)
	}
	var e continuation.Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return continuation.Entry{}, false, fmt.Errorf("failed to unmarshal continuation entry: %w", err)
	}
	return e, true, nil
}

// DeletePrefix removes every entry whose key starts with prefix. SCAN is used
// to avoid blocking the server.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(s.key(prefix)) + "*"
	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", pattern, err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to delete keys: %w", err)
		}
	}
	return nil
}

// Close closes the Redis client if the Store dialled it.
func (s *Store) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Close()
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
