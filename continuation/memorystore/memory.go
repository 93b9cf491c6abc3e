// Package memorystore provides an in-memory implementation of
// continuation.Store using github.com/hashicorp/golang-lru/v2 for a bounded
// token table with optional idle expiry.
//
// Characteristics
//
//	Durability        : none (RAM only)
//	Horizontal scale  : no (process local)
//	Capacity          : bounded; least recently stored token is evicted first
//	Expiry            : optional TTL per token
//	Concurrency       : safe; Take is atomic under a mutex
//
// An evicted or expired token behaves exactly like an unknown one: the
// session answers BadContinuationPointInvalid.
package memorystore

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ggoodman/opcua-pseudosession-go/continuation"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxEntries bounds a store built with a zero MaxEntries.
const DefaultMaxEntries = 1024

// Options configures a Store.
type Options struct {
	// MaxEntries caps the number of live tokens. Zero means DefaultMaxEntries;
	// a negative value means unbounded.
	MaxEntries int

	// TTL expires tokens that were not consumed in time. Zero disables expiry.
	// A non-zero TTL starts a cleanup goroutine in golang-lru that Close
	// cannot stop, so create such stores once and share them.
	TTL time.Duration

	// OnEvict is called for tokens dropped by capacity or TTL, not for
	// tokens consumed by Take or removed by DeletePrefix.
	OnEvict func(key string, e continuation.Entry)
}

var _ continuation.Store = (*Store)(nil)

// Store implements continuation.Store in memory.
type Store struct {
	mu      sync.Mutex
	cache   *expirable.LRU[string, continuation.Entry]
	onEvict func(key string, e continuation.Entry)

	// removing is set while Take/DeletePrefix/Close remove entries so the
	// eviction callback can tell explicit removals from capacity/TTL
	// evictions. A TTL eviction racing an explicit removal may go unreported.
	removing atomic.Bool
}

// New creates a new in-memory store.
func New(opts Options) *Store {
	size := opts.MaxEntries
	switch {
	case size == 0:
		size = DefaultMaxEntries
	case size < 0:
		size = 0 // expirable treats zero as unbounded
	}
	s := &Store{onEvict: opts.OnEvict}
	s.cache = expirable.NewLRU[string, continuation.Entry](size, s.evicted, opts.TTL)
	return s
}

// Put stores e under key.
func (s *Store) Put(ctx context.Context, key string, e continuation.Entry) error {
	stored := continuation.Entry{
		References: append(e.References[:0:0], e.References...),
		MaxPerPage: e.MaxPerPage,
	}
	s.mu.Lock()
	s.cache.Add(key, stored)
	s.mu.Unlock()
	return nil
}

// Take removes and returns the entry stored under key.
func (s *Store) Take(ctx context.Context, key string) (continuation.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache.Get(key)
	if !ok {
		return continuation.Entry{}, false, nil
	}
	s.removing.Store(true)
	s.cache.Remove(key)
	s.removing.Store(false)
	return e, true, nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The LRU has no prefix iteration; scan the key set.
	s.removing.Store(true)
	for _, key := range s.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Remove(key)
		}
	}
	s.removing.Store(false)
	return nil
}

// Len returns the number of live tokens.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// Close drops every token.
func (s *Store) Close() error {
	s.mu.Lock()
	s.removing.Store(true)
	s.cache.Purge()
	s.removing.Store(false)
	s.mu.Unlock()
	return nil
}

func (s *Store) evicted(key string, e continuation.Entry) {
	if s.onEvict == nil || s.removing.Load() {
		return
	}
	s.onEvict(key, e)
}
