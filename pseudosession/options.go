package pseudosession

import (
	"log/slog"

	"github.com/ggoodman/opcua-pseudosession-go/addressspace"
	"github.com/ggoodman/opcua-pseudosession-go/continuation"
	"github.com/ggoodman/opcua-pseudosession-go/scheduler"
)

// Option configures a Session.
type Option func(*newConfig)

type newConfig struct {
	cfg       Config
	sessionID string
	methods   addressspace.MethodService
	resolver  addressspace.ReferenceTypeResolver
	sched     scheduler.Scheduler
	store     continuation.Store
	handler   slog.Handler
}

// WithConfig replaces the whole configuration. Options applied after it
// still override individual fields.
func WithConfig(cfg Config) Option {
	return func(c *newConfig) { c.cfg = cfg }
}

// WithMaxReferencesPerNode sets the browse page size. Zero disables
// pagination.
func WithMaxReferencesPerNode(n int) Option {
	return func(c *newConfig) { c.cfg.MaxReferencesPerNode = n }
}

// WithCallConcurrency sets how many invocations of one Call batch may run
// at once.
func WithCallConcurrency(n int) Option {
	return func(c *newConfig) { c.cfg.CallConcurrency = n }
}

// WithSessionID sets the session identifier. It namespaces continuation
// points in a shared store and is visible to collaborators through
// addressspace.SessionFromContext. Defaults to a random UUID.
func WithSessionID(id string) Option {
	return func(c *newConfig) { c.sessionID = id }
}

// WithMethodService sets the Call collaborator. When omitted, an address
// space that also implements addressspace.MethodService is used.
func WithMethodService(ms addressspace.MethodService) Option {
	return func(c *newConfig) { c.methods = ms }
}

// WithReferenceTypeResolver sets the resolver for symbolic reference type
// names. When omitted, an address space that implements
// addressspace.ReferenceTypeResolver is used.
func WithReferenceTypeResolver(r addressspace.ReferenceTypeResolver) Option {
	return func(c *newConfig) { c.resolver = r }
}

// WithScheduler sets the scheduler completions are delivered on. The caller
// keeps ownership. By default the session runs its own scheduler.Loop and
// stops it on Close.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(c *newConfig) { c.sched = s }
}

// WithContinuationStore sets the token table, for instance a redisstore
// shared by several processes. The caller keeps ownership; Close only drops
// this session's tokens from it.
func WithContinuationStore(s continuation.Store) Option {
	return func(c *newConfig) { c.store = s }
}

// WithLogHandler sets the slog handler used by the session. If not provided,
// logs are discarded.
func WithLogHandler(h slog.Handler) Option {
	return func(c *newConfig) { c.handler = h }
}
