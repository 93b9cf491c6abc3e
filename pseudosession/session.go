package pseudosession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ggoodman/opcua-pseudosession-go/addressspace"
	"github.com/ggoodman/opcua-pseudosession-go/batch"
	"github.com/ggoodman/opcua-pseudosession-go/continuation"
	"github.com/ggoodman/opcua-pseudosession-go/continuation/memorystore"
	"github.com/ggoodman/opcua-pseudosession-go/internal/logctx"
	"github.com/ggoodman/opcua-pseudosession-go/scheduler"
	"github.com/google/uuid"
)

var (
	// ErrInvalidRequest reports a malformed request item, such as a browse
	// description or read item without a node id. It fails the whole call.
	ErrInvalidRequest = errors.New("pseudosession: invalid request")

	// ErrSessionClosed is returned by operations on a closed Session.
	ErrSessionClosed = errors.New("pseudosession: session closed")

	// ErrCollaboratorPanic fails a Browse, Read or TranslateBrowsePath call
	// whose address space panicked. The session stays usable. Method panics
	// are contained per item by Call instead.
	ErrCollaboratorPanic = errors.New("pseudosession: address space panicked")
)

// Session is an in-process session over an address space. It is safe for
// concurrent use; operations are serialized so that every item of a batch
// observes the same address-space and continuation-point state.
// Collaborators run inside that pass and must not call back into the same
// Session.
type Session struct {
	id       string
	cfg      Config
	space    addressspace.AddressSpace
	methods  addressspace.MethodService
	resolver addressspace.ReferenceTypeResolver
	cps      *continuation.Manager
	log      *slog.Logger

	sched     scheduler.Scheduler
	ownsSched bool
	store     continuation.Store
	ownsStore bool

	mu     sync.Mutex
	closed bool
}

// New creates a Session over space.
func New(space addressspace.AddressSpace, opts ...Option) (*Session, error) {
	if space == nil {
		return nil, errors.New("pseudosession: address space is required")
	}
	nc := newConfig{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&nc)
	}
	if err := nc.cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	handler := nc.handler
	if handler == nil {
		handler = slog.DiscardHandler
	}
	log := slog.New(logctx.Handler{Handler: handler})

	s := &Session{
		id:       nc.sessionID,
		cfg:      nc.cfg,
		space:    space,
		methods:  nc.methods,
		resolver: nc.resolver,
		log:      log,
		sched:    nc.sched,
		store:    nc.store,
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.methods == nil {
		s.methods, _ = space.(addressspace.MethodService)
	}
	if s.resolver == nil {
		s.resolver, _ = space.(addressspace.ReferenceTypeResolver)
	}
	if s.sched == nil {
		s.sched = scheduler.NewLoop()
		s.ownsSched = true
	}
	if s.store == nil {
		s.store = memorystore.New(memorystore.Options{
			MaxEntries: nc.cfg.MaxContinuationPoints,
			TTL:        nc.cfg.ContinuationPointTTL,
			OnEvict: func(key string, e continuation.Entry) {
				log.Debug("continuation point evicted",
					slog.String("key", key),
					slog.Int("remaining", len(e.References)),
				)
			},
		})
		s.ownsStore = true
	}
	s.cps = continuation.NewManager(s.store,
		continuation.WithNamespace(s.id),
		continuation.WithLogger(log),
	)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Close releases every continuation point of the session and stops the
// resources the session created itself. Pending futures still complete, and
// Close may be called from a Future callback. Further operations fail with
// ErrSessionClosed. Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: s.id})
	var errs []error
	if err := s.cps.Release(ctx); err != nil {
		errs = append(errs, fmt.Errorf("release continuation points: %w", err))
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close continuation store: %w", err))
		}
	}
	if s.ownsSched {
		// Close may be running on this loop inside a callback; Stop never waits.
		if l, ok := s.sched.(*scheduler.Loop); ok {
			l.Stop()
		}
	}
	s.log.DebugContext(ctx, "session closed")
	return errors.Join(errs...)
}

// submit runs fn as one uninterrupted pass over req and schedules delivery
// of its outcome.
func submit[T, R any](s *Session, ctx context.Context, op string, req batch.Request[T], fn func(ctx context.Context, req batch.Request[T]) (batch.Response[R], error)) *scheduler.Future[batch.Response[R]] {
	f := scheduler.NewFuture[batch.Response[R]](s.sched)

	ctx = addressspace.WithSession(ctx, addressspace.SessionInfo{SessionID: s.id})
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: s.id})
	ctx = logctx.WithOperationData(ctx, &logctx.OperationData{Name: op, Items: req.Len(), Scalar: req.IsScalar()})

	res, err := func() (res batch.Response[R], err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return res, ErrSessionClosed
		}
		defer func() {
			if r := recover(); r != nil {
				s.log.ErrorContext(ctx, "operation panicked", slog.String("panic", fmt.Sprint(r)))
				res, err = batch.Response[R]{}, fmt.Errorf("%w: %v", ErrCollaboratorPanic, r)
			}
		}()
		return fn(ctx, req)
	}()

	if err != nil {
		s.log.DebugContext(ctx, "operation rejected", slog.String("err", err.Error()))
		f.Resolve(batch.Response[R]{}, err)
		return f
	}
	s.log.DebugContext(ctx, "operation complete")
	f.Resolve(res, nil)
	return f
}
