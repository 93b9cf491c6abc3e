// Package continuation implements the continuation-point table that backs
// paginated browsing. A Manager splits a complete, ordered reference list
// into pages of at most maxPerPage entries and hands out an opaque
// ua.ContinuationPoint for each remainder. Tokens are single use: GetNext and
// Cancel consume the token they are given, and a drained or cancelled token
// can never be used again.
//
// Layers
//
//	Manager -> paging rules, token minting, status mapping
//	Store   -> the token table (memorystore, redisstore)
//
// One Manager exists per session. Its keys are prefixed with a per-session
// namespace so several sessions can share one Store without seeing each
// other's tokens.
package continuation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ggoodman/opcua-pseudosession-go/ua"
	"github.com/google/uuid"
)

// ErrContinuationPointPresent is returned by Register when the result handed
// to it already carries a continuation point. Results are registered exactly
// once, straight from the address space; a token at that stage means the
// producer is broken.
var ErrContinuationPointPresent = errors.New("continuation: result already carries a continuation point")

// Manager owns the in-flight remainders of truncated browse results.
type Manager struct {
	store     Store
	namespace string
	log       *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the key prefix used in the Store. Sessions pass their
// session ID. The default is a random UUID.
func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithLogger sets the logger for degraded-store diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a Manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store}
	for _, opt := range opts {
		opt(m)
	}
	if m.namespace == "" {
		m.namespace = uuid.NewString()
	}
	if m.log == nil {
		m.log = slog.New(slog.DiscardHandler)
	}
	return m
}

// Namespace returns the key prefix of this manager's tokens.
func (m *Manager) Namespace() string { return m.namespace }

// Register pages a freshly computed browse result. Results that are not
// Good pass through untouched. When maxPerPage is zero (no limit) or the
// references fit in one page the result is returned whole; otherwise the
// first maxPerPage references are returned with a new continuation point
// bound to the rest.
func (m *Manager) Register(ctx context.Context, maxPerPage int, full ua.BrowseResult) (ua.BrowseResult, error) {
	if full.ContinuationPoint != nil {
		return ua.BrowseResult{}, ErrContinuationPointPresent
	}
	if !full.StatusCode.IsGood() {
		return full, nil
	}
	return m.page(ctx, maxPerPage, full.References), nil
}

// GetNext returns the next page for cp. The token is invalidated by this
// call whether or not the caller ever uses the replacement token.
func (m *Manager) GetNext(ctx context.Context, cp ua.ContinuationPoint) ua.BrowseResult {
	e, status := m.take(ctx, cp)
	if status != ua.Good {
		return ua.BrowseResult{StatusCode: status}
	}
	return m.page(ctx, e.MaxPerPage, e.References)
}

// Cancel releases cp. A known token yields Good with no references.
func (m *Manager) Cancel(ctx context.Context, cp ua.ContinuationPoint) ua.BrowseResult {
	if _, status := m.take(ctx, cp); status != ua.Good {
		return ua.BrowseResult{StatusCode: status}
	}
	return ua.BrowseResult{StatusCode: ua.Good, References: []ua.ReferenceDescription{}}
}

// Release drops every token this manager has issued.
func (m *Manager) Release(ctx context.Context) error {
	return m.store.DeletePrefix(ctx, m.namespace+":")
}

func (m *Manager) page(ctx context.Context, maxPerPage int, refs []ua.ReferenceDescription) ua.BrowseResult {
	if refs == nil {
		refs = []ua.ReferenceDescription{}
	}
	if maxPerPage <= 0 || len(refs) <= maxPerPage {
		return ua.BrowseResult{StatusCode: ua.Good, References: refs}
	}

	rest := make([]ua.ReferenceDescription, len(refs)-maxPerPage)
	copy(rest, refs[maxPerPage:])

	token := uuid.New()
	cp := ua.ContinuationPoint(token[:])
	if err := m.store.Put(ctx, m.key(cp), Entry{References: rest, MaxPerPage: maxPerPage}); err != nil {
		m.log.WarnContext(ctx, "continuation point not stored",
			slog.String("err", err.Error()),
			slog.Int("remaining", len(rest)),
		)
		return ua.BrowseResult{
			StatusCode: ua.BadNoContinuationPoints,
			References: refs[:maxPerPage:maxPerPage],
		}
	}

	m.log.DebugContext(ctx, "continuation point registered",
		slog.String("cp", cp.String()),
		slog.Int("page", maxPerPage),
		slog.Int("remaining", len(rest)),
	)
	return ua.BrowseResult{
		StatusCode:        ua.Good,
		ContinuationPoint: cp,
		References:        refs[:maxPerPage:maxPerPage],
	}
}

func (m *Manager) take(ctx context.Context, cp ua.ContinuationPoint) (Entry, ua.StatusCode) {
	if len(cp) == 0 {
		return Entry{}, ua.BadContinuationPointInvalid
	}
	e, ok, err := m.store.Take(ctx, m.key(cp))
	if err != nil {
		m.log.WarnContext(ctx, "continuation point lookup failed",
			slog.String("cp", cp.String()),
			slog.String("err", err.Error()),
		)
		return Entry{}, ua.BadInternalError
	}
	if !ok {
		return Entry{}, ua.BadContinuationPointInvalid
	}
	return e, ua.Good
}

func (m *Manager) key(cp ua.ContinuationPoint) string {
	return m.namespace + ":" + cp.String()
}
