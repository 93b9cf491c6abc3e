package logctx

import (
	"context"
	"log/slog"
)

// Handler decorates records with the session, operation and item attached
// to the context.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if sd, ok := ctx.Value(sessionDataKey{}).(*SessionData); ok {
		r.AddAttrs(slog.Group("sess",
			slog.String("id", sd.SessionID),
		))
	}

	if op, ok := ctx.Value(operationDataKey{}).(*OperationData); ok {
		r.AddAttrs(slog.Group("op",
			slog.String("name", op.Name),
			slog.Int("items", op.Items),
			slog.Bool("scalar", op.Scalar),
		))
	}

	if it, ok := ctx.Value(itemDataKey{}).(*ItemData); ok {
		r.AddAttrs(slog.Group("item",
			slog.Int("index", it.Index),
			slog.String("node_id", it.NodeID),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type sessionDataKey struct{}

type SessionData struct {
	SessionID string
}

func WithSessionData(ctx context.Context, data *SessionData) context.Context {
	return context.WithValue(ctx, sessionDataKey{}, data)
}

type operationDataKey struct{}

type OperationData struct {
	Name   string
	Items  int
	Scalar bool
}

func WithOperationData(ctx context.Context, data *OperationData) context.Context {
	return context.WithValue(ctx, operationDataKey{}, data)
}

type itemDataKey struct{}

type ItemData struct {
	Index  int
	NodeID string
}

func WithItemData(ctx context.Context, data *ItemData) context.Context {
	return context.WithValue(ctx, itemDataKey{}, data)
}
