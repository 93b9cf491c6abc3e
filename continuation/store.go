package continuation

import (
	"context"

	"github.com/ggoodman/opcua-pseudosession-go/ua"
)

// Entry is the state a continuation point owns: the references not yet
// delivered, in traversal order, and the page size that produced them.
type Entry struct {
	References []ua.ReferenceDescription `json:"references"`
	MaxPerPage int                       `json:"maxPerPage"`
}

// Store is the token table behind a Manager. Keys are opaque strings built
// by the Manager; implementations treat them as plain keys.
//
// Implementations MUST be safe for concurrent use, and Take MUST be atomic:
// of any number of concurrent Take calls for one key at most one observes
// the entry.
type Store interface {
	// Put stores e under key, replacing nothing: keys are freshly minted.
	Put(ctx context.Context, key string, e Entry) error

	// Take removes and returns the entry for key. ok is false when the key
	// is unknown, expired, or was evicted.
	Take(ctx context.Context, key string) (e Entry, ok bool, err error)

	// DeletePrefix removes every entry whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Close releases backend resources.
	Close() error
}
