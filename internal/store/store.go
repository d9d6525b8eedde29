// Package store defines the shared room store every client coordinates
// through: a keyed document store with partial-field patches and
// subscription pushes. There are no multi-key transactions; callers get
// convergence from idempotent writes, not from locking.
package store

import (
	"context"
	"errors"
	"strings"
)

// Doc is a decoded JSON document.
type Doc = map[string]any

var (
	ErrExists   = errors.New("store: key already exists")
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable covers transient transport failures. Callers retry on
	// the next subscription push or an explicit user retry, never crash.
	ErrUnavailable = errors.New("store: unavailable")
)

// SnapshotFunc receives the full current document on every change beneath
// a subscribed prefix. doc is nil when the document was deleted.
type SnapshotFunc func(key string, doc Doc)

// UnsubscribeFunc detaches a subscription. Safe to call more than once.
type UnsubscribeFunc func()

// Store is the contract consumed by the game core. Keys are /-separated
// paths ("rooms/K7XQ2"). Patch field names may be dotted paths
// ("players.abc.name"), creating intermediate maps as needed.
type Store interface {
	// Create writes a new document, failing with ErrExists if the key is
	// already present.
	Create(ctx context.Context, key string, doc Doc) error

	// Patch merges fields into an existing document. It creates nothing:
	// patching an absent key fails with ErrNotFound.
	Patch(ctx context.Context, key string, fields Doc) error

	// Delete removes a document. Deleting an absent key is a success.
	Delete(ctx context.Context, key string) error

	// ReadOnce returns a point-in-time snapshot of one document.
	ReadOnce(ctx context.Context, key string) (Doc, error)

	// List returns every document whose key equals the prefix or lies
	// beneath it, keyed by full key.
	List(ctx context.Context, prefix string) (map[string]Doc, error)

	// Subscribe pushes the current document immediately and again on every
	// change beneath the prefix.
	Subscribe(ctx context.Context, prefix string, fn SnapshotFunc) (UnsubscribeFunc, error)
}

// SetPath writes v into doc at a dotted path, creating intermediate maps.
// A non-map intermediate value is replaced.
func SetPath(doc Doc, path string, v any) {
	cur := doc
	for {
		head, rest, found := strings.Cut(path, ".")
		if !found {
			cur[path] = v
			return
		}
		next, ok := cur[head].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[head] = next
		}
		cur, path = next, rest
	}
}
