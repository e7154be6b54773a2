// Package params defines the parameter store contract: named secrets with
// arbitrary JSON values, confidential at rest, resolved through a
// registered unlock method on first use.
package params

import (
	"context"
	"iter"
)

// Store is the parameter store contract. Names are logical secret names;
// values are arbitrary JSON-encodable values.
type Store interface {
	// Get returns the value stored under name, or a NOT_FOUND error.
	Get(ctx context.Context, name string) (any, error)

	// Set stores value under name, replacing any previous value.
	Set(ctx context.Context, name string, value any) error

	// Delete removes name from the store. Deleting an absent name is a
	// no-op.
	Delete(ctx context.Context, name string) error

	// Contains reports whether name exists without decrypting anything.
	Contains(ctx context.Context, name string) (bool, error)

	// Items streams the store's (name, value) pairs, decrypting one
	// record per step. The sequence is finite and single-pass; each call
	// re-scans from scratch, so it is not a consistent snapshot when
	// writes happen concurrently. A non-nil error ends the sequence.
	Items(ctx context.Context) iter.Seq2[Item, error]

	// Keys and Values collect the projections of Items.
	Keys(ctx context.Context) ([]string, error)
	Values(ctx context.Context) ([]any, error)
}

// Item is one (name, value) pair from a store enumeration.
type Item struct {
	Name  string
	Value any
}

// Session carries the caller-facing configuration for a parameter store.
// Sessions from parci.NewSession start read-only; mutating operations
// require clearing ReadOnly before the first write.
type Session struct {
	// DBPath is the filesystem location of the backing database.
	DBPath string

	// Driver selects the store implementation. "local" is the only
	// driver; an empty string means "local".
	Driver string

	// ReadOnly gates Set and Delete.
	ReadOnly bool

	// Method names the unlock method to resolve keys with. Empty means
	// the persisted default-open-method.
	Method string

	// Password, when non-empty, is used for the password unlock method
	// instead of prompting. Intended for non-interactive use.
	Password string

	// Slot is the hardware token challenge-response slot used when
	// registering a token. Zero means slot 2.
	Slot int
}
