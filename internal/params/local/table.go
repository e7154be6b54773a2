package local

import "context"

// Table is the contract the encrypted store requires from the generic
// key/value collaborator: a durable string map scoped by a table name,
// with each write committed before the call returns. Satisfied by
// *storage.KV; tests substitute an in-memory map.
type Table interface {
	// Get returns the value under key, or storage.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set upserts, replace-on-conflict.
	Set(ctx context.Context, key, value string) error

	// Delete removes key; absent keys are a no-op.
	Delete(ctx context.Context, key string) error

	// Contains reports key existence.
	Contains(ctx context.Context, key string) (bool, error)

	// Values enumerates every value in the table.
	Values(ctx context.Context) ([]string, error)
}
