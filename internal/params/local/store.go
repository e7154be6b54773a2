// Package local implements the encrypted local parameter store: secret
// names and values are confidential at rest, lookups go through a keyed
// one-way digest, and the two store-wide keys unlock through any of the
// registered methods (password, OS keyring, hardware token).
package local

import (
	"context"
	"errors"
	"iter"

	"github.com/jeramey/parci/internal/storage"
	"github.com/jeramey/parci/pkg/params"
)

// ParameterStore is an unlocked encrypted store over a params table.
// Construct via Open (or directly in tests with resolved keys).
type ParameterStore struct {
	kv   Table
	keys *KeyPair
}

// NewParameterStore returns a store over kv using an already-resolved key
// pair.
func NewParameterStore(kv Table, keys *KeyPair) *ParameterStore {
	return &ParameterStore{kv: kv, keys: keys}
}

func (s *ParameterStore) Get(ctx context.Context, name string) (any, error) {
	digest, err := lookupDigest(s.keys.Name, name)
	if err != nil {
		return nil, params.NewError(params.ErrCodeStore, err.Error())
	}
	encoded, err := s.kv.Get(ctx, digest)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, params.NewErrorf(params.ErrCodeNotFound, "no parameter named %q", name)
	}
	if err != nil {
		return nil, params.NewError(params.ErrCodeStore, "read parameter").WithCause(err)
	}
	_, value, err := openRecord(s.keys.Value, encoded)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *ParameterStore) Set(ctx context.Context, name string, value any) error {
	digest, err := lookupDigest(s.keys.Name, name)
	if err != nil {
		return params.NewError(params.ErrCodeStore, err.Error())
	}
	encoded, err := sealRecord(s.keys.Value, name, value)
	if err != nil {
		return params.NewError(params.ErrCodeStore, err.Error())
	}
	if err := s.kv.Set(ctx, digest, encoded); err != nil {
		return params.NewError(params.ErrCodeStore, "write parameter").WithCause(err)
	}
	return nil
}

func (s *ParameterStore) Delete(ctx context.Context, name string) error {
	digest, err := lookupDigest(s.keys.Name, name)
	if err != nil {
		return params.NewError(params.ErrCodeStore, err.Error())
	}
	if err := s.kv.Delete(ctx, digest); err != nil {
		return params.NewError(params.ErrCodeStore, "delete parameter").WithCause(err)
	}
	return nil
}

func (s *ParameterStore) Contains(ctx context.Context, name string) (bool, error) {
	digest, err := lookupDigest(s.keys.Name, name)
	if err != nil {
		return false, params.NewError(params.ErrCodeStore, err.Error())
	}
	ok, err := s.kv.Contains(ctx, digest)
	if err != nil {
		return false, params.NewError(params.ErrCodeStore, "check parameter").WithCause(err)
	}
	return ok, nil
}

// Items streams every record in the table, decrypting one per step.
// Names live inside the ciphertext, so enumeration is a full scan; each
// call re-reads the table from scratch.
func (s *ParameterStore) Items(ctx context.Context) iter.Seq2[params.Item, error] {
	return func(yield func(params.Item, error) bool) {
		encoded, err := s.kv.Values(ctx)
		if err != nil {
			yield(params.Item{}, params.NewError(params.ErrCodeStore, "scan parameters").WithCause(err))
			return
		}
		for _, enc := range encoded {
			name, value, err := openRecord(s.keys.Value, enc)
			if err != nil {
				yield(params.Item{}, err)
				return
			}
			if !yield(params.Item{Name: name, Value: value}, nil) {
				return
			}
		}
	}
}

func (s *ParameterStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	for it, err := range s.Items(ctx) {
		if err != nil {
			return nil, err
		}
		keys = append(keys, it.Name)
	}
	return keys, nil
}

func (s *ParameterStore) Values(ctx context.Context) ([]any, error) {
	var values []any
	for it, err := range s.Items(ctx) {
		if err != nil {
			return nil, err
		}
		values = append(values, it.Value)
	}
	return values, nil
}
