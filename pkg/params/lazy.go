package params

import (
	"context"
	"iter"
	"sync"
)

// OpenFunc resolves an unlock method and returns an unlocked Store. It may
// block on operator or device input.
type OpenFunc func(ctx context.Context) (Store, error)

// NewLazy wraps an OpenFunc in a Store that stays locked until the first
// operation. A successful unlock is cached for the lifetime of the store;
// a failed unlock is not, so the next operation attempts it again (a
// mistyped password should not poison the process).
func NewLazy(sess *Session, open OpenFunc) Store {
	return &lazyStore{sess: sess, open: open}
}

type lazyStore struct {
	sess *Session
	open OpenFunc

	mu    sync.Mutex
	inner Store
}

func (s *lazyStore) unlock(ctx context.Context) (Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inner != nil {
		return s.inner, nil
	}
	inner, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	s.inner = inner
	return inner, nil
}

func (s *lazyStore) Get(ctx context.Context, name string) (any, error) {
	inner, err := s.unlock(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Get(ctx, name)
}

func (s *lazyStore) Set(ctx context.Context, name string, value any) error {
	if s.sess.ReadOnly {
		return NewError(ErrCodeReadOnly, "parameter store is read-only")
	}
	inner, err := s.unlock(ctx)
	if err != nil {
		return err
	}
	return inner.Set(ctx, name, value)
}

func (s *lazyStore) Delete(ctx context.Context, name string) error {
	if s.sess.ReadOnly {
		return NewError(ErrCodeReadOnly, "parameter store is read-only")
	}
	inner, err := s.unlock(ctx)
	if err != nil {
		return err
	}
	return inner.Delete(ctx, name)
}

func (s *lazyStore) Contains(ctx context.Context, name string) (bool, error) {
	inner, err := s.unlock(ctx)
	if err != nil {
		return false, err
	}
	return inner.Contains(ctx, name)
}

func (s *lazyStore) Keys(ctx context.Context) ([]string, error) {
	inner, err := s.unlock(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Keys(ctx)
}

func (s *lazyStore) Values(ctx context.Context) ([]any, error) {
	inner, err := s.unlock(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Values(ctx)
}

func (s *lazyStore) Items(ctx context.Context) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		inner, err := s.unlock(ctx)
		if err != nil {
			yield(Item{}, err)
			return
		}
		for it, err := range inner.Items(ctx) {
			if !yield(it, err) {
				return
			}
		}
	}
}
