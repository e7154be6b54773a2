package local

import (
	"context"

	"github.com/jeramey/parci/internal/storage"
	"github.com/jeramey/parci/pkg/params"
)

// Table names inside the shared tkv relation.
const (
	configTable = "config"
	paramsTable = "params"
)

// Open unlocks the local parameter store for a session: it opens the
// backing database, resolves the session's unlock method (or the
// persisted default) to the store keys, and returns the unlocked store.
// The database stays open for the process lifetime, matching the
// single-session model.
func Open(ctx context.Context, sess *params.Session) (params.Store, error) {
	db, err := storage.Open(sess.DBPath)
	if err != nil {
		return nil, params.NewError(params.ErrCodeStore, "open parameter database").WithCause(err)
	}

	reg := newSessionRegistry(db, sess)
	keys, err := reg.Resolve(ctx, sess.Method)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewParameterStore(db.Table(paramsTable), keys), nil
}

// Init bootstraps a new parameter database for the session. The operator
// confirms the password by entering it twice; the session's pre-supplied
// password is deliberately not used here, so a typo'd environment
// variable cannot initialize a store nobody can unlock.
func Init(ctx context.Context, sess *params.Session) error {
	db, err := storage.Open(sess.DBPath)
	if err != nil {
		return params.NewError(params.ErrCodeStore, "open parameter database").WithCause(err)
	}
	defer db.Close()

	return newSessionRegistry(db, sess).Init(ctx, "")
}

// RegisterKeyring registers the OS keyring unlock method, bootstrapping
// trust by first resolving the keys through an existing method.
func RegisterKeyring(ctx context.Context, sess *params.Session) error {
	db, err := storage.Open(sess.DBPath)
	if err != nil {
		return params.NewError(params.ErrCodeStore, "open parameter database").WithCause(err)
	}
	defer db.Close()

	reg := newSessionRegistry(db, sess)
	keys, err := reg.Resolve(ctx, sess.Method)
	if err != nil {
		return err
	}
	return reg.RegisterKeyring(ctx, keys)
}

// RegisterYubiKey registers the connected hardware token, bootstrapping
// trust the same way.
func RegisterYubiKey(ctx context.Context, sess *params.Session) error {
	db, err := storage.Open(sess.DBPath)
	if err != nil {
		return params.NewError(params.ErrCodeStore, "open parameter database").WithCause(err)
	}
	defer db.Close()

	reg := newSessionRegistry(db, sess)
	keys, err := reg.Resolve(ctx, sess.Method)
	if err != nil {
		return err
	}
	return reg.RegisterYubiKey(ctx, keys, sess.Slot)
}

func newSessionRegistry(db *storage.DB, sess *params.Session) *Registry {
	return &Registry{
		Config:   db.Table(configTable),
		Prompt:   TerminalPrompt,
		Ring:     &lazyKeyring{},
		Device:   NewExecResponder(),
		Password: sess.Password,
	}
}

// lazyKeyring defers opening the OS credential store until a keyring
// operation actually happens, so password-only setups never touch it.
type lazyKeyring struct {
	ring Keyring
}

func (l *lazyKeyring) open() (Keyring, error) {
	if l.ring == nil {
		ring, err := OpenSystemKeyring()
		if err != nil {
			return nil, err
		}
		l.ring = ring
	}
	return l.ring, nil
}

func (l *lazyKeyring) Get() (string, error) {
	ring, err := l.open()
	if err != nil {
		return "", err
	}
	return ring.Get()
}

func (l *lazyKeyring) Set(value string) error {
	ring, err := l.open()
	if err != nil {
		return err
	}
	return ring.Set(value)
}
