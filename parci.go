// Package parci is a small CI/automation toolkit: taskfile programs build
// a task DAG with pkg/task, run things in containers with pkg/docker, and
// read secrets from the encrypted parameter store opened here.
package parci

import (
	"context"

	"github.com/jeramey/parci/internal/config"
	"github.com/jeramey/parci/internal/params/local"
	"github.com/jeramey/parci/pkg/params"
)

// NewSession builds a parameter store session from the environment
// (PARCI_PARAMETER_DB and friends). The session starts read-only.
func NewSession() *params.Session {
	cfg := config.Load()
	return &params.Session{
		DBPath:   cfg.ParameterDB,
		Driver:   cfg.ParameterDriver,
		ReadOnly: true,
		Password: cfg.ParameterPassword,
	}
}

// OpenParameterStore returns a parameter store for the session. The store
// stays locked until the first operation; unlocking may prompt for a
// password or touch a hardware token.
func OpenParameterStore(sess *params.Session) (params.Store, error) {
	driver := sess.Driver
	if driver == "" {
		driver = "local"
	}
	if driver != "local" {
		return nil, params.NewErrorf(params.ErrCodeInvalidMethod, "unknown parameter driver %q", driver)
	}
	return params.NewLazy(sess, func(ctx context.Context) (params.Store, error) {
		return local.Open(ctx, sess)
	}), nil
}
