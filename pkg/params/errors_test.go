package params

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormat(t *testing.T) {
	err := NewError(ErrCodeAuthFailed, "authentication failed")
	assert.Equal(t, "[AUTH_FAILED] authentication failed", err.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := NewError(ErrCodeStore, "write parameter").WithCause(cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsCode(t *testing.T) {
	err := NewErrorf(ErrCodeNotFound, "no parameter named %q", "token")
	assert.True(t, IsCode(err, ErrCodeNotFound))
	assert.False(t, IsCode(err, ErrCodeAuthFailed))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeNotFound))
	assert.False(t, IsCode(nil, ErrCodeNotFound))

	// Codes survive fmt wrapping.
	wrapped := fmt.Errorf("open store: %w", err)
	assert.True(t, IsCode(wrapped, ErrCodeNotFound))
}
