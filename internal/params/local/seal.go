package local

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/jeramey/parci/pkg/params"
)

// NonceSize is the NaCl secretbox nonce width.
const NonceSize = 24

// seal encrypts plaintext with XSalsa20-Poly1305 under key, using a fresh
// random nonce. The nonce is prepended to the returned blob.
func seal(plaintext []byte, key *[KeySize]byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// unseal reverses seal. Tampering and a wrong key are indistinguishable:
// both return AUTH_FAILED, never partial plaintext.
func unseal(blob []byte, key *[KeySize]byte) ([]byte, error) {
	if len(blob) < NonceSize {
		return nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	var nonce [NonceSize]byte
	copy(nonce[:], blob[:NonceSize])
	plaintext, ok := secretbox.Open(nil, blob[NonceSize:], &nonce, key)
	if !ok {
		return nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	return plaintext, nil
}

// unsealKey unseals a wrapped fixed-width key.
func unsealKey(blob []byte, kek *[KeySize]byte) (*[KeySize]byte, error) {
	raw, err := unseal(blob, kek)
	if err != nil {
		return nil, err
	}
	if len(raw) != KeySize {
		return nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	var key [KeySize]byte
	copy(key[:], raw)
	zero(raw)
	return &key, nil
}
