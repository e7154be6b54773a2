package local

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/text/unicode/norm"
)

const (
	// KeySize is the width of every symmetric key in the store: the KEK,
	// NameKey, and ValueKey.
	KeySize = 32

	// SaltSize matches libsodium's argon2id SALTBYTES.
	SaltSize = 16

	// Argon2id "sensitive" cost parameters: 4 passes over 1 GiB. These
	// are persisted per unlock record so existing records stay
	// decryptable if the defaults ever change.
	OpsLimitSensitive = 4
	MemLimitSensitive = 1 << 20 // KiB
)

// deriveKey runs Argon2id over a factor (password bytes, token response)
// and salt, producing a key-encryption key.
func deriveKey(factor, salt []byte, opslimit, memlimit uint32) *[KeySize]byte {
	raw := argon2.IDKey(factor, salt, opslimit, memlimit, 1, KeySize)
	var key [KeySize]byte
	copy(key[:], raw)
	zero(raw)
	return &key
}

// normalizePassword canonicalizes a passphrase to NFKC before derivation.
// Registration and every later unlock must agree on the normal form or
// the derived KEK silently differs.
func normalizePassword(password string) []byte {
	return []byte(norm.NFKC.String(password))
}

// randomBytes returns n bytes from the system CSPRNG.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

// randomKey returns a fresh uniformly random key.
func randomKey() (*[KeySize]byte, error) {
	var key [KeySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return &key, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
