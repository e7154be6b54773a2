package local

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/jeramey/parci/pkg/params"
)

// KeyPair holds the two store-wide secrets for an unlocked session.
// NameKey drives the lookup digest, ValueKey drives record encryption.
// Every registered unlock method must decrypt to the same pair.
type KeyPair struct {
	Name  *[KeySize]byte
	Value *[KeySize]byte
}

// lookupDigest computes the pseudonymous table key for a secret name: a
// keyed BLAKE2b-256 over the JSON encoding of the name, hex-encoded.
// Deterministic for lookups, infeasible to invert without NameKey, so the
// table key reveals nothing about the logical name.
func lookupDigest(nameKey *[KeySize]byte, name string) (string, error) {
	canon, err := json.Marshal(name)
	if err != nil {
		return "", fmt.Errorf("encode name: %w", err)
	}
	h, err := blake2b.New256(nameKey[:])
	if err != nil {
		return "", fmt.Errorf("keyed blake2b: %w", err)
	}
	h.Write(canon)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sealRecord encrypts a (name, value) pair under ValueKey with a fresh
// nonce and base64-encodes the result for the text KV backend. The name
// travels inside the ciphertext so enumeration can recover it; the pair
// is a two-element JSON array, which is exact and unambiguous since both
// elements are complete JSON values.
func sealRecord(valueKey *[KeySize]byte, name string, value any) (string, error) {
	pair, err := json.Marshal([2]any{name, value})
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	blob, err := seal(pair, valueKey)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// openRecord reverses sealRecord. Any failure along the way (bad base64,
// bad MAC, malformed pair) collapses to AUTH_FAILED.
func openRecord(valueKey *[KeySize]byte, encoded string) (string, any, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	plaintext, err := unseal(blob, valueKey)
	if err != nil {
		return "", nil, err
	}

	var pair [2]json.RawMessage
	if err := json.Unmarshal(plaintext, &pair); err != nil {
		return "", nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	var name string
	if err := json.Unmarshal(pair[0], &name); err != nil {
		return "", nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	var value any
	if err := json.Unmarshal(pair[1], &value); err != nil {
		return "", nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	return name, value, nil
}
