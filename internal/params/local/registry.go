package local

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jeramey/parci/internal/storage"
	"github.com/jeramey/parci/pkg/params"
)

// Config table keys and method names.
const (
	methodPassword = "password"
	methodKeyring  = "keyring"
	methodYubiKey  = "yubikey"

	defaultMethodKey = "default-open-method"
)

// unlockRecord is the persisted config record for one unlock method: the
// KDF parameters plus both store keys wrapped under the method's KEK.
// Binary fields are base64. Immutable once written, except by
// re-registration.
type unlockRecord struct {
	Salt      string `json:"salt,omitempty"`
	KeySize   int    `json:"keysize,omitempty"`
	OpsLimit  uint32 `json:"opslimit,omitempty"`
	MemLimit  uint32 `json:"memlimit,omitempty"`
	NameKey   string `json:"name_key"`
	ValueKey  string `json:"value_key"`
	Challenge string `json:"challenge,omitempty"`
	Slot      int    `json:"slot,omitempty"`
}

// PromptFunc reads a line of secret input from the operator. It blocks on
// operator I/O; callers wanting a timeout wrap ctx around the whole
// operation.
type PromptFunc func(prompt string) (string, error)

// Keyring is the OS credential store seam. The stored value is the
// base64-encoded KEK for the keyring unlock method.
type Keyring interface {
	Get() (string, error)
	Set(value string) error
}

// ChallengeResponder is the hardware token seam: a device that computes
// HMAC-SHA1 over a challenge on a configured slot.
type ChallengeResponder interface {
	Serial(ctx context.Context) (string, error)
	Respond(ctx context.Context, slot int, challenge []byte) ([]byte, error)
}

// Registry manages the unlock records in the config table: bootstrap
// (Init), additional method registration, and key resolution. Any of
// Prompt, Ring, and Device may be nil when the corresponding method is
// not used.
type Registry struct {
	Config   Table
	Prompt   PromptFunc
	Ring     Keyring
	Device   ChallengeResponder
	Password string // pre-supplied password, empty means prompt

	// OpsLimit and MemLimit override the Argon2id cost for new records.
	// Zero means the sensitive defaults; existing records always use
	// their persisted parameters.
	OpsLimit uint32
	MemLimit uint32
}

func (r *Registry) cost() (uint32, uint32) {
	ops, mem := r.OpsLimit, r.MemLimit
	if ops == 0 {
		ops = OpsLimitSensitive
	}
	if mem == 0 {
		mem = MemLimitSensitive
	}
	return ops, mem
}

// Init bootstraps the store: generates NameKey and ValueKey, wraps them
// under a password-derived KEK, and writes the "password" unlock record.
// The record is built fully in memory and written with a single Set.
// An empty password prompts twice and requires both entries to match; a
// non-empty password is taken as already confirmed by the caller.
func (r *Registry) Init(ctx context.Context, password string) error {
	exists, err := r.Config.Contains(ctx, methodPassword)
	if err != nil {
		return params.NewError(params.ErrCodeStore, "check config").WithCause(err)
	}
	if exists {
		return params.NewError(params.ErrCodeAlreadyInitialized, "parameter database already initialized")
	}

	if password == "" {
		first, err := r.Prompt("Password: ")
		if err != nil {
			return err
		}
		again, err := r.Prompt("Password (again): ")
		if err != nil {
			return err
		}
		if first != again {
			return params.NewError(params.ErrCodeInputMismatch, "passwords do not match")
		}
		password = first
	}

	salt, err := randomBytes(SaltSize)
	if err != nil {
		return err
	}
	ops, mem := r.cost()
	kek := deriveKey(normalizePassword(password), salt, ops, mem)

	keys, err := generateKeyPair()
	if err != nil {
		return err
	}
	rec, err := wrapKeys(kek, keys)
	if err != nil {
		return err
	}
	rec.Salt = base64.StdEncoding.EncodeToString(salt)
	rec.KeySize = KeySize
	rec.OpsLimit = ops
	rec.MemLimit = mem

	return r.writeRecord(ctx, methodPassword, methodPassword, rec)
}

// RegisterKeyring registers the OS keyring unlock method. The key pair
// must come from a successful Resolve: registration never accepts keys
// from outside the trust chain.
func (r *Registry) RegisterKeyring(ctx context.Context, keys *KeyPair) error {
	kek, err := randomKey()
	if err != nil {
		return err
	}
	rec, err := wrapKeys(kek, keys)
	if err != nil {
		return err
	}

	// Place the KEK in the credential store before the record exists, so
	// a half-finished registration leaves a useless keyring entry rather
	// than an unopenable record.
	if err := r.Ring.Set(base64.StdEncoding.EncodeToString(kek[:])); err != nil {
		return fmt.Errorf("store key in keyring: %w", err)
	}
	return r.writeRecord(ctx, methodKeyring, methodKeyring, rec)
}

// RegisterYubiKey registers the connected hardware token. A fresh random
// challenge is stored alongside the record; the KEK is the Argon2id
// derivation of the device's HMAC-SHA1 response to it. The record name
// carries the device serial so several tokens can coexist.
func (r *Registry) RegisterYubiKey(ctx context.Context, keys *KeyPair, slot int) error {
	if slot == 0 {
		slot = 2
	}
	serial, err := r.Device.Serial(ctx)
	if err != nil {
		return fmt.Errorf("locate token: %w", err)
	}

	challenge, err := randomBytes(64)
	if err != nil {
		return err
	}
	salt, err := randomBytes(SaltSize)
	if err != nil {
		return err
	}
	response, err := r.Device.Respond(ctx, slot, challenge)
	if err != nil {
		return fmt.Errorf("token challenge-response: %w", err)
	}
	ops, mem := r.cost()
	kek := deriveKey(response, salt, ops, mem)
	zero(response)

	rec, err := wrapKeys(kek, keys)
	if err != nil {
		return err
	}
	rec.Salt = base64.StdEncoding.EncodeToString(salt)
	rec.KeySize = KeySize
	rec.OpsLimit = ops
	rec.MemLimit = mem
	rec.Challenge = base64.StdEncoding.EncodeToString(challenge)
	rec.Slot = slot

	return r.writeRecord(ctx, methodYubiKey+":"+serial, methodYubiKey, rec)
}

// Resolve looks up an unlock record, derives its KEK, and unwraps the
// store keys. An empty method means the persisted default-open-method.
func (r *Registry) Resolve(ctx context.Context, method string) (*KeyPair, error) {
	if method == "" {
		def, err := r.Config.Get(ctx, defaultMethodKey)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, params.NewError(params.ErrCodeNotInitialized, "parameter database is not initialized")
		}
		if err != nil {
			return nil, params.NewError(params.ErrCodeStore, "read default method").WithCause(err)
		}
		method = def
	}

	switch method {
	case methodPassword:
		return r.resolvePassword(ctx)
	case methodKeyring:
		return r.resolveKeyring(ctx)
	case methodYubiKey:
		return r.resolveYubiKey(ctx)
	default:
		return nil, params.NewErrorf(params.ErrCodeInvalidMethod, "unknown unlock method %q", method)
	}
}

func (r *Registry) resolvePassword(ctx context.Context) (*KeyPair, error) {
	rec, err := r.loadRecord(ctx, methodPassword)
	if err != nil {
		return nil, err
	}
	password := r.Password
	if password == "" {
		password, err = r.Prompt("Password: ")
		if err != nil {
			return nil, err
		}
	}
	salt, err := base64.StdEncoding.DecodeString(rec.Salt)
	if err != nil {
		return nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	kek := deriveKey(normalizePassword(password), salt, rec.OpsLimit, rec.MemLimit)
	return unwrapKeys(kek, rec)
}

func (r *Registry) resolveKeyring(ctx context.Context) (*KeyPair, error) {
	rec, err := r.loadRecord(ctx, methodKeyring)
	if err != nil {
		return nil, err
	}
	keystr, err := r.Ring.Get()
	if err != nil {
		return nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed").WithCause(err)
	}
	raw, err := base64.StdEncoding.DecodeString(keystr)
	if err != nil || len(raw) != KeySize {
		return nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	var kek [KeySize]byte
	copy(kek[:], raw)
	zero(raw)
	return unwrapKeys(&kek, rec)
}

func (r *Registry) resolveYubiKey(ctx context.Context) (*KeyPair, error) {
	serial, err := r.Device.Serial(ctx)
	if err != nil {
		return nil, fmt.Errorf("locate token: %w", err)
	}
	rec, err := r.loadRecord(ctx, methodYubiKey+":"+serial)
	if err != nil {
		return nil, err
	}
	challenge, err := base64.StdEncoding.DecodeString(rec.Challenge)
	if err != nil {
		return nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	salt, err := base64.StdEncoding.DecodeString(rec.Salt)
	if err != nil {
		return nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	response, err := r.Device.Respond(ctx, rec.Slot, challenge)
	if err != nil {
		return nil, fmt.Errorf("token challenge-response: %w", err)
	}
	kek := deriveKey(response, salt, rec.OpsLimit, rec.MemLimit)
	zero(response)
	return unwrapKeys(kek, rec)
}

// writeRecord persists a fully built record under name and only then
// moves the default-open-method pointer to method, so a failed
// registration never changes which method the store opens with.
func (r *Registry) writeRecord(ctx context.Context, name, method string, rec *unlockRecord) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return params.NewError(params.ErrCodeStore, "encode unlock record").WithCause(err)
	}
	if err := r.Config.Set(ctx, name, string(encoded)); err != nil {
		return params.NewError(params.ErrCodeStore, "write unlock record").WithCause(err)
	}
	if err := r.Config.Set(ctx, defaultMethodKey, method); err != nil {
		return params.NewError(params.ErrCodeStore, "write default method").WithCause(err)
	}
	return nil
}

func (r *Registry) loadRecord(ctx context.Context, name string) (*unlockRecord, error) {
	encoded, err := r.Config.Get(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, params.NewErrorf(params.ErrCodeNotInitialized, "no unlock record for %q", name)
	}
	if err != nil {
		return nil, params.NewError(params.ErrCodeStore, "read unlock record").WithCause(err)
	}
	var rec unlockRecord
	if err := json.Unmarshal([]byte(encoded), &rec); err != nil {
		return nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	return &rec, nil
}

// generateKeyPair draws fresh NameKey and ValueKey from the CSPRNG.
func generateKeyPair() (*KeyPair, error) {
	nameKey, err := randomKey()
	if err != nil {
		return nil, err
	}
	valueKey, err := randomKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{Name: nameKey, Value: valueKey}, nil
}

// wrapKeys seals both store keys independently under the KEK, each with
// its own fresh nonce.
func wrapKeys(kek *[KeySize]byte, keys *KeyPair) (*unlockRecord, error) {
	nameCT, err := seal(keys.Name[:], kek)
	if err != nil {
		return nil, err
	}
	valueCT, err := seal(keys.Value[:], kek)
	if err != nil {
		return nil, err
	}
	return &unlockRecord{
		NameKey:  base64.StdEncoding.EncodeToString(nameCT),
		ValueKey: base64.StdEncoding.EncodeToString(valueCT),
	}, nil
}

// unwrapKeys reverses wrapKeys. A wrong KEK or a tampered record fails
// authentication; corrupted keys are never returned.
func unwrapKeys(kek *[KeySize]byte, rec *unlockRecord) (*KeyPair, error) {
	nameCT, err := base64.StdEncoding.DecodeString(rec.NameKey)
	if err != nil {
		return nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	valueCT, err := base64.StdEncoding.DecodeString(rec.ValueKey)
	if err != nil {
		return nil, params.NewError(params.ErrCodeAuthFailed, "authentication failed")
	}
	nameKey, err := unsealKey(nameCT, kek)
	if err != nil {
		return nil, err
	}
	valueKey, err := unsealKey(valueCT, kek)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Name: nameKey, Value: valueKey}, nil
}
