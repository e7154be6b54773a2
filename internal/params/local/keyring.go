package local

import (
	"fmt"

	"github.com/99designs/keyring"
)

// Fixed service/account pair for the keyring unlock method.
const (
	keyringService = "parci"
	keyringAccount = "parci"
)

// systemKeyring stores the keyring-method KEK in the OS credential store.
type systemKeyring struct {
	ring keyring.Keyring
}

// OpenSystemKeyring opens the platform credential store (Keychain,
// libsecret, wincred, ...) under the parci service name.
func OpenSystemKeyring() (Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &systemKeyring{ring: ring}, nil
}

func (k *systemKeyring) Get() (string, error) {
	item, err := k.ring.Get(keyringAccount)
	if err != nil {
		return "", fmt.Errorf("get keyring item: %w", err)
	}
	return string(item.Data), nil
}

func (k *systemKeyring) Set(value string) error {
	err := k.ring.Set(keyring.Item{
		Key:   keyringAccount,
		Label: "parci parameter store key",
		Data:  []byte(value),
	})
	if err != nil {
		return fmt.Errorf("set keyring item: %w", err)
	}
	return nil
}
