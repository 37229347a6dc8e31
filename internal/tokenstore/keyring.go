package tokenstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const defaultKeyringService = "authclient"

// KeyringStore keeps the credential in the OS keychain/credential manager
type KeyringStore struct {
	service string
	key     string
}

// NewKeyringStore creates a keyring-backed store for one profile
func NewKeyringStore(service, profile string) *KeyringStore {
	if service == "" {
		service = defaultKeyringService
	}
	return &KeyringStore{
		service: service,
		key:     keyringKey(profile),
	}
}

// keyringKey returns a unique key for storing tokens per profile
func keyringKey(profile string) string {
	return fmt.Sprintf("access-token-%s", profile)
}

// Load retrieves the credential from the keychain
func (k *KeyringStore) Load() (string, error) {
	token, err := keyring.Get(k.service, k.key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// Save persists the credential in the keychain
func (k *KeyringStore) Save(token string) error {
	if err := keyring.Set(k.service, k.key, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Delete removes the credential from the keychain
func (k *KeyringStore) Delete() error {
	if err := keyring.Delete(k.service, k.key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
