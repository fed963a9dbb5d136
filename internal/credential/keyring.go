package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "teamhub"

// tokenKey is the keyring entry holding the bearer token. The token and
// the theme preference are the only client state that survives a restart.
const tokenKey = "bearer-token"

// ErrNotFound is returned when no credential is stored.
var ErrNotFound = errors.New("credential not found")

// Store persists the bearer token across sessions.
type Store interface {
	Token() (string, error)
	SetToken(token string) error
	DeleteToken() error
}

// KeyringStore implements Store on top of the system keyring.
type KeyringStore struct{}

// NewKeyringStore returns a Store backed by the system keyring.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/teamhub/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("teamhub-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Token retrieves the stored bearer token.
func (s *KeyringStore) Token() (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(tokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("getting token: %w", err)
	}

	return string(item.Data), nil
}

// SetToken stores the bearer token.
func (s *KeyringStore) SetToken(token string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  tokenKey,
		Data: []byte(token),
	})
	if err != nil {
		return fmt.Errorf("setting token: %w", err)
	}

	return nil
}

// DeleteToken removes the stored bearer token. A missing entry is not
// an error.
func (s *KeyringStore) DeleteToken() error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(tokenKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting token: %w", err)
	}

	return nil
}
