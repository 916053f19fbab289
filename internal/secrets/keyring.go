// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"

	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

// Store provides secure secret storage. The service only needs to put API
// keys in and get them back out.
type Store interface {
	// Store saves a secret value under the given service and key.
	Store(service, key, value string) error

	// Retrieve fetches the secret value for the given service and key.
	// Returns a CodeSecretNotFound error if the key does not exist.
	Retrieve(service, key string) (string, error)
}

// KeyringStore implements Store using the OS keyring via zalando/go-keyring.
// On macOS it uses Keychain, on Linux secret-service (D-Bus), and on Windows
// the Credential Manager.
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Store(service, key, value string) error {
	if service == "" {
		return auroraerr.New(auroraerr.CodeSecretInvalidInput, "secret store: service must not be empty")
	}
	if key == "" {
		return auroraerr.New(auroraerr.CodeSecretInvalidInput, "secret store: key must not be empty")
	}

	if err := keyring.Set(service, key, value); err != nil {
		return auroraerr.Wrapf(err, auroraerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return nil
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if service == "" {
		return "", auroraerr.New(auroraerr.CodeSecretInvalidInput, "secret retrieve: service must not be empty")
	}
	if key == "" {
		return "", auroraerr.New(auroraerr.CodeSecretInvalidInput, "secret retrieve: key must not be empty")
	}

	val, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", auroraerr.Errorf(auroraerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return "", auroraerr.Wrapf(err, auroraerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// URI scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI extracts service and key from a keyring://service/key URI.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", auroraerr.Errorf(auroraerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	path := strings.TrimPrefix(uri, keyringScheme)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", auroraerr.Errorf(auroraerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}

	return parts[0], parts[1], nil
}

// ResolveKeyringURI resolves a keyring:// URI to its secret value. A value
// that is not a keyring URI is returned unchanged, so config fields can hold
// either a literal API key or a keyring reference.
func ResolveKeyringURI(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	// Keep the store's error code intact so callers can tell a missing
	// secret from a backend failure.
	return store.Retrieve(service, key)
}
