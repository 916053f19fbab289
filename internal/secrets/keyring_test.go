// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamnesis-dev/aurora/internal/secrets"
	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

// fakeStore is an in-memory Store for resolution tests.
type fakeStore struct {
	values map[string]string
}

func (f *fakeStore) Store(service, key, value string) error {
	f.values[service+"/"+key] = value
	return nil
}

func (f *fakeStore) Retrieve(service, key string) (string, error) {
	v, ok := f.values[service+"/"+key]
	if !ok {
		return "", auroraerr.Errorf(auroraerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	return v, nil
}

func TestIsKeyringURI(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"valid URI", "keyring://aurora/anthropic-api-key", true},
		{"literal value", "sk-abc123", false},
		{"env var reference", "${ANTHROPIC_API_KEY}", false},
		{"empty string", "", false},
		{"just scheme", "keyring://", true},
		{"other scheme", "vault://secret/key", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, secrets.IsKeyringURI(tt.value))
		})
	}
}

func TestParseKeyringURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"valid", "keyring://aurora/api-key", "aurora", "api-key", false},
		{"slashes in key", "keyring://aurora/path/to/key", "aurora", "path/to/key", false},
		{"not a keyring URI", "vault://secret/key", "", "", true},
		{"missing key", "keyring://aurora/", "", "", true},
		{"missing service", "keyring:///key", "", "", true},
		{"no path", "keyring://aurora", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, key, err := secrets.ParseKeyringURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, auroraerr.HasCode(err, auroraerr.CodeSecretInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantService, svc)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestResolveKeyringURI(t *testing.T) {
	store := &fakeStore{values: map[string]string{
		"aurora/anthropic-api-key": "sk-real-key",
	}}

	t.Run("resolves stored secret", func(t *testing.T) {
		got, err := secrets.ResolveKeyringURI(store, "keyring://aurora/anthropic-api-key")
		require.NoError(t, err)
		assert.Equal(t, "sk-real-key", got)
	})

	t.Run("passes literal through", func(t *testing.T) {
		got, err := secrets.ResolveKeyringURI(store, "sk-literal")
		require.NoError(t, err)
		assert.Equal(t, "sk-literal", got)
	})

	t.Run("missing secret errors", func(t *testing.T) {
		_, err := secrets.ResolveKeyringURI(store, "keyring://aurora/missing")
		require.Error(t, err)
		assert.True(t, auroraerr.HasCode(err, auroraerr.CodeSecretNotFound))
	})
}
