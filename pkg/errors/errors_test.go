// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := auroraerr.New(
		auroraerr.CodeAgentLoopInvalidInput,
		"message must not be blank",
		auroraerr.FieldSessionID("sess-123"),
		auroraerr.Field("tool", "list_medical_cases"),
	)

	require.Error(t, err)
	assert.Equal(t, auroraerr.CodeAgentLoopInvalidInput, auroraerr.CodeOf(err))
	assert.True(t, auroraerr.HasCode(err, auroraerr.CodeAgentLoopInvalidInput))
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("connection refused")
	err := auroraerr.Errorf(auroraerr.CodeCasesQueryFailure, "listing cases: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, auroraerr.CodeCasesQueryFailure, auroraerr.CodeOf(err))
}

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := auroraerr.Wrap(
		root,
		auroraerr.CodeStoreSessionNotFound,
		"loading session",
		auroraerr.FieldSessionID("sess-42"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, auroraerr.CodeStoreSessionNotFound, auroraerr.CodeOf(err))
	assert.True(t, auroraerr.IsNotFound(err))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, auroraerr.Wrap(nil, auroraerr.CodeStoreDatabaseFailure, "ignored"))
	assert.NoError(t, auroraerr.Wrapf(nil, auroraerr.CodeStoreDatabaseFailure, "ignored %d", 1))
	assert.NoError(t, auroraerr.With(nil, auroraerr.Field("k", "v")))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, auroraerr.Code(""), auroraerr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, auroraerr.Code(""), auroraerr.CodeOf(nil))
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", auroraerr.New(auroraerr.CodeCasesNotFound, "x"), auroraerr.IsNotFound, true},
		{"invalid input", auroraerr.New(auroraerr.CodeAgentLoopInvalidInput, "x"), auroraerr.IsInvalidInput, true},
		{"not configured", auroraerr.New(auroraerr.CodeProviderNotConfigured, "x"), auroraerr.IsNotConfigured, true},
		{"upstream", auroraerr.New(auroraerr.CodeProviderUpstreamFailure, "x"), auroraerr.IsUpstreamFailure, true},
		{"upstream is not not-found", auroraerr.New(auroraerr.CodeProviderUpstreamFailure, "x"), auroraerr.IsNotFound, false},
		{"plain error matches nothing", stderrors.New("x"), auroraerr.IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", auroraerr.New(auroraerr.CodeCasesNotFound, "x"), http.StatusNotFound},
		{"invalid input", auroraerr.New(auroraerr.CodeAgentLoopInvalidInput, "x"), http.StatusBadRequest},
		{"not configured", auroraerr.New(auroraerr.CodeProviderNotConfigured, "x"), http.StatusServiceUnavailable},
		{"upstream failure", auroraerr.New(auroraerr.CodeProviderUpstreamFailure, "x"), http.StatusBadGateway},
		{"generic failure", auroraerr.New(auroraerr.CodeAgentLoopFailure, "x"), http.StatusInternalServerError},
		{"plain error", stderrors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auroraerr.HTTPStatus(tt.err))
		})
	}
}
