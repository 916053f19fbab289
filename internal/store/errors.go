// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package store

import "errors"

// Sentinel errors for store operations, checked with errors.Is().
var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input parameters are invalid or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDatabase is a catch-all for unexpected backend failures.
	ErrDatabase = errors.New("database error")
)
