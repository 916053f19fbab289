// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

// ErrServiceNotRunning indicates the agent service refused the connection.
var ErrServiceNotRunning = errors.New("aurora service is not running (connection refused)")

// defaultHTTPClient is the package-level HTTP client used by service commands.
// Overridden in tests via httptest. The generous timeout covers multi-step
// tool loops.
var defaultHTTPClient = &http.Client{
	Timeout: 180 * time.Second,
}

// serviceClient provides HTTP access to a running aurora service.
type serviceClient struct {
	baseURL string
	http    *http.Client
}

// newServiceClient creates a client targeting the given host:port address.
func newServiceClient(addr string) *serviceClient {
	return &serviceClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// postJSON performs a POST request with a JSON body and decodes the JSON
// response into dest. Returns ErrServiceNotRunning on connection refused.
func (c *serviceClient) postJSON(path string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return auroraerr.Wrapf(err, auroraerr.CodeCLIRequestFailure, "encoding request")
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		if isDialError(err) {
			return ErrServiceNotRunning
		}
		return auroraerr.Wrapf(err, auroraerr.CodeCLIRequestFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return auroraerr.Errorf(auroraerr.CodeCLIRequestFailure,
			"service returned status %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return auroraerr.Wrapf(err, auroraerr.CodeCLIResponseInvalid, "invalid response")
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
