// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/strata/lib/command"
)

// ErrNotConnected is returned when a command is executed on a handle
// with no router bound. No command was built or sent.
var ErrNotConnected = errors.New("strata: not connected")

// ErrConnectionClosed is returned when the router's transport is gone:
// closed locally, or lost while the command was in flight. A command
// that fails this way may or may not have been applied.
var ErrConnectionClosed = errors.New("strata: connection closed")

// BackendError is the backend's rejection of a command, carried to the
// caller without translation.
type BackendError struct {
	// Method is the command that was rejected.
	Method command.Method

	// Code is the backend's stable error identifier (for example
	// "invalid_name" or "not_found").
	Code string

	// Message is the backend's human-readable explanation.
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("strata: %s rejected (%s): %s", e.Method, e.Code, e.Message)
}

// IsBackendCode reports whether err is a [*BackendError] with the given
// code.
func IsBackendCode(err error, code string) bool {
	var backendError *BackendError
	return errors.As(err, &backendError) && backendError.Code == code
}

// FromResponse converts a failed response into a [*BackendError]. A
// response with ok=false but no error body still yields an error so
// the failure is never lost.
func FromResponse(method command.Method, response *command.Response) error {
	if response.OK {
		return nil
	}
	if response.Error == nil {
		return &BackendError{Method: method, Code: "unknown", Message: "backend reported failure without detail"}
	}
	return &BackendError{Method: method, Code: response.Error.Code, Message: response.Error.Message}
}
