// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"fmt"
)

// Code identifies why the engine rejected a command. Codes are part of
// the wire protocol and never change meaning.
type Code string

const (
	CodeInvalidName    Code = "invalid_name"
	CodeInvalidSession Code = "invalid_session"
	CodeInvalidRequest Code = "invalid_request"
	CodeNoNamespace    Code = "no_namespace"
	CodeNoDatabase     Code = "no_database"
	CodeNotFound       Code = "not_found"
	CodeAlreadyExists  Code = "already_exists"
	CodeUnknownMethod  Code = "unknown_method"

	// CodeInternal reports a failure that is not the client's fault,
	// such as a storage error. Only transports produce it; the engine
	// returns such failures as plain errors.
	CodeInternal Code = "internal"
)

// Error is a rejection of a command by the engine.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of an engine rejection, or "" when err is
// not one.
func CodeOf(err error) Code {
	var engineError *Error
	if errors.As(err, &engineError) {
		return engineError.Code
	}
	return ""
}
