// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/strata/lib/codec"
)

// Request is the stream envelope for one command. ID is chosen by the
// sender and echoed in the matching [Response].
type Request struct {
	ID     uint64           `cbor:"id"`
	Method Method           `cbor:"method"`
	Params codec.RawMessage `cbor:"params,omitempty"`
}

// ConnectionID is the response ID reserved for failures that belong to
// no request, such as an envelope the server could not read. Clients
// number requests from 1, so a response with this ID means the stream
// itself is unusable.
const ConnectionID uint64 = 0

// Response answers exactly one [Request]. On failure Error is set and
// Data is empty.
type Response struct {
	ID    uint64           `cbor:"id"`
	OK    bool             `cbor:"ok"`
	Error *ResponseError   `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// ResponseError is the backend's rejection of a command. Code is a
// stable machine-readable identifier; Message is for humans.
type ResponseError struct {
	Code    string `cbor:"code"`
	Message string `cbor:"message"`
}

// ErrUnknownMethod is returned by [Unmarshal] for a method outside the
// closed set.
var ErrUnknownMethod = errors.New("unknown method")

// Marshal returns the method name and encoded params of cmd.
func Marshal(cmd Command) (Method, codec.RawMessage, error) {
	if cmd == nil {
		return "", nil, errors.New("command: nil command")
	}
	params, err := codec.Marshal(cmd)
	if err != nil {
		return "", nil, fmt.Errorf("command: encoding %s params: %w", cmd.Method(), err)
	}
	return cmd.Method(), params, nil
}

// Unmarshal decodes params into the variant named by method. Empty
// params decode to the zero value of the variant.
func Unmarshal(method Method, params []byte) (Command, error) {
	switch method {
	case MethodUse:
		return decode[Use](method, params)
	case MethodHealth:
		return decode[Health](method, params)
	case MethodVersion:
		return decode[Version](method, params)
	case MethodInfo:
		return decode[Info](method, params)
	case MethodSet:
		return decode[Set](method, params)
	case MethodUnset:
		return decode[Unset](method, params)
	case MethodInvalidate:
		return decode[Invalidate](method, params)
	case MethodSelect:
		return decode[Select](method, params)
	case MethodCreate:
		return decode[Create](method, params)
	case MethodUpsert:
		return decode[Upsert](method, params)
	case MethodDelete:
		return decode[Delete](method, params)
	default:
		return nil, fmt.Errorf("command: %w %q", ErrUnknownMethod, method)
	}
}

func decode[T Command](method Method, params []byte) (Command, error) {
	var cmd T
	if len(params) == 0 {
		return cmd, nil
	}
	if err := codec.Unmarshal(params, &cmd); err != nil {
		return nil, fmt.Errorf("command: decoding %s params: %w", method, err)
	}
	return cmd, nil
}
