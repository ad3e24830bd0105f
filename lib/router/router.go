// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/strata/lib/codec"
	"github.com/bureau-foundation/strata/lib/command"
)

// Router delivers commands to a backend.
//
// Execute submits cmd and blocks until its response arrives or ctx is
// done. On success the returned value is the encoded result, which is
// empty for commands that produce none. Execute must be safe for
// concurrent use, and commands submitted from one goroutine are
// applied in submission order.
type Router interface {
	Execute(ctx context.Context, cmd command.Command) (codec.RawMessage, error)
	Close() error
}

// ExecuteUnit submits cmd and discards any result.
func ExecuteUnit(ctx context.Context, r Router, cmd command.Command) error {
	_, err := r.Execute(ctx, cmd)
	return err
}

// ExecuteInto submits cmd and decodes the result into out. An empty
// result leaves out untouched.
func ExecuteInto(ctx context.Context, r Router, cmd command.Command, out any) error {
	data, err := r.Execute(ctx, cmd)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := codec.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", cmd.Method(), err)
	}
	return nil
}
