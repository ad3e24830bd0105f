// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitErrorThroughWrapping(t *testing.T) {
	err := fmt.Errorf("health: %w", &ExitError{Code: 1})

	var exitCoder interface{ ExitCode() int }
	if !errors.As(err, &exitCoder) {
		t.Fatal("wrapped ExitError does not satisfy ExitCode interface")
	}
	if exitCoder.ExitCode() != 1 {
		t.Errorf("ExitCode() = %d, want 1", exitCoder.ExitCode())
	}
}
