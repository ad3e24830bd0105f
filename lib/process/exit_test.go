// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"testing"
)

func TestReport(t *testing.T) {
	var buffer bytes.Buffer
	if code := Report(&buffer, nil); code != 0 || buffer.Len() != 0 {
		t.Fatalf("Report(nil) = %d, wrote %q", code, buffer.String())
	}
	if code := Report(&buffer, errors.New("listen failed")); code != 1 {
		t.Fatalf("Report(err) = %d, want 1", code)
	}
	if buffer.String() != "error: listen failed\n" {
		t.Fatalf("Report wrote %q", buffer.String())
	}
}
