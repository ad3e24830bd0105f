// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import "regexp"

const maxNameLength = 64

var (
	namePattern     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	variablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	recordIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)
)

// validateName checks a namespace, database or table name.
func validateName(kind, name string) error {
	if name == "" {
		return errorf(CodeInvalidName, "%s name must not be empty", kind)
	}
	if len(name) > maxNameLength {
		return errorf(CodeInvalidName, "%s name %q exceeds %d characters", kind, name, maxNameLength)
	}
	if !namePattern.MatchString(name) {
		return errorf(CodeInvalidName, "%s name %q may contain only letters, digits, '_' and '-'", kind, name)
	}
	return nil
}

func validateVariable(key string) error {
	if !variablePattern.MatchString(key) {
		return errorf(CodeInvalidName, "variable name %q is not an identifier", key)
	}
	return nil
}

func validateRecordID(id string) error {
	if len(id) > 255 || !recordIDPattern.MatchString(id) {
		return errorf(CodeInvalidRequest, "record id %q is invalid", id)
	}
	return nil
}
