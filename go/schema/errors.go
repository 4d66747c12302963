// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"errors"
	"fmt"
)

// Error kinds. Parse and Generate failures arrive wrapped in a *FieldError, so
// match them with errors.Is.
var (
	ErrLengthMismatch   = errors.New("schema: length mismatch")
	ErrTruncatedInput   = errors.New("schema: truncated input")
	ErrRepeatUnresolved = errors.New("schema: repeat count unresolved")
	ErrInvalidFieldPath = errors.New("schema: invalid field path")
	ErrUnresolvedPath   = errors.New("schema: unresolved field path")
	ErrTrailingData     = errors.New("schema: trailing data after block")
	ErrUnknownField     = errors.New("schema: unknown field")
	ErrValueOverflow    = errors.New("schema: value does not fit bit mask")
	ErrInvalidSchema    = errors.New("schema: invalid schema")
)

// FieldError locates a parse or generate failure within a block.
type FieldError struct {
	Section SectionID
	Field   string
	// Index is the repetition index for repeated fields, otherwise 0.
	Index  int
	Offset int
	Err    error
}

func (e *FieldError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("%s.%s[%d] at offset %d: %v", e.Section, e.Field, e.Index, e.Offset, e.Err)
	}
	if e.Field == "" {
		return fmt.Sprintf("%s at offset %d: %v", e.Section, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s.%s at offset %d: %v", e.Section, e.Field, e.Offset, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// schemaErrorf reports a schema-authoring defect found while building a Registry.
func schemaErrorf(kind error, section SectionID, field, format string, args ...any) error {
	return fmt.Errorf("%w: %s.%s: %s", kind, section, field, fmt.Sprintf(format, args...))
}
