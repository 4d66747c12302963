// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"
	"strings"
)

// FieldPath addresses a value produced earlier in the same section: either a
// whole field ("flags") or one of its bit fields ("flags.receiver_type").
type FieldPath struct {
	Field string
	Sub   string
}

// ParsePath parses "field" or "field.sub". A leading "$" is accepted, as in
// count references. More than two segments is ErrInvalidFieldPath.
func ParsePath(s string) (FieldPath, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	parts := strings.Split(s, ".")
	var p FieldPath
	switch len(parts) {
	case 1:
		p = FieldPath{Field: parts[0]}
	case 2:
		if parts[1] == "" {
			return FieldPath{}, fmt.Errorf("%w: empty subfield name in %q", ErrInvalidFieldPath, s)
		}
		p = FieldPath{Field: parts[0], Sub: parts[1]}
	default:
		return FieldPath{}, fmt.Errorf("%w: %q has %d segments, at most 2 allowed", ErrInvalidFieldPath, s, len(parts))
	}
	if err := p.validate(); err != nil {
		return FieldPath{}, err
	}
	return p, nil
}

// MustPath is ParsePath for statically known paths. It panics on error.
func MustPath(s string) FieldPath {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p FieldPath) String() string {
	if p.Sub == "" {
		return p.Field
	}
	return p.Field + "." + p.Sub
}

func (p FieldPath) validate() error {
	if p.Field == "" {
		return fmt.Errorf("%w: empty field name in %q", ErrInvalidFieldPath, p.String())
	}
	if strings.Contains(p.Field, ".") || strings.Contains(p.Sub, ".") {
		return fmt.Errorf("%w: %q has more than 2 segments", ErrInvalidFieldPath, p.String())
	}
	return nil
}
