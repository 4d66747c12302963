// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import "fmt"

// resolveRepeat returns how many times f is read or written. Fields without a
// count occur once.
func resolveRepeat(f FieldSpec, sec *ParsedSection) (int, error) {
	if f.Count == nil {
		return 1, nil
	}
	v, ok := sec.Lookup(*f.Count)
	if !ok {
		return 0, fmt.Errorf("%w: count field %q not found", ErrRepeatUnresolved, f.Count)
	}
	n, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("%w: count field %q is %v (%T), not a non-negative integer", ErrRepeatUnresolved, f.Count, v, v)
	}
	if f.Max > 0 && n > f.Max {
		return 0, fmt.Errorf("%w: count %d exceeds max %d", ErrRepeatUnresolved, n, f.Max)
	}
	return n, nil
}
