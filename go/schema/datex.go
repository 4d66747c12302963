// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	_ "embed"
)

//go:embed datex.yaml
var datexYAML string

// MagicNumber opens every DATEX block.
var MagicNumber = []byte{0x01, 0x64}

// DATEXSchema returns the YAML source of the built-in DATEX block schema.
func DATEXSchema() string {
	return datexYAML
}

// DefaultRegistry builds the registry for the built-in DATEX block schema.
func DefaultRegistry(opts ...Option) (*Registry, error) {
	return ParseRegistry(datexYAML, opts...)
}
