// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// FieldType names the value parser applied to a field's raw bytes.
type FieldType string

const (
	// TypeNone leaves the parsed value nil; only raw bytes are kept.
	TypeNone FieldType = ""

	TypeUInt     FieldType = "uint"
	TypeSInt     FieldType = "sint"
	TypeBool     FieldType = "bool"
	TypeHex      FieldType = "hex"
	TypeAscii    FieldType = "ascii"
	TypeEndpoint FieldType = "endpoint"

	// Shorthand types infer the field length.
	TypeU8  FieldType = "u8"
	TypeU16 FieldType = "u16"
	TypeU32 FieldType = "u32"
	TypeU64 FieldType = "u64"
	TypeS8  FieldType = "s8"
	TypeS16 FieldType = "s16"
	TypeS32 FieldType = "s32"
	TypeS64 FieldType = "s64"
)

// EndpointLength is the wire size of an endpoint: type, 18-byte id, instance.
const EndpointLength = 21

// impliedLength returns the byte length implied by a type, or 0 when the
// type works on any length.
func impliedLength(t FieldType) int {
	switch t {
	case TypeU8, TypeS8:
		return 1
	case TypeU16, TypeS16:
		return 2
	case TypeU32, TypeS32:
		return 4
	case TypeU64, TypeS64:
		return 8
	case TypeEndpoint:
		return EndpointLength
	}
	return 0
}

func isUnsignedType(t FieldType) bool {
	switch t {
	case TypeUInt, TypeU8, TypeU16, TypeU32, TypeU64:
		return true
	}
	return false
}

func isSignedType(t FieldType) bool {
	switch t {
	case TypeSInt, TypeS8, TypeS16, TypeS32, TypeS64:
		return true
	}
	return false
}

func isIntegerType(t FieldType) bool {
	return isUnsignedType(t) || isSignedType(t)
}

func knownType(t FieldType) bool {
	switch t {
	case TypeNone, TypeBool, TypeHex, TypeAscii, TypeEndpoint:
		return true
	}
	return isIntegerType(t)
}

// parseValue applies the field's type, then its lookup, to raw bytes.
func parseValue(f FieldSpec, raw []byte, endian string) any {
	var value any
	switch {
	case f.Type == TypeNone:
		return nil
	case isUnsignedType(f.Type):
		value = decodeUint(raw, endian)
	case isSignedType(f.Type):
		value = decodeSint(raw, endian)
	case f.Type == TypeBool:
		value = false
		for _, b := range raw {
			if b != 0 {
				value = true
				break
			}
		}
	case f.Type == TypeHex:
		value = hex.EncodeToString(raw)
	case f.Type == TypeAscii:
		value = strings.TrimRight(string(raw), "\x00")
	case f.Type == TypeEndpoint:
		value = formatEndpoint(raw)
	}
	return applyLookup(f.Lookup, value)
}

// parseSubValue maps an extracted bit field to its typed value.
func parseSubValue(m BitMaskSpec, v uint64) any {
	if m.Type == TypeBool {
		return v != 0
	}
	return applyLookup(m.Lookup, v)
}

// applyLookup replaces an integer with its label. Unmapped values pass through.
func applyLookup(lookup map[int]string, v any) any {
	if len(lookup) == 0 {
		return v
	}
	neg, mag, ok := integerValue(v)
	if !ok || mag > math.MaxInt32 {
		return v
	}
	key := int(mag)
	if neg {
		key = -key
	}
	if label, ok := lookup[key]; ok {
		return label
	}
	return v
}

func decodeUint(data []byte, endian string) uint64 {
	var val uint64
	if endian == "little" {
		for i := len(data) - 1; i >= 0; i-- {
			val = (val << 8) | uint64(data[i])
		}
	} else {
		for _, b := range data {
			val = (val << 8) | uint64(b)
		}
	}
	return val
}

func decodeSint(data []byte, endian string) int64 {
	uval := decodeUint(data, endian)
	bits := len(data) * 8
	if bits >= 64 {
		return int64(uval)
	}
	signBit := uint64(1) << (bits - 1)
	if uval >= signBit {
		return int64(uval) - (1 << bits)
	}
	return int64(uval)
}

var endpointPrefixes = map[byte]string{
	0: "@",
	1: "@+",
	2: "@@",
}

// formatEndpoint renders an endpoint as <prefix><hex id>/<instance>.
func formatEndpoint(raw []byte) string {
	if len(raw) != EndpointLength {
		return hex.EncodeToString(raw)
	}
	prefix, ok := endpointPrefixes[raw[0]]
	if !ok {
		prefix = fmt.Sprintf("@?%d:", raw[0])
	}
	id := hex.EncodeToString(bytes.TrimRight(raw[1:19], "\x00"))
	if id == "" {
		id = "0"
	}
	inst := binary.LittleEndian.Uint16(raw[19:21])
	return fmt.Sprintf("%s%s/%d", prefix, id, inst)
}

// toInt converts a decoded value to a non-negative count.
func toInt(v any) (int, bool) {
	neg, mag, ok := integerValue(v)
	if !ok || neg || mag > math.MaxInt32 {
		return 0, false
	}
	return int(mag), true
}
