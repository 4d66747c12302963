// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import "fmt"

// DecodeBits splits raw into the given bit fields. The bytes are read as one
// bit string, most significant bit first, and each mask consumes its width in
// order from bit 0. Bits left over after the last mask are ignored.
func DecodeBits(raw []byte, masks []BitMaskSpec) []SubField {
	if len(masks) == 0 {
		return nil
	}
	out := make([]SubField, 0, len(masks))
	offset := 0
	for _, m := range masks {
		width := maskWidth(m)
		out = append(out, SubField{
			Name:  m.Name,
			Value: parseSubValue(m, extractBits(raw, offset, width)),
		})
		offset += width
	}
	return out
}

// extractBits reads n bits starting at bit offset as a big-endian unsigned
// integer. Bits past the end of raw read as zero.
func extractBits(raw []byte, offset, n int) uint64 {
	var v uint64
	for i := offset; i < offset+n; i++ {
		v <<= 1
		if i/8 < len(raw) {
			v |= uint64(raw[i/8]>>(7-i%8)) & 1
		}
	}
	return v
}

// PackBits is the inverse of DecodeBits for integer values: it writes
// values[i] into masks[i] and returns length bytes. Unclaimed trailing bits
// are zero.
func PackBits(masks []BitMaskSpec, values []uint64, length int) ([]byte, error) {
	if len(values) != len(masks) {
		return nil, fmt.Errorf("%w: %d values for %d bit fields", ErrInvalidSchema, len(values), len(masks))
	}
	total := 0
	for _, m := range masks {
		total += maskWidth(m)
	}
	if total > length*8 {
		return nil, fmt.Errorf("%w: bit fields take %d bits, field has %d", ErrInvalidSchema, total, length*8)
	}

	out := make([]byte, length)
	offset := 0
	for i, m := range masks {
		width := maskWidth(m)
		v := values[i]
		if width < 64 && v>>width != 0 {
			return nil, fmt.Errorf("%w: %s=%d needs more than %d bits", ErrValueOverflow, m.Name, v, width)
		}
		for b := 0; b < width; b++ {
			bit := (v >> (width - 1 - b)) & 1
			pos := offset + b
			out[pos/8] |= byte(bit) << (7 - pos%8)
		}
		offset += width
	}
	return out, nil
}

// PackField builds the raw bytes of a bit-field carrying field from named
// sub-values. Omitted bit fields are zero.
func (r *Registry) PackField(section SectionID, field string, values map[string]uint64) ([]byte, error) {
	f, ok := r.Field(section, field)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, section, field)
	}
	vals := make([]uint64, len(f.Bits))
	seen := 0
	for i, m := range f.Bits {
		if v, ok := values[m.Name]; ok {
			vals[i] = v
			seen++
		}
	}
	if seen != len(values) {
		for name := range values {
			if _, ok := f.Sub(name); !ok {
				return nil, fmt.Errorf("%w: %s.%s.%s", ErrUnknownField, section, field, name)
			}
		}
	}
	return PackBits(f.Bits, vals, f.Length)
}

// Sub returns the bit field spec with the given name.
func (f FieldSpec) Sub(name string) (BitMaskSpec, bool) {
	for _, m := range f.Bits {
		if m.Name == name {
			return m, true
		}
	}
	return BitMaskSpec{}, false
}

func maskWidth(m BitMaskSpec) int {
	if m.Bits == 0 {
		return 1
	}
	return m.Bits
}
