// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"bytes"
	"errors"
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func TestExtractBits(t *testing.T) {
	// 0xB4 = 0b10110100, 0x5A = 0b01011010
	data := []byte{0xB4, 0x5A}

	tests := []struct {
		name   string
		offset int
		bits   int
		want   uint64
	}{
		{"high bit", 0, 1, 1},
		{"high 2 bits", 0, 2, 2},
		{"mid 4 bits", 2, 4, 13},
		{"low 2 bits", 6, 2, 0},
		{"across byte boundary", 4, 8, 0x45},
		{"all 16 bits", 0, 16, 0xB45A},
		{"past end reads zero", 12, 8, 0xA0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractBits(data, tt.offset, tt.bits)
			if got != tt.want {
				t.Errorf("extractBits(%d, %d) = %#x, want %#x", tt.offset, tt.bits, got, tt.want)
			}
		})
	}
}

func TestDecodeBits(t *testing.T) {
	masks := []BitMaskSpec{
		{Name: "mode", Bits: 2, Lookup: map[int]string{0: "off", 1: "pointer", 2: "list"}},
		{Name: "enabled", Type: TypeBool},
		{Name: "level", Bits: 3},
	}

	tests := []struct {
		name string
		data []byte
		want []SubField
	}{
		{
			name: "labelled",
			data: []byte{0b01_1_101_00},
			want: []SubField{{"mode", "pointer"}, {"enabled", true}, {"level", uint64(5)}},
		},
		{
			name: "unmapped label passes through",
			data: []byte{0b11_0_010_00},
			want: []SubField{{"mode", uint64(3)}, {"enabled", false}, {"level", uint64(2)}},
		},
		{
			name: "trailing bits ignored",
			data: []byte{0b00_0_000_11},
			want: []SubField{{"mode", "off"}, {"enabled", false}, {"level", uint64(0)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeBits(tt.data, masks)
			if diff := pretty.Compare(tt.want, got); diff != "" {
				t.Errorf("DecodeBits() -want +got:\n%s", diff)
			}
		})
	}
}

func TestDecodeBitsNoMasks(t *testing.T) {
	if got := DecodeBits([]byte{0xff}, nil); got != nil {
		t.Errorf("DecodeBits(nil masks) = %v, want nil", got)
	}
}

// Masks that cover every bit must reproduce the original bytes.
func TestPackBitsFullCoverage(t *testing.T) {
	masks := []BitMaskSpec{
		{Name: "a", Bits: 3},
		{Name: "b", Bits: 1},
		{Name: "c", Bits: 8},
		{Name: "d", Bits: 43},
		{Name: "e", Bits: 9},
	}
	patterns := [][]byte{
		make([]byte, 8),
		bytes.Repeat([]byte{0xff}, 8),
		{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef},
		{0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01},
		{0xa5, 0x5a, 0xa5, 0x5a, 0xa5, 0x5a, 0xa5, 0x5a},
	}

	for _, p := range patterns {
		subs := DecodeBits(p, masks)
		values := make([]uint64, len(subs))
		for i, s := range subs {
			values[i] = s.Value.(uint64)
		}
		got, err := PackBits(masks, values, len(p))
		if err != nil {
			t.Fatalf("PackBits(%x) error = %v", p, err)
		}
		if !bytes.Equal(got, p) {
			t.Errorf("PackBits(DecodeBits(%x)) = %x", p, got)
		}
	}
}

func TestPackBitsErrors(t *testing.T) {
	masks := []BitMaskSpec{{Name: "a", Bits: 2}, {Name: "b", Bits: 6}}

	tests := []struct {
		name    string
		values  []uint64
		length  int
		wantErr error
	}{
		{"overflow", []uint64{4, 0}, 1, ErrValueOverflow},
		{"value count", []uint64{1}, 1, ErrInvalidSchema},
		{"too many bits", []uint64{1, 1}, 0, ErrInvalidSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PackBits(masks, tt.values, tt.length)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PackBits() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPackBits64BitMask(t *testing.T) {
	masks := []BitMaskSpec{{Name: "all", Bits: 64}}
	got, err := PackBits(masks, []uint64{0xfedcba9876543210}, 8)
	if err != nil {
		t.Fatalf("PackBits() error = %v", err)
	}
	want := []byte{0xfe, 0xdc, 0xba, 0x98, 0x76, 0x54, 0x32, 0x10}
	if !bytes.Equal(got, want) {
		t.Errorf("PackBits() = %x, want %x", got, want)
	}
}

func TestRegistryPackField(t *testing.T) {
	r := mustDefault(t)

	got, err := r.PackField(RoutingHeader, "flags", map[string]uint64{
		"signature_type": 1,
		"receiver_type":  2,
		"has_checksum":   1,
	})
	if err != nil {
		t.Fatalf("PackField() error = %v", err)
	}
	if want := []byte{0x52}; !bytes.Equal(got, want) {
		t.Errorf("PackField() = %x, want %x", got, want)
	}

	if _, err := r.PackField(RoutingHeader, "flags", map[string]uint64{"nope": 1}); !errors.Is(err, ErrUnknownField) {
		t.Errorf("PackField(unknown bit field) error = %v, want ErrUnknownField", err)
	}
	if _, err := r.PackField(RoutingHeader, "nope", nil); !errors.Is(err, ErrUnknownField) {
		t.Errorf("PackField(unknown field) error = %v, want ErrUnknownField", err)
	}
}
