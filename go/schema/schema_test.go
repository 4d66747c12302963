// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"gopkg.in/yaml.v3"
)

func TestSectionID(t *testing.T) {
	for _, id := range SectionIDs() {
		got, err := ParseSectionID(id.String())
		if err != nil {
			t.Fatalf("ParseSectionID(%q) error = %v", id, err)
		}
		if got != id {
			t.Errorf("ParseSectionID(%q) = %v, want %v", id, got, id)
		}
	}
	if _, err := ParseSectionID("trailer"); err == nil {
		t.Error("ParseSectionID(trailer) error = nil")
	}
	if got := SectionID(7).String(); got != "section(7)" {
		t.Errorf("SectionID(7).String() = %q", got)
	}
}

func TestParseRegistryBasic(t *testing.T) {
	schemaYAML := `
name: test_block
version: 1
routing_header:
  - name: version
    type: u8
  - name: size
    type: u16
    endian: little
  - name: flags
    length: 1
    bitfields:
      - name: mode
        bits: 2
        lookup: {0: none, 1: pointer}
      - name: checked
        type: bool
body:
  - name: payload
    rest: true
`

	r, err := ParseRegistry(schemaYAML)
	if err != nil {
		t.Fatalf("ParseRegistry() error = %v", err)
	}

	if r.Name() != "test_block" {
		t.Errorf("Name() = %v, want test_block", r.Name())
	}
	if r.Version() != 1 {
		t.Errorf("Version() = %v, want 1", r.Version())
	}
	if r.Endian() != "big" {
		t.Errorf("Endian() = %v, want big", r.Endian())
	}

	want := []FieldSpec{
		{Name: "version", Length: 1, Type: TypeU8},
		{Name: "size", Length: 2, Type: TypeU16, Endian: "little"},
		{
			Name:   "flags",
			Length: 1,
			Bits: []BitMaskSpec{
				{Name: "mode", Bits: 2, Lookup: map[int]string{0: "none", 1: "pointer"}},
				{Name: "checked", Bits: 1, Type: TypeBool},
			},
		},
	}
	if diff := pretty.Compare(want, r.Section(RoutingHeader).Fields); diff != "" {
		t.Errorf("Section(RoutingHeader) -want +got:\n%s", diff)
	}
	if n := len(r.Section(BlockHeader).Fields); n != 0 {
		t.Errorf("Section(BlockHeader) has %d fields, want 0", n)
	}
	if got := r.MinLength(); got != 4 {
		t.Errorf("MinLength() = %d, want 4", got)
	}
}

func TestParseRegistryErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "three segment path",
			yaml: `
routing_header:
  - {name: flags, length: 1, bitfields: [{name: mode}]}
  - {name: x, type: u8, when: {field: flags.mode.extra, equals: 1}}
`,
			wantErr: ErrInvalidFieldPath,
		},
		{
			name: "three segment count",
			yaml: `
routing_header:
  - {name: n, type: u8}
  - {name: x, type: u8, count: $n.a.b}
`,
			wantErr: ErrInvalidFieldPath,
		},
		{
			name: "path to later field",
			yaml: `
routing_header:
  - {name: x, type: u8, when: {field: flags, equals: 1}}
  - {name: flags, type: u8}
`,
			wantErr: ErrInvalidFieldPath,
		},
		{
			name: "path to other section",
			yaml: `
routing_header:
  - {name: flags, type: u8}
block_header:
  - {name: x, type: u8, when: {field: flags, equals: 1}}
`,
			wantErr: ErrInvalidFieldPath,
		},
		{
			name: "path to missing bit field",
			yaml: `
routing_header:
  - {name: flags, length: 1, bitfields: [{name: mode}]}
  - {name: x, type: u8, when: {field: flags.mdoe, equals: 1}}
`,
			wantErr: ErrInvalidFieldPath,
		},
		{
			name: "count to later field",
			yaml: `
routing_header:
  - {name: x, type: u8, count: n}
  - {name: n, type: u8}
`,
			wantErr: ErrInvalidFieldPath,
		},
		{
			name:    "duplicate name",
			yaml:    "routing_header:\n  - {name: a, type: u8}\n  - {name: a, type: u8}\n",
			wantErr: ErrInvalidSchema,
		},
		{
			name:    "missing length",
			yaml:    "routing_header:\n  - {name: a}\n",
			wantErr: ErrInvalidSchema,
		},
		{
			name:    "unknown type",
			yaml:    "routing_header:\n  - {name: a, type: f32}\n",
			wantErr: ErrInvalidSchema,
		},
		{
			name:    "length disagrees with type",
			yaml:    "routing_header:\n  - {name: a, type: u16, length: 4}\n",
			wantErr: ErrInvalidSchema,
		},
		{
			name:    "integer wider than 8 bytes",
			yaml:    "routing_header:\n  - {name: a, type: uint, length: 9}\n",
			wantErr: ErrInvalidSchema,
		},
		{
			name:    "too many bits",
			yaml:    "routing_header:\n  - {name: a, length: 1, bitfields: [{name: x, bits: 5}, {name: y, bits: 4}]}\n",
			wantErr: ErrInvalidSchema,
		},
		{
			name:    "lookup on hex",
			yaml:    "routing_header:\n  - {name: a, type: hex, length: 1, lookup: {0: zero}}\n",
			wantErr: ErrInvalidSchema,
		},
		{
			name:    "rest outside body",
			yaml:    "routing_header:\n  - {name: a, rest: true}\n",
			wantErr: ErrInvalidSchema,
		},
		{
			name:    "rest not last",
			yaml:    "body:\n  - {name: a, rest: true}\n  - {name: b, type: u8}\n",
			wantErr: ErrInvalidSchema,
		},
		{
			name:    "two predicate kinds",
			yaml:    "routing_header:\n  - {name: a, type: u8}\n  - {name: b, type: u8, when: {field: a, equals: 1, present: true}}\n",
			wantErr: ErrInvalidSchema,
		},
		{
			name:    "bad endian",
			yaml:    "endian: middle\n",
			wantErr: ErrInvalidSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry(tt.yaml)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseRegistry() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRegistryRejectsUnknownKeys(t *testing.T) {
	schemaYAML := `
routing_header:
  - name: a
    type: u8
    wehn: {field: x, equals: 1}
`
	if _, err := ParseRegistry(schemaYAML); err == nil {
		t.Fatal("ParseRegistry() accepted a misspelt key")
	}
}

func TestNewRegistryUnknownSection(t *testing.T) {
	def := Definition{Sections: map[SectionID][]FieldSpec{9: {{Name: "a", Type: TypeU8}}}}
	if _, err := NewRegistry(def); !errors.Is(err, ErrInvalidSchema) {
		t.Errorf("NewRegistry() error = %v, want ErrInvalidSchema", err)
	}
}

func TestNewRegistryCopiesDefinition(t *testing.T) {
	fields := []FieldSpec{
		{Name: "flags", Length: 1, Bits: []BitMaskSpec{{Name: "mode", Bits: 2}}},
		{Name: "x", Type: TypeU8, When: Equals("flags.mode", 1)},
	}
	r, err := NewRegistry(Definition{Sections: map[SectionID][]FieldSpec{RoutingHeader: fields}})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	fields[0].Bits[0].Bits = 8
	fields[1].When.Values[0] = 2

	got := r.Section(RoutingHeader)
	if got.Fields[0].Bits[0].Bits != 2 {
		t.Errorf("registry saw caller mutation of bit width: %d", got.Fields[0].Bits[0].Bits)
	}
	if got.Fields[1].When.Values[0] != 1 {
		t.Errorf("registry saw caller mutation of predicate: %v", got.Fields[1].When.Values[0])
	}

	got.Fields[0].Name = "changed"
	if again := r.Section(RoutingHeader); again.Fields[0].Name != "flags" {
		t.Errorf("Section() returned shared storage")
	}
}

func TestRegistryMarshalYAMLRoundTrip(t *testing.T) {
	r := mustDefault(t)

	out, err := yaml.Marshal(r)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	again, err := ParseRegistry(string(out))
	if err != nil {
		t.Fatalf("ParseRegistry(marshalled) error = %v\n%s", err, out)
	}
	if diff := pretty.Compare(r.Definition(), again.Definition()); diff != "" {
		t.Errorf("definition changed over YAML round trip -want +got:\n%s", diff)
	}
	if !strings.Contains(string(out), "receivers_count") {
		t.Errorf("marshalled schema missing receivers_count:\n%s", out)
	}
}

func TestRegistryField(t *testing.T) {
	r := mustDefault(t)

	f, ok := r.Field(RoutingHeader, "receivers")
	if !ok {
		t.Fatal("Field(receivers) not found")
	}
	if f.Length != EndpointLength {
		t.Errorf("receivers length = %d, want %d", f.Length, EndpointLength)
	}
	if f.Count == nil || f.Count.Field != "receivers_count" {
		t.Errorf("receivers count = %v, want receivers_count", f.Count)
	}
	if _, ok := r.Field(BlockHeader, "receivers"); ok {
		t.Error("Field(BlockHeader, receivers) found a routing header field")
	}
	if _, ok := r.Field(SectionID(-1), "receivers"); ok {
		t.Error("Field(-1, receivers) found a field")
	}
}
