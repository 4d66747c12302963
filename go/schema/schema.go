// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package schema provides a schema-driven codec for the DATEX block envelope.
// A Registry holds the ordered, fixed-width field layout of the four block
// sections. It parses a raw block into named fields, decoding packed bit
// fields, conditional fields and repeated fields along the way, and generates
// a block from a sparse set of field values.
package schema

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"
)

// SectionID identifies one of the four block sections.
type SectionID int

const (
	RoutingHeader SectionID = iota
	BlockHeader
	EncryptedHeader
	Body
)

// NumSections is the number of sections in every block.
const NumSections = 4

var sectionNames = [NumSections]string{"routing_header", "block_header", "encrypted_header", "body"}

func (s SectionID) String() string {
	if s < 0 || int(s) >= NumSections {
		return fmt.Sprintf("section(%d)", int(s))
	}
	return sectionNames[s]
}

// SectionIDs returns every section in wire order.
func SectionIDs() []SectionID {
	return []SectionID{RoutingHeader, BlockHeader, EncryptedHeader, Body}
}

// ParseSectionID maps a section name such as "routing_header" to its id.
func ParseSectionID(name string) (SectionID, error) {
	for i, n := range sectionNames {
		if n == name {
			return SectionID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown section %q", name)
}

// BitMaskSpec describes one bit field packed into a field's bytes.
type BitMaskSpec struct {
	Name string
	// Bits is the width in bits. Zero means 1.
	Bits int
	// Type is TypeUInt (the default) or TypeBool.
	Type   FieldType
	Lookup map[int]string
}

// FieldSpec describes one fixed-width field of a section.
type FieldSpec struct {
	Name string
	// Length is the width in bytes. Shorthand types (u8, s16, endpoint...)
	// infer it when zero.
	Length int
	Type   FieldType
	// Endian applies to numeric types; empty inherits the registry default.
	Endian string
	Lookup map[int]string
	Bits   []BitMaskSpec
	// Count names an earlier integer field holding the repetition count.
	Count *FieldPath
	// Max caps Count when non-zero.
	Max  int
	When *Predicate
	// Rest marks the final body field that takes every remaining byte.
	Rest bool
}

// Section is the ordered field layout of one block section.
type Section struct {
	ID     SectionID
	Fields []FieldSpec
}

// Definition is the plain data a Registry is built from.
type Definition struct {
	Name     string
	Version  int
	Endian   string
	Sections map[SectionID][]FieldSpec
}

// Registry is a validated, immutable block schema. It is safe for concurrent
// use; every Parse and Generate call owns its own cursor and output.
type Registry struct {
	name     string
	version  int
	endian   string
	sections [NumSections]Section
	logger   zerolog.Logger
	strict   bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for per-call debug output and unresolved
// path warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithStrictPaths makes a predicate whose path cannot be resolved fail with
// ErrUnresolvedPath instead of skipping the field.
func WithStrictPaths() Option {
	return func(r *Registry) {
		r.strict = true
	}
}

// NewRegistry validates def and builds a Registry from it. The definition is
// copied; later changes to def do not affect the Registry.
func NewRegistry(def Definition, opts ...Option) (*Registry, error) {
	endian := def.Endian
	if endian == "" {
		endian = "big"
	}
	if endian != "big" && endian != "little" {
		return nil, fmt.Errorf("%w: endian must be big or little, got %q", ErrInvalidSchema, endian)
	}
	for id := range def.Sections {
		if id < 0 || int(id) >= NumSections {
			return nil, fmt.Errorf("%w: unknown section id %d", ErrInvalidSchema, int(id))
		}
	}

	r := &Registry{
		name:    def.Name,
		version: def.Version,
		endian:  endian,
		logger:  zerolog.Nop(),
	}
	for _, id := range SectionIDs() {
		fields, err := normalizeSection(id, def.Sections[id])
		if err != nil {
			return nil, err
		}
		r.sections[id] = Section{ID: id, Fields: fields}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Registry) Name() string   { return r.name }
func (r *Registry) Version() int   { return r.version }
func (r *Registry) Endian() string { return r.endian }

// Section returns a copy of the layout of one section.
func (r *Registry) Section(id SectionID) Section {
	src := r.sections[id]
	out := Section{ID: id, Fields: make([]FieldSpec, len(src.Fields))}
	for i, f := range src.Fields {
		out.Fields[i] = cloneField(f)
	}
	return out
}

// Definition returns a copy of the definition the Registry was built from,
// with inferred lengths and default bit widths filled in.
func (r *Registry) Definition() Definition {
	def := Definition{
		Name:     r.name,
		Version:  r.version,
		Endian:   r.endian,
		Sections: make(map[SectionID][]FieldSpec, NumSections),
	}
	for _, id := range SectionIDs() {
		def.Sections[id] = r.Section(id).Fields
	}
	return def
}

// Field returns the spec of the named field.
func (r *Registry) Field(section SectionID, name string) (FieldSpec, bool) {
	if section < 0 || int(section) >= NumSections {
		return FieldSpec{}, false
	}
	for _, f := range r.sections[section].Fields {
		if f.Name == name {
			return cloneField(f), true
		}
	}
	return FieldSpec{}, false
}

// MinLength is the number of bytes a block occupies when every conditional
// field is absent and no field repeats more than once.
func (r *Registry) MinLength() int {
	n := 0
	for _, sec := range r.sections {
		for _, f := range sec.Fields {
			if f.When == nil && f.Count == nil {
				n += f.Length
			}
		}
	}
	return n
}

func (r *Registry) fieldEndian(f FieldSpec) string {
	if f.Endian != "" {
		return f.Endian
	}
	return r.endian
}

func cloneField(f FieldSpec) FieldSpec {
	f.Lookup = maps.Clone(f.Lookup)
	if f.Bits != nil {
		bits := make([]BitMaskSpec, len(f.Bits))
		for i, b := range f.Bits {
			b.Lookup = maps.Clone(b.Lookup)
			bits[i] = b
		}
		f.Bits = bits
	}
	if f.Count != nil {
		c := *f.Count
		f.Count = &c
	}
	if f.When != nil {
		w := *f.When
		w.Values = slices.Clone(w.Values)
		f.When = &w
	}
	return f
}

// normalizeSection copies and validates one section. Predicate and count
// paths may only refer to fields declared earlier in the same section.
func normalizeSection(id SectionID, in []FieldSpec) ([]FieldSpec, error) {
	out := make([]FieldSpec, 0, len(in))
	earlier := map[string]FieldSpec{}

	for i, src := range in {
		f := cloneField(src)
		if f.Name == "" {
			return nil, schemaErrorf(ErrInvalidSchema, id, fmt.Sprintf("#%d", i), "field has no name")
		}
		if _, dup := earlier[f.Name]; dup {
			return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "duplicate field name")
		}
		if err := (FieldPath{Field: f.Name}).validate(); err != nil {
			return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "field names may not contain '.'")
		}
		if !knownType(f.Type) {
			return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "unknown type %q", f.Type)
		}
		if f.Endian != "" && f.Endian != "big" && f.Endian != "little" {
			return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "endian must be big or little, got %q", f.Endian)
		}
		if f.Lookup != nil && !isIntegerType(f.Type) {
			return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "lookup requires an integer type, got %q", f.Type)
		}

		if f.Rest {
			if id != Body || i != len(in)-1 {
				return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "rest is only allowed on the last body field")
			}
			if f.Length != 0 || len(f.Bits) > 0 || f.Count != nil || impliedLength(f.Type) > 0 || isIntegerType(f.Type) {
				return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "rest field cannot have a length, bit fields, a count or a fixed-size type")
			}
		} else {
			if implied := impliedLength(f.Type); implied > 0 {
				if f.Length == 0 {
					f.Length = implied
				} else if f.Length != implied {
					return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "type %s is %d bytes, length says %d", f.Type, implied, f.Length)
				}
			}
			if f.Length <= 0 {
				return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "length must be positive")
			}
			if isIntegerType(f.Type) && f.Length > 8 {
				return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "integer type %s cannot exceed 8 bytes, got %d", f.Type, f.Length)
			}
		}

		if err := normalizeBits(id, &f); err != nil {
			return nil, err
		}

		if f.Count != nil {
			if err := checkReference(id, f.Name, *f.Count, earlier); err != nil {
				return nil, err
			}
		}
		if f.Max < 0 {
			return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "max cannot be negative")
		}
		if f.When != nil {
			if err := f.When.validate(); err != nil {
				return nil, schemaErrorf(ErrInvalidSchema, id, f.Name, "%v", err)
			}
			if err := checkReference(id, f.Name, f.When.Path, earlier); err != nil {
				return nil, err
			}
		}

		earlier[f.Name] = f
		out = append(out, f)
	}
	return out, nil
}

func normalizeBits(id SectionID, f *FieldSpec) error {
	total := 0
	names := map[string]bool{}
	for i := range f.Bits {
		b := &f.Bits[i]
		if b.Name == "" {
			return schemaErrorf(ErrInvalidSchema, id, f.Name, "bit field #%d has no name", i)
		}
		if names[b.Name] {
			return schemaErrorf(ErrInvalidSchema, id, f.Name, "duplicate bit field %q", b.Name)
		}
		names[b.Name] = true
		if b.Bits == 0 {
			b.Bits = 1
		}
		if b.Bits < 0 || b.Bits > 64 {
			return schemaErrorf(ErrInvalidSchema, id, f.Name, "bit field %q must be 1..64 bits, got %d", b.Name, b.Bits)
		}
		switch b.Type {
		case "", TypeUInt, TypeBool:
		default:
			return schemaErrorf(ErrInvalidSchema, id, f.Name, "bit field %q has unsupported type %q", b.Name, b.Type)
		}
		total += b.Bits
	}
	if total > f.Length*8 {
		return schemaErrorf(ErrInvalidSchema, id, f.Name, "bit fields take %d bits, field has %d", total, f.Length*8)
	}
	return nil
}

// checkReference enforces that a path names a field (and bit field) declared
// earlier in the same section. A misspelt path is a schema defect, not a
// runtime condition.
func checkReference(id SectionID, field string, p FieldPath, earlier map[string]FieldSpec) error {
	if err := p.validate(); err != nil {
		return fmt.Errorf("%s.%s: %w", id, field, err)
	}
	ref, ok := earlier[p.Field]
	if !ok {
		return schemaErrorf(ErrInvalidFieldPath, id, field, "%q does not name an earlier field in this section", p)
	}
	if p.Sub == "" {
		return nil
	}
	for _, b := range ref.Bits {
		if b.Name == p.Sub {
			return nil
		}
	}
	return schemaErrorf(ErrInvalidFieldPath, id, field, "%q has no bit field %q", p.Field, p.Sub)
}
