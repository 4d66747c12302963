// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

// SubField is one decoded bit field of a ParsedField.
type SubField struct {
	Name  string
	Value any
}

// ParsedField is one decoded field instance. Raw always holds exactly the
// field's declared length (or the remaining bytes for a rest field). Value is
// nil when the field has no type.
type ParsedField struct {
	Name      string
	Raw       []byte
	Value     any
	SubFields []SubField
}

// Sub returns the value of the named bit field.
func (f *ParsedField) Sub(name string) (any, bool) {
	for _, sf := range f.SubFields {
		if sf.Name == name {
			return sf.Value, true
		}
	}
	return nil, false
}

// ParsedSection is the ordered output of one section. Repeated fields appear
// once per repetition under the same name.
type ParsedSection struct {
	ID     SectionID
	Fields []ParsedField
}

// Get returns the first field with the given name.
func (s *ParsedSection) Get(name string) (*ParsedField, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// All returns every instance of the named field in order.
func (s *ParsedSection) All(name string) []ParsedField {
	var out []ParsedField
	for _, f := range s.Fields {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// Lookup resolves a path against the fields produced so far. The boolean is
// false when the field, or the bit field within it, does not exist; callers
// must treat that as distinct from a false value.
func (s *ParsedSection) Lookup(p FieldPath) (any, bool) {
	f, ok := s.Get(p.Field)
	if !ok {
		return nil, false
	}
	if p.Sub == "" {
		return f.Value, true
	}
	return f.Sub(p.Sub)
}

// Len returns the number of bytes the section occupies.
func (s *ParsedSection) Len() int {
	n := 0
	for _, f := range s.Fields {
		n += len(f.Raw)
	}
	return n
}

// Block is one parsed envelope: the four sections in wire order.
type Block struct {
	Sections [NumSections]ParsedSection
}

// Section returns the parsed section with the given id.
func (b *Block) Section(id SectionID) *ParsedSection {
	return &b.Sections[id]
}

// Len returns the number of bytes the block was parsed from.
func (b *Block) Len() int {
	n := 0
	for i := range b.Sections {
		n += b.Sections[i].Len()
	}
	return n
}

// Values returns the raw bytes of every parsed field in the shape accepted by
// Registry.Generate. Repeated fields are concatenated in order.
func (b *Block) Values() Values {
	v := Values{}
	for _, sec := range b.Sections {
		for _, f := range sec.Fields {
			v.Append(sec.ID, f.Name, f.Raw)
		}
	}
	return v
}
