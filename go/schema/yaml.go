// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// registryDoc is the YAML form of a Definition.
type registryDoc struct {
	Name            string     `yaml:"name,omitempty"`
	Version         int        `yaml:"version,omitempty"`
	Endian          string     `yaml:"endian,omitempty"`
	RoutingHeader   []fieldDoc `yaml:"routing_header"`
	BlockHeader     []fieldDoc `yaml:"block_header"`
	EncryptedHeader []fieldDoc `yaml:"encrypted_header"`
	Body            []fieldDoc `yaml:"body"`
}

type fieldDoc struct {
	Name      string         `yaml:"name"`
	Type      string         `yaml:"type,omitempty"`
	Length    int            `yaml:"length,omitempty"`
	Endian    string         `yaml:"endian,omitempty"`
	Lookup    map[int]string `yaml:"lookup,omitempty"`
	Bitfields []bitDoc       `yaml:"bitfields,omitempty"`
	Count     string         `yaml:"count,omitempty"`
	Max       int            `yaml:"max,omitempty"`
	When      *whenDoc       `yaml:"when,omitempty"`
	Rest      bool           `yaml:"rest,omitempty"`
}

type bitDoc struct {
	Name   string         `yaml:"name"`
	Bits   int            `yaml:"bits,omitempty"`
	Type   string         `yaml:"type,omitempty"`
	Lookup map[int]string `yaml:"lookup,omitempty"`
}

// whenDoc carries exactly one of equals, one_of or present.
type whenDoc struct {
	Field   string `yaml:"field"`
	Equals  any    `yaml:"equals,omitempty"`
	OneOf   []any  `yaml:"one_of,omitempty"`
	Present bool   `yaml:"present,omitempty"`
	Not     bool   `yaml:"not,omitempty"`
}

func (d *registryDoc) sections() map[SectionID]*[]fieldDoc {
	return map[SectionID]*[]fieldDoc{
		RoutingHeader:   &d.RoutingHeader,
		BlockHeader:     &d.BlockHeader,
		EncryptedHeader: &d.EncryptedHeader,
		Body:            &d.Body,
	}
}

// ParseRegistry parses a YAML schema and builds a Registry from it. Unknown
// keys are rejected so that a misspelt key cannot silently drop a condition.
func ParseRegistry(data string, opts ...Option) (*Registry, error) {
	var doc registryDoc
	dec := yaml.NewDecoder(strings.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	def := Definition{
		Name:     doc.Name,
		Version:  doc.Version,
		Endian:   doc.Endian,
		Sections: make(map[SectionID][]FieldSpec, NumSections),
	}
	for id, docs := range doc.sections() {
		fields := make([]FieldSpec, 0, len(*docs))
		for _, fd := range *docs {
			f, err := fd.spec()
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", id, fd.Name, err)
			}
			fields = append(fields, f)
		}
		def.Sections[id] = fields
	}
	return NewRegistry(def, opts...)
}

func (fd fieldDoc) spec() (FieldSpec, error) {
	f := FieldSpec{
		Name:   fd.Name,
		Length: fd.Length,
		Type:   FieldType(fd.Type),
		Endian: fd.Endian,
		Lookup: fd.Lookup,
		Max:    fd.Max,
		Rest:   fd.Rest,
	}
	for _, bd := range fd.Bitfields {
		f.Bits = append(f.Bits, BitMaskSpec{
			Name:   bd.Name,
			Bits:   bd.Bits,
			Type:   FieldType(bd.Type),
			Lookup: bd.Lookup,
		})
	}
	if fd.Count != "" {
		p, err := ParsePath(fd.Count)
		if err != nil {
			return FieldSpec{}, err
		}
		f.Count = &p
	}
	if fd.When != nil {
		w, err := fd.When.predicate()
		if err != nil {
			return FieldSpec{}, err
		}
		f.When = w
	}
	return f, nil
}

func (wd *whenDoc) predicate() (*Predicate, error) {
	p, err := ParsePath(wd.Field)
	if err != nil {
		return nil, err
	}
	pred := &Predicate{Path: p, Not: wd.Not}
	kinds := 0
	if wd.Equals != nil {
		pred.Kind = PredicateEquals
		pred.Values = []any{wd.Equals}
		kinds++
	}
	if len(wd.OneOf) > 0 {
		pred.Kind = PredicateOneOf
		pred.Values = wd.OneOf
		kinds++
	}
	if wd.Present {
		pred.Kind = PredicatePresent
		kinds++
	}
	if kinds != 1 {
		return nil, fmt.Errorf("%w: when on %q needs exactly one of equals, one_of or present", ErrInvalidSchema, wd.Field)
	}
	return pred, nil
}

// MarshalYAML renders the registry in the form ParseRegistry accepts.
func (r *Registry) MarshalYAML() (any, error) {
	doc := &registryDoc{Name: r.name, Version: r.version, Endian: r.endian}
	for id, docs := range doc.sections() {
		for _, f := range r.sections[id].Fields {
			*docs = append(*docs, newFieldDoc(f))
		}
	}
	return doc, nil
}

func newFieldDoc(f FieldSpec) fieldDoc {
	fd := fieldDoc{
		Name:   f.Name,
		Type:   string(f.Type),
		Endian: f.Endian,
		Lookup: f.Lookup,
		Max:    f.Max,
		Rest:   f.Rest,
	}
	if impliedLength(f.Type) == 0 {
		fd.Length = f.Length
	}
	for _, b := range f.Bits {
		fd.Bitfields = append(fd.Bitfields, bitDoc{Name: b.Name, Bits: b.Bits, Type: string(b.Type), Lookup: b.Lookup})
	}
	if f.Count != nil {
		fd.Count = f.Count.String()
	}
	if f.When != nil {
		wd := &whenDoc{Field: f.When.Path.String(), Not: f.When.Not}
		switch f.When.Kind {
		case PredicateEquals:
			wd.Equals = f.When.Values[0]
		case PredicateOneOf:
			wd.OneOf = f.When.Values
		case PredicatePresent:
			wd.Present = true
		}
		fd.When = wd
	}
	return fd
}
