// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"bytes"
	"fmt"
	"slices"
)

// Values holds caller-supplied raw bytes per section and field name. Fields
// that are not set are zero-filled. A repeated field takes the concatenation
// of all its instances.
type Values map[SectionID]map[string][]byte

// Set stores raw as the value of section.field, replacing any earlier value.
func (v Values) Set(section SectionID, field string, raw []byte) Values {
	if v[section] == nil {
		v[section] = map[string][]byte{}
	}
	v[section][field] = bytes.Clone(raw)
	return v
}

// Append adds raw to the value of section.field; used for repeated fields.
func (v Values) Append(section SectionID, field string, raw []byte) Values {
	if v[section] == nil {
		v[section] = map[string][]byte{}
	}
	v[section][field] = append(v[section][field], raw...)
	return v
}

// EncodeContext accumulates the output of one Generate call.
type EncodeContext struct {
	Buffer []byte
}

// NewEncodeContext creates a new encode context.
func NewEncodeContext() *EncodeContext {
	return &EncodeContext{Buffer: make([]byte, 0)}
}

// Write appends bytes to the buffer.
func (ctx *EncodeContext) Write(data []byte) {
	ctx.Buffer = append(ctx.Buffer, data...)
}

// Generate builds a block from values. Sections are written in wire order and
// each field in schema order; a field whose predicate does not hold is left
// out. Predicates and repeat counts see the supplied (or zero-filled) bytes of
// earlier fields exactly as Parse would decode them. On failure nothing is
// returned.
func (r *Registry) Generate(values Values) ([]byte, error) {
	for id, fields := range values {
		if id < 0 || int(id) >= NumSections {
			return nil, &FieldError{Section: id, Err: fmt.Errorf("%w: unknown section", ErrUnknownField)}
		}
		for name := range fields {
			if _, ok := r.Field(id, name); !ok {
				return nil, &FieldError{Section: id, Field: name, Err: ErrUnknownField}
			}
		}
	}

	ctx := NewEncodeContext()
	for _, id := range SectionIDs() {
		if err := r.generateSection(id, values[id], ctx); err != nil {
			r.logger.Debug().Err(err).Msg("block generate failed")
			return nil, err
		}
	}

	r.logger.Debug().Str("schema", r.name).Int("size", len(ctx.Buffer)).Msg("block generated")
	return ctx.Buffer, nil
}

func (r *Registry) generateSection(id SectionID, supplied map[string][]byte, ctx *EncodeContext) error {
	out := ParsedSection{ID: id}

	for _, f := range r.sections[id].Fields {
		present, err := r.present(id, f, &out, len(ctx.Buffer))
		if err != nil {
			return err
		}
		if !present {
			continue
		}

		raw, ok := supplied[f.Name]
		if f.Rest {
			raw = bytes.Clone(raw)
			if raw == nil {
				raw = []byte{}
			}
			ctx.Write(raw)
			out.Fields = append(out.Fields, r.newParsedField(f, raw))
			continue
		}

		count, err := resolveRepeat(f, &out)
		if err != nil {
			return &FieldError{Section: id, Field: f.Name, Offset: len(ctx.Buffer), Err: err}
		}
		want := count * f.Length
		if !ok {
			raw = make([]byte, want)
		} else if len(raw) != want {
			return &FieldError{
				Section: id,
				Field:   f.Name,
				Offset:  len(ctx.Buffer),
				Err:     fmt.Errorf("%w: got %d bytes, want %d", ErrLengthMismatch, len(raw), want),
			}
		}

		for chunk := range slices.Chunk(raw, f.Length) {
			chunk = bytes.Clone(chunk)
			ctx.Write(chunk)
			out.Fields = append(out.Fields, r.newParsedField(f, chunk))
		}
	}
	return nil
}
