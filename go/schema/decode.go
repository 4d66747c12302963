// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"bytes"
	"fmt"
)

// DecodeContext is the cursor of one Parse call. It is shared by all four
// sections; a section starts where the previous one ended.
type DecodeContext struct {
	Data   []byte
	Offset int
}

// NewDecodeContext creates a new decode context.
func NewDecodeContext(data []byte) *DecodeContext {
	return &DecodeContext{Data: data}
}

// Remaining returns the number of bytes remaining.
func (ctx *DecodeContext) Remaining() int {
	return len(ctx.Data) - ctx.Offset
}

// Read copies the next n bytes and advances the offset.
func (ctx *DecodeContext) Read(n int) ([]byte, error) {
	if n > ctx.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes, but only %d remaining", ErrTruncatedInput, n, ctx.Remaining())
	}
	result := bytes.Clone(ctx.Data[ctx.Offset : ctx.Offset+n])
	ctx.Offset += n
	return result, nil
}

// ReadRest copies every remaining byte and moves the offset to the end.
func (ctx *DecodeContext) ReadRest() []byte {
	result := make([]byte, ctx.Remaining())
	copy(result, ctx.Data[ctx.Offset:])
	ctx.Offset = len(ctx.Data)
	return result
}

// Parse decodes one block. Sections are read in wire order from a single
// cursor. On failure no Block is returned.
func (r *Registry) Parse(data []byte) (*Block, error) {
	ctx := NewDecodeContext(data)
	block := &Block{}

	for _, id := range SectionIDs() {
		sec, err := r.parseSection(id, ctx)
		if err != nil {
			r.logger.Debug().Err(err).Int("size", len(data)).Msg("block parse failed")
			return nil, err
		}
		block.Sections[id] = sec
	}
	if ctx.Remaining() > 0 {
		err := &FieldError{
			Section: Body,
			Offset:  ctx.Offset,
			Err:     fmt.Errorf("%w: %d bytes", ErrTrailingData, ctx.Remaining()),
		}
		r.logger.Debug().Err(err).Int("size", len(data)).Msg("block parse failed")
		return nil, err
	}

	r.logger.Debug().
		Str("schema", r.name).
		Int("size", len(data)).
		Int("routing_header", block.Sections[RoutingHeader].Len()).
		Int("block_header", block.Sections[BlockHeader].Len()).
		Int("encrypted_header", block.Sections[EncryptedHeader].Len()).
		Int("body", block.Sections[Body].Len()).
		Msg("block parsed")
	return block, nil
}

func (r *Registry) parseSection(id SectionID, ctx *DecodeContext) (ParsedSection, error) {
	out := ParsedSection{ID: id}

	for _, f := range r.sections[id].Fields {
		present, err := r.present(id, f, &out, ctx.Offset)
		if err != nil {
			return ParsedSection{}, err
		}
		if !present {
			continue
		}

		if f.Rest {
			out.Fields = append(out.Fields, r.newParsedField(f, ctx.ReadRest()))
			continue
		}

		count, err := resolveRepeat(f, &out)
		if err != nil {
			return ParsedSection{}, &FieldError{Section: id, Field: f.Name, Offset: ctx.Offset, Err: err}
		}
		for i := 0; i < count; i++ {
			offset := ctx.Offset
			raw, err := ctx.Read(f.Length)
			if err != nil {
				return ParsedSection{}, &FieldError{Section: id, Field: f.Name, Index: i, Offset: offset, Err: err}
			}
			out.Fields = append(out.Fields, r.newParsedField(f, raw))
		}
	}
	return out, nil
}

// present evaluates the field's predicate against the section output so far.
// An unresolved path skips the field, or fails in strict mode.
func (r *Registry) present(id SectionID, f FieldSpec, sec *ParsedSection, offset int) (bool, error) {
	if f.When == nil {
		return true, nil
	}
	switch f.When.Evaluate(sec) {
	case OutcomeTrue:
		return true, nil
	case OutcomeFalse:
		return false, nil
	}

	if r.strict {
		return false, &FieldError{
			Section: id,
			Field:   f.Name,
			Offset:  offset,
			Err:     fmt.Errorf("%w: %s", ErrUnresolvedPath, f.When.Path),
		}
	}
	r.logger.Warn().
		Str("section", id.String()).
		Str("field", f.Name).
		Str("path", f.When.Path.String()).
		Msg("predicate path not produced, skipping field")
	return false, nil
}

// newParsedField builds the parsed form of one field instance. Parse and
// Generate share it so predicates see the same values on both paths.
func (r *Registry) newParsedField(f FieldSpec, raw []byte) ParsedField {
	return ParsedField{
		Name:      f.Name,
		Raw:       raw,
		Value:     parseValue(f, raw, r.fieldEndian(f)),
		SubFields: DecodeBits(raw, f.Bits),
	}
}
