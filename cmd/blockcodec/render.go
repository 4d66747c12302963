// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/hex"
	"fmt"
	"io"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/MultiTechSystems/datex-block-codec/go/schema"
)

type blockView struct {
	Length   int           `json:"length"`
	Sections []sectionView `json:"sections"`
}

type sectionView struct {
	Name   string      `json:"name"`
	Fields []fieldView `json:"fields"`
}

type fieldView struct {
	Name  string    `json:"name"`
	Raw   string    `json:"raw"`
	Value any       `json:"value,omitempty"`
	Bits  []bitView `json:"bits,omitempty"`
}

type bitView struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// newBlockView keeps sections and fields in wire order.
func newBlockView(b *schema.Block) blockView {
	view := blockView{Length: b.Len()}
	for _, sec := range b.Sections {
		sv := sectionView{Name: sec.ID.String(), Fields: []fieldView{}}
		for _, f := range sec.Fields {
			fv := fieldView{Name: f.Name, Raw: hex.EncodeToString(f.Raw), Value: f.Value}
			for _, s := range f.SubFields {
				fv.Bits = append(fv.Bits, bitView{Name: s.Name, Value: s.Value})
			}
			sv.Fields = append(sv.Fields, fv)
		}
		view.Sections = append(view.Sections, sv)
	}
	return view
}

func renderJSON(w io.Writer, b *schema.Block) error {
	if err := jsonv2.MarshalWrite(w, newBlockView(b), jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("render json: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func renderText(w io.Writer, b *schema.Block) error {
	view := newBlockView(b)
	ew := &errWriter{w: w}
	for _, sec := range view.Sections {
		ew.printf("%s\n", sec.Name)
		for _, f := range sec.Fields {
			switch {
			case f.Value == nil:
				ew.printf("  %s [%s]\n", f.Name, f.Raw)
			case f.Value == f.Raw:
				ew.printf("  %s = %s\n", f.Name, f.Raw)
			default:
				ew.printf("  %s = %v [%s]\n", f.Name, f.Value, f.Raw)
			}
			for _, s := range f.Bits {
				ew.printf("    %s = %v\n", s.Name, s.Value)
			}
		}
	}
	ew.printf("%d bytes\n", view.Length)
	return ew.err
}

func render(w io.Writer, format string, b *schema.Block) error {
	if format == "text" {
		return renderText(w, b)
	}
	return renderJSON(w, b)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
