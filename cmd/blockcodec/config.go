// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/MultiTechSystems/datex-block-codec/go/schema"
)

type config struct {
	// Schema is a YAML registry file; empty selects the built-in DATEX schema.
	Schema   string
	LogLevel zerolog.Level
	Format   string
	Strict   bool
}

func defaultConfig() config {
	return config{
		LogLevel: zerolog.WarnLevel,
		Format:   "json",
	}
}

type fileConfig struct {
	Schema   string `toml:"schema"`
	LogLevel string `toml:"log_level"`
	Format   string `toml:"format"`
	Strict   bool   `toml:"strict"`
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("schema") {
		s := strings.TrimSpace(raw.Schema)
		if s != "" && !filepath.IsAbs(s) {
			s = filepath.Join(filepath.Dir(path), s)
		}
		cfg.Schema = s
	}

	if meta.IsDefined("log_level") {
		level, err := zerolog.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return config{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = level
	}

	if meta.IsDefined("format") {
		format, err := parseFormat(raw.Format)
		if err != nil {
			return config{}, err
		}
		cfg.Format = format
	}

	if meta.IsDefined("strict") {
		cfg.Strict = raw.Strict
	}

	return cfg, nil
}

func parseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "json", "text":
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q, want json or text", s)
	}
}

func loadRegistry(cfg config, logger zerolog.Logger) (*schema.Registry, error) {
	opts := []schema.Option{schema.WithLogger(logger)}
	if cfg.Strict {
		opts = append(opts, schema.WithStrictPaths())
	}
	if cfg.Schema == "" {
		return schema.DefaultRegistry(opts...)
	}

	data, err := os.ReadFile(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	r, err := schema.ParseRegistry(string(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Schema, err)
	}
	return r, nil
}

// loadValues reads generate input from a TOML file. Each table names a
// section; each key a field. A value is a hex string, an array of hex strings
// for a repeated field, or a table of bit field values.
//
//	[routing_header]
//	flags = { receiver_type = 2, has_checksum = true }
//	receivers_count = "02"
func loadValues(r *schema.Registry, path string) (schema.Values, error) {
	doc := map[string]map[string]any{}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("load values: %w", err)
	}
	return buildValues(r, doc)
}

func buildValues(r *schema.Registry, doc map[string]map[string]any) (schema.Values, error) {
	values := schema.Values{}

	for _, secName := range sortedKeys(doc) {
		id, err := schema.ParseSectionID(secName)
		if err != nil {
			return nil, err
		}
		fields := doc[secName]
		for _, name := range sortedKeys(fields) {
			raw, err := fieldBytes(r, id, name, fields[name])
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", id, name, err)
			}
			values.Set(id, name, raw)
		}
	}
	return values, nil
}

func fieldBytes(r *schema.Registry, id schema.SectionID, name string, v any) ([]byte, error) {
	switch v := v.(type) {
	case string:
		return decodeHex(v)
	case []any:
		var out []byte
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d is %T, want a hex string", i, item)
			}
			b, err := decodeHex(s)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, b...)
		}
		return out, nil
	case map[string]any:
		subs := make(map[string]uint64, len(v))
		for sub, sv := range v {
			n, err := bitValue(sv)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", sub, err)
			}
			subs[sub] = n
		}
		return r.PackField(id, name, subs)
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

func bitValue(v any) (uint64, error) {
	switch v := v.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("negative value %d", v)
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("unsupported bit field value %T", v)
	}
}

// decodeHex accepts hex with optional whitespace and a 0x prefix.
func decodeHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
