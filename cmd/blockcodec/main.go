// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Command blockcodec decodes and builds DATEX blocks.
//
// Usage:
//
//	blockcodec decode [-config file] [-format json|text] [-strict] <hex|->
//	blockcodec generate [-config file] <values.toml>
//	blockcodec schema [-config file]
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var errUsage = errors.New("usage: blockcodec decode|generate|schema [flags] [args]")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "blockcodec: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "blockcodec").Logger()
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML config file")

	switch cmd {
	case "decode":
		format := fs.String("format", "", "output format: json or text")
		strict := fs.Bool("strict", false, "fail on unresolved predicate paths")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("decode: expected one hex argument or -")
		}
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		if *format != "" {
			if cfg.Format, err = parseFormat(*format); err != nil {
				return err
			}
		}
		if *strict {
			cfg.Strict = true
		}
		return runDecode(cfg, fs.Arg(0), stdin, stdout, stderr)

	case "generate":
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("generate: expected a values file")
		}
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		return runGenerate(cfg, fs.Arg(0), stdout, stderr)

	case "schema":
		if err := fs.Parse(args); err != nil {
			return err
		}
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		return runSchema(cfg, stdout, stderr)

	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

func runDecode(cfg config, input string, stdin io.Reader, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, cfg.LogLevel)
	r, err := loadRegistry(cfg, logger)
	if err != nil {
		return err
	}

	if input == "-" {
		text, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		input = string(text)
	}
	data, err := decodeHex(input)
	if err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	block, err := r.Parse(data)
	if err != nil {
		return err
	}
	return render(stdout, cfg.Format, block)
}

func runGenerate(cfg config, valuesPath string, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, cfg.LogLevel)
	r, err := loadRegistry(cfg, logger)
	if err != nil {
		return err
	}
	values, err := loadValues(r, valuesPath)
	if err != nil {
		return err
	}
	data, err := r.Generate(values)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, hex.EncodeToString(data))
	return err
}

func runSchema(cfg config, stdout, stderr io.Writer) error {
	r, err := loadRegistry(cfg, newLogger(stderr, cfg.LogLevel))
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	return enc.Close()
}
