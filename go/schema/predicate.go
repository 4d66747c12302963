// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"
	"math"
)

// PredicateKind selects how a Predicate tests its path.
type PredicateKind string

const (
	// PredicateEquals holds when the value equals Values[0].
	PredicateEquals PredicateKind = "equals"
	// PredicateOneOf holds when the value equals any of Values.
	PredicateOneOf PredicateKind = "one_of"
	// PredicatePresent holds when the path resolves at all.
	PredicatePresent PredicateKind = "present"
)

// Predicate decides whether a field is present, based on a value produced
// earlier in the same section.
type Predicate struct {
	Kind   PredicateKind
	Path   FieldPath
	Values []any
	// Not inverts a resolved outcome. It never turns OutcomeUnresolved into
	// a decision.
	Not bool
}

// Equals returns a predicate that holds when path equals v.
func Equals(path string, v any) *Predicate {
	return &Predicate{Kind: PredicateEquals, Path: MustPath(path), Values: []any{v}}
}

// OneOf returns a predicate that holds when path equals any of vs.
func OneOf(path string, vs ...any) *Predicate {
	return &Predicate{Kind: PredicateOneOf, Path: MustPath(path), Values: vs}
}

// Present returns a predicate that holds when path was produced.
func Present(path string) *Predicate {
	return &Predicate{Kind: PredicatePresent, Path: MustPath(path)}
}

// Negate returns a copy of p with Not flipped.
func (p *Predicate) Negate() *Predicate {
	n := *p
	n.Not = !p.Not
	return &n
}

func (p *Predicate) String() string {
	s := ""
	switch p.Kind {
	case PredicateEquals:
		s = fmt.Sprintf("%s == %v", p.Path, p.Values[0])
	case PredicateOneOf:
		s = fmt.Sprintf("%s in %v", p.Path, p.Values)
	case PredicatePresent:
		s = fmt.Sprintf("present(%s)", p.Path)
	default:
		s = fmt.Sprintf("%s(%s)", p.Kind, p.Path)
	}
	if p.Not {
		return "!(" + s + ")"
	}
	return s
}

// Outcome is the three-valued result of evaluating a Predicate.
type Outcome int

const (
	OutcomeFalse Outcome = iota
	OutcomeTrue
	// OutcomeUnresolved means the path named nothing in the section output,
	// typically because the referenced field was itself skipped.
	OutcomeUnresolved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFalse:
		return "false"
	case OutcomeTrue:
		return "true"
	case OutcomeUnresolved:
		return "unresolved"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Evaluate tests the predicate against the fields produced so far.
func (p *Predicate) Evaluate(sec *ParsedSection) Outcome {
	v, found := sec.Lookup(p.Path)

	var hold bool
	switch p.Kind {
	case PredicatePresent:
		hold = found
	case PredicateEquals, PredicateOneOf:
		if !found {
			return OutcomeUnresolved
		}
		for _, want := range p.Values {
			if valuesEqual(v, want) {
				hold = true
				break
			}
		}
	default:
		return OutcomeUnresolved
	}

	if hold != p.Not {
		return OutcomeTrue
	}
	return OutcomeFalse
}

func (p *Predicate) validate() error {
	switch p.Kind {
	case PredicateEquals:
		if len(p.Values) != 1 {
			return fmt.Errorf("equals needs exactly one value, got %d", len(p.Values))
		}
	case PredicateOneOf:
		if len(p.Values) == 0 {
			return fmt.Errorf("one_of needs at least one value")
		}
	case PredicatePresent:
		if len(p.Values) != 0 {
			return fmt.Errorf("present takes no values")
		}
	default:
		return fmt.Errorf("unknown predicate kind %q", p.Kind)
	}
	for _, v := range p.Values {
		switch v.(type) {
		case string, bool:
		default:
			if _, _, ok := integerValue(v); !ok {
				return fmt.Errorf("predicate value %v (%T) must be an integer, string or bool", v, v)
			}
		}
	}
	return nil
}

// valuesEqual compares a decoded value with a predicate literal. Integers
// compare numerically across signed and unsigned representations; strings and
// bools compare exactly; anything else is unequal.
func valuesEqual(got, want any) bool {
	if gn, gm, ok := integerValue(got); ok {
		wn, wm, ok := integerValue(want)
		return ok && gn == wn && gm == wm
	}
	switch g := got.(type) {
	case string:
		w, ok := want.(string)
		return ok && g == w
	case bool:
		w, ok := want.(bool)
		return ok && g == w
	}
	return false
}

// integerValue splits an integer (or integral float) into sign and magnitude.
func integerValue(v any) (neg bool, mag uint64, ok bool) {
	switch n := v.(type) {
	case int:
		return signed(int64(n))
	case int8:
		return signed(int64(n))
	case int16:
		return signed(int64(n))
	case int32:
		return signed(int64(n))
	case int64:
		return signed(n)
	case uint:
		return false, uint64(n), true
	case uint8:
		return false, uint64(n), true
	case uint16:
		return false, uint64(n), true
	case uint32:
		return false, uint64(n), true
	case uint64:
		return false, n, true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt64 {
			return false, 0, false
		}
		return signed(int64(n))
	}
	return false, 0, false
}

func signed(n int64) (bool, uint64, bool) {
	if n < 0 {
		return true, uint64(-(n + 1)) + 1, true
	}
	return false, uint64(n), true
}
