package config

import (
	"bytes"
	"encoding/json"
	"strconv"

	"httpdiff/internal/apperr"
)

// HeadersMap maps header names to their configured values. Merging is by
// exact key; endpoint-level keys override domain-level keys on collision.
type HeadersMap map[string]HeaderValue

// HeaderValue is either a string or an unsigned 64-bit integer in the file.
// Integers that overflow uint64 are rejected at parse time rather than
// silently truncated.
type HeaderValue struct {
	Str   string
	Num   uint64
	IsNum bool
}

// StringHeader wraps a string header value.
func StringHeader(s string) HeaderValue { return HeaderValue{Str: s} }

// NumberHeader wraps an integer header value.
func NumberHeader(n uint64) HeaderValue { return HeaderValue{Num: n, IsNum: true} }

// Value renders the header value as it goes on the wire.
func (v HeaderValue) Value() string {
	if v.IsNum {
		return strconv.FormatUint(v.Num, 10)
	}
	return v.Str
}

func (v *HeaderValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = HeaderValue{Str: s}
		return nil
	}

	n, err := strconv.ParseUint(string(trimmed), 10, 64)
	if err != nil {
		return apperr.New(apperr.FailedToParseConfig, "header value %s is neither a string nor an unsigned integer", trimmed)
	}
	*v = HeaderValue{Num: n, IsNum: true}
	return nil
}

func (v HeaderValue) MarshalJSON() ([]byte, error) {
	if v.IsNum {
		return json.Marshal(v.Num)
	}
	return json.Marshal(v.Str)
}

// VariablesMap maps placeholder names to their value sets.
type VariablesMap map[string]Variable

// Generator names a value produced at expansion time rather than written in
// the file. UUID is the only generator today.
type Generator string

// GeneratorUUID produces a fresh v4 UUID per expansion instance.
const GeneratorUUID Generator = "UUID"

// ValueKind discriminates VariableValue.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueInt
	ValueGenerator
)

// VariableValue is one concrete leaf of a variable: a string, a non-negative
// integer, or a named generator. The serialized form is ambiguous on purpose:
// a bare integer is Int, the exact string "UUID" is the generator, any other
// string is String.
type VariableValue struct {
	Kind      ValueKind
	Str       string
	Int       uint64
	Generator Generator
}

// StringValue wraps a literal string.
func StringValue(s string) VariableValue { return VariableValue{Kind: ValueString, Str: s} }

// IntValue wraps a literal integer.
func IntValue(n uint64) VariableValue { return VariableValue{Kind: ValueInt, Int: n} }

// GeneratorValue wraps a generator reference.
func GeneratorValue(g Generator) VariableValue {
	return VariableValue{Kind: ValueGenerator, Generator: g}
}

func (v *VariableValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if Generator(s) == GeneratorUUID {
			*v = GeneratorValue(GeneratorUUID)
		} else {
			*v = StringValue(s)
		}
		return nil
	}

	n, err := strconv.ParseUint(string(trimmed), 10, 64)
	if err != nil {
		return apperr.New(apperr.FailedToParseConfig, "variable value %s is neither a string nor a non-negative integer", trimmed)
	}
	*v = IntValue(n)
	return nil
}

func (v VariableValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueInt:
		return json.Marshal(v.Int)
	case ValueGenerator:
		return json.Marshal(string(v.Generator))
	default:
		return json.Marshal(v.Str)
	}
}

// Variable is either a single value or a list of values. A scalar in the file
// stays a scalar on save; a list stays a list.
type Variable struct {
	Values   []VariableValue
	Multiple bool
}

// SingleVariable wraps one value.
func SingleVariable(v VariableValue) Variable { return Variable{Values: []VariableValue{v}} }

// MultiVariable wraps a value list.
func MultiVariable(vs ...VariableValue) Variable { return Variable{Values: vs, Multiple: true} }

func (p *Variable) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var values []VariableValue
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return err
		}
		*p = Variable{Values: values, Multiple: true}
		return nil
	}

	var value VariableValue
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return err
	}
	*p = Variable{Values: []VariableValue{value}}
	return nil
}

func (p Variable) MarshalJSON() ([]byte, error) {
	if p.Multiple {
		return json.Marshal(p.Values)
	}
	if len(p.Values) != 1 {
		return nil, apperr.New(apperr.Exception, "single variable must hold exactly one value")
	}
	return json.Marshal(p.Values[0])
}
