// Package capabilities decodes the positional permission strings reported
// by the pwdgrp_cgi endpoint into named permission sets.
//
// The layout is selected by token count alone (24, 25 or 32). Sets are
// read-only: there is no encoder, and localized labels are for display only.
package capabilities

import (
	"errors"
	"strings"
)

// ErrUnknownSchema is returned when the token count matches no layout.
var ErrUnknownSchema = errors.New("Pattern not found")

// SchemaError reports a permission string whose token count matches no
// layout. It matches ErrUnknownSchema with errors.Is.
type SchemaError struct {
	Tokens int
}

func (e *SchemaError) Error() string { return ErrUnknownSchema.Error() }

func (e *SchemaError) Is(target error) bool { return target == ErrUnknownSchema }

// Set is a decoded permission set.
type Set struct {
	codes  []string
	values map[string]string
}

// Entry is one permission of a Set.
type Entry struct {
	Code  string `json:"code"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// Decode splits s on "," and zips the tokens onto the matching layout.
func Decode(s string) (*Set, error) {
	tokens := strings.Split(s, ",")
	codes, ok := schemas[len(tokens)]
	if !ok {
		return nil, &SchemaError{Tokens: len(tokens)}
	}

	set := &Set{codes: codes, values: make(map[string]string, len(codes))}
	for i, code := range codes {
		set.values[code] = tokens[i]
	}
	return set, nil
}

// Len returns the number of permissions, which is also the layout length.
func (s *Set) Len() int { return len(s.codes) }

// Codes returns the permission codes in wire order.
func (s *Set) Codes() []string { return append([]string(nil), s.codes...) }

// Get returns the raw value of code.
func (s *Set) Get(code string) (string, bool) {
	v, ok := s.values[code]
	return v, ok
}

// Granted reports whether code is present with value "1".
func (s *Set) Granted(code string) bool {
	return s.values[code] == "1"
}

// Params returns code -> value. When localized is true the keys are the
// display labels instead of the codes.
func (s *Set) Params(localized bool) map[string]string {
	out := make(map[string]string, len(s.codes))
	for _, code := range s.codes {
		key := code
		if localized {
			key = Label(code)
		}
		out[key] = s.values[code]
	}
	return out
}

// Entries returns the permissions in wire order.
func (s *Set) Entries(localized bool) []Entry {
	out := make([]Entry, len(s.codes))
	for i, code := range s.codes {
		out[i] = Entry{Code: code, Value: s.values[code]}
		if localized {
			out[i].Label = Label(code)
		}
	}
	return out
}
