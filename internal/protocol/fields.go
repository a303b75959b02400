package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"slices"
	"strings"
)

// Fields is an ordered string map. Keys are unique and keep their first
// insertion position; setting an existing key replaces its value in place.
//
// Module parameter sets and parsed responses both use Fields so that dumps
// and requests list fields in the order the device reported them.
type Fields struct {
	keys   []string
	values map[string]string
}

// NewFields creates an empty field map.
func NewFields() *Fields {
	return &Fields{values: make(map[string]string)}
}

// FieldsFromMap builds a field map from m with keys in the given order.
// Keys of m missing from order are appended in lexical order.
func FieldsFromMap(m map[string]string, order ...string) *Fields {
	f := NewFields()
	for _, k := range order {
		if v, ok := m[k]; ok {
			f.Set(k, v)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !f.Has(k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		f.Set(k, m[k])
	}
	return f
}

// Set stores value under key.
func (f *Fields) Set(key, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.values[key]
	return v, ok
}

// Value returns the value stored under key or "" when absent.
func (f *Fields) Value(key string) string {
	v, _ := f.Get(key)
	return v
}

// Has reports whether key is present.
func (f *Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Delete removes key, preserving the order of the remaining keys.
func (f *Fields) Delete(key string) {
	if !f.Has(key) {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Keys returns the keys in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Each calls fn for every pair in insertion order.
func (f *Fields) Each(fn func(key, value string)) {
	if f == nil {
		return
	}
	for _, k := range f.keys {
		fn(k, f.values[k])
	}
}

// Map returns a shallow copy as a plain map.
func (f *Fields) Map() map[string]string {
	out := make(map[string]string, f.Len())
	f.Each(func(k, v string) { out[k] = v })
	return out
}

// Clone returns an independent copy.
func (f *Fields) Clone() *Fields {
	out := NewFields()
	f.Each(out.Set)
	return out
}

// Values converts the fields into request parameters.
func (f *Fields) Values() url.Values {
	out := make(url.Values, f.Len())
	f.Each(func(k, v string) { out.Set(k, v) })
	return out
}

// IsMessageKey reports whether key is the message slot or one of the
// synthetic message_<n> keys produced by Parse.
func IsMessageKey(key string) bool {
	return key == MessageKey || strings.HasPrefix(key, MessageKey+"_")
}

// MarshalJSON encodes the fields as a JSON object in insertion order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(f.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping the key
// order of the document.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("fields: expected a JSON object")
	}
	*f = Fields{values: make(map[string]string)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		f.Set(key, value)
	}
	_, err = dec.Token()
	return err
}
