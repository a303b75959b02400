package cgi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/beward-tools/bewardctl/internal/protocol"
)

// Document is a configuration dump: a JSON object of named sections kept in
// insertion order, for example
//
//	{"ntp": {"Enable": "1", "Server": "pool.ntp.org"}, "Keys": [...]}
type Document struct {
	names    []string
	sections map[string]json.RawMessage
}

// Dumper is implemented by modules that contribute to a Document.
type Dumper interface {
	DumpTo(doc *Document) error
	RestoreFrom(doc *Document) error
}

// NewDocument creates an empty dump.
func NewDocument() *Document {
	return &Document{sections: make(map[string]json.RawMessage)}
}

// ParseDocument decodes a dump.
func ParseDocument(data []byte) (*Document, error) {
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse dump: %w", err)
	}
	return doc, nil
}

// ReadDocument decodes a dump from r.
func ReadDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseDocument(data)
}

// Put stores v under name, replacing an existing section in place.
func (d *Document) Put(name string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("dump section %s: %w", name, err)
	}
	if _, ok := d.sections[name]; !ok {
		d.names = append(d.names, name)
	}
	d.sections[name] = bytes.TrimRight(buf.Bytes(), "\n")
	return nil
}

// Get decodes the named section into v. It reports false when the section
// is absent.
func (d *Document) Get(name string, v any) (bool, error) {
	raw, ok := d.sections[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("dump section %s: %w", name, err)
	}
	return true, nil
}

// Has reports whether a section exists.
func (d *Document) Has(name string) bool {
	_, ok := d.sections[name]
	return ok
}

// Names returns the section names in order.
func (d *Document) Names() []string {
	return append([]string(nil), d.names...)
}

// Merge copies every section of other into d.
func (d *Document) Merge(other *Document) {
	for _, name := range other.names {
		if _, ok := d.sections[name]; !ok {
			d.names = append(d.names, name)
		}
		d.sections[name] = other.sections[name]
	}
}

// MarshalJSON writes the sections in order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range d.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(d.sections[name])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of sections, keeping document order.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("dump: expected a JSON object")
	}
	*d = Document{sections: make(map[string]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if _, ok := d.sections[name]; !ok {
			d.names = append(d.names, name)
		}
		d.sections[name] = raw
	}
	_, err = dec.Token()
	return err
}

// WriteTo writes the dump as indented JSON without HTML escaping.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return 0, err
	}
	buf.WriteByte('\n')
	return buf.WriteTo(w)
}

// DumpTo stores the module's fields under its name.
func (m *Module) DumpTo(doc *Document) error {
	if m.commandOnly {
		return NewUnsupportedError(m.name, "dump")
	}
	return doc.Put(m.name, m.fields)
}

// RestoreFrom applies the module's section through Update. A missing
// section is not an error.
func (m *Module) RestoreFrom(doc *Document) error {
	if m.commandOnly {
		return NewUnsupportedError(m.name, "restore")
	}
	var fields protocol.Fields
	ok, err := doc.Get(m.name, &fields)
	if err != nil || !ok {
		return err
	}
	return m.Update(fields.Map())
}

// Dump returns {"<name>": {fields}} as JSON.
func (m *Module) Dump() ([]byte, error) {
	doc := NewDocument()
	if err := m.DumpTo(doc); err != nil {
		return nil, err
	}
	return doc.MarshalJSON()
}

// LoadDump applies a dump produced by Dump or by a multi-module sweep.
func (m *Module) LoadDump(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	return m.RestoreFrom(doc)
}
