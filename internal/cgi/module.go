package cgi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/beward-tools/bewardctl/internal/protocol"
)

// ErrNotLoaded is returned by Set before the first successful Load.
var ErrNotLoaded = errors.New("module not loaded")

// DecodeFunc turns a get reply into module fields. It replaces the default
// extraction and runs after the status and "is not defined" checks.
type DecodeFunc func(resp *protocol.Response) (*protocol.Fields, error)

// EncodeFunc rewrites a copy of the fields before they are sent by Set.
type EncodeFunc func(fields *protocol.Fields) (*protocol.Fields, error)

// Module is one CGI endpoint following the load/get/update/set contract.
//
// Load replaces the stored fields with the device's current values. Update
// merges local changes into fields the device already reported, and Set
// sends the complete field set back. A Module is not safe for concurrent use.
type Module struct {
	name       string
	path       string
	transport  Transport
	params     url.Values
	loadAction string
	decode     DecodeFunc
	encode     EncodeFunc

	commandOnly bool
	readOnly    bool

	fields *protocol.Fields
	loaded bool
}

// Option configures a Module.
type Option func(*Module)

// WithParams adds static parameters sent on every load and set.
func WithParams(params url.Values) Option {
	return func(m *Module) {
		for k, v := range params {
			m.params[k] = append([]string(nil), v...)
		}
	}
}

// WithParam adds a single static parameter.
func WithParam(key, value string) Option {
	return func(m *Module) { m.params.Set(key, value) }
}

// WithLoadAction replaces the "get" action used by Load.
func WithLoadAction(action string) Option {
	return func(m *Module) { m.loadAction = action }
}

// WithDecoder installs a post-load decode hook.
func WithDecoder(fn DecodeFunc) Option {
	return func(m *Module) { m.decode = fn }
}

// WithEncoder installs a pre-set encode hook.
func WithEncoder(fn EncodeFunc) Option {
	return func(m *Module) { m.encode = fn }
}

// CommandOnly marks an endpoint that only accepts commands. Load, Get,
// Update and Set fail locally with ErrTypeUnsupported.
func CommandOnly() Option {
	return func(m *Module) { m.commandOnly = true }
}

// ReadOnly marks an endpoint whose values cannot be written back.
func ReadOnly() Option {
	return func(m *Module) { m.readOnly = true }
}

// New creates a module for the endpoint at path.
func New(t Transport, name, path string, opts ...Option) *Module {
	m := &Module{
		name:       name,
		path:       path,
		transport:  t,
		params:     url.Values{},
		loadAction: "get",
		fields:     protocol.NewFields(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the module name used in dumps and on the command line.
func (m *Module) Name() string { return m.name }

// Path returns the endpoint path.
func (m *Module) Path() string { return m.path }

// Loaded reports whether Load has succeeded at least once.
func (m *Module) Loaded() bool { return m.loaded }

// Load fetches the module's fields from the device and replaces the stored
// set. Any reply mentioning "is not defined" fails with MsgModuleNotDefined,
// a non-200 reply fails with the device message, and a non-empty message on
// a 200 reply fails with MsgParsingError.
func (m *Module) Load(ctx context.Context) error {
	if m.commandOnly {
		return NewUnsupportedError(m.name, "load")
	}

	params := m.requestParams()
	params.Set("action", m.loadAction)

	resp, err := m.send(ctx, getRequest(m.path, params))
	if err != nil {
		return err
	}
	if err := CheckReply(resp); err != nil {
		return err
	}

	decode := m.decode
	if decode == nil {
		decode = DefaultDecode
	}
	fields, err := decode(resp)
	if err != nil {
		return err
	}

	m.fields = fields
	m.loaded = true
	return nil
}

// Get returns a copy of the stored fields without contacting the device.
func (m *Module) Get() (map[string]string, error) {
	if m.commandOnly {
		return nil, NewUnsupportedError(m.name, "get")
	}
	return m.fields.Map(), nil
}

// Fields returns an ordered copy of the stored fields.
func (m *Module) Fields() (*protocol.Fields, error) {
	if m.commandOnly {
		return nil, NewUnsupportedError(m.name, "get")
	}
	return m.fields.Clone(), nil
}

// Value returns one stored field.
func (m *Module) Value(key string) (string, bool) {
	return m.fields.Get(key)
}

// Update overwrites stored fields with values. Keys the device never
// reported are ignored. The device is not contacted.
func (m *Module) Update(values map[string]string) error {
	if m.commandOnly {
		return NewUnsupportedError(m.name, "update")
	}
	for k, v := range values {
		if m.fields.Has(k) {
			m.fields.Set(k, v)
		}
	}
	return nil
}

// Set sends every stored field with action=set. The device has no partial
// update, so unchanged fields are sent as well.
func (m *Module) Set(ctx context.Context) error {
	if m.commandOnly || m.readOnly {
		return NewUnsupportedError(m.name, "set")
	}
	if !m.loaded {
		return fmt.Errorf("%s: %w", m.name, ErrNotLoaded)
	}

	out := m.fields.Clone()
	if m.encode != nil {
		var err error
		if out, err = m.encode(out); err != nil {
			return err
		}
	}

	params := out.Values()
	for k, v := range m.params {
		params[k] = append([]string(nil), v...)
	}
	params.Set("action", "set")

	reply, err := m.transport.Do(ctx, postRequest(m.path, params))
	if err != nil {
		return err
	}
	if reply.StatusCode != http.StatusOK {
		return NewTransportError(reply.StatusCode, fmt.Sprintf("Error, %d", reply.StatusCode))
	}
	return nil
}

// Call sends a command to the endpoint and returns the parsed reply. A
// non-200 reply fails with the device message.
func (m *Module) Call(ctx context.Context, method string, params url.Values) (*protocol.Response, error) {
	return m.CallPath(ctx, method, m.path, params)
}

// CallPath is Call against another endpoint sharing this module's transport.
func (m *Module) CallPath(ctx context.Context, method, path string, params url.Values) (*protocol.Response, error) {
	req := &Request{Method: method, Path: path, Params: params}
	return m.call(ctx, req)
}

func (m *Module) call(ctx context.Context, req *Request) (*protocol.Response, error) {
	resp, err := m.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewTransportError(resp.StatusCode, messageOr(resp, MsgUnknownError))
	}
	return resp, nil
}

func (m *Module) send(ctx context.Context, req *Request) (*protocol.Response, error) {
	reply, err := m.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return protocol.Parse(reply.StatusCode, reply.Body), nil
}

// requestParams returns a copy of the static parameters.
func (m *Module) requestParams() url.Values {
	params := make(url.Values, len(m.params)+1)
	for k, v := range m.params {
		params[k] = append([]string(nil), v...)
	}
	return params
}

// CheckReply applies the checks common to every load: the "is not defined"
// marker anywhere in the reply, then the HTTP status.
func CheckReply(resp *protocol.Response) error {
	if resp.Contains(notDefinedMarker) {
		return NewProtocolError(MsgModuleNotDefined)
	}
	if resp.StatusCode != http.StatusOK {
		return NewTransportError(resp.StatusCode, messageOr(resp, MsgUnknownError))
	}
	return nil
}

// DefaultDecode rejects a reply with a non-empty message and keeps every
// field except message and message_<n>.
func DefaultDecode(resp *protocol.Response) (*protocol.Fields, error) {
	if msg := resp.Message(); msg != "" {
		return nil, NewProtocolError(MsgParsingError + msg)
	}
	return dataFields(resp), nil
}

func dataFields(resp *protocol.Response) *protocol.Fields {
	out := protocol.NewFields()
	resp.Fields.Each(func(k, v string) {
		if !protocol.IsMessageKey(k) {
			out.Set(k, v)
		}
	})
	return out
}

func messageOr(resp *protocol.Response, fallback string) string {
	if msg := resp.Message(); msg != "" {
		return msg
	}
	return fallback
}
