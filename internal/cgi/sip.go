package cgi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/beward-tools/bewardctl/internal/protocol"
)

// SipModule wraps sip_cgi: ordinary account parameters plus registration
// status and test calls.
type SipModule struct {
	*Module
}

// NewSipModule creates the sip_cgi module.
func NewSipModule(t Transport) *SipModule {
	return &SipModule{Module: New(t, "sip", "cgi-bin/sip_cgi")}
}

// RegStatus returns the SIP registration status fields.
func (s *SipModule) RegStatus(ctx context.Context) (*protocol.Fields, error) {
	resp, err := s.Call(ctx, http.MethodGet, url.Values{"action": {"regstatus"}})
	if err != nil {
		return nil, err
	}
	return resp.Fields, nil
}

// Dial places a call to uri, e.g. "sip:100@10.0.0.1".
func (s *SipModule) Dial(ctx context.Context, uri string) (*protocol.Fields, error) {
	resp, err := s.Call(ctx, http.MethodGet, url.Values{"action": {"call"}, "Uri": {uri}})
	if err != nil {
		return nil, err
	}
	return resp.Fields, nil
}
