package cgi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Certificate request parameters of https_cgi.
var certFields = []string{"Country", "State", "Locality", "Organization", "Unit", "CommonName", "Days"}

// HTTPSModule wraps https_cgi. Besides the ordinary parameters it keeps a
// local set of self-signed certificate parameters used by CreateCert.
type HTTPSModule struct {
	*Module
	cert map[string]string
}

// NewHTTPSModule creates the https_cgi module.
func NewHTTPSModule(t Transport) *HTTPSModule {
	cert := make(map[string]string, len(certFields))
	for _, f := range certFields {
		cert[f] = ""
	}
	return &HTTPSModule{Module: New(t, "https", "cgi-bin/https_cgi"), cert: cert}
}

// CertParams returns a copy of the certificate parameters.
func (h *HTTPSModule) CertParams() map[string]string {
	out := make(map[string]string, len(h.cert))
	for k, v := range h.cert {
		out[k] = v
	}
	return out
}

// UpdateCertParams overwrites known certificate parameters. Unknown keys
// are ignored.
func (h *HTTPSModule) UpdateCertParams(values map[string]string) {
	for k, v := range values {
		if _, ok := h.cert[k]; ok {
			h.cert[k] = v
		}
	}
}

// CreateCert generates a self-signed certificate from the certificate
// parameters.
func (h *HTTPSModule) CreateCert(ctx context.Context) error {
	params := url.Values{"action": {"createcert"}}
	for _, f := range certFields {
		params.Set(f, h.cert[f])
	}
	reply, err := h.transport.Do(ctx, getRequest(h.path, params))
	if err != nil {
		return err
	}
	if reply.StatusCode != http.StatusOK {
		return NewTransportError(reply.StatusCode, fmt.Sprintf("Error, %d", reply.StatusCode))
	}
	return nil
}

// DeleteCert removes the self-signed certificate.
func (h *HTTPSModule) DeleteCert(ctx context.Context) error {
	return h.certCommand(ctx, "deletecert")
}

// DeleteRequest removes the pending certificate request.
func (h *HTTPSModule) DeleteRequest(ctx context.Context) error {
	return h.certCommand(ctx, "deletereq")
}

func (h *HTTPSModule) certCommand(ctx context.Context, action string) error {
	resp, err := h.Call(ctx, http.MethodGet, url.Values{"action": {action}})
	if err != nil {
		return err
	}
	if msg := resp.Message(); msg != "" {
		return NewProtocolError(MsgParsingError + msg)
	}
	return nil
}
