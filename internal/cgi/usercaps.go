package cgi

import (
	"fmt"
	"strings"

	"github.com/beward-tools/bewardctl/internal/capabilities"
	"github.com/beward-tools/bewardctl/internal/protocol"
)

// UserCapabilitiesModule reads per-user permission strings from pwdgrp_cgi.
//
// The reply starts with a bare category header followed by one
// "user:capabilities" line per account. The module is read-only.
type UserCapabilitiesModule struct {
	*Module
	header string
}

// NewUserCapabilitiesModule creates the pwdgrp_cgi module.
func NewUserCapabilitiesModule(t Transport) *UserCapabilitiesModule {
	u := &UserCapabilitiesModule{}
	u.Module = New(t, "usercaps", "cgi-bin/pwdgrp_cgi", ReadOnly(), WithDecoder(u.decode))
	return u
}

func (u *UserCapabilitiesModule) decode(resp *protocol.Response) (*protocol.Fields, error) {
	header, ok := resp.Fields.Get(protocol.MessageKey + "_0")
	if !ok {
		return nil, NewProtocolError(MsgUnknownParse)
	}

	fields := protocol.NewFields()
	resp.Fields.Each(func(k, v string) {
		if k == protocol.MessageKey+"_0" || v == "" {
			return
		}
		user, caps, found := strings.Cut(v, ":")
		if !found {
			return
		}
		fields.Set(user, caps)
	})
	u.header = header
	return fields, nil
}

// Header returns the category line of the last load.
func (u *UserCapabilitiesModule) Header() string { return u.header }

// Users returns the account names in device order.
func (u *UserCapabilitiesModule) Users() []string { return u.fields.Keys() }

// Capabilities decodes the permission string of user.
func (u *UserCapabilitiesModule) Capabilities(user string) (*capabilities.Set, error) {
	raw, ok := u.fields.Get(user)
	if !ok {
		return nil, NewProtocolError(fmt.Sprintf("unknown user %q", user))
	}
	set, err := capabilities.Decode(raw)
	if err != nil {
		return nil, NewDecodeError(fmt.Errorf("%s: %w", user, err))
	}
	return set, nil
}

// All decodes every account. Accounts whose permission string matches no
// layout are reported in the returned error while the rest are kept.
func (u *UserCapabilitiesModule) All(localized bool) (map[string][]capabilities.Entry, error) {
	out := make(map[string][]capabilities.Entry, u.fields.Len())
	var firstErr error
	for _, user := range u.fields.Keys() {
		set, err := u.Capabilities(user)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out[user] = set.Entries(localized)
	}
	return out, firstErr
}
