package cgi

import (
	"strings"

	"github.com/beward-tools/bewardctl/internal/protocol"
)

// NewVideoMaskModule creates the videomask_cgi module. The device reports
// mask regions as bare lines of whitespace separated "name;value" pieces;
// each piece becomes a field of its own.
func NewVideoMaskModule(t Transport) *Module {
	return New(t, "videomask", "cgi-bin/videomask_cgi", WithDecoder(decodeVideoMask))
}

func decodeVideoMask(resp *protocol.Response) (*protocol.Fields, error) {
	if resp.Fields.Len() == 1 && resp.Message() == "" {
		return nil, NewProtocolError(MsgUnknownParse)
	}

	fields := protocol.NewFields()
	resp.Fields.Each(func(k, v string) {
		if !protocol.IsMessageKey(k) {
			fields.Set(k, v)
			return
		}
		for _, piece := range strings.Fields(v) {
			name, value, ok := strings.Cut(piece, ";")
			if !ok {
				continue
			}
			fields.Set(name, value)
		}
	})
	return fields, nil
}
