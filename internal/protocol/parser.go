package protocol

import (
	"fmt"
	"strings"
)

// MessageKey is the distinguished key holding the device's status text.
// An empty value means "no error".
const MessageKey = "message"

// Response is a decoded CGI reply.
type Response struct {
	StatusCode int     // HTTP status code
	Fields     *Fields // Parsed lines, always containing MessageKey
}

// Message returns the value of the message slot.
func (r *Response) Message() string {
	return r.Fields.Value(MessageKey)
}

// Contains reports whether substr occurs in any key or value.
func (r *Response) Contains(substr string) bool {
	found := false
	r.Fields.Each(func(k, v string) {
		if strings.Contains(k, substr) || strings.Contains(v, substr) {
			found = true
		}
	})
	return found
}

// Parse decodes a CGI response body. It never fails: lines that are not a
// single Field=Value pair are preserved under message_<n> keys.
//
// Line handling, where n is the zero-based index among non-empty lines:
//   - "A=B": stored as A -> B
//   - "text" when it is the only line: stored as message -> text
//   - "text" among other lines: stored as message_<n> -> text
//   - "A=B=C": stored as message_<n> -> "A;B;C"
//
// If no line produced the message key it is set to "".
func Parse(statusCode int, body []byte) *Response {
	lines := splitLines(string(body))
	fields := NewFields()

	for n, line := range lines {
		parts := strings.Split(line, "=")
		switch {
		case len(parts) == 2:
			fields.Set(parts[0], parts[1])
		case len(parts) == 1 && len(lines) == 1:
			fields.Set(MessageKey, parts[0])
		case len(parts) == 1:
			fields.Set(fmt.Sprintf("%s_%d", MessageKey, n), parts[0])
		default:
			fields.Set(fmt.Sprintf("%s_%d", MessageKey, n), strings.Join(parts, ";"))
		}
	}

	if !fields.Has(MessageKey) {
		fields.Set(MessageKey, "")
	}

	return &Response{StatusCode: statusCode, Fields: fields}
}

// splitLines strips carriage returns and drops empty lines.
func splitLines(body string) []string {
	raw := strings.Split(strings.ReplaceAll(body, "\r", ""), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
