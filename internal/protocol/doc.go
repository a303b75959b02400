// Package protocol decodes the line-oriented response bodies returned by
// Beward intercom CGI endpoints.
//
// Every CGI endpoint answers with a text/plain body of CRLF-separated lines.
// Each line is either a "Field=Value" pair or a bare diagnostic string:
//
//	HTTP/1.0 200 OK
//	Content-Type: text/plain
//
//	DoorCode=12345
//	RegCode=54321
//
// The format is not self-describing, so Parse never fails. Lines it cannot
// interpret as a single pair are kept under synthetic "message_<n>" keys,
// where n is the zero-based index of the line among the non-empty lines.
//
// # Message Slot
//
// The "message" key is distinguished. A body consisting of exactly one bare
// line stores that line under "message" (this is how the device reports "OK"
// or an error text). When no such line exists, "message" is set to the empty
// string, meaning "no error".
//
// # Usage Example
//
//	resp := protocol.Parse(http.StatusOK, []byte("A=1\r\nB=2\r\n"))
//	resp.Fields.Get("A")  // "1", true
//	resp.Message()        // ""
package protocol
