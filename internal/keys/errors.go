package keys

import "errors"

// ErrInvalidKey matches every *Error with errors.Is.
var ErrInvalidKey = errors.New("invalid key")

// ErrNoKeys is returned when an EQM file contains no key lines.
var ErrNoKeys = errors.New("no keys found")

// Failure reasons reported by Decode and FromParams.
const (
	ReasonNotString  = "Is not string"
	ReasonNotFound   = "Key is not found"
	ReasonWrongCount = "Wrong number of parameters"
)

// Error describes a key string or key object that could not be decoded.
type Error struct {
	Reason string // One of the Reason* constants
	Input  string // Offending input, if it was a string
}

func (e *Error) Error() string {
	return e.Reason
}

// Is reports whether target is ErrInvalidKey.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidKey
}

func invalid(reason, input string) error {
	return &Error{Reason: reason, Input: input}
}
