package pipeline

import "fmt"

// ErrorKind classifies terminal failures of a parse.
type ErrorKind int

const (
	// KindInput covers bad arguments and missing or unreadable files.
	KindInput ErrorKind = iota
	// KindDecode means the structured decoder rejected the file.
	KindDecode
	// KindSerialize means the assembled output could not be encoded.
	KindSerialize
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindDecode:
		return "decode"
	case KindSerialize:
		return "serialize"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a terminal parse failure. Message is the caller-facing text.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func inputError(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInput, Message: fmt.Sprintf(format, args...), Err: err}
}
