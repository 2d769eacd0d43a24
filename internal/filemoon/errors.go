package filemoon

import (
	"errors"
	"fmt"
)

// ErrorKind classifies API failures
type ErrorKind int

const (
	// KindTransport covers network failures and non-2xx HTTP responses
	KindTransport ErrorKind = iota
	// KindProtocol covers non-200 envelope statuses and malformed JSON
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error is returned by every Client operation that fails. Message is safe to
// show to end users.
type Error struct {
	Op      string
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s failed", e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport level API error
func IsTransport(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindTransport
}

// IsProtocol reports whether err is a protocol level API error
func IsProtocol(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindProtocol
}
