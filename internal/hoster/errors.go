package hoster

import (
	"errors"
	"fmt"
)

// ErrorKind classifies remote upload failures.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindParse     ErrorKind = "parse"
	KindAPI       ErrorKind = "api"
	KindFormat    ErrorKind = "format"
)

// Error carries the remote status and raw response for diagnostics.
type Error struct {
	Kind     ErrorKind
	Status   int
	Response string
	Err      error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindTransport:
		msg = "upload request failed"
	case KindStatus:
		msg = fmt.Sprintf("remote host returned HTTP %d", e.Status)
	case KindParse:
		msg = "could not parse remote response"
	case KindAPI:
		msg = "remote host rejected the upload"
	case KindFormat:
		msg = "remote response is missing the image url"
	default:
		msg = "remote upload failed"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var hostErr *Error
	if errors.As(err, &hostErr) {
		return hostErr, true
	}
	return nil, false
}
