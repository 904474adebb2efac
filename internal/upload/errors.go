package upload

import "errors"

var (
	// ErrRateLimited is returned when the client exhausted its request window.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrNoFiles indicates the request carried no files.
	ErrNoFiles = errors.New("no files uploaded")
)
