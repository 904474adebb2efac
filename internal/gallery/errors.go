package gallery

import "errors"

var (
	// ErrNotFound indicates no record carries the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrNoChanges is returned by bulk operations that matched no record.
	ErrNoChanges = errors.New("no records changed")
	// ErrMissingParam is returned when a required identifier or category name is blank.
	ErrMissingParam = errors.New("missing parameter")
)
