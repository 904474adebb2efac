package imaging

import (
	"errors"
	"fmt"
)

// Kind tags why an image operation failed.
type Kind string

const (
	KindUnsupportedFormat Kind = "unsupported_format"
	KindDecode            Kind = "decode"
	KindEncode            Kind = "encode"
	KindCodecUnavailable  Kind = "codec_unavailable"
	KindBudgetUnreachable Kind = "budget_unreachable"
)

// Error is the failure type returned by the compressor and converter.
type Error struct {
	Kind   Kind
	Format Format
	Err    error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindUnsupportedFormat:
		msg = "unsupported image format"
		if e.Format != "" {
			msg = fmt.Sprintf("unsupported image format %s", e.Format)
		}
	case KindDecode:
		msg = "could not decode image"
	case KindEncode:
		msg = fmt.Sprintf("could not encode %s image", e.Format)
	case KindCodecUnavailable:
		msg = fmt.Sprintf("no %s encoder available", e.Format)
	case KindBudgetUnreachable:
		msg = "could not compress image to the target size, try a smaller image"
	default:
		msg = "image processing failed"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err.
func KindOf(err error) (Kind, bool) {
	var imgErr *Error
	if errors.As(err, &imgErr) {
		return imgErr.Kind, true
	}
	return "", false
}
