// Package imaging re-encodes uploaded images to fit the remote host's limits.
package imaging

import (
	"bytes"
	"errors"
	"image"
	"strings"

	// Decoders for the supported source containers.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Format identifies an image container.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
)

var sourceFormats = map[Format]bool{
	FormatJPEG: true,
	FormatPNG:  true,
	FormatGIF:  true,
	FormatWebP: true,
}

// MIMEType returns the canonical media type of the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	case FormatAVIF:
		return "image/avif"
	}
	return "application/octet-stream"
}

// Extension returns the file extension, without the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// ParseFormat maps a user supplied name such as "webp" or "JPG" to a Format.
func ParseFormat(name string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "jpeg", "jpg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "gif":
		return FormatGIF, true
	case "webp":
		return FormatWebP, true
	case "avif":
		return FormatAVIF, true
	}
	return "", false
}

// Sniff reports the container format and dimensions without decoding pixels.
func Sniff(data []byte) (Format, image.Config, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return "", image.Config{}, &Error{Kind: KindUnsupportedFormat, Err: err}
		}
		return "", image.Config{}, &Error{Kind: KindDecode, Err: err}
	}
	format := Format(name)
	if !sourceFormats[format] {
		return format, cfg, &Error{Kind: KindUnsupportedFormat, Format: format}
	}
	return format, cfg, nil
}

func decode(data []byte) (image.Image, Format, error) {
	format, _, err := Sniff(data)
	if err != nil {
		return nil, format, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, &Error{Kind: KindDecode, Format: format, Err: err}
	}
	return img, format, nil
}
