package imaging

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
)

// EncodeFunc writes img to w. quality is in [1,100]; encoders without a
// quality knob ignore it.
type EncodeFunc func(w io.Writer, img image.Image, quality int) error

// Codecs is the set of encoders available to this process.
type Codecs struct {
	encoders map[Format]EncodeFunc
}

// NewCodecs returns an empty registry.
func NewCodecs() *Codecs {
	return &Codecs{encoders: make(map[Format]EncodeFunc)}
}

// DefaultCodecs registers every encoder linked into the binary.
func DefaultCodecs() *Codecs {
	c := NewCodecs()
	c.Register(FormatJPEG, encodeJPEG)
	c.Register(FormatPNG, encodePNG)
	c.Register(FormatGIF, encodeGIF)
	c.Register(FormatWebP, encodeWebP)
	c.Register(FormatAVIF, encodeAVIF)
	return c
}

// Register installs or replaces the encoder for f.
func (c *Codecs) Register(f Format, fn EncodeFunc) {
	c.encoders[f] = fn
}

// Without returns a copy of the registry lacking the given formats.
func (c *Codecs) Without(formats ...Format) *Codecs {
	out := NewCodecs()
	for f, fn := range c.encoders {
		out.encoders[f] = fn
	}
	for _, f := range formats {
		delete(out.encoders, f)
	}
	return out
}

// Supports reports whether an encoder is registered for f.
func (c *Codecs) Supports(f Format) bool {
	_, ok := c.encoders[f]
	return ok
}

// Encoder returns the encoder for f or a KindCodecUnavailable error.
func (c *Codecs) Encoder(f Format) (EncodeFunc, error) {
	fn, ok := c.encoders[f]
	if !ok {
		return nil, &Error{Kind: KindCodecUnavailable, Format: f}
	}
	return fn, nil
}

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: clampQuality(quality)})
}

// encodePNG maps quality inversely onto the zlib level 0..9, then onto the
// levels the png package exposes.
func encodePNG(w io.Writer, img image.Image, quality int) error {
	enc := png.Encoder{CompressionLevel: pngCompressionLevel(quality)}
	return enc.Encode(w, img)
}

func pngCompressionLevel(quality int) png.CompressionLevel {
	level := 9 - clampQuality(quality)*9/100
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

func encodeGIF(w io.Writer, img image.Image, _ int) error {
	return gif.Encode(w, img, &gif.Options{NumColors: 256})
}

func encodeWebP(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, webp.Options{Quality: clampQuality(quality)})
}

func encodeAVIF(w io.Writer, img image.Image, quality int) error {
	q := clampQuality(quality)
	return avif.Encode(w, img, avif.Options{Quality: q, QualityAlpha: q, Speed: 8})
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
