package imaging

import (
	"bytes"
	"image"

	"golang.org/x/image/draw"
)

const (
	initialQuality = 85
	minQuality     = 30
	qualityStep    = 10
	initialScale   = 1.0
	minScale       = 0.3
	scaleStep      = 0.9
	maxAttempts    = 10
)

// Attempt records the parameters and outcome of one re-encode.
type Attempt struct {
	Quality int     `json:"quality"`
	Scale   float64 `json:"scale"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Size    int     `json:"size"`
}

// Compressed is the output of Compress. Attempts is empty when the input
// already fit and was returned untouched.
type Compressed struct {
	Data         []byte
	Format       Format
	OriginalSize int64
	Attempts     []Attempt
}

// Reencoded reports whether the data differs from the input.
func (c Compressed) Reencoded() bool {
	return len(c.Attempts) > 0
}

// Compressor shrinks images under a byte budget by lowering quality first and
// scale second.
type Compressor struct {
	codecs *Codecs
}

// NewCompressor builds a compressor using the given encoders.
func NewCompressor(codecs *Codecs) *Compressor {
	return &Compressor{codecs: codecs}
}

// Compress re-encodes data in its own container format until the result is at
// most budget bytes. It gives up after maxAttempts encodes or when the scale
// would reach minScale.
func (c *Compressor) Compress(data []byte, budget int64) (Compressed, error) {
	if int64(len(data)) <= budget {
		return Compressed{Data: data, OriginalSize: int64(len(data))}, nil
	}

	img, format, err := decode(data)
	if err != nil {
		return Compressed{OriginalSize: int64(len(data))}, err
	}
	encode, err := c.codecs.Encoder(format)
	if err != nil {
		return Compressed{Format: format, OriginalSize: int64(len(data))}, err
	}

	bounds := img.Bounds()
	keepAlpha := format != FormatJPEG
	result := Compressed{Format: format, OriginalSize: int64(len(data))}

	quality, scale := initialQuality, initialScale
	for len(result.Attempts) < maxAttempts && scale > minScale {
		width := max(int(float64(bounds.Dx())*scale), 1)
		height := max(int(float64(bounds.Dy())*scale), 1)

		var buf bytes.Buffer
		if err := encode(&buf, resample(img, width, height, keepAlpha), quality); err != nil {
			return result, &Error{Kind: KindEncode, Format: format, Err: err}
		}

		result.Attempts = append(result.Attempts, Attempt{
			Quality: quality,
			Scale:   scale,
			Width:   width,
			Height:  height,
			Size:    buf.Len(),
		})

		if int64(buf.Len()) <= budget {
			result.Data = buf.Bytes()
			return result, nil
		}

		if quality > minQuality {
			quality = max(quality-qualityStep, minQuality)
		} else {
			scale *= scaleStep
			quality = initialQuality
		}
	}

	return result, &Error{Kind: KindBudgetUnreachable, Format: format}
}

// resample scales src to width x height. Alpha survives when keepAlpha is set
// because the destination is NRGBA and pixels are copied with draw.Src.
func resample(src image.Image, width, height int, keepAlpha bool) image.Image {
	bounds := src.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return src
	}

	rect := image.Rect(0, 0, width, height)
	var dst draw.Image
	if keepAlpha {
		dst = image.NewNRGBA(rect)
	} else {
		dst = image.NewRGBA(rect)
	}
	draw.CatmullRom.Scale(dst, rect, src, bounds, draw.Src, nil)
	return dst
}
