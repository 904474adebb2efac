package imaging

import "bytes"

const conversionQuality = 85

// Converted is the output of a format conversion.
type Converted struct {
	Data   []byte
	Format Format
}

// Converter re-encodes images into another container in a single pass.
type Converter struct {
	codecs *Codecs
}

// NewConverter builds a converter using the given encoders.
func NewConverter(codecs *Codecs) *Converter {
	return &Converter{codecs: codecs}
}

// Supports reports whether target can be produced by this process.
func (c *Converter) Supports(target Format) bool {
	return c.codecs.Supports(target)
}

// Convert decodes data and encodes it as target at a fixed quality.
func (c *Converter) Convert(data []byte, target Format) (Converted, error) {
	encode, err := c.codecs.Encoder(target)
	if err != nil {
		return Converted{}, err
	}

	img, _, err := decode(data)
	if err != nil {
		return Converted{}, err
	}

	var buf bytes.Buffer
	if err := encode(&buf, img, conversionQuality); err != nil {
		return Converted{}, &Error{Kind: KindEncode, Format: target, Err: err}
	}
	return Converted{Data: buf.Bytes(), Format: target}, nil
}
