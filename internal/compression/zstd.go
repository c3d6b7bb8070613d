// Package compression implements the zstd at-rest codec used by the
// filesystem backend.
package compression

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Level selects the encoder speed/ratio trade-off.
type Level int

const (
	Fastest Level = iota + 1
	Balanced
	Smallest
)

// Encoding values recorded alongside each stored object. The recorded
// encoding, not the content, decides how Decode treats the bytes, so raw
// content that happens to start with a zstd frame header survives intact.
const (
	EncodingRaw  = "raw"
	EncodingZstd = "zstd"
)

// frameMagic is the zstd frame header. Decode falls back to sniffing it
// only for objects stored before the encoding was recorded.
var frameMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Codec compresses blob content for storage. Encoding is skipped entirely
// when the codec is disabled; decoding always recognizes framed input.
type Codec struct {
	enabled bool
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New creates a codec. A disabled codec still decodes framed objects
// written while compression was on.
func New(level Level, enabled bool) (*Codec, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	c := &Codec{enabled: enabled, decoder: decoder}
	if !enabled {
		return c, nil
	}

	var encoderLevel zstd.EncoderLevel
	switch level {
	case Fastest:
		encoderLevel = zstd.SpeedFastest
	case Smallest:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		decoder.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	c.encoder = encoder
	return c, nil
}

// Enabled reports whether Encode produces framed output.
func (c *Codec) Enabled() bool { return c.enabled }

// Encoding reports the encoding Encode currently applies. Callers record it
// with the object and hand it back to Decode.
func (c *Codec) Encoding() string {
	if c.enabled {
		return EncodingZstd
	}
	return EncodingRaw
}

// Encode compresses data into a zstd frame. Output is always framed when
// the codec is enabled, even if that costs a few bytes.
func (c *Codec) Encode(data []byte) []byte {
	if !c.enabled {
		return data
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
}

// Decode returns the original content. The recorded encoding is
// authoritative: raw objects pass through untouched even when their bytes
// resemble a zstd frame. An empty encoding means the object predates the
// record, so the frame magic decides.
func (c *Codec) Decode(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case EncodingRaw:
		return data, nil
	case EncodingZstd:
	default:
		if !bytes.HasPrefix(data, frameMagic) {
			return data, nil
		}
	}
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress object: %w", err)
	}
	return out, nil
}

// Close releases the encoder and decoder.
func (c *Codec) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
