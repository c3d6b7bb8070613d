package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec, err := New(Balanced, true)
	require.NoError(t, err)
	defer codec.Close()

	data := bytes.Repeat([]byte("compress me please "), 64)

	require.Equal(t, EncodingZstd, codec.Encoding())
	encoded := codec.Encode(data)
	require.True(t, bytes.HasPrefix(encoded, frameMagic))
	require.Less(t, len(encoded), len(data))

	decoded, err := codec.Decode(encoded, EncodingZstd)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestCodec_SmallInputStillFramed(t *testing.T) {
	codec, err := New(Fastest, true)
	require.NoError(t, err)
	defer codec.Close()

	// Even incompressible input is framed.
	encoded := codec.Encode([]byte("x"))
	require.True(t, bytes.HasPrefix(encoded, frameMagic))

	decoded, err := codec.Decode(encoded, EncodingZstd)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), decoded)
}

func TestCodec_Disabled(t *testing.T) {
	codec, err := New(Balanced, false)
	require.NoError(t, err)
	defer codec.Close()

	data := []byte("raw bytes")
	require.Equal(t, EncodingRaw, codec.Encoding())
	require.Equal(t, data, codec.Encode(data))

	decoded, err := codec.Decode(data, EncodingRaw)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestCodec_DisabledStillDecodesFramed(t *testing.T) {
	enabled, err := New(Balanced, true)
	require.NoError(t, err)
	defer enabled.Close()

	disabled, err := New(Balanced, false)
	require.NoError(t, err)
	defer disabled.Close()

	// A store written with compression on must stay readable after the
	// option is turned off.
	data := bytes.Repeat([]byte("toggle "), 32)
	decoded, err := disabled.Decode(enabled.Encode(data), EncodingZstd)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestCodec_RecordedEncodingBeatsSniffing(t *testing.T) {
	enabled, err := New(Balanced, true)
	require.NoError(t, err)
	defer enabled.Close()

	disabled, err := New(Balanced, false)
	require.NoError(t, err)
	defer disabled.Close()

	// Raw content that happens to be a valid zstd frame must come back
	// byte for byte, not decompressed.
	frame := enabled.Encode([]byte("inner payload"))
	require.True(t, bytes.HasPrefix(frame, frameMagic))

	decoded, err := disabled.Decode(frame, EncodingRaw)
	require.NoError(t, err)
	require.Equal(t, frame, decoded)
}

func TestCodec_EmptyEncodingFallsBackToSniffing(t *testing.T) {
	enabled, err := New(Balanced, true)
	require.NoError(t, err)
	defer enabled.Close()

	data := bytes.Repeat([]byte("legacy "), 32)

	// Objects stored before the encoding was recorded carry no label;
	// the frame magic decides for them.
	decoded, err := enabled.Decode(enabled.Encode(data), "")
	require.NoError(t, err)
	require.Equal(t, data, decoded)

	raw := []byte("plain legacy object")
	decoded, err = enabled.Decode(raw, "")
	require.NoError(t, err)
	require.Equal(t, raw, decoded)
}
