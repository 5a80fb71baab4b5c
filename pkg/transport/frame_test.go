package transport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_SmallBodyUncompressed(t *testing.T) {
	body := []byte{1, 2, 3, 4}
	frame := encodeFrame(TagCount, body)

	assert.Equal(t, byte(TagCount), frame[0])
	assert.Equal(t, byte(0), frame[1], "small bodies must not be compressed")

	tag, decoded, err := decodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, TagCount, tag)
	assert.Equal(t, body, decoded)
}

func TestFrame_LargeBodyRoundTrip(t *testing.T) {
	// Highly compressible body well past the threshold.
	body := bytes.Repeat([]byte{7}, 4096)
	frame := encodeFrame(TagPayload, body)

	assert.Equal(t, byte(flagSnappy), frame[1]&flagSnappy)
	assert.Less(t, len(frame), len(body), "compressible body should shrink on the wire")

	tag, decoded, err := decodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, TagPayload, tag)
	assert.Equal(t, body, decoded)
}

func TestFrame_DecodeErrors(t *testing.T) {
	_, _, err := decodeFrame([]byte{0})
	assert.ErrorIs(t, err, ErrBadFrame)

	_, _, err = decodeFrame([]byte{200, 0, 1})
	assert.ErrorIs(t, err, ErrBadFrame, "unknown tag must be rejected")

	_, _, err = decodeFrame([]byte{byte(TagPayload), flagSnappy, 0xFF, 0xFF})
	assert.ErrorIs(t, err, ErrBadFrame, "bad snappy body must be rejected")
}
