package transport

import (
	"errors"
	"fmt"

	"github.com/golang/snappy"
)

// Wire frame layout for the socket meshes: tag byte, flags byte, body.
// The sending rank is implicit in the socket (one pair socket per peer).
const (
	frameHeaderLen = 2

	flagSnappy byte = 1 << 0

	// compressThreshold is the body size above which payloads are
	// snappy-compressed on the wire.
	compressThreshold = 512
)

// ErrBadFrame indicates a frame that cannot be decoded. Transport-level
// corruption is unrecoverable.
var ErrBadFrame = errors.New("malformed transport frame")

func encodeFrame(tag Tag, body []byte) []byte {
	flags := byte(0)
	if len(body) >= compressThreshold {
		compressed := snappy.Encode(nil, body)
		// Only keep the compressed form when it actually wins.
		if len(compressed) < len(body) {
			body = compressed
			flags |= flagSnappy
		}
	}

	frame := make([]byte, frameHeaderLen+len(body))
	frame[0] = byte(tag)
	frame[1] = flags
	copy(frame[frameHeaderLen:], body)
	return frame
}

func decodeFrame(frame []byte) (Tag, []byte, error) {
	if len(frame) < frameHeaderLen {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(frame))
	}
	tag := Tag(frame[0])
	if tag >= numTags {
		return 0, nil, fmt.Errorf("%w: unknown tag %d", ErrBadFrame, frame[0])
	}
	body := frame[frameHeaderLen:]
	if frame[1]&flagSnappy != 0 {
		decoded, err := snappy.Decode(nil, body)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
		body = decoded
	}
	return tag, body, nil
}
