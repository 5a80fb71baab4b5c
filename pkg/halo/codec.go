package halo

import (
	"encoding/binary"
	"fmt"
)

// Wire encoding: counts are one little-endian int32, payloads are exactly
// count little-endian int32 vertex ids. This is the only bit-exact contract
// between workers.

func encodeCount(n int) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(int32(n)))
	return buf
}

func decodeCount(data []byte) (int, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("count message is %d bytes, want 4", len(data))
	}
	n := int32(binary.LittleEndian.Uint32(data))
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return int(n), nil
}

func encodeIDs(ids []int32) []byte {
	buf := make([]byte, 4*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(id))
	}
	return buf
}

func decodeIDs(data []byte) ([]int32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("payload is %d bytes, not a multiple of 4", len(data))
	}
	ids := make([]int32, len(data)/4)
	for i := range ids {
		ids[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return ids, nil
}
