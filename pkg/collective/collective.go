// Package collective implements the handful of collective operations the
// traversal drivers need on top of a transport.Mesh: a barrier, a broadcast
// of startup parameters, and the reductions used by the result aggregator.
//
// All collectives use a star topology rooted at a single rank; at the rank
// counts this engine targets there is nothing to gain from a tree. Every
// rank must call the same collectives in the same order; the shared
// collective tag relies on per-sender FIFO delivery to keep consecutive
// operations matched up.
package collective

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-traverse/pkg/transport"
)

// Barrier blocks until every rank has entered it.
func Barrier(m transport.Mesh) error {
	if m.Size() == 1 {
		return nil
	}
	token := []byte{1}
	if m.Rank() == 0 {
		recvs := make([]*transport.Op, 0, m.Size()-1)
		for peer := 1; peer < m.Size(); peer++ {
			recvs = append(recvs, m.Recv(peer, transport.TagCollective))
		}
		if err := transport.WaitAll(recvs...); err != nil {
			return fmt.Errorf("barrier gather: %w", err)
		}
		sends := make([]*transport.Op, 0, m.Size()-1)
		for peer := 1; peer < m.Size(); peer++ {
			sends = append(sends, m.Send(peer, transport.TagCollective, token))
		}
		if err := transport.WaitAll(sends...); err != nil {
			return fmt.Errorf("barrier release: %w", err)
		}
		return nil
	}

	if err := m.Send(0, transport.TagCollective, token).Wait(); err != nil {
		return fmt.Errorf("barrier enter: %w", err)
	}
	if _, err := m.Recv(0, transport.TagCollective).Data(); err != nil {
		return fmt.Errorf("barrier release: %w", err)
	}
	return nil
}

// BroadcastInt distributes v from root to every rank and returns the value
// every rank agreed on. Non-root callers pass their local (ignored) value.
func BroadcastInt(m transport.Mesh, root, v int) (int, error) {
	if m.Size() == 1 {
		return v, nil
	}
	if m.Rank() == root {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(int64(v)))
		sends := make([]*transport.Op, 0, m.Size()-1)
		for peer := 0; peer < m.Size(); peer++ {
			if peer == root {
				continue
			}
			sends = append(sends, m.Send(peer, transport.TagCollective, buf))
		}
		if err := transport.WaitAll(sends...); err != nil {
			return 0, fmt.Errorf("broadcast: %w", err)
		}
		return v, nil
	}

	data, err := m.Recv(root, transport.TagCollective).Data()
	if err != nil {
		return 0, fmt.Errorf("broadcast: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("broadcast: got %d bytes, want 8", len(data))
	}
	return int(int64(binary.LittleEndian.Uint64(data))), nil
}

// reduce gathers every rank's 8-byte value at root and folds them with
// combine. The result is only meaningful at root; other ranks get zero.
func reduce(m transport.Mesh, root int, local uint64, combine func(a, b uint64) uint64) (uint64, error) {
	if m.Size() == 1 {
		return local, nil
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, local)

	if m.Rank() != root {
		if err := m.Send(root, transport.TagCollective, buf).Wait(); err != nil {
			return 0, fmt.Errorf("reduce: %w", err)
		}
		return 0, nil
	}

	acc := local
	for peer := 0; peer < m.Size(); peer++ {
		if peer == root {
			continue
		}
		data, err := m.Recv(peer, transport.TagCollective).Data()
		if err != nil {
			return 0, fmt.Errorf("reduce from rank %d: %w", peer, err)
		}
		if len(data) != 8 {
			return 0, fmt.Errorf("reduce from rank %d: got %d bytes, want 8", peer, len(data))
		}
		acc = combine(acc, binary.LittleEndian.Uint64(data))
	}
	return acc, nil
}

// ReduceSumInt sums every rank's value at root.
func ReduceSumInt(m transport.Mesh, root, v int) (int, error) {
	sum, err := reduce(m, root, uint64(int64(v)), func(a, b uint64) uint64 {
		return uint64(int64(a) + int64(b))
	})
	return int(int64(sum)), err
}

// ReduceMaxDuration takes the maximum of every rank's elapsed time at root.
func ReduceMaxDuration(m transport.Mesh, root int, d time.Duration) (time.Duration, error) {
	max, err := reduce(m, root, uint64(int64(d)), func(a, b uint64) uint64 {
		if int64(b) > int64(a) {
			return b
		}
		return a
	})
	return time.Duration(int64(max)), err
}

// ReduceOr ORs every rank's flag at root.
func ReduceOr(m transport.Mesh, root int, v bool) (bool, error) {
	local := uint64(0)
	if v {
		local = 1
	}
	out, err := reduce(m, root, local, func(a, b uint64) uint64 { return a | b })
	return out != 0, err
}
