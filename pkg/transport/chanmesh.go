package transport

import "sync"

// linkBuffer is the per-(src, dst, tag) channel capacity. The halo protocol
// keeps at most one message in flight per link, so sends effectively never
// block; the fallback goroutine path exists for safety only.
const linkBuffer = 128

// Fabric is the in-process transport: one mesh of buffered channels shared
// by every rank goroutine of a single-binary SPMD run.
type Fabric struct {
	n     int
	links [][][]chan []byte // [src][dst][tag]
}

// NewFabric creates the channel mesh for n ranks.
func NewFabric(n int) *Fabric {
	links := make([][][]chan []byte, n)
	for src := 0; src < n; src++ {
		links[src] = make([][]chan []byte, n)
		for dst := 0; dst < n; dst++ {
			if src == dst {
				continue
			}
			tags := make([]chan []byte, numTags)
			for t := range tags {
				tags[t] = make(chan []byte, linkBuffer)
			}
			links[src][dst] = tags
		}
	}
	return &Fabric{n: n, links: links}
}

// Mesh returns the per-rank view of the fabric. Each rank goroutine holds
// exactly one.
func (f *Fabric) Mesh(rank int) *ChanMesh {
	return &ChanMesh{fabric: f, rank: rank}
}

// ChanMesh is one rank's endpoint into a Fabric.
type ChanMesh struct {
	fabric *Fabric
	rank   int

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func (m *ChanMesh) Rank() int { return m.rank }
func (m *ChanMesh) Size() int { return m.fabric.n }

// Send copies data and hands it to the destination link. The returned Op
// completes once the message is enqueued.
func (m *ChanMesh) Send(dst int, tag Tag, data []byte) *Op {
	if err := checkPeer(m, dst); err != nil {
		return failedOp(err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return failedOp(ErrClosed)
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	ch := m.fabric.links[m.rank][dst][tag]
	op := newOp()
	select {
	case ch <- buf:
		op.complete(nil, nil)
	default:
		// Link buffer full; finish the enqueue off the caller's goroutine.
		// The read lock keeps Close from closing the link mid-send.
		go func() {
			m.mu.RLock()
			defer m.mu.RUnlock()
			if m.closed {
				op.complete(nil, ErrClosed)
				return
			}
			ch <- buf
			op.complete(nil, nil)
		}()
	}
	return op
}

// Recv posts a receive for the next message from src on tag.
func (m *ChanMesh) Recv(src int, tag Tag) *Op {
	if err := checkPeer(m, src); err != nil {
		return failedOp(err)
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return failedOp(ErrClosed)
	}
	m.mu.RUnlock()

	ch := m.fabric.links[src][m.rank][tag]
	op := newOp()
	go func() {
		buf, ok := <-ch
		if !ok {
			op.complete(nil, ErrClosed)
			return
		}
		op.complete(buf, nil)
	}()
	return op
}

// Close closes this rank's outgoing links. Receivers blocked on them fail
// with ErrClosed.
func (m *ChanMesh) Close() error {
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		for dst := 0; dst < m.fabric.n; dst++ {
			if dst == m.rank {
				continue
			}
			for _, ch := range m.fabric.links[m.rank][dst] {
				close(ch)
			}
		}
		m.mu.Unlock()
	})
	return nil
}

var _ Mesh = (*ChanMesh)(nil)
