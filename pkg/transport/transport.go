// Package transport provides the rank-to-rank messaging fabric for the
// SPMD traversal workers. Sends and receives are posted without blocking
// and return an Op handle; computation overlaps with in-flight messages
// until the caller waits on the handle.
//
// Delivery is reliable, lossless and FIFO per (sender, tag) pair. There is
// no retry layer: a transport failure surfaces from Op.Wait and aborts the
// run.
package transport

import (
	"errors"
	"fmt"
	"sync"
)

// Tag distinguishes logical message streams between the same pair of ranks.
type Tag uint8

const (
	// TagCount carries the phase-1 halo announcement: a single int32
	// request count.
	TagCount Tag = iota
	// TagPayload carries the phase-2 halo payload: exactly count vertex
	// ids.
	TagPayload
	// TagCollective carries barrier, broadcast and reduction frames.
	TagCollective
	// TagBench carries ping-pong traffic for the network micro-benchmark.
	TagBench

	numTags
)

func (t Tag) String() string {
	switch t {
	case TagCount:
		return "count"
	case TagPayload:
		return "payload"
	case TagCollective:
		return "collective"
	case TagBench:
		return "bench"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

var (
	// ErrClosed is returned by operations posted against a closed mesh.
	ErrClosed = errors.New("transport mesh is closed")
	// ErrUnknownPeer is returned when a rank outside [0, Size) is addressed.
	ErrUnknownPeer = errors.New("peer rank outside mesh")
	// ErrSelfSend is returned when a rank addresses itself; the protocol
	// never posts messages to self.
	ErrSelfSend = errors.New("cannot send to own rank")
)

// Op is the handle for one in-flight send or receive, the analogue of a
// nonblocking request. The posting call returns immediately; Wait blocks
// until the operation completes and reports its error.
type Op struct {
	done chan struct{}
	once sync.Once
	data []byte
	err  error
}

func newOp() *Op {
	return &Op{done: make(chan struct{})}
}

// failedOp returns an already-completed Op carrying err.
func failedOp(err error) *Op {
	op := newOp()
	op.complete(nil, err)
	return op
}

func (o *Op) complete(data []byte, err error) {
	o.once.Do(func() {
		o.data = data
		o.err = err
		close(o.done)
	})
}

// Wait blocks until the operation completes and returns its error.
func (o *Op) Wait() error {
	<-o.done
	return o.err
}

// Data waits for completion and returns the received payload. Only
// meaningful for receive operations; the buffer is owned by the caller once
// Data returns.
func (o *Op) Data() ([]byte, error) {
	if err := o.Wait(); err != nil {
		return nil, err
	}
	return o.data, nil
}

// WaitAll waits for every operation and returns the first error observed.
// It always drains the full set so no operation is left in flight.
func WaitAll(ops ...*Op) error {
	var first error
	for _, op := range ops {
		if op == nil {
			continue
		}
		if err := op.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Mesh connects one rank to every other rank of the run.
type Mesh interface {
	// Rank returns this worker's rank.
	Rank() int
	// Size returns the total number of ranks in the mesh.
	Size() int
	// Send posts a nonblocking send of data to dst on tag. The data slice
	// is copied before Send returns; the caller may reuse it immediately.
	Send(dst int, tag Tag, data []byte) *Op
	// Recv posts a nonblocking receive of the next message from src on tag.
	Recv(src int, tag Tag) *Op
	// Close tears the mesh down. Outstanding operations fail with ErrClosed.
	Close() error
}

func checkPeer(m Mesh, peer int) error {
	if peer < 0 || peer >= m.Size() {
		return fmt.Errorf("%w: rank %d, mesh size %d", ErrUnknownPeer, peer, m.Size())
	}
	if peer == m.Rank() {
		return ErrSelfSend
	}
	return nil
}
