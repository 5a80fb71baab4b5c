//go:build zmq
// +build zmq

package transport

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// ZMQMesh is the ZeroMQ rendition of the rank mesh, selected with the zmq
// build tag. ZeroMQ sockets are not safe for cross-goroutine use, so each
// direction of each pair gets its own PAIR socket: inbound sockets bind at
// this rank's base address offset by the sender, outbound sockets connect
// to the destination's base offset by this rank.
type ZMQMesh struct {
	rank int
	n    int

	in    []*zmq.Socket // indexed by source rank
	outs  []*zmq.Socket // indexed by destination rank
	inbox [][]chan []byte
	out   []chan tcpSendReq

	observer func(direction string, tag Tag, bytes int)

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
}

// zmqRecvTimeout bounds blocking receives so reader goroutines can observe
// shutdown; ZeroMQ sockets cannot be closed out from under a blocked Recv.
const zmqRecvTimeout = 250 * time.Millisecond

// NewZMQMesh wires this rank to every peer over ZeroMQ PAIR sockets and
// performs the same rank handshake as the mangos mesh.
func NewZMQMesh(rank int, peers []string, opts ...TCPOption) (*ZMQMesh, error) {
	n := len(peers)
	if rank < 0 || rank >= n {
		return nil, fmt.Errorf("%w: rank %d, %d peers", ErrUnknownPeer, rank, n)
	}

	m := &ZMQMesh{
		rank:  rank,
		n:     n,
		in:    make([]*zmq.Socket, n),
		outs:  make([]*zmq.Socket, n),
		inbox: make([][]chan []byte, n),
		out:   make([]chan tcpSendReq, n),
	}
	tcpOpts := &TCPMesh{}
	for _, opt := range opts {
		opt(tcpOpts)
	}
	m.observer = tcpOpts.observer

	for peer := 0; peer < n; peer++ {
		if peer == rank {
			continue
		}

		inSock, err := zmq.NewSocket(zmq.PAIR)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("inbound socket for peer %d: %w", peer, err)
		}
		if err := inSock.SetRcvtimeo(zmqRecvTimeout); err != nil {
			inSock.Close()
			m.Close()
			return nil, err
		}
		addr, err := pairAddr(peers[rank], peer)
		if err != nil {
			inSock.Close()
			m.Close()
			return nil, err
		}
		if err := inSock.Bind(addr); err != nil {
			inSock.Close()
			m.Close()
			return nil, fmt.Errorf("bind %s for peer %d: %w", addr, peer, err)
		}
		m.in[peer] = inSock

		outSock, err := zmq.NewSocket(zmq.PAIR)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("outbound socket for peer %d: %w", peer, err)
		}
		addr, err = pairAddr(peers[peer], rank)
		if err != nil {
			outSock.Close()
			m.Close()
			return nil, err
		}
		if err := outSock.Connect(addr); err != nil {
			outSock.Close()
			m.Close()
			return nil, fmt.Errorf("connect %s for peer %d: %w", addr, peer, err)
		}
		m.outs[peer] = outSock
	}

	if err := m.handshake(); err != nil {
		m.Close()
		return nil, err
	}

	for peer := 0; peer < n; peer++ {
		if peer == rank {
			continue
		}
		tags := make([]chan []byte, numTags)
		for t := range tags {
			tags[t] = make(chan []byte, linkBuffer)
		}
		m.inbox[peer] = tags
		m.out[peer] = make(chan tcpSendReq, linkBuffer)

		m.wg.Add(2)
		go m.writer(peer)
		go m.reader(peer)
	}

	return m, nil
}

func (m *ZMQMesh) handshake() error {
	for peer := 0; peer < m.n; peer++ {
		if peer == m.rank {
			continue
		}
		if _, err := m.outs[peer].SendBytes([]byte{byte(m.rank)}, 0); err != nil {
			return fmt.Errorf("handshake send to peer %d: %w", peer, err)
		}
	}
	for peer := 0; peer < m.n; peer++ {
		if peer == m.rank {
			continue
		}
		hello, err := m.recvWithRetry(peer)
		if err != nil {
			return fmt.Errorf("handshake recv from peer %d: %w", peer, err)
		}
		if len(hello) != 1 || int(hello[0]) != peer {
			return fmt.Errorf("peer %d handshake: remote claims rank %v", peer, hello)
		}
	}
	return nil
}

// recvWithRetry keeps receiving across the socket timeout until a message
// arrives or the mesh is closed.
func (m *ZMQMesh) recvWithRetry(peer int) ([]byte, error) {
	for {
		data, err := m.in[peer].RecvBytes(0)
		if err == nil {
			return data, nil
		}
		if zmq.AsErrno(err) != zmq.Errno(syscall.EAGAIN) {
			return nil, err
		}
		// Timed out; retry unless the mesh was closed meanwhile.
		m.mu.RLock()
		closed := m.closed
		m.mu.RUnlock()
		if closed {
			return nil, ErrClosed
		}
	}
}

func (m *ZMQMesh) writer(peer int) {
	defer m.wg.Done()
	sock := m.outs[peer]
	for req := range m.out[peer] {
		_, err := sock.SendBytes(req.frame, 0)
		if err == nil && m.observer != nil {
			m.observer("send", req.tag, len(req.frame))
		}
		req.op.complete(nil, err)
	}
}

func (m *ZMQMesh) reader(peer int) {
	defer m.wg.Done()
	tags := m.inbox[peer]
	defer func() {
		for _, ch := range tags {
			close(ch)
		}
	}()
	for {
		frame, err := m.recvWithRetry(peer)
		if err != nil {
			return
		}
		tag, body, err := decodeFrame(frame)
		if err != nil {
			return
		}
		if m.observer != nil {
			m.observer("recv", tag, len(frame))
		}
		tags[tag] <- body
	}
}

func (m *ZMQMesh) Rank() int { return m.rank }
func (m *ZMQMesh) Size() int { return m.n }

// Send frames and enqueues data for dst.
func (m *ZMQMesh) Send(dst int, tag Tag, data []byte) *Op {
	if err := checkPeer(m, dst); err != nil {
		return failedOp(err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return failedOp(ErrClosed)
	}

	req := tcpSendReq{frame: encodeFrame(tag, data), tag: tag, op: newOp()}
	select {
	case m.out[dst] <- req:
	default:
		go func() {
			m.mu.RLock()
			defer m.mu.RUnlock()
			if m.closed {
				req.op.complete(nil, ErrClosed)
				return
			}
			m.out[dst] <- req
		}()
	}
	return req.op
}

// Recv posts a receive for the next message from src on tag.
func (m *ZMQMesh) Recv(src int, tag Tag) *Op {
	if err := checkPeer(m, src); err != nil {
		return failedOp(err)
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return failedOp(ErrClosed)
	}
	ch := m.inbox[src][tag]
	m.mu.RUnlock()

	op := newOp()
	go func() {
		body, ok := <-ch
		if !ok {
			op.complete(nil, ErrClosed)
			return
		}
		op.complete(body, nil)
	}()
	return op
}

// Close shuts the mesh down.
func (m *ZMQMesh) Close() error {
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		for peer, ch := range m.out {
			if peer != m.rank && ch != nil {
				close(ch)
			}
		}
		m.mu.Unlock()

		m.wg.Wait()
		for peer := 0; peer < m.n; peer++ {
			if peer == m.rank {
				continue
			}
			if m.in[peer] != nil {
				m.in[peer].Close()
			}
			if m.outs[peer] != nil {
				m.outs[peer].Close()
			}
		}
	})
	return nil
}

var _ Mesh = (*ZMQMesh)(nil)
