package transport

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pair"

	// Register all mangos transports (tcp, inproc, ipc, ws).
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// TCPMesh connects the ranks of a multi-process run over mangos pair
// sockets, one socket per peer. The lower rank of each pair listens, the
// higher rank dials. Frames carry a tag byte so count and payload streams
// between the same pair stay distinct.
type TCPMesh struct {
	rank  int
	n     int
	socks []mangos.Socket   // indexed by peer rank, nil at own rank
	inbox [][]chan []byte   // [peer][tag]
	out   []chan tcpSendReq // indexed by peer rank

	observer func(direction string, tag Tag, bytes int)

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
}

type tcpSendReq struct {
	frame []byte
	tag   Tag
	op    *Op
}

// TCPOption configures a TCPMesh.
type TCPOption func(*TCPMesh)

// WithObserver installs a per-message hook, called with direction "send" or
// "recv", the message tag and the on-wire byte count. Used to feed the
// metrics registry without coupling the transport to it.
func WithObserver(fn func(direction string, tag Tag, bytes int)) TCPOption {
	return func(m *TCPMesh) { m.observer = fn }
}

// pairAddr derives the socket address for the pair {owner, peer} from the
// owner's base address. TCP bases get the peer rank added to the port, so
// each rank needs a contiguous block of Size ports; inproc bases get a
// suffix instead.
func pairAddr(base string, peer int) (string, error) {
	if strings.HasPrefix(base, "inproc://") {
		return fmt.Sprintf("%s.%d", base, peer), nil
	}
	if !strings.Contains(base, "://") {
		base = "tcp://" + base
	}
	idx := strings.LastIndex(base, ":")
	if idx < 0 || idx == len(base)-1 {
		return "", fmt.Errorf("peer address %q has no port", base)
	}
	port, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return "", fmt.Errorf("peer address %q has bad port: %w", base, err)
	}
	return fmt.Sprintf("%s:%d", base[:idx], port+peer), nil
}

// NewTCPMesh wires this rank to every peer and performs a rank handshake on
// each socket before returning, so a miswired address list fails at startup
// instead of corrupting the exchange.
func NewTCPMesh(rank int, peers []string, opts ...TCPOption) (*TCPMesh, error) {
	n := len(peers)
	if rank < 0 || rank >= n {
		return nil, fmt.Errorf("%w: rank %d, %d peers", ErrUnknownPeer, rank, n)
	}

	m := &TCPMesh{
		rank:  rank,
		n:     n,
		socks: make([]mangos.Socket, n),
		inbox: make([][]chan []byte, n),
		out:   make([]chan tcpSendReq, n),
	}
	for _, opt := range opts {
		opt(m)
	}

	for peer := 0; peer < n; peer++ {
		if peer == rank {
			continue
		}
		sock, err := pair.NewSocket()
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("pair socket for peer %d: %w", peer, err)
		}
		m.socks[peer] = sock

		if rank < peer {
			addr, err := pairAddr(peers[rank], peer)
			if err != nil {
				m.Close()
				return nil, err
			}
			if err := sock.Listen(addr); err != nil {
				m.Close()
				return nil, fmt.Errorf("listen %s for peer %d: %w", addr, peer, err)
			}
		} else {
			addr, err := pairAddr(peers[peer], rank)
			if err != nil {
				m.Close()
				return nil, err
			}
			if err := sock.Dial(addr); err != nil {
				m.Close()
				return nil, fmt.Errorf("dial %s for peer %d: %w", addr, peer, err)
			}
		}
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

// handshake exchanges a single rank byte with every peer. Both sides send
// first, then receive, so the exchange cannot deadlock.
func (m *TCPMesh) handshake() error {
	for peer := 0; peer < m.n; peer++ {
		if peer == m.rank {
			continue
		}
		if err := m.socks[peer].Send([]byte{byte(m.rank)}); err != nil {
			return fmt.Errorf("handshake send to peer %d: %w", peer, err)
		}
	}
	for peer := 0; peer < m.n; peer++ {
		if peer == m.rank {
			continue
		}
		hello, err := m.socks[peer].Recv()
		if err != nil {
			return fmt.Errorf("handshake recv from peer %d: %w", peer, err)
		}
		if len(hello) != 1 || int(hello[0]) != peer {
			return fmt.Errorf("peer %d handshake: remote claims rank %v", peer, hello)
		}
	}
	return nil
}

func (m *TCPMesh) writer(peer int) {
	defer m.wg.Done()
	sock := m.socks[peer]
	for req := range m.out[peer] {
		err := sock.Send(req.frame)
		if err == nil && m.observer != nil {
			m.observer("send", req.tag, len(req.frame))
		}
		req.op.complete(nil, err)
	}
}

func (m *TCPMesh) reader(peer int) {
	defer m.wg.Done()
	sock := m.socks[peer]
	tags := m.inbox[peer]
	defer func() {
		for _, ch := range tags {
			close(ch)
		}
	}()
	for {
		frame, err := sock.Recv()
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

func (m *TCPMesh) Rank() int { return m.rank }
func (m *TCPMesh) Size() int { return m.n }

// Send frames and enqueues data for dst. The data slice is copied by the
// framing step; the returned Op completes once the frame is on the wire.
func (m *TCPMesh) Send(dst int, tag Tag, data []byte) *Op {
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
func (m *TCPMesh) Recv(src int, tag Tag) *Op {
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

// Close shuts the mesh down. Outstanding receives fail with ErrClosed.
func (m *TCPMesh) Close() error {
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		for peer, ch := range m.out {
			if peer != m.rank && ch != nil {
				close(ch)
			}
		}
		m.mu.Unlock()

		for peer, sock := range m.socks {
			if peer != m.rank && sock != nil {
				sock.Close()
			}
		}
		m.wg.Wait()
	})
	return nil
}

var _ Mesh = (*TCPMesh)(nil)
