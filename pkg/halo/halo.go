// Package halo implements the two-phase boundary exchange between workers.
// In phase one every worker announces, to each peer, how many of that
// peer's vertices it references across the partition boundary, and sends
// the requested vertex ids alongside. In phase two each worker receives the
// id payloads sized by the announcements. Phase one is posted without
// blocking so it overlaps the interior traversal; phase two is the first
// hard synchronization point.
package halo

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-traverse/pkg/domain"
	"github.com/dd0wney/cluso-traverse/pkg/transport"
)

// ErrCountMismatch indicates a payload whose length disagrees with the
// announced count. The transport is assumed lossless, so this is fatal.
var ErrCountMismatch = errors.New("halo payload does not match announced count")

// Exchange tracks one in-flight halo exchange. Create with Start, then
// drive the phases in order: WaitCounts, WaitPayloads, and finally Drain
// once all traversal work is done.
type Exchange struct {
	mesh transport.Mesh
	dom  domain.Info

	countRecvs map[int]*transport.Op
	sends      []*transport.Op
	counts     map[int]int
}

// Start posts the phase-1 receives and sends. requests maps peer rank to
// the distinct vertex ids this worker wants that peer to consider; peers
// absent from the map are announced a zero count and get no payload
// message. Start returns immediately; nothing has completed yet.
func Start(mesh transport.Mesh, dom domain.Info, requests map[int][]int32) *Exchange {
	ex := &Exchange{
		mesh:       mesh,
		dom:        dom,
		countRecvs: make(map[int]*transport.Op, mesh.Size()-1),
	}

	for peer := 0; peer < mesh.Size(); peer++ {
		if peer == dom.Rank {
			continue
		}
		ex.countRecvs[peer] = mesh.Recv(peer, transport.TagCount)
	}

	for peer := 0; peer < mesh.Size(); peer++ {
		if peer == dom.Rank {
			continue
		}
		ids := requests[peer]
		ex.sends = append(ex.sends, mesh.Send(peer, transport.TagCount, encodeCount(len(ids))))
		if len(ids) > 0 {
			ex.sends = append(ex.sends, mesh.Send(peer, transport.TagPayload, encodeIDs(ids)))
		}
	}

	return ex
}

// WaitCounts blocks until every phase-1 announcement has arrived. This is
// the wait-all on size messages; interior traversal runs before it.
func (ex *Exchange) WaitCounts() error {
	if ex.counts != nil {
		return nil
	}
	counts := make(map[int]int, len(ex.countRecvs))
	for peer, op := range ex.countRecvs {
		data, err := op.Data()
		if err != nil {
			return fmt.Errorf("count from rank %d: %w", peer, err)
		}
		n, err := decodeCount(data)
		if err != nil {
			return fmt.Errorf("count from rank %d: %w", peer, err)
		}
		counts[peer] = n
	}
	ex.counts = counts
	return nil
}

// WaitPayloads posts the phase-2 receives sized by the announced counts,
// blocks until they all arrive, and returns the requested vertex ids by
// source rank. Peers that announced zero are absent from the result.
// WaitCounts must have succeeded first.
func (ex *Exchange) WaitPayloads() (map[int][]int32, error) {
	if ex.counts == nil {
		return nil, errors.New("halo: WaitPayloads called before WaitCounts")
	}

	recvs := make(map[int]*transport.Op, len(ex.counts))
	for peer, n := range ex.counts {
		if n > 0 {
			recvs[peer] = ex.mesh.Recv(peer, transport.TagPayload)
		}
	}

	payloads := make(map[int][]int32, len(recvs))
	for peer, op := range recvs {
		data, err := op.Data()
		if err != nil {
			return nil, fmt.Errorf("payload from rank %d: %w", peer, err)
		}
		ids, err := decodeIDs(data)
		if err != nil {
			return nil, fmt.Errorf("payload from rank %d: %w", peer, err)
		}
		if len(ids) != ex.counts[peer] {
			return nil, fmt.Errorf("%w: rank %d announced %d, sent %d",
				ErrCountMismatch, peer, ex.counts[peer], len(ids))
		}
		payloads[peer] = ids
	}
	return payloads, nil
}

// Drain blocks until every outstanding send has completed, so message
// buffers stay valid for the transport until it is done with them. Must be
// called even when the traversal short-circuits on a found target.
func (ex *Exchange) Drain() error {
	if err := transport.WaitAll(ex.sends...); err != nil {
		return fmt.Errorf("halo drain: %w", err)
	}
	return nil
}
