package traverse

import (
	"fmt"
	"time"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"

	"github.com/dd0wney/cluso-traverse/pkg/collective"
	"github.com/dd0wney/cluso-traverse/pkg/domain"
	"github.com/dd0wney/cluso-traverse/pkg/graph"
	"github.com/dd0wney/cluso-traverse/pkg/halo"
	"github.com/dd0wney/cluso-traverse/pkg/logging"
	"github.com/dd0wney/cluso-traverse/pkg/metrics"
	"github.com/dd0wney/cluso-traverse/pkg/transport"
)

// Options configures one worker's traversal.
type Options struct {
	// Target is the vertex the traversal searches for. A negative target
	// never matches and the traversal runs to exhaustion.
	Target int32
	// Work is the per-vertex synthetic work loop length; 0 means
	// DefaultWork.
	Work int
	// Logger receives per-phase progress. Nil means no logging.
	Logger logging.Logger
	// Metrics, when set, receives phase durations and traversal totals.
	Metrics *metrics.Registry
}

// Run executes this worker's share of the distributed traversal:
// classification, overlapped interior traversal and halo phase 1, the
// phase-2 payload synchronization, boundary traversal, traversal of
// externally requested owned vertices, and the final send drain. A found
// target short-circuits new traversal work but never skips the drains.
func Run(mesh transport.Mesh, g graph.Graph, dom domain.Info, opts Options) (Result, error) {
	work := opts.Work
	if work <= 0 {
		work = DefaultWork
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	start := time.Now()

	interior, boundary := Classify(g, dom)
	log.Debug("classified partition",
		logging.Rank(dom.Rank),
		logging.Int("interior", len(interior)),
		logging.Int("boundary", len(boundary)))

	// Distinct external vertex ids referenced by boundary edges, grouped by
	// owning rank. Deterministic ascending order keeps payloads identical
	// across runs.
	requests := externalRequests(g, dom, boundary)

	// Phase 1 posts without blocking; the interior traversal below overlaps
	// the announcement traffic.
	ex := halo.Start(mesh, dom, requests)

	w := newWalker(g, dom, opts.Target, work)
	interiorStart := time.Now()
	for _, v := range interior {
		if w.found {
			break
		}
		if !w.visited[v] {
			w.dfs(v)
		}
	}
	observePhase(opts.Metrics, "interior", time.Since(interiorStart))

	waitStart := time.Now()
	if err := ex.WaitCounts(); err != nil {
		return Result{}, fmt.Errorf("rank %d: %w", dom.Rank, err)
	}
	payloads, err := ex.WaitPayloads()
	if err != nil {
		return Result{}, fmt.Errorf("rank %d: %w", dom.Rank, err)
	}
	observePhase(opts.Metrics, "exchange", time.Since(waitStart))

	boundaryStart := time.Now()
	for _, v := range boundary {
		if w.found {
			break
		}
		if !w.visited[v] {
			w.dfs(v)
		}
	}

	// Externally requested vertices that resolve to local ownership, in
	// ascending source rank order.
	for peer := 0; peer < mesh.Size(); peer++ {
		if w.found {
			break
		}
		for _, v := range payloads[peer] {
			if v < 0 || int(v) >= g.NumVertices() {
				return Result{}, fmt.Errorf("rank %d: request from rank %d: %w: vertex %d",
					dom.Rank, peer, graph.ErrVertexRange, v)
			}
			if dom.IsLocal(int(v)) && !w.visited[v] {
				if w.dfs(v) {
					break
				}
			}
		}
	}
	observePhase(opts.Metrics, "boundary", time.Since(boundaryStart))

	// Sends must be fully drained before the buffers go out of scope, found
	// or not.
	if err := ex.Drain(); err != nil {
		return Result{}, fmt.Errorf("rank %d: %w", dom.Rank, err)
	}

	res := Result{Order: w.order, Found: w.found, Elapsed: time.Since(start)}
	if opts.Metrics != nil {
		opts.Metrics.ObserveTraversal(dom.Rank, res.Found, res.Elapsed, len(res.Order))
	}
	log.Info("local traversal complete",
		logging.Rank(dom.Rank),
		logging.Count(len(res.Order)),
		logging.Bool("found", res.Found),
		logging.Duration("elapsed", res.Elapsed))
	return res, nil
}

// externalRequests collects the distinct non-local vertex ids referenced by
// boundary edges and groups them by owning rank.
func externalRequests(g graph.Graph, dom domain.Info, boundary []int32) map[int][]int32 {
	ext := treeset.NewWith(utils.Int32Comparator)
	for _, v := range boundary {
		for _, nb := range g[v] {
			if !dom.IsLocal(int(nb)) {
				ext.Add(nb)
			}
		}
	}

	requests := make(map[int][]int32)
	ext.Each(func(_ int, value interface{}) {
		id := value.(int32)
		owner := domain.OwnerOf(int(id), g.NumVertices(), dom.NumWorkers)
		if owner != dom.Rank {
			requests[owner] = append(requests[owner], id)
		}
	})
	return requests
}

func observePhase(reg *metrics.Registry, phase string, d time.Duration) {
	if reg != nil {
		reg.ObservePhase(phase, d)
	}
}

// Aggregate reduces all workers' results at rank 0: maximum elapsed time,
// total visited count and a global found flag. It synchronizes on a
// barrier first, so it must be called by every rank after Run returns.
func Aggregate(mesh transport.Mesh, totalVertices int, res Result) (Summary, error) {
	if err := collective.Barrier(mesh); err != nil {
		return Summary{}, fmt.Errorf("aggregate barrier: %w", err)
	}

	maxElapsed, err := collective.ReduceMaxDuration(mesh, 0, res.Elapsed)
	if err != nil {
		return Summary{}, err
	}
	visited, err := collective.ReduceSumInt(mesh, 0, len(res.Order))
	if err != nil {
		return Summary{}, err
	}
	found, err := collective.ReduceOr(mesh, 0, res.Found)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Workers:       mesh.Size(),
		TotalVertices: totalVertices,
		Visited:       visited,
		MaxElapsed:    maxElapsed,
		Found:         found,
	}, nil
}
