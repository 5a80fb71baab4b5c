package traverse

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/cluso-traverse/pkg/domain"
	"github.com/dd0wney/cluso-traverse/pkg/graph"
	"github.com/dd0wney/cluso-traverse/pkg/transport"
)

// runWorkers executes one traversal per rank over a shared in-process
// fabric and returns the per-rank results.
func runWorkers(t *testing.T, n int, g graph.Graph, opts Options) []Result {
	t.Helper()

	fabric := transport.NewFabric(n)
	results := make([]Result, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for rank := 0; rank < n; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			mesh := fabric.Mesh(rank)
			defer mesh.Close()
			dom := domain.Setup(g.NumVertices(), rank, n)
			results[rank], errs[rank] = Run(mesh, g, dom, opts)
		}(rank)
	}
	wg.Wait()

	for rank, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: %v", rank, err)
		}
	}
	return results
}

func visitedSet(t *testing.T, results []Result) []int32 {
	t.Helper()
	var all []int32
	seen := make(map[int32]bool)
	for rank, res := range results {
		for _, v := range res.Order {
			if seen[v] {
				t.Fatalf("vertex %d visited by more than one rank (rank %d)", v, rank)
			}
			seen[v] = true
			all = append(all, v)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

func TestRun_SingleWorkerMatchesSequential(t *testing.T) {
	g := graph.Synthesize(50)

	results := runWorkers(t, 1, g, Options{Target: -1, Work: 1})
	seqOrder, _ := Sequential(g, -1, 1)

	got := visitedSet(t, results)
	if len(got) != len(seqOrder) {
		t.Fatalf("visited %d vertices, sequential visited %d", len(got), len(seqOrder))
	}
	for i, v := range got {
		if int32(i) != v {
			t.Fatalf("missing vertex %d", i)
		}
	}
}

func TestRun_TwoWorkersCoverEverything(t *testing.T) {
	g := graph.Synthesize(40)

	results := runWorkers(t, 2, g, Options{Target: -1, Work: 1})

	all := visitedSet(t, results)
	if len(all) != 40 {
		t.Fatalf("visited %d vertices, want 40", len(all))
	}
	for rank, res := range results {
		dom := domain.Setup(40, rank, 2)
		for _, v := range res.Order {
			if !dom.IsLocal(int(v)) {
				t.Errorf("rank %d visited foreign vertex %d", rank, v)
			}
		}
	}
}

func TestRun_FourWorkersUnevenSplit(t *testing.T) {
	// 42 vertices over 4 workers: ranks 0 and 1 own 11, ranks 2 and 3 own 10.
	g := graph.Synthesize(42)

	results := runWorkers(t, 4, g, Options{Target: -1, Work: 1})

	if all := visitedSet(t, results); len(all) != 42 {
		t.Fatalf("visited %d vertices, want 42", len(all))
	}
	if len(results[0].Order) != 11 || len(results[3].Order) != 10 {
		t.Errorf("partition sizes = %d/%d, want 11/10",
			len(results[0].Order), len(results[3].Order))
	}
}

func TestRun_RingTargetFoundOnOwningRank(t *testing.T) {
	// Ring 0 -> 1 -> 2 -> 3 -> 0 over two workers; rank 1 owns the target.
	g := graph.Graph{{1}, {2}, {3}, {0}}

	results := runWorkers(t, 2, g, Options{Target: 3, Work: 1})

	if results[0].Found {
		t.Error("rank 0 reported found for a vertex it does not own")
	}
	if !results[1].Found {
		t.Error("rank 1 did not find its own target")
	}
	if total := len(results[0].Order) + len(results[1].Order); total != 4 {
		t.Errorf("total visited = %d, want 4", total)
	}
}

func TestRun_NegativeTargetNeverFound(t *testing.T) {
	g := graph.Synthesize(30)

	results := runWorkers(t, 3, g, Options{Target: -1, Work: 1})
	for rank, res := range results {
		if res.Found {
			t.Errorf("rank %d found a negative target", rank)
		}
		if res.Elapsed <= 0 {
			t.Errorf("rank %d elapsed = %v", rank, res.Elapsed)
		}
	}
}

func TestRunAndAggregate(t *testing.T) {
	g := graph.Synthesize(40)
	const n = 4

	fabric := transport.NewFabric(n)
	summaries := make([]Summary, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for rank := 0; rank < n; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			mesh := fabric.Mesh(rank)
			defer mesh.Close()
			dom := domain.Setup(40, rank, n)
			res, err := Run(mesh, g, dom, Options{Target: 15, Work: 1})
			if err != nil {
				errs[rank] = err
				return
			}
			summaries[rank], errs[rank] = Aggregate(mesh, 40, res)
		}(rank)
	}
	wg.Wait()

	for rank, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: %v", rank, err)
		}
	}

	s := summaries[0]
	if s.Workers != n || s.TotalVertices != 40 {
		t.Errorf("summary = %+v", s)
	}
	if !s.Found {
		t.Error("global found flag not set; rank 1 owns vertex 15")
	}
	if s.Visited == 0 || s.Visited > 40 {
		t.Errorf("visited = %d, want in (0,40]", s.Visited)
	}
	if s.MaxElapsed <= 0 || s.MaxElapsed > time.Minute {
		t.Errorf("max elapsed = %v", s.MaxElapsed)
	}
}
