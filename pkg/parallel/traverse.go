package parallel

import (
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-traverse/pkg/graph"

	"github.com/dd0wney/cluso-traverse/pkg/traverse"
)

// workSink absorbs the busy-work results so the loop is not optimized away.
var workSink int32

// Traverser runs a task-parallel DFS over a whole graph. Visit order is
// nondeterministic across runs; the visited set is not.
type Traverser struct {
	g    graph.Graph
	pool *WorkerPool
	work int

	mu      sync.Mutex
	visited []bool
	order   []int32
	found   bool
	target  int32

	wg sync.WaitGroup
}

// Traverse visits every vertex reachable from any root using up to workers
// goroutines and reports whether target was seen. Subtrees are explored as
// pool tasks when a worker is free and inline otherwise.
func Traverse(g graph.Graph, target int32, workers int) ([]int32, bool, error) {
	pool, err := NewWorkerPool(workers)
	if err != nil {
		return nil, false, err
	}
	defer pool.Close()

	t := &Traverser{
		g:       g,
		pool:    pool,
		work:    traverse.DefaultWork,
		visited: make([]bool, len(g)),
		order:   make([]int32, 0, len(g)),
		target:  target,
	}

	for v := range g {
		t.explore(int32(v))
	}
	t.wg.Wait()

	return t.order, t.found, nil
}

func (t *Traverser) explore(v int32) {
	t.mu.Lock()
	if t.visited[v] {
		t.mu.Unlock()
		return
	}
	t.visited[v] = true
	t.order = append(t.order, v)
	if v == t.target {
		t.found = true
	}
	t.mu.Unlock()

	t.busyWork(v)

	for _, nb := range t.g[v] {
		t.mu.Lock()
		seen := t.visited[nb]
		t.mu.Unlock()
		if seen {
			continue
		}

		nb := nb
		t.wg.Add(1)
		task := func() {
			defer t.wg.Done()
			t.explore(nb)
		}
		if !t.pool.TrySubmit(task) {
			task()
		}
	}
}

// busyWork models per-vertex computation so scaling runs measure more than
// traversal overhead.
func (t *Traverser) busyWork(v int32) {
	var acc int32
	for i := 0; i < t.work; i++ {
		acc += (v * int32(i)) % 100
	}
	atomic.AddInt32(&workSink, acc)
}
