// Command traverse runs the weak-scaling traversal benchmark in a single
// process, one goroutine per worker over the in-process fabric. It is the
// quickest way to exercise the full distributed path without deploying
// workers.
package main

import (
	"flag"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/dd0wney/cluso-traverse/pkg/config"
	"github.com/dd0wney/cluso-traverse/pkg/domain"
	"github.com/dd0wney/cluso-traverse/pkg/graph"
	"github.com/dd0wney/cluso-traverse/pkg/parallel"
	"github.com/dd0wney/cluso-traverse/pkg/report"
	"github.com/dd0wney/cluso-traverse/pkg/transport"
	"github.com/dd0wney/cluso-traverse/pkg/traverse"
)

func main() {
	workers := flag.Int("workers", 0, "Number of workers (0 = CPU count)")
	baseVertices := flag.Int("vertices", 10000, "Vertices per worker")
	target := flag.Int64("target", -2, "Target vertex (-1 = none, -2 = 84% of total)")
	model := flag.String("model", config.ModelWeak, "Graph model: weak or dense")
	degree := flag.Int("degree", 3, "Out-degree for the dense model")
	work := flag.Int("work", traverse.DefaultWork, "Per-vertex work loop length")
	compare := flag.Bool("compare", false, "Also run the sequential and shared-memory traversals")
	flag.Parse()

	if *workers <= 0 {
		*workers = runtime.NumCPU()
	}
	total := *baseVertices * *workers
	if *target == -2 {
		*target = int64(total) * 84 / 100
	}

	if err := domain.Verify(total, *workers); err != nil {
		log.Fatalf("Domain decomposition check failed: %v", err)
	}

	var g graph.Graph
	switch *model {
	case config.ModelWeak:
		g = graph.Synthesize(total)
	case config.ModelDense:
		g = graph.SynthesizeDense(total, *degree)
	default:
		log.Fatalf("Unknown graph model %q", *model)
	}
	if err := g.Validate(); err != nil {
		log.Fatalf("Graph validation failed: %v", err)
	}

	fmt.Printf("🔬 Distributed Traversal Benchmark\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Workers:   %d\n", *workers)
	fmt.Printf("  Vertices:  %d (%d per worker)\n", total, *baseVertices)
	fmt.Printf("  Target:    %d\n", *target)
	fmt.Printf("  Model:     %s\n\n", *model)

	summary := runDistributed(g, *workers, int32(*target), *work)
	fmt.Print(report.Render(summary))

	if *compare {
		seqStart := time.Now()
		seqOrder, seqFound := traverse.Sequential(g, int32(*target), 1)
		fmt.Printf("\nSequential:    visited %d, found %v in %s\n",
			len(seqOrder), seqFound, time.Since(seqStart))

		parStart := time.Now()
		parOrder, parFound, err := parallel.Traverse(g, int32(*target), *workers)
		if err != nil {
			log.Fatalf("Shared-memory traversal failed: %v", err)
		}
		fmt.Printf("Shared-memory: visited %d, found %v in %s\n",
			len(parOrder), parFound, time.Since(parStart))
	}
}

func runDistributed(g graph.Graph, workers int, target int32, work int) traverse.Summary {
	fabric := transport.NewFabric(workers)
	summaries := make([]traverse.Summary, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for rank := 0; rank < workers; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			mesh := fabric.Mesh(rank)
			defer mesh.Close()

			dom := domain.Setup(g.NumVertices(), rank, workers)
			res, err := traverse.Run(mesh, g, dom, traverse.Options{Target: target, Work: work})
			if err != nil {
				errs[rank] = err
				return
			}
			summaries[rank], errs[rank] = traverse.Aggregate(mesh, g.NumVertices(), res)
		}(rank)
	}
	wg.Wait()

	for rank, err := range errs {
		if err != nil {
			log.Fatalf("Worker %d failed: %v", rank, err)
		}
	}
	return summaries[0]
}
