// Package graph holds the adjacency-list graph type and the deterministic
// synthesizers used by the traversal drivers. Graphs are immutable once
// built; every worker synthesizes an identical copy from the vertex count.
package graph

import (
	"errors"
	"fmt"
)

// ErrVertexRange indicates an edge references a vertex id outside
// [0, NumVertices). A malformed graph is fatal for the whole run.
var ErrVertexRange = errors.New("edge references vertex outside graph")

// Graph is an ordered sequence of adjacency lists, one per vertex id.
// Neighbor lists may contain duplicates and self-loops; they are stored as
// synthesized, never deduplicated.
type Graph [][]int32

// NumVertices returns the number of vertices in the graph.
func (g Graph) NumVertices() int {
	return len(g)
}

// Neighbors returns the adjacency list of v. The returned slice is shared
// with the graph and must not be mutated.
func (g Graph) Neighbors(v int32) []int32 {
	return g[v]
}

// Validate checks that every neighbor id is inside [0, NumVertices).
func (g Graph) Validate() error {
	n := int32(len(g))
	for v, nbrs := range g {
		for _, nb := range nbrs {
			if nb < 0 || nb >= n {
				return fmt.Errorf("%w: vertex %d has neighbor %d, graph size %d",
					ErrVertexRange, v, nb, n)
			}
		}
	}
	return nil
}

// Synthesize builds the weak-scaling benchmark graph: every vertex i has
// three outgoing edges (i + j*7) % n for j in 1..3. Deterministic, so all
// workers construct the same graph from the same vertex count.
func Synthesize(n int) Graph {
	g := make(Graph, n)
	for i := 0; i < n; i++ {
		nbrs := make([]int32, 0, 3)
		for j := 1; j <= 3; j++ {
			nbrs = append(nbrs, int32((i+j*7)%n))
		}
		g[i] = nbrs
	}
	return g
}

// SynthesizeDense builds the denser graph used by the single-process
// drivers: vertex i has degree outgoing edges (i*7 + j*13) % n.
func SynthesizeDense(n, degree int) Graph {
	g := make(Graph, n)
	for i := 0; i < n; i++ {
		nbrs := make([]int32, 0, degree)
		for j := 0; j < degree; j++ {
			nbrs = append(nbrs, int32((i*7+j*13)%n))
		}
		g[i] = nbrs
	}
	return g
}
