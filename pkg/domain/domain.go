// Package domain implements the static partitioning of a vertex id space
// across a fixed set of workers. Each worker owns one contiguous, half-open
// range of vertex ids; the ranges tile [0, totalVertices) exactly.
package domain

import (
	"errors"
	"fmt"
)

// ErrOwnerMismatch indicates the forward partition assignment and the
// inverse owner lookup disagree for some vertex. This is a programming
// logic violation, never a recoverable runtime condition.
var ErrOwnerMismatch = errors.New("partition assignment and owner lookup disagree")

// Info describes the vertex range owned by one worker.
type Info struct {
	Rank        int
	NumWorkers  int
	StartVertex int
	EndVertex   int // exclusive
	LocalSize   int
}

// Setup splits totalVertices into NumWorkers near-equal contiguous blocks
// and returns the block owned by rank. The first totalVertices%numWorkers
// ranks receive one extra vertex each. A rank may receive an empty range
// when totalVertices < numWorkers; callers treat that as no local work.
func Setup(totalVertices, rank, numWorkers int) Info {
	base := totalVertices / numWorkers
	remainder := totalVertices % numWorkers

	d := Info{Rank: rank, NumWorkers: numWorkers}
	if rank < remainder {
		d.LocalSize = base + 1
		d.StartVertex = rank * d.LocalSize
	} else {
		d.LocalSize = base
		d.StartVertex = remainder*(base+1) + (rank-remainder)*base
	}
	d.EndVertex = d.StartVertex + d.LocalSize
	return d
}

// OwnerOf returns the rank owning vertex. It is the exact inverse of Setup:
// for every vertex v, OwnerOf(v) == r iff Setup(.., r, ..) covers v.
func OwnerOf(vertex, totalVertices, numWorkers int) int {
	base := totalVertices / numWorkers
	remainder := totalVertices % numWorkers

	threshold := remainder * (base + 1)
	if vertex < threshold {
		return vertex / (base + 1)
	}
	return remainder + (vertex-threshold)/base
}

// IsLocal reports whether vertex falls inside this worker's owned range.
func (d Info) IsLocal(vertex int) bool {
	return vertex >= d.StartVertex && vertex < d.EndVertex
}

// Empty reports whether this worker owns no vertices.
func (d Info) Empty() bool {
	return d.LocalSize == 0
}

// Verify checks that Setup and OwnerOf agree for every vertex, and that the
// per-rank ranges tile [0, totalVertices) without gaps or overlap. Run at
// startup; a failure means the partition math is broken and the run must
// abort.
func Verify(totalVertices, numWorkers int) error {
	next := 0
	for rank := 0; rank < numWorkers; rank++ {
		d := Setup(totalVertices, rank, numWorkers)
		if d.StartVertex != next {
			return fmt.Errorf("%w: rank %d starts at %d, want %d",
				ErrOwnerMismatch, rank, d.StartVertex, next)
		}
		for v := d.StartVertex; v < d.EndVertex; v++ {
			if owner := OwnerOf(v, totalVertices, numWorkers); owner != rank {
				return fmt.Errorf("%w: vertex %d assigned to rank %d, owner lookup says %d",
					ErrOwnerMismatch, v, rank, owner)
			}
		}
		next = d.EndVertex
	}
	if next != totalVertices {
		return fmt.Errorf("%w: ranges cover [0,%d), want [0,%d)",
			ErrOwnerMismatch, next, totalVertices)
	}
	return nil
}
