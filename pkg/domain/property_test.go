package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestPartitionInvariants verifies the two load-bearing properties of the
// partition math with randomized inputs: the forward split and the inverse
// owner lookup agree for every vertex, and the per-rank ranges tile the
// vertex space exactly.
func TestPartitionInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("owner lookup inverts the forward split", prop.ForAll(
		func(total, numWorkers int) bool {
			for rank := 0; rank < numWorkers; rank++ {
				d := Setup(total, rank, numWorkers)
				for v := d.StartVertex; v < d.EndVertex; v++ {
					if OwnerOf(v, total, numWorkers) != rank {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(0, 2000),
		gen.IntRange(1, 64),
	))

	properties.Property("ranges tile the vertex space without gaps", prop.ForAll(
		func(total, numWorkers int) bool {
			next := 0
			for rank := 0; rank < numWorkers; rank++ {
				d := Setup(total, rank, numWorkers)
				if d.StartVertex != next || d.EndVertex < d.StartVertex {
					return false
				}
				next = d.EndVertex
			}
			return next == total
		},
		gen.IntRange(0, 2000),
		gen.IntRange(1, 64),
	))

	properties.Property("block sizes differ by at most one", prop.ForAll(
		func(total, numWorkers int) bool {
			min, max := total, 0
			for rank := 0; rank < numWorkers; rank++ {
				size := Setup(total, rank, numWorkers).LocalSize
				if size < min {
					min = size
				}
				if size > max {
					max = size
				}
			}
			return max-min <= 1
		},
		gen.IntRange(0, 2000),
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}
