package parallel

import (
	"sort"
	"testing"

	"github.com/dd0wney/cluso-traverse/pkg/graph"
	"github.com/dd0wney/cluso-traverse/pkg/traverse"
)

func sorted(order []int32) []int32 {
	out := make([]int32, len(order))
	copy(out, order)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestTraverse_VisitsEveryVertexOnce(t *testing.T) {
	g := graph.Synthesize(200)

	order, _, err := Traverse(g, -1, 4)
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}

	if len(order) != 200 {
		t.Fatalf("visited %d vertices, want 200", len(order))
	}
	seen := make(map[int32]bool, len(order))
	for _, v := range order {
		if seen[v] {
			t.Fatalf("vertex %d visited twice", v)
		}
		seen[v] = true
	}
}

func TestTraverse_MatchesSequentialVisitedSet(t *testing.T) {
	g := graph.Synthesize(150)

	seqOrder, _ := traverse.Sequential(g, -1, 1)
	parOrder, _, err := Traverse(g, -1, 8)
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}

	seq, par := sorted(seqOrder), sorted(parOrder)
	if len(seq) != len(par) {
		t.Fatalf("visited counts differ: sequential %d, parallel %d", len(seq), len(par))
	}
	for i := range seq {
		if seq[i] != par[i] {
			t.Fatalf("visited sets differ at %d: %d vs %d", i, seq[i], par[i])
		}
	}
}

func TestTraverse_FindsTarget(t *testing.T) {
	g := graph.Synthesize(100)

	if _, found, _ := Traverse(g, 42, 4); !found {
		t.Error("target 42 not found in a full traversal")
	}
	if _, found, _ := Traverse(g, 100, 4); found {
		t.Error("reported an out-of-range target as found")
	}
}

func TestTraverse_SingleWorker(t *testing.T) {
	g := graph.SynthesizeDense(64, 5)

	order, _, err := Traverse(g, -1, 1)
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}
	if len(order) != 64 {
		t.Errorf("visited %d vertices, want 64", len(order))
	}
}

func TestTraverse_EmptyGraph(t *testing.T) {
	order, found, err := Traverse(graph.Graph{}, 0, 2)
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}
	if len(order) != 0 || found {
		t.Errorf("order=%v found=%v, want empty and false", order, found)
	}
}
