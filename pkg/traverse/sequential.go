package traverse

import "github.com/dd0wney/cluso-traverse/pkg/graph"

// Sequential is the single-process reference traversal: a plain recursive
// DFS over the whole graph with a stride-ordered neighbor visit (neighbors
// at stride offsets first, then the rest). It records whether the target
// was seen but keeps going; distributed runs are compared against it on
// the visited set, not on early termination.
func Sequential(g graph.Graph, target int32, stride int) ([]int32, bool) {
	if stride < 1 {
		stride = 1
	}
	visited := make([]bool, len(g))
	order := make([]int32, 0, len(g))
	found := false

	var rec func(v int32)
	rec = func(v int32) {
		visited[v] = true
		order = append(order, v)
		if v == target {
			found = true
		}

		busyWork(v, DefaultWork)

		nbrs := g[v]
		for idx := 0; idx < len(nbrs); idx += stride {
			if nb := nbrs[idx]; !visited[nb] {
				rec(nb)
			}
		}
		for idx := 0; idx < len(nbrs); idx++ {
			if idx%stride != 0 {
				if nb := nbrs[idx]; !visited[nb] {
					rec(nb)
				}
			}
		}
	}

	for v := range g {
		if !visited[v] {
			rec(int32(v))
		}
	}
	return order, found
}
