package ref

import (
	"testing"
	"unsafe"

	"partref/parts"
)

// graph is the canonical worked example: per-node adjacency, colors and
// weights held in one aggregate, processed by passes that each declare
// the parts they touch.
type graph struct {
	Neighbors [][]int
	Colors    []int
	Weights   []float64
}

var (
	graphBuilder = parts.NewBuilder[graph]()

	graphNeighbors = parts.Add[graph, [][]int](graphBuilder, "Neighbors", unsafe.Offsetof(graph{}.Neighbors))
	graphColors    = parts.Add[graph, []int](graphBuilder, "Colors", unsafe.Offsetof(graph{}.Colors))
	graphWeights   = parts.Add[graph, []float64](graphBuilder, "Weights", unsafe.Offsetof(graph{}.Weights))

	graphRegistry = graphBuilder.MustBuild()
)

func newTestGraph() *graph {
	return &graph{
		Neighbors: [][]int{{1}, {0, 2}, {1}},
		Colors:    []int{0, 1, 0},
		Weights:   []float64{0.25, 0.5, 0.75},
	}
}

// addColorToWeight declares exactly what it needs: weights to write,
// colors to read. Callers with wider access narrow down to this.
func addColorToWeight(g *Ref[graph]) error {
	weights, err := PartMut(g, graphWeights)
	if err != nil {
		return err
	}
	colors, err := Part(g, graphColors)
	if err != nil {
		return err
	}
	for i, c := range *colors {
		(*weights)[i] += float64(c)
	}
	return nil
}

func TestAddColorToWeight(t *testing.T) {
	g := newTestGraph()
	root := Mut(graphRegistry, g)

	want := parts.NewSet(graphWeights.Mut(), graphColors.Shared())
	if err := With(root, want, addColorToWeight); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	expected := []float64{0.25, 1.5, 0.75}
	for i, w := range expected {
		if g.Weights[i] != w {
			t.Fatalf("weight %d: expected %v, got %v", i, w, g.Weights[i])
		}
	}
	if !root.Active() {
		t.Fatalf("root must be usable again after the pass")
	}
}

func TestPassCannotExceedItsDeclaration(t *testing.T) {
	g := newTestGraph()
	root := Mut(graphRegistry, g)

	// The pass asks for shared colors only; writing them is rejected.
	want := parts.NewSet(graphWeights.Mut(), graphColors.Shared())
	err := With(root, want, func(r *Ref[graph]) error {
		_, err := PartMut(r, graphColors)
		return err
	})
	expectIssue(t, err, IssueSharedOnly, "Colors")

	// Neighbors was never requested at all.
	err = With(root, want, func(r *Ref[graph]) error {
		_, err := Part(r, graphNeighbors)
		return err
	})
	expectIssue(t, err, IssueMissingPart, "Neighbors")
}

func TestNestedExclusiveRequestOnSharedPart(t *testing.T) {
	g := newTestGraph()
	root := Mut(graphRegistry, g)

	// A traversal rewrites adjacency while reading colors; a nested
	// step may not escalate colors to exclusive.
	want := parts.NewSet(graphNeighbors.Mut(), graphColors.Shared())
	err := With(root, want, func(r *Ref[graph]) error {
		neighbors, err := PartMut(r, graphNeighbors)
		if err != nil {
			return err
		}
		colors, err := Part(r, graphColors)
		if err != nil {
			return err
		}
		for i := range *neighbors {
			if (*colors)[i] == 0 {
				(*neighbors)[i] = nil
			}
			if _, err := r.Narrow(parts.NewSet(graphColors.Mut())); err != nil {
				return err
			}
		}
		return nil
	})
	expectIssue(t, err, IssueSharedOnly, "Colors")
	if g.Neighbors[0] != nil {
		t.Fatalf("mutable traversal write lost")
	}
}

func TestConcurrentDisjointPasses(t *testing.T) {
	g := newTestGraph()
	root := Mut(graphRegistry, g)

	colorsRef, weightsRef, err := root.Partition(
		parts.NewSet(graphColors.Mut()),
		parts.NewSet(graphWeights.Mut()),
	)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	colors, err := PartMut(colorsRef, graphColors)
	if err != nil {
		t.Fatalf("colors side: %v", err)
	}
	weights, err := PartMut(weightsRef, graphWeights)
	if err != nil {
		t.Fatalf("weights side: %v", err)
	}

	// Both field references stay valid side by side.
	(*colors)[0] = 2
	(*weights)[0] = 1.0
	if g.Colors[0] != 2 || g.Weights[0] != 1.0 {
		t.Fatalf("disjoint writes lost: %+v", g)
	}

	if _, err := Join(colorsRef, weightsRef); err != nil {
		t.Fatalf("join failed: %v", err)
	}
}
