package gen

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"
)

func TestEmitRendersRegistry(t *testing.T) {
	res := &ScanResult{
		Package: "demo",
		Aggregates: []Aggregate{{
			Name: "Graph",
			Fields: []Field{
				{Name: "Neighbors", Part: "Neighbors", Type: "[][]int"},
				{Name: "colors", Part: "Colors", Type: "[]int"},
			},
			Excluded: []string{"scratch"},
		}},
	}
	out, err := Emit(res, "")
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	// gofmt column-aligns the var block, so compare with whitespace
	// runs collapsed.
	code := flatten(string(out))

	for _, want := range []string{
		"// Code generated by partref; DO NOT EDIT.",
		"package demo",
		`parts "partref/parts"`,
		"var graphPartsBuilder = parts.NewBuilder[Graph]()",
		`GraphNeighbors = parts.Add[Graph, [][]int](graphPartsBuilder, "Neighbors", unsafe.Offsetof(Graph{}.Neighbors))`,
		`GraphColors = parts.Add[Graph, []int](graphPartsBuilder, "Colors", unsafe.Offsetof(Graph{}.colors))`,
		`Exclude("scratch")`,
		"MustBuild()",
	} {
		if !strings.Contains(code, flatten(want)) {
			t.Fatalf("emitted code missing %q:\n%s", want, out)
		}
	}

	// The output must itself parse as Go.
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "demo_parts.go", out, parser.SkipObjectResolution); err != nil {
		t.Fatalf("emitted code does not parse: %v\n%s", err, code)
	}
}

func TestEmitCustomImportPath(t *testing.T) {
	res := &ScanResult{
		Package: "demo",
		Aggregates: []Aggregate{{
			Name:   "Box",
			Fields: []Field{{Name: "A", Part: "A", Type: "int"}},
		}},
	}
	out, err := Emit(res, "example.com/fork/parts")
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if !strings.Contains(string(out), `parts "example.com/fork/parts"`) {
		t.Fatalf("custom import path not honored:\n%s", out)
	}
}

func TestEmitNothingWithoutAggregates(t *testing.T) {
	out, err := Emit(&ScanResult{Package: "demo"}, "")
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if out != nil {
		t.Fatalf("expected no output for an empty scan, got:\n%s", out)
	}
}

func TestEmitRejectsCollidingAggregateNames(t *testing.T) {
	res := &ScanResult{
		Package: "demo",
		Aggregates: []Aggregate{
			{Name: "Graph", Fields: []Field{{Name: "A", Part: "A", Type: "int"}}},
			{Name: "graph", Fields: []Field{{Name: "B", Part: "B", Type: "int"}}},
		},
	}
	_, err := Emit(res, "")
	if err == nil || !strings.Contains(err.Error(), "collide") {
		t.Fatalf("expected identifier collision error, got %v", err)
	}
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
