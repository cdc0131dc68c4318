package gen

import (
	"strings"
	"testing"
)

func TestScanFileCollectsTaggedStructs(t *testing.T) {
	src := `package demo

type Graph struct {
	Neighbors [][]int   ` + "`part:\"\"`" + `
	colors    []int     ` + "`part:\"Colors\"`" + `
	weights   []float64 ` + "`part:\"\"`" + `
	scratch   []byte    ` + "`part:\"-\"`" + `
}

type plain struct {
	x int
}
`
	res, err := ScanFile("demo.go", []byte(src))
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if res.Package != "demo" {
		t.Fatalf("expected package demo, got %s", res.Package)
	}
	if len(res.Aggregates) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(res.Aggregates))
	}
	agg := res.Aggregates[0]
	if agg.Name != "Graph" {
		t.Fatalf("expected Graph, got %s", agg.Name)
	}
	wantFields := []Field{
		{Name: "Neighbors", Part: "Neighbors", Type: "[][]int"},
		{Name: "colors", Part: "Colors", Type: "[]int"},
		{Name: "weights", Part: "Weights", Type: "[]float64"},
	}
	if len(agg.Fields) != len(wantFields) {
		t.Fatalf("expected %d fields, got %d", len(wantFields), len(agg.Fields))
	}
	for i, want := range wantFields {
		if agg.Fields[i] != want {
			t.Fatalf("field %d: expected %+v, got %+v", i, want, agg.Fields[i])
		}
	}
	if len(agg.Excluded) != 1 || agg.Excluded[0] != "scratch" {
		t.Fatalf("expected scratch excluded, got %v", agg.Excluded)
	}
}

func TestScanFileRejectsPartialTagging(t *testing.T) {
	src := `package demo

type Box struct {
	A int ` + "`part:\"A\"`" + `
	B int
}
`
	_, err := ScanFile("demo.go", []byte(src))
	if err == nil || !strings.Contains(err.Error(), "carry no part tag") {
		t.Fatalf("expected completeness error, got %v", err)
	}
}

func TestScanFileRejectsDuplicatePart(t *testing.T) {
	src := `package demo

type Box struct {
	A int ` + "`part:\"Same\"`" + `
	B int ` + "`part:\"Same\"`" + `
}
`
	_, err := ScanFile("demo.go", []byte(src))
	if err == nil || !strings.Contains(err.Error(), "declared for both") {
		t.Fatalf("expected duplicate part error, got %v", err)
	}
}

func TestScanFileRejectsUnexportedPartName(t *testing.T) {
	src := `package demo

type Box struct {
	A int ` + "`part:\"lower\"`" + `
}
`
	_, err := ScanFile("demo.go", []byte(src))
	if err == nil || !strings.Contains(err.Error(), "exported identifier") {
		t.Fatalf("expected identifier error, got %v", err)
	}
}

func TestScanFileRejectsTaggedEmbedded(t *testing.T) {
	src := `package demo

type inner struct{ X int }

type Box struct {
	inner ` + "`part:\"Inner\"`" + `
}
`
	_, err := ScanFile("demo.go", []byte(src))
	if err == nil || !strings.Contains(err.Error(), "embedded field") {
		t.Fatalf("expected embedded field error, got %v", err)
	}
}

func TestScanFileRejectsAllExcluded(t *testing.T) {
	src := `package demo

type Box struct {
	A int ` + "`part:\"-\"`" + `
}
`
	_, err := ScanFile("demo.go", []byte(src))
	if err == nil || !strings.Contains(err.Error(), "every field is excluded") {
		t.Fatalf("expected empty table error, got %v", err)
	}
}

func TestPartNameFor(t *testing.T) {
	cases := map[string]string{
		"neighbors":    "Neighbors",
		"edge_weights": "EdgeWeights",
		"edgeWeights":  "EdgeWeights",
		"Colors":       "Colors",
	}
	for in, want := range cases {
		if got := PartNameFor(in); got != want {
			t.Fatalf("PartNameFor(%q): expected %s, got %s", in, want, got)
		}
	}
}
