package gen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const generateFixture = `package demo

type Graph struct {
	Neighbors [][]int   ` + "`part:\"\"`" + `
	Colors    []int     ` + "`part:\"\"`" + `
	Weights   []float64 ` + "`part:\"\"`" + `
}
`

func TestGenerateDirWritesRegistries(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "graph.go", generateFixture)
	writeFixture(t, dir, "plain.go", "package demo\n\ntype plain struct{ x int }\n")
	writeFixture(t, dir, "graph_test.go", "package demo\n")

	results, err := GenerateDir(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Failed() {
			t.Fatalf("%s failed: %v", r.Path, r.Err)
		}
	}

	out := filepath.Join(dir, "graph"+DefaultSuffix)
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected generated file: %v", err)
	}
	if !strings.Contains(string(data), "GraphRegistry") {
		t.Fatalf("generated file missing registry:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "plain"+DefaultSuffix)); err == nil {
		t.Fatalf("untagged file must not produce output")
	}
}

func TestGenerateDirDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "graph.go", generateFixture)

	results, err := GenerateDir(context.Background(), dir, Options{DryRun: true})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(results) != 1 || results[0].Aggregates != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
	if _, err := os.Stat(filepath.Join(dir, "graph"+DefaultSuffix)); err == nil {
		t.Fatalf("dry run must not write files")
	}
}

func TestGenerateDirRecordsScanErrors(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "bad.go", "package demo\n\ntype Box struct {\n\tA int `part:\"A\"`\n\tB int\n}\n")
	writeFixture(t, dir, "graph.go", generateFixture)

	results, err := GenerateDir(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("generate aborted: %v", err)
	}
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly the bad file to fail, got %d failures", failed)
	}
}

func TestGenerateDirUsesCache(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "graph.go", generateFixture)
	cache, err := OpenCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}

	opts := Options{Cache: cache, DryRun: true}
	if _, err := GenerateDir(context.Background(), dir, opts); err != nil {
		t.Fatalf("first run: %v", err)
	}
	src, err := os.ReadFile(filepath.Join(dir, "graph.go"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if _, ok, err := cache.Get(DigestOf(src)); err != nil || !ok {
		t.Fatalf("expected cached scan after a run, got ok=%v err=%v", ok, err)
	}
	if _, err := GenerateDir(context.Background(), dir, opts); err != nil {
		t.Fatalf("cached run: %v", err)
	}
}

func TestListGoFilesSkipsGeneratedAndHidden(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.go", "package demo\n")
	writeFixture(t, dir, "a_parts.go", "package demo\n")
	writeFixture(t, dir, "a_test.go", "package demo\n")
	sub := filepath.Join(dir, ".hidden")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFixture(t, sub, "b.go", "package demo\n")

	files, err := ListGoFiles(dir, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "a.go" {
		t.Fatalf("unexpected candidates: %v", files)
	}
}

func writeFixture(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
