package gen

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultSuffix is appended to an input file's base name to form the
// generated registry file name.
const DefaultSuffix = "_parts.go"

// Options configures a generation run.
type Options struct {
	Suffix      string       // output suffix, DefaultSuffix when empty
	Jobs        int          // max parallel workers, GOMAXPROCS when <= 0
	Cache       *Cache       // optional scan cache
	PartsImport string       // import path for the parts package
	Events      chan<- Event // optional progress sink
	DryRun      bool         // scan and render without writing files
}

// FileResult describes the outcome for one input file.
type FileResult struct {
	Path       string
	Output     string // generated file path, empty when nothing emitted
	Aggregates int
	Err        error
}

// Failed reports whether the file could not be processed.
func (r FileResult) Failed() bool {
	return r.Err != nil
}

// ListGoFiles returns the sorted candidate source files under dir:
// every .go file that is not a test, not previously generated output
// and not under a hidden or underscore directory.
func ListGoFiles(dir, suffix string) ([]string, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") ||
			strings.HasSuffix(name, "_test.go") ||
			strings.HasSuffix(name, suffix) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Deterministic order regardless of filesystem iteration.
	sort.Strings(files)
	return files, nil
}

// GenerateDir scans every candidate file under dir in parallel and
// writes a registry file next to each file declaring aggregates.
// Per-file failures are recorded in the results rather than aborting
// the run; the returned error covers walking and cancellation only.
func GenerateDir(ctx context.Context, dir string, opts Options) ([]FileResult, error) {
	suffix := opts.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	files, err := ListGoFiles(dir, suffix)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]FileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = generateFile(path, suffix, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func generateFile(path, suffix string, opts Options) FileResult {
	res := FileResult{Path: path}
	emit := func(stage Stage, status Status, err error) {
		if opts.Events != nil {
			opts.Events <- Event{File: path, Stage: stage, Status: status, Err: err}
		}
	}

	emit(StageScan, StatusWorking, nil)
	src, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		emit(StageScan, StatusError, err)
		return res
	}
	scan, err := scanCached(path, src, opts.Cache)
	if err != nil {
		res.Err = err
		emit(StageScan, StatusError, err)
		return res
	}
	emit(StageScan, StatusDone, nil)
	res.Aggregates = len(scan.Aggregates)
	if res.Aggregates == 0 {
		return res
	}

	emit(StageEmit, StatusWorking, nil)
	out, err := Emit(scan, opts.PartsImport)
	if err != nil {
		res.Err = err
		emit(StageEmit, StatusError, err)
		return res
	}
	res.Output = strings.TrimSuffix(path, ".go") + suffix
	if !opts.DryRun {
		if err := os.WriteFile(res.Output, out, 0o644); err != nil {
			res.Err = err
			emit(StageEmit, StatusError, err)
			return res
		}
	}
	emit(StageEmit, StatusDone, nil)
	return res
}

func scanCached(path string, src []byte, cache *Cache) (*ScanResult, error) {
	if cache == nil {
		return ScanFile(path, src)
	}
	key := DigestOf(src)
	if cached, ok, err := cache.Get(key); err == nil && ok {
		return cached, nil
	}
	scan, err := ScanFile(path, src)
	if err != nil {
		return nil, err
	}
	// Cache write failures are not fatal; the next run re-parses.
	_ = cache.Put(key, scan)
	return scan, nil
}
