// Package driver orchestrates checking runs: file discovery, the
// per-file lex/parse/build/flow pipeline, result caching and parallel
// scheduling.
package driver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"memlint/internal/ast"
	"memlint/internal/diag"
	"memlint/internal/flow"
	"memlint/internal/observ"
	"memlint/internal/own"
	"memlint/internal/parser"
	"memlint/internal/rules"
	"memlint/internal/source"
)

const defaultMaxFindings = 256

// Options controls one CheckPaths run.
type Options struct {
	// MaxFindings caps the per-file bag. Zero means the default.
	MaxFindings int
	// Jobs is the parallelism limit. Zero means GOMAXPROCS.
	Jobs int
	// Registry defaults to rules.Default when nil.
	Registry *rules.Registry
	// Symbols defaults to own.DefaultSymbols when zero.
	Symbols own.Symbols
	// Cache is optional; nil disables result caching.
	Cache *DiskCache
	// ConfigDigest salts cache keys so config edits invalidate entries.
	ConfigDigest Digest
	// BaseDir anchors relative path formatting.
	BaseDir string
	// Timings attaches an informational timing finding per file.
	Timings bool
	// Observer receives per-file progress events. May be nil.
	Observer Observer
}

// FileResult is the outcome of checking one file.
type FileResult struct {
	Path   string
	FileID source.FileID
	Bag    *diag.Bag
	Cached bool
}

// Event is one progress notification.
type Event struct {
	Path     string
	Index    int // 0-based position in the run
	Total    int
	Done     bool // false on start, true on completion
	Cached   bool
	Findings int
}

// Observer receives progress events. Calls may come from multiple
// goroutines.
type Observer func(Event)

// ListSourceFiles expands paths (files or directories) into a sorted,
// deduplicated list of .c and .h files.
func ListSourceFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isSourceFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

func isSourceFile(path string) bool {
	return strings.HasSuffix(path, ".c") || strings.HasSuffix(path, ".h")
}

// CheckPaths checks every source file under the given paths. Files are
// analyzed independently and in parallel; results come back in path
// order. The error covers discovery and cancellation, not findings.
func CheckPaths(ctx context.Context, paths []string, opts Options) (*source.FileSet, []FileResult, error) {
	files, err := ListSourceFiles(paths)
	if err != nil {
		return nil, nil, err
	}

	fileSet := source.NewFileSetWithBase(opts.BaseDir)
	if len(files) == 0 {
		return fileSet, nil, nil
	}

	if opts.MaxFindings <= 0 {
		opts.MaxFindings = defaultMaxFindings
	}
	if opts.Registry == nil {
		opts.Registry = rules.Default()
	}
	if opts.Symbols.Allocators == nil {
		opts.Symbols = own.DefaultSymbols()
	}

	// The FileSet is not synchronized: load everything up front.
	fileIDs := make(map[string]source.FileID, len(files))
	loadErrors := make(map[string]error, len(files))
	for _, path := range files {
		id, err := fileSet.Load(path)
		if err != nil {
			loadErrors[path] = err
			continue
		}
		fileIDs[path] = id
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Slot indexes are unique per goroutine, no mutex needed.
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			opts.emit(Event{Path: path, Index: i, Total: len(files)})

			bag := diag.NewBag(opts.MaxFindings)
			res := FileResult{Path: path, Bag: bag}

			if loadErr, failed := loadErrors[path]; failed {
				bag.Add(diag.Finding{
					Severity: diag.SevError,
					Code:     diag.IOLoadFileError,
					Message:  "failed to load file: " + loadErr.Error(),
				})
				results[i] = res
				opts.emit(Event{Path: path, Index: i, Total: len(files), Done: true, Findings: bag.Len()})
				return nil
			}

			fileID := fileIDs[path]
			res.FileID = fileID
			res.Cached = checkFile(fileSet.Get(fileID), bag, opts)
			results[i] = res

			opts.emit(Event{
				Path:     path,
				Index:    i,
				Total:    len(files),
				Done:     true,
				Cached:   res.Cached,
				Findings: bag.Len(),
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fileSet, results, err
	}
	return fileSet, results, nil
}

// checkFile runs the pipeline for one loaded file, consulting the
// cache first. Reports whether the result came from the cache.
func checkFile(file *source.File, bag *diag.Bag, opts Options) bool {
	key := cacheKey(file.Hash, opts.ConfigDigest)

	if opts.Cache != nil {
		var payload FilePayload
		if hit, err := opts.Cache.Get(key, &payload); err == nil && hit {
			payloadToBag(&payload, file.ID, bag)
			return true
		}
	}

	timer := observ.NewTimer()
	rep := diag.BagReporter{Bag: bag}

	phase := timer.Begin("parse")
	b := ast.NewBuilder(nil)
	parser.ParseFile(file, b, parser.Options{Reporter: rep})
	timer.End(phase, "")

	phase = timer.Begin("build")
	g, buildErr := own.Build(b, own.Options{Reporter: rep, Symbols: opts.Symbols})
	timer.End(phase, "")

	// Build errors are already in the bag; flow needs a usable graph.
	if buildErr == nil && !bag.HasErrors() {
		phase = timer.Begin("flow")
		flow.Check(g, flow.Options{Reporter: rep, Registry: opts.Registry})
		timer.End(phase, "")
	}

	opts.Registry.Apply(bag)
	bag.Sort()
	bag.Dedup()

	if opts.Cache != nil {
		// Cache before timing info: timings are run-specific.
		_ = opts.Cache.Put(key, bagToPayload(bag))
	}

	if opts.Timings {
		appendTimingFinding(bag, file.Path, timer.Report())
	}
	return false
}

func (o Options) emit(ev Event) {
	if o.Observer != nil {
		o.Observer(ev)
	}
}
