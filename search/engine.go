package search

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"docsearch/config"
	"docsearch/obs"
)

// FileDescriptor identifies one corpus file.
type FileDescriptor struct {
	Name string              `json:"name"`
	Path string              `json:"path"`
	Type config.DeclaredType `json:"type"`
}

// Result is one file that satisfies a query. Matches is empty in filename
// mode.
type Result struct {
	File    FileDescriptor `json:"file"`
	Matches []string       `json:"matches"`
}

// ProgressFunc is an optional callback to report progress like: processed, total, path
type ProgressFunc func(stage string, processed, total int, path string)

// ConcurrencyManager handles bounded concurrency for heavy operations
type ConcurrencyManager struct {
	sem chan struct{}
}

func NewConcurrencyManager(slots int) *ConcurrencyManager {
	if slots < 1 {
		slots = 1
	}
	return &ConcurrencyManager{sem: make(chan struct{}, slots)}
}

// Acquire blocks until a slot is free. A nil manager never blocks.
func (cm *ConcurrencyManager) Acquire() {
	if cm == nil {
		return
	}
	cm.sem <- struct{}{}
}

func (cm *ConcurrencyManager) Release() {
	if cm == nil {
		return
	}
	<-cm.sem
}

// ExecuteWithTimeout runs fn in a slot and gives up waiting after timeout.
// The slot belongs to fn, not to the caller: a timed-out fn keeps running in
// the background and only frees its slot when it returns.
func (cm *ConcurrencyManager) ExecuteWithTimeout(fn func(), timeout time.Duration) error {
	cm.Acquire()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer cm.Release()
		fn()
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("operation timed out after %v", timeout)
	}
}

// Engine is the search service. It holds no per-request state; every call
// re-reads the corpus.
type Engine struct {
	Root          string
	PreviewPrefix string
	Workers       int
	MaxExcerpt    int
	Registry      *ExtractorRegistry
	Walker        *FileWalker

	// Optional progress callback (nil if unused)
	OnProgress ProgressFunc

	logger zerolog.Logger
}

// NewEngine creates a search engine from configuration.
func NewEngine(cfg *config.Config) *Engine {
	reg := NewExtractorRegistry()
	reg.MaxFileBytes = cfg.MaxFileBytes
	reg.Timeout = cfg.FileTimeout

	return &Engine{
		Root:          cfg.CorpusRoot,
		PreviewPrefix: cfg.PreviewPrefix,
		Workers:       cfg.Workers,
		MaxExcerpt:    cfg.MaxExcerpt,
		Registry:      reg,
		Walker:        NewFileWalker(cfg.IncludeHidden),
		logger:        obs.Logger("search"),
	}
}

// Search runs a query against the corpus root with default settings.
func Search(ctx context.Context, root, query string, fullText bool) ([]Result, error) {
	cfg := config.DefaultConfig()
	cfg.CorpusRoot = root
	return NewEngine(cfg).Search(ctx, query, fullText)
}

// Descriptor builds the descriptor for a corpus-relative path.
func (e *Engine) Descriptor(name string) FileDescriptor {
	prefix := strings.TrimRight(e.PreviewPrefix, "/")
	if prefix == "" {
		prefix = "/preview"
	}
	return FileDescriptor{
		Name: name,
		Path: config.PreviewPath(prefix, name),
		Type: config.DetectType(name),
	}
}

// Search returns the files matching query. In filename mode a file matches
// when its relative path contains the query; in full-text mode it needs at
// least one matching line. Results follow the sorted path order. An empty or
// whitespace-only query yields an empty result.
func (e *Engine) Search(ctx context.Context, query string, fullText bool) ([]Result, error) {
	results := []Result{}
	if strings.TrimSpace(query) == "" {
		return results, nil
	}

	start := time.Now()
	files, err := e.Walker.List(e.Root)
	if err != nil {
		e.logger.Error().Err(err).Str("root", e.Root).Msg("corpus enumeration failed")
		return nil, err
	}

	matcher := NewMatcher(query, e.maxExcerpt())
	total := len(files)

	if !fullText {
		for i, name := range files {
			e.progress("filename", i+1, total, name)
			if matcher.MatchName(name) {
				results = append(results, Result{File: e.Descriptor(name), Matches: []string{}})
			}
		}
		e.logSearch(query, fullText, total, len(results), start)
		return results, nil
	}

	slots := make([]*Result, total)
	var processed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, name := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			desc := e.Descriptor(name)
			text := e.Registry.Extract(filepath.Join(e.Root, filepath.FromSlash(name)), desc.Type)
			if excerpts := matcher.MatchLines(text); len(excerpts) > 0 {
				slots[i] = &Result{File: desc, Matches: excerpts}
			}
			e.progress("full-text", int(processed.Add(1)), total, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	e.logSearch(query, fullText, total, len(results), start)
	return results, nil
}

func (e *Engine) progress(stage string, processed, total int, path string) {
	if e.OnProgress != nil {
		e.OnProgress(stage, processed, total, path)
	}
}

func (e *Engine) logSearch(query string, fullText bool, scanned, matched int, start time.Time) {
	e.logger.Debug().
		Str("query", query).
		Bool("full_text", fullText).
		Int("scanned", scanned).
		Int("matched", matched).
		Dur("took", time.Since(start)).
		Msg("search finished")
}

func (e *Engine) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.NumCPU() * 2
}

func (e *Engine) maxExcerpt() int {
	if e.MaxExcerpt > 0 {
		return e.MaxExcerpt
	}
	return config.DefaultMaxExcerpt
}
