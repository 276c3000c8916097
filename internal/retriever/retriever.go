package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/contextlab/codectx/internal/config"
	"github.com/contextlab/codectx/internal/embedder"
	"github.com/contextlab/codectx/internal/extractor"
	"github.com/contextlab/codectx/internal/vectorindex"
	"github.com/contextlab/codectx/pkg/types"
)

// IndexOptions controls one IndexCodebase run.
type IndexOptions struct {
	// Name overrides the configured index name for persistence.
	Name string
	// Save persists the rebuilt index after a successful build.
	Save bool
	// Extensions restricts the walk to these extensions (with leading dot,
	// case-insensitive). Empty means every extension with an extractor.
	Extensions []string
}

// Stats summarizes an IndexCodebase run.
type Stats struct {
	FilesScanned int `json:"files_scanned"`
	Chunks       int `json:"chunks"`
	Dimension    int `json:"dimension"`
}

// Retriever is the query orchestrator: it owns the extraction registry, the
// embedding service and the vector index, and exposes the end-to-end
// index-then-query pipeline.
type Retriever struct {
	mu       sync.RWMutex
	registry *extractor.Registry
	embedSvc *embedder.Service
	index    *vectorindex.Index
	cfg      *config.Config
	log      *slog.Logger
}

// New assembles a retriever from the full configuration.
func New(cfg *config.Config) (*Retriever, error) {
	embedSvc, err := embedder.NewService(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("create embedding service: %w", err)
	}
	return NewWith(cfg, embedSvc)
}

// NewWith assembles a retriever around an existing embedding service.
func NewWith(cfg *config.Config, embedSvc *embedder.Service) (*Retriever, error) {
	var backend vectorindex.Backend
	if cfg.Index.UseHNSW {
		backend = vectorindex.NewHNSWBackend(cfg.Index.Metric)
	} else {
		backend = vectorindex.NewFlatBackend(cfg.Index.Metric)
	}
	index, err := vectorindex.New(cfg.Index.Metric, backend)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	reg := extractor.NewRegistry(extractor.Options{
		MaxFileSize:     cfg.Extractors.MaxFileSize,
		SplitByHeadings: cfg.Extractors.Markdown.SplitByHeadings,
	})

	return &Retriever{
		registry: reg,
		embedSvc: embedSvc,
		index:    index,
		cfg:      cfg,
		log:      slog.Default().With("component", "retriever"),
	}, nil
}

// Close releases the embedding provider.
func (r *Retriever) Close() error { return r.embedSvc.Close() }

// Ready reports whether an index is built or loaded.
func (r *Retriever) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Ready()
}

// IndexSize returns the number of indexed chunks.
func (r *Retriever) IndexSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Size()
}

// EmbedderInfo returns the provider and model names for status reporting.
func (r *Retriever) EmbedderInfo() (provider, model string) {
	return r.embedSvc.Provider(), r.embedSvc.Model()
}

// IndexCodebase walks rootDir, extracts chunks from every supported file,
// embeds them in one batched pass and rebuilds the index from scratch.
// Per-file extraction failures are logged and skipped, never fatal. Files
// are processed concurrently; chunk order within a file is preserved, order
// across files is not guaranteed.
func (r *Retriever) IndexCodebase(ctx context.Context, rootDir string, opts IndexOptions) (*Stats, error) {
	files, err := collectFiles(rootDir, r.registry, r.cfg.Indexing, opts.Extensions, r.log)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", rootDir, err)
	}
	r.log.Info("indexing codebase", "root", rootDir, "files", len(files))

	// Per-file slots keep intra-file chunk order regardless of which worker
	// finishes first.
	perFile := make([][]types.Chunk, len(files))
	g, _ := errgroup.WithContext(ctx)
	workers := r.cfg.Indexing.MaxWorkers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			perFile[i] = r.registry.ExtractChunks(file)
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var chunks []types.Chunk
	for _, fc := range perFile {
		chunks = append(chunks, fc...)
	}
	if len(chunks) == 0 {
		r.log.Warn("no chunks extracted, index unchanged", "root", rootDir)
		return &Stats{FilesScanned: len(files)}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.FullText
	}
	vectors := r.embedSvc.BatchEmbed(ctx, texts, 0)

	r.mu.Lock()
	err = r.index.Build(chunks, vectors)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	if opts.Save {
		name := opts.Name
		if name == "" {
			name = r.cfg.Index.Name
		}
		if err := r.SaveIndex(name); err != nil {
			return nil, err
		}
	}

	return &Stats{
		FilesScanned: len(files),
		Chunks:       len(chunks),
		Dimension:    r.index.Dimension(),
	}, nil
}

// RawQuery embeds text and returns the topK nearest chunks with scores.
// topK at or below zero falls back to the configured default.
func (r *Retriever) RawQuery(ctx context.Context, text string, topK int) ([]types.SearchResult, error) {
	if topK <= 0 {
		topK = r.cfg.Retriever.TopK
	}
	queryVec := r.embedSvc.Embed(ctx, text)

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Search(queryVec, topK)
}

// Query runs RawQuery, applies the score threshold and renders results
// through the configured template. A nil threshold falls back to the
// configured one; when both are nil no filtering happens and Query returns
// exactly RawQuery's results, formatted.
func (r *Retriever) Query(ctx context.Context, text string, topK int, threshold *float64) (string, []types.SearchResult, error) {
	results, err := r.RawQuery(ctx, text, topK)
	if err != nil {
		return "", nil, err
	}

	if threshold == nil {
		threshold = r.cfg.Retriever.Threshold
	}
	if threshold != nil {
		kept := results[:0]
		for _, res := range results {
			if res.Score >= *threshold {
				kept = append(kept, res)
			}
		}
		results = kept
	}

	rendered := FormatResults(results, r.cfg.Retriever.FormatTemplate, r.cfg.Retriever.Separator)
	return rendered, results, nil
}

// SaveIndex persists the current index under the configured directory.
func (r *Retriever) SaveIndex(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.index.Save(r.cfg.Index.Dir, name); err != nil {
		return fmt.Errorf("save index %s: %w", name, err)
	}
	return nil
}

// LoadIndex restores a persisted index by name.
func (r *Retriever) LoadIndex(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.index.Load(r.cfg.Index.Dir, name); err != nil {
		return fmt.Errorf("load index %s: %w", name, err)
	}
	return nil
}
