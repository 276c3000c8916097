package embedder

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/contextlab/codectx/internal/config"
)

// Service wraps a Provider with caching, batching and failure degradation.
// A provider outage never fails a caller: affected texts come back as zero
// vectors and the failure is logged, so an index build completes with
// degraded rather than missing entries.
type Service struct {
	provider   Provider
	cache      *Cache
	batchSize  int
	maxWorkers int
	log        *slog.Logger
}

// NewService builds the embedding service from configuration. The provider
// is constructed here; pass a pre-built provider with NewServiceWith when
// tests need a fake.
func NewService(cfg config.EmbedderConfig) (*Service, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewServiceWith(cfg, provider)
}

// NewServiceWith builds the service around an existing provider.
func NewServiceWith(cfg config.EmbedderConfig, provider Provider) (*Service, error) {
	var cache *Cache
	if cfg.UseCache {
		var err error
		cache, err = NewCache(cfg.CacheDir, provider.Name(), provider.Model(), cfg.MemoryCacheSize)
		if err != nil {
			return nil, err
		}
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	return &Service{
		provider:   provider,
		cache:      cache,
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
		log:        slog.Default().With("component", "embedder"),
	}, nil
}

// Dimension returns the provider's fixed embedding dimensionality.
func (s *Service) Dimension() int { return s.provider.Dimension() }

// Provider returns the underlying provider name, for status reporting.
func (s *Service) Provider() string { return s.provider.Name() }

// Model returns the underlying model identifier.
func (s *Service) Model() string { return s.provider.Model() }

// Close releases provider resources.
func (s *Service) Close() error { return s.provider.Close() }

// Embed returns the embedding for a single text. Provider failures degrade
// to a zero vector of the provider's dimension.
func (s *Service) Embed(ctx context.Context, text string) []float32 {
	if s.cache != nil {
		if v, ok := s.cache.Get(text, s.provider.Dimension()); ok {
			return v
		}
	}

	vec, err := s.provider.EmbedOne(ctx, text)
	if err != nil {
		s.log.Warn("embedding failed, using zero vector",
			"provider", s.provider.Name(), "error", err)
		return make([]float32, s.provider.Dimension())
	}

	if s.cache != nil {
		s.cache.Put(text, vec)
	}
	return vec
}

// BatchEmbed returns embeddings for texts in input order. Texts are split
// into batchSize groups processed concurrently; batchSize at or below zero
// falls back to the configured size. Within a group, cache hits are served
// locally and only the misses go to the provider in one call. A failed
// provider call zero-fills that group's misses while its cache hits keep
// their real vectors.
func (s *Service) BatchEmbed(ctx context.Context, texts []string, batchSize int) [][]float32 {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out
	}
	if batchSize <= 0 {
		batchSize = s.batchSize
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end

		g.Go(func() error {
			s.embedGroup(gctx, texts[start:end], out[start:end])
			return nil
		})
	}

	// Workers never return errors; degradation is per group.
	_ = g.Wait()
	return out
}

// embedGroup fills slots (parallel to group) with vectors for one group.
func (s *Service) embedGroup(ctx context.Context, group []string, slots [][]float32) {
	dim := s.provider.Dimension()

	var missTexts []string
	var missIdx []int
	for i, text := range group {
		if s.cache != nil {
			if v, ok := s.cache.Get(text, dim); ok {
				slots[i] = v
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return
	}

	vecs, err := s.provider.EmbedBatch(ctx, missTexts)
	if err != nil || len(vecs) != len(missTexts) {
		s.log.Warn("batch embedding failed, zero-filling misses",
			"provider", s.provider.Name(), "misses", len(missTexts), "error", err)
		for _, i := range missIdx {
			slots[i] = make([]float32, dim)
		}
		return
	}

	for j, i := range missIdx {
		slots[i] = vecs[j]
		if s.cache != nil {
			s.cache.Put(missTexts[j], vecs[j])
		}
	}
}
