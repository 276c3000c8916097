package vectorindex

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/contextlab/codectx/pkg/types"
)

// Supported distance metrics.
const (
	MetricCosine = "cosine"
	MetricL2     = "l2"
)

// Backend answers nearest-neighbor queries over a fixed vector set. Build
// fully replaces the previous contents. Search returns positions into the
// built set together with raw distances, nearest first. Serialize and Deserialize
// carry the backend's own serialization of that set.
type Backend interface {
	Name() string
	Build(vectors [][]float32)
	Search(query []float32, k int) ([]int, []float32)
	Len() int
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

// indexMeta is the JSON sidecar persisted next to the vector artifact.
type indexMeta struct {
	Metadata  []types.Chunk `json:"metadata"`
	Dimension int           `json:"dimension"`
	Metric    string        `json:"metric"`
	Backend   string        `json:"backend"`
}

// Index pairs a nearest-neighbor backend with per-vector chunk metadata.
// Build replaces everything; there is no incremental update. For the cosine
// metric vectors are L2-normalized on the way in, so inner product equals
// cosine similarity.
type Index struct {
	dimension int
	metric    string
	backend   Backend
	metadata  []types.Chunk
	log       *slog.Logger
}

// New creates an empty index over the given metric and backend. The
// dimension is fixed by the first Build.
func New(metric string, backend Backend) (*Index, error) {
	if metric != MetricCosine && metric != MetricL2 {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
	return &Index{
		metric:  metric,
		backend: backend,
		log:     slog.Default().With("component", "vectorindex"),
	}, nil
}

// Dimension returns the vector dimensionality, zero before the first Build.
func (ix *Index) Dimension() int { return ix.dimension }

// Metric returns the configured distance metric.
func (ix *Index) Metric() string { return ix.metric }

// Size returns the number of indexed vectors.
func (ix *Index) Size() int { return ix.backend.Len() }

// Ready reports whether the index has been built or loaded.
func (ix *Index) Ready() bool { return ix.backend.Len() > 0 }

// Build replaces the index contents with the given chunks and vectors. The
// two slices are parallel. An empty input is logged and leaves the index
// unbuilt; mismatched lengths and ragged dimensions are errors.
func (ix *Index) Build(chunks []types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", types.ErrCountMismatch, len(chunks), len(vectors))
	}
	if len(vectors) == 0 {
		ix.log.Warn("build called with no vectors, index left unbuilt")
		return nil
	}

	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: zero-length vector at position 0", types.ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", types.ErrDimensionMismatch, i, len(v), dim)
		}
	}

	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		c := make([]float32, len(v))
		copy(c, v)
		if ix.metric == MetricCosine {
			normalize(c)
		}
		stored[i] = c
	}

	ix.dimension = dim
	ix.metadata = make([]types.Chunk, len(chunks))
	copy(ix.metadata, chunks)
	ix.backend.Build(stored)

	ix.log.Info("index built", "vectors", len(stored), "dimension", dim,
		"metric", ix.metric, "backend", ix.backend.Name())
	return nil
}

// Search returns the topK nearest chunks for the query vector. An unbuilt
// index logs an error and returns no results. Cosine scores are the inner
// product of normalized vectors; l2 scores map distances into (0, 1] with
// 1 - d/(maxD + epsilon), computed per query over the returned candidates.
func (ix *Index) Search(query []float32, topK int) ([]types.SearchResult, error) {
	if !ix.Ready() {
		ix.log.Error("search on unbuilt index")
		return nil, types.ErrNotReady
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", types.ErrDimensionMismatch, len(query), ix.dimension)
	}
	if topK <= 0 {
		return nil, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if ix.metric == MetricCosine {
		normalize(q)
	}

	ids, dists := ix.backend.Search(q, topK)
	if len(ids) == 0 {
		return nil, nil
	}

	var maxDist float64
	if ix.metric == MetricL2 {
		for _, d := range dists {
			if float64(d) > maxDist {
				maxDist = float64(d)
			}
		}
	}

	results := make([]types.SearchResult, len(ids))
	for i, id := range ids {
		d := float64(dists[i])
		var score float64
		switch ix.metric {
		case MetricCosine:
			// Backend distance is 1 - IP for normalized vectors.
			score = 1 - d
		case MetricL2:
			score = 1 - d/(maxDist+1e-6)
		}
		results[i] = types.SearchResult{
			Chunk:    ix.metadata[id],
			Score:    score,
			Distance: d,
		}
	}
	return results, nil
}

// Save persists the index as two artifacts under dir: <name>.index holds the
// backend's serialized vector structure and <name>.meta holds the JSON
// metadata envelope.
func (ix *Index) Save(dir, name string) error {
	if !ix.Ready() {
		return types.ErrNotReady
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir %s: %w", dir, err)
	}

	indexPath := filepath.Join(dir, name+".index")
	f, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", indexPath, err)
	}
	defer func() { _ = f.Close() }()
	if err := ix.backend.Serialize(f); err != nil {
		return fmt.Errorf("write vector structure: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", indexPath, err)
	}

	meta := indexMeta{
		Metadata:  ix.metadata,
		Dimension: ix.dimension,
		Metric:    ix.metric,
		Backend:   ix.backend.Name(),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	metaPath := filepath.Join(dir, name+".meta")
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", metaPath, err)
	}

	ix.log.Info("index saved", "dir", dir, "name", name, "vectors", ix.backend.Len())
	return nil
}

// Load restores an index saved by Save. Both artifacts must exist and the
// metadata's metric must match the index's configuration.
func (ix *Index) Load(dir, name string) error {
	indexPath := filepath.Join(dir, name+".index")
	metaPath := filepath.Join(dir, name+".meta")

	for _, p := range []string{indexPath, metaPath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s", types.ErrIndexArtifactMissing, p)
		}
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", metaPath, err)
	}
	var meta indexMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("parse %s: %w", metaPath, err)
	}
	if meta.Metric != ix.metric {
		return fmt.Errorf("saved index uses metric %q, configured metric is %q", meta.Metric, ix.metric)
	}
	if meta.Backend != ix.backend.Name() {
		ix.log.Warn("saved index built by a different backend", "saved", meta.Backend, "configured", ix.backend.Name())
	}

	f, err := os.Open(indexPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", indexPath, err)
	}
	defer func() { _ = f.Close() }()
	if err := ix.backend.Deserialize(f); err != nil {
		return fmt.Errorf("read vector structure: %w", err)
	}
	if ix.backend.Len() != len(meta.Metadata) {
		return fmt.Errorf("%w: %d vectors, %d metadata entries", types.ErrCountMismatch, ix.backend.Len(), len(meta.Metadata))
	}

	ix.dimension = meta.Dimension
	ix.metadata = meta.Metadata

	ix.log.Info("index loaded", "dir", dir, "name", name, "vectors", ix.backend.Len(), "metric", ix.metric)
	return nil
}

// normalize scales v to unit length in place. Zero vectors are left as-is so
// degraded embeddings stay inert instead of becoming NaN.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

// distanceFunc returns the backend distance for the metric: 1 - IP for
// cosine over normalized vectors, euclidean for l2. Both are smaller-is-
// closer, which is what the backends expect.
func distanceFunc(metric string) func(a, b []float32) float32 {
	if metric == MetricCosine {
		return func(a, b []float32) float32 {
			var ip float64
			for i := range a {
				ip += float64(a[i]) * float64(b[i])
			}
			return float32(1 - ip)
		}
	}
	return func(a, b []float32) float32 {
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return float32(math.Sqrt(sum))
	}
}
