package vectorindex

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextlab/codectx/pkg/types"
)

func testChunks(n int) []types.Chunk {
	chunks := make([]types.Chunk, n)
	for i := range chunks {
		chunks[i] = types.Chunk{
			File:      "src/app.go",
			Name:      string(rune('a' + i)),
			Kind:      types.KindFunction,
			FullText:  "func body",
			LineStart: 1,
			LineEnd:   2,
		}
	}
	return chunks
}

func newCosineIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := New(MetricCosine, NewFlatBackend(MetricCosine))
	require.NoError(t, err)
	return ix
}

func TestBuildAndSearchCosine(t *testing.T) {
	ix := newCosineIndex(t)

	// Vectors at different angles; query aligned with the first.
	vectors := [][]float32{
		{1, 0, 0},
		{0.7, 0.7, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	require.NoError(t, ix.Build(testChunks(4), vectors))
	require.True(t, ix.Ready())
	assert.Equal(t, 3, ix.Dimension())

	results, err := ix.Search([]float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].Name)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5, "aligned vector scores ~1")
	assert.Equal(t, "b", results[1].Name)
	assert.InDelta(t, math.Sqrt2/2, results[1].Score, 1e-5)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score, "scores must be non-increasing")
	}
}

func TestSearchL2ScoreMapping(t *testing.T) {
	ix, err := New(MetricL2, NewFlatBackend(MetricL2))
	require.NoError(t, err)

	vectors := [][]float32{
		{0, 0},
		{3, 4},
		{6, 8},
	}
	require.NoError(t, ix.Build(testChunks(3), vectors))

	results, err := ix.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Farthest hit defines the per-query scale: its score approaches zero,
	// the exact match approaches one.
	assert.Equal(t, "a", results[0].Name)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.InDelta(t, 0.0, results[2].Score, 1e-5)
	assert.Greater(t, results[1].Score, results[2].Score)
	assert.InDelta(t, 5.0, results[1].Distance, 1e-5)
}

func TestBuildReplacesNotMerges(t *testing.T) {
	ix := newCosineIndex(t)

	require.NoError(t, ix.Build(testChunks(3), [][]float32{{1, 0}, {0, 1}, {1, 1}}))
	assert.Equal(t, 3, ix.Size())

	// Second build with a different dimension must fully replace the first.
	require.NoError(t, ix.Build(testChunks(2), [][]float32{{1, 0, 0}, {0, 1, 0}}))
	assert.Equal(t, 2, ix.Size())
	assert.Equal(t, 3, ix.Dimension())

	results, err := ix.Search([]float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestBuildValidation(t *testing.T) {
	ix := newCosineIndex(t)

	err := ix.Build(testChunks(2), [][]float32{{1, 0}})
	assert.ErrorIs(t, err, types.ErrCountMismatch)

	err = ix.Build(testChunks(2), [][]float32{{1, 0}, {1, 0, 0}})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)

	// Empty build is a logged no-op, not an error.
	require.NoError(t, ix.Build(nil, nil))
	assert.False(t, ix.Ready())
}

func TestSearchUnbuilt(t *testing.T) {
	ix := newCosineIndex(t)
	_, err := ix.Search([]float32{1, 0}, 5)
	assert.ErrorIs(t, err, types.ErrNotReady)
}

func TestSearchDimensionMismatch(t *testing.T) {
	ix := newCosineIndex(t)
	require.NoError(t, ix.Build(testChunks(1), [][]float32{{1, 0, 0}}))

	_, err := ix.Search([]float32{1, 0}, 5)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ix := newCosineIndex(t)
	chunks := testChunks(3)
	chunks[1].Name = "findUser"
	chunks[1].Kind = types.KindMethod
	vectors := [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}}
	require.NoError(t, ix.Build(chunks, vectors))
	require.NoError(t, ix.Save(dir, "proj"))

	loaded := newCosineIndex(t)
	require.NoError(t, loaded.Load(dir, "proj"))
	assert.Equal(t, ix.Size(), loaded.Size())
	assert.Equal(t, ix.Dimension(), loaded.Dimension())

	want, err := ix.Search([]float32{0, 1}, 3)
	require.NoError(t, err)
	got, err := loaded.Search([]float32{0, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "findUser", got[0].Name)
	assert.Equal(t, types.KindMethod, got[0].Kind)
}

func TestLoadMissingArtifact(t *testing.T) {
	dir := t.TempDir()

	ix := newCosineIndex(t)
	err := ix.Load(dir, "absent")
	assert.ErrorIs(t, err, types.ErrIndexArtifactMissing)

	// Only one half of the pair present is still missing.
	require.NoError(t, ix.Build(testChunks(1), [][]float32{{1, 0}}))
	require.NoError(t, ix.Save(dir, "half"))
	require.NoError(t, os.Remove(filepath.Join(dir, "half.meta")))

	fresh := newCosineIndex(t)
	err = fresh.Load(dir, "half")
	assert.ErrorIs(t, err, types.ErrIndexArtifactMissing)
}

func TestLoadMetricMismatch(t *testing.T) {
	dir := t.TempDir()

	ix := newCosineIndex(t)
	require.NoError(t, ix.Build(testChunks(1), [][]float32{{1, 0}}))
	require.NoError(t, ix.Save(dir, "proj"))

	l2, err := New(MetricL2, NewFlatBackend(MetricL2))
	require.NoError(t, err)
	err = l2.Load(dir, "proj")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metric")
}

func TestZeroVectorStaysInert(t *testing.T) {
	ix := newCosineIndex(t)

	vectors := [][]float32{{1, 0}, {0, 0}}
	require.NoError(t, ix.Build(testChunks(2), vectors))

	results, err := ix.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Name)
	assert.InDelta(t, 0.0, results[1].Score, 1e-5, "zero vector scores zero, never NaN")
	assert.False(t, math.IsNaN(results[1].Score))
}

func TestHNSWMatchesFlatOnSmallCorpus(t *testing.T) {
	n, dim := 50, 8
	chunks := make([]types.Chunk, n)
	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		chunks[i] = types.Chunk{
			File: "f.go", Name: "c", Kind: types.KindFunction,
			FullText: "x", LineStart: 1, LineEnd: 1,
		}
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32((i*31+j*17)%97) / 97.0
		}
		vectors[i] = v
	}

	flat, err := New(MetricCosine, NewFlatBackend(MetricCosine))
	require.NoError(t, err)
	require.NoError(t, flat.Build(chunks, vectors))

	hnsw, err := New(MetricCosine, NewHNSWBackend(MetricCosine))
	require.NoError(t, err)
	require.NoError(t, hnsw.Build(chunks, vectors))

	query := vectors[7]
	exact, err := flat.Search(query, 5)
	require.NoError(t, err)
	approx, err := hnsw.Search(query, 5)
	require.NoError(t, err)

	require.NotEmpty(t, approx)
	// EfSearch exceeds the corpus size here, so the top hit is exact.
	assert.InDelta(t, exact[0].Score, approx[0].Score, 1e-5)
	assert.InDelta(t, 1.0, approx[0].Score, 1e-5)
}

func TestHNSWDegreeBounded(t *testing.T) {
	n, dim := 200, 8
	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32((i*13+j*7)%101) / 101.0
		}
		vectors[i] = v
	}

	h := NewHNSWBackend(MetricL2)
	h.Build(vectors)

	for _, node := range h.nodes {
		for l, links := range node.neighbors {
			limit := hnswM
			if l == 0 {
				limit = hnswM0
			}
			assert.LessOrEqual(t, len(links), limit,
				"node %d level %d degree must stay within the level cap", node.id, l)
		}
	}
}

func TestNewRejectsUnknownMetric(t *testing.T) {
	_, err := New("manhattan", NewFlatBackend(MetricCosine))
	assert.Error(t, err)
}
