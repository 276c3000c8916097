package vectorindex

import (
	"encoding/gob"
	"io"
	"sort"
)

// FlatBackend is an exact brute-force backend: every query scans all
// vectors. It is the default; the HNSW backend trades exactness for speed on
// large corpora.
type FlatBackend struct {
	vectors [][]float32
	dist    func(a, b []float32) float32
}

// NewFlatBackend creates a brute-force backend for the given metric.
func NewFlatBackend(metric string) *FlatBackend {
	return &FlatBackend{dist: distanceFunc(metric)}
}

func (f *FlatBackend) Name() string { return "flat" }

func (f *FlatBackend) Len() int { return len(f.vectors) }

func (f *FlatBackend) Build(vectors [][]float32) {
	f.vectors = vectors
}

// Serialize writes the stored matrix.
func (f *FlatBackend) Serialize(w io.Writer) error {
	return gob.NewEncoder(w).Encode(f.vectors)
}

// Deserialize replaces the stored matrix with a previously serialized one.
func (f *FlatBackend) Deserialize(r io.Reader) error {
	var vectors [][]float32
	if err := gob.NewDecoder(r).Decode(&vectors); err != nil {
		return err
	}
	f.vectors = vectors
	return nil
}

func (f *FlatBackend) Search(query []float32, k int) ([]int, []float32) {
	if len(f.vectors) == 0 || k <= 0 {
		return nil, nil
	}

	type hit struct {
		id   int
		dist float32
	}
	hits := make([]hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = hit{id: i, dist: f.dist(query, v)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].id < hits[j].id
	})

	if k > len(hits) {
		k = len(hits)
	}
	ids := make([]int, k)
	dists := make([]float32, k)
	for i := 0; i < k; i++ {
		ids[i] = hits[i].id
		dists[i] = hits[i].dist
	}
	return ids, dists
}
