package vectorindex

import (
	"encoding/gob"
	"io"
	"math/rand"
	"sort"
	"sync"
)

// HNSW construction parameters.
const (
	hnswMaxLevel       = 16
	hnswM              = 16 // max connections per layer
	hnswM0             = 32 // max connections for layer 0
	hnswEfConstruction = 40
	hnswEfSearch       = 50
)

type hnswNode struct {
	id        int
	level     int
	neighbors [][]int // [level][neighbor positions]
}

// HNSWBackend is an approximate backend built as a hierarchical small-world
// graph. Recall is below 100% but queries touch a fraction of the corpus.
// Build is single-threaded; Search is safe for concurrent use after Build.
type HNSWBackend struct {
	mu           sync.RWMutex
	nodes        []*hnswNode
	vectors      [][]float32
	dist         func(a, b []float32) float32
	entryPoint   int
	currentLevel int
	rng          *rand.Rand
}

// NewHNSWBackend creates an approximate backend for the given metric.
func NewHNSWBackend(metric string) *HNSWBackend {
	return &HNSWBackend{
		dist:         distanceFunc(metric),
		currentLevel: -1,
		rng:          rand.New(rand.NewSource(1)),
	}
}

func (h *HNSWBackend) Name() string { return "hnsw" }

func (h *HNSWBackend) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

func (h *HNSWBackend) Build(vectors [][]float32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nodes = make([]*hnswNode, 0, len(vectors))
	h.vectors = vectors
	h.entryPoint = 0
	h.currentLevel = -1
	h.rng = rand.New(rand.NewSource(1))

	for id := range vectors {
		h.insert(id)
	}
}

// Serialize writes the vector set. The graph is not written; construction
// is seeded deterministically, so Deserialize reproduces it exactly.
func (h *HNSWBackend) Serialize(w io.Writer) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return gob.NewEncoder(w).Encode(h.vectors)
}

// Deserialize restores a serialized vector set and rebuilds the graph.
func (h *HNSWBackend) Deserialize(r io.Reader) error {
	var vectors [][]float32
	if err := gob.NewDecoder(r).Decode(&vectors); err != nil {
		return err
	}
	h.Build(vectors)
	return nil
}

func (h *HNSWBackend) insert(id int) {
	level := h.randomLevel()
	node := &hnswNode{id: id, level: level, neighbors: make([][]int, level+1)}
	h.nodes = append(h.nodes, node)

	if h.currentLevel == -1 {
		h.entryPoint = id
		h.currentLevel = level
		return
	}

	vector := h.vectors[id]
	curr := h.entryPoint

	// Greedy descent through levels above the node's own.
	for l := h.currentLevel; l > level; l-- {
		curr = h.greedyClosest(vector, curr, l)
	}

	// Link into each level from the top down.
	for l := min(level, h.currentLevel); l >= 0; l-- {
		nearest, _ := h.searchLayer(vector, curr, hnswEfConstruction, l)

		m := hnswM
		if l == 0 {
			m = hnswM0
		}
		if len(nearest) > m {
			nearest = nearest[:m]
		}

		node.neighbors[l] = nearest
		for _, nid := range nearest {
			neighbor := h.nodes[nid]
			neighbor.neighbors[l] = append(neighbor.neighbors[l], id)
			if len(neighbor.neighbors[l]) > m {
				h.pruneNeighbors(neighbor, l, m)
			}
		}

		if len(nearest) > 0 {
			curr = nearest[0]
		}
	}

	if level > h.currentLevel {
		h.entryPoint = id
		h.currentLevel = level
	}
}

func (h *HNSWBackend) Search(query []float32, k int) ([]int, []float32) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.currentLevel == -1 || k <= 0 {
		return nil, nil
	}

	curr := h.entryPoint
	for l := h.currentLevel; l > 0; l-- {
		curr = h.greedyClosest(query, curr, l)
	}

	ef := hnswEfSearch
	if ef < k {
		ef = k
	}
	ids, dists := h.searchLayer(query, curr, ef, 0)
	if len(ids) > k {
		ids = ids[:k]
		dists = dists[:k]
	}
	return ids, dists
}

// pruneNeighbors trims a node's links at one level to the m closest, so
// accumulated back-links cannot grow a node's degree past the level cap.
func (h *HNSWBackend) pruneNeighbors(node *hnswNode, level, m int) {
	base := h.vectors[node.id]
	links := node.neighbors[level]
	sort.Slice(links, func(i, j int) bool {
		return h.dist(base, h.vectors[links[i]]) < h.dist(base, h.vectors[links[j]])
	})
	node.neighbors[level] = links[:m]
}

// greedyClosest walks a single level toward the query until no neighbor
// improves the distance.
func (h *HNSWBackend) greedyClosest(query []float32, entry int, level int) int {
	curr := entry
	currDist := h.dist(query, h.vectors[curr])

	for changed := true; changed; {
		changed = false
		for _, nid := range h.nodes[curr].neighbors[level] {
			if d := h.dist(query, h.vectors[nid]); d < currDist {
				currDist = d
				curr = nid
				changed = true
			}
		}
	}
	return curr
}

type hnswHit struct {
	id   int
	dist float32
}

// searchLayer performs a best-first expansion at one level, keeping the ef
// closest candidates found.
func (h *HNSWBackend) searchLayer(query []float32, entry int, ef int, level int) ([]int, []float32) {
	entryDist := h.dist(query, h.vectors[entry])
	visited := map[int]bool{entry: true}
	candidates := []hnswHit{{entry, entryDist}}
	results := []hnswHit{{entry, entryDist}}

	for len(candidates) > 0 {
		c := candidates[0]
		candidates = candidates[1:]

		if len(results) >= ef && c.dist > results[len(results)-1].dist {
			continue
		}

		for _, nid := range h.nodes[c.id].neighbors[level] {
			if visited[nid] {
				continue
			}
			visited[nid] = true
			d := h.dist(query, h.vectors[nid])

			if len(results) < ef || d < results[len(results)-1].dist {
				hit := hnswHit{nid, d}
				candidates = append(candidates, hit)
				results = append(results, hit)

				sort.Slice(results, func(i, j int) bool { return results[i].dist < results[j].dist })
				if len(results) > ef {
					results = results[:ef]
				}
				sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
			}
		}
	}

	ids := make([]int, len(results))
	dists := make([]float32, len(results))
	for i, r := range results {
		ids[i] = r.id
		dists[i] = r.dist
	}
	return ids, dists
}

func (h *HNSWBackend) randomLevel() int {
	level := 0
	for h.rng.Float64() < 0.5 && level < hnswMaxLevel-1 {
		level++
	}
	return level
}
