// Package vectorindex provides nearest-neighbor search over chunk
// embeddings with cosine or euclidean metrics. A flat brute-force backend
// gives exact results; an HNSW backend gives approximate results on large
// corpora. Indexes persist as an .index/.meta artifact pair on disk.
package vectorindex
