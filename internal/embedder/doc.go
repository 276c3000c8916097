// Package embedder turns text into fixed-dimension vectors through a
// pluggable provider (OpenAI, Jina, or a deterministic local hash), with a
// content-addressed disk cache fronted by an in-memory LRU. Provider
// failures degrade to zero vectors rather than failing the caller.
package embedder
