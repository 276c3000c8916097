// Package retriever orchestrates the pipeline: walk a codebase, extract
// chunks, embed them, build the vector index and answer semantic queries
// with formatted or raw results.
package retriever
