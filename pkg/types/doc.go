// Package types provides shared type definitions for codectx.
//
// This package defines the domain types that flow between extraction,
// embedding, indexing and retrieval.
//
// # Core Types
//
// Chunk is the unit of retrieval: one extracted declaration, document
// section or whole document with its line range:
//
//	chunk := types.Chunk{
//	    File:      "internal/auth/token.go",
//	    Name:      "ValidateToken",
//	    Kind:      types.KindFunction,
//	    Code:      body,
//	    DocText:   docComment,
//	    FullText:  types.ComposeFullText(body, docComment),
//	    LineStart: 14,
//	    LineEnd:   42,
//	}
//
// SearchResult is a chunk surfaced by the vector index, augmented with a
// per-query normalized similarity Score and the raw metric-native Distance.
//
// # Validation
//
// Chunks implement Validate, which enforces the invariants required before a
// chunk may enter the index: non-empty FullText and a sane 1-based line range.
package types
