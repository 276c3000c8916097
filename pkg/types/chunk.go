package types

import "errors"

// ChunkKind tags the kind of content a chunk was extracted from. The set is
// open: extractors may introduce new kinds without touching this package.
type ChunkKind string

const (
	KindModule        ChunkKind = "module"
	KindClass         ChunkKind = "class"
	KindFunction      ChunkKind = "function"
	KindMethod        ChunkKind = "method"
	KindInterface     ChunkKind = "interface"
	KindType          ChunkKind = "type"
	KindArrowFunction ChunkKind = "arrow-function"
	KindDocument      ChunkKind = "document"
	KindSection       ChunkKind = "section"
)

// Chunk is the unit of retrieval: one extracted declaration, section or
// document together with the metadata needed to surface it in search results.
//
// Chunks are value data. An extractor creates them, they are immutable from
// then on, and they persist verbatim as index metadata. Re-indexing replaces
// the whole metadata set for an index name; chunks are never mutated in place.
type Chunk struct {
	// File is the source path as supplied by the caller, relative or absolute.
	File string `json:"file"`

	// Name is a human-readable identifier: declaration name, heading text or
	// file basename. Not unique across an index.
	Name string `json:"name"`

	// Kind categorizes the chunk (function, class, section, ...).
	Kind ChunkKind `json:"kind"`

	// Code is the raw source text, empty for prose-only chunks.
	Code string `json:"code"`

	// DocText is the associated natural-language description (doc comment,
	// docstring or prose), empty if none.
	DocText string `json:"doc_text"`

	// FullText is the text that actually gets embedded: Code and DocText
	// joined when both are present, otherwise whichever one is. Never empty
	// for a chunk that reaches the index.
	FullText string `json:"full_text"`

	// LineStart and LineEnd are the 1-based inclusive line range in File.
	LineStart int `json:"line_start"`
	LineEnd   int `json:"line_end"`
}

// ComposeFullText joins code and doc text the way FullText is defined:
// both when both are present, otherwise whichever is non-empty.
func ComposeFullText(code, docText string) string {
	switch {
	case code != "" && docText != "":
		return code + "\n" + docText
	case code != "":
		return code
	default:
		return docText
	}
}

// Validate checks the invariants that must hold before a chunk may be handed
// to the vector index.
func (c *Chunk) Validate() error {
	if c.FullText == "" {
		return errors.New("chunk full_text cannot be empty")
	}
	if c.File == "" {
		return errors.New("chunk file is required")
	}
	if c.LineStart <= 0 || c.LineEnd <= 0 {
		return errors.New("line numbers must be positive")
	}
	if c.LineStart > c.LineEnd {
		return errors.New("start line must be before or equal to end line")
	}
	return nil
}
