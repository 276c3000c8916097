package extractor

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/contextlab/codectx/pkg/types"
)

// Extractor turns one file into zero or more chunks. Implementations declare
// which file extensions they claim; the Registry dispatches on extension.
//
// Extract returns an error only for files it could not get at (missing,
// oversized, unreadable as text). Per-candidate problems inside a readable
// file are handled internally: the candidate is skipped and extraction
// continues.
type Extractor interface {
	Extract(path string) ([]types.Chunk, error)
	Extensions() []string
}

// Options carries per-extractor settings shared across the set.
type Options struct {
	// MaxFileSize rejects files above this many bytes. Zero means no limit.
	MaxFileSize int64

	// SplitByHeadings controls whether the markdown extractor emits one
	// section chunk per heading in addition to the whole-document chunk.
	SplitByHeadings bool
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:     1024 * 1024,
		SplitByHeadings: true,
	}
}

// Registry maps file extensions to extractors. Construct it once with the
// per-extractor configuration; registration order matters in that the last
// extractor to claim an extension wins.
type Registry struct {
	byExt map[string]Extractor
	log   *slog.Logger
}

// NewRegistry builds a registry with the default extractor set registered.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		byExt: make(map[string]Extractor),
		log:   slog.Default().With("component", "extractor"),
	}
	r.Register(NewGoExtractor(opts))
	r.Register(NewTypeScriptExtractor(opts))
	r.Register(NewMarkdownExtractor(opts))
	return r
}

// Register claims every extension the extractor declares. Collisions are not
// validated: last registration wins.
func (r *Registry) Register(e Extractor) {
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Lookup resolves the extractor for a path by extension, case-insensitive.
// Returns nil when no extractor is registered for the extension.
func (r *Registry) Lookup(path string) Extractor {
	return r.byExt[strings.ToLower(filepath.Ext(path))]
}

// Supports reports whether some extractor claims the path's extension.
func (r *Registry) Supports(path string) bool {
	return r.Lookup(path) != nil
}

// ExtractChunks delegates to the resolved extractor. Files with no registered
// extractor, and files the extractor rejects, yield an empty list with a
// logged warning rather than an error: a bad file must never abort a corpus
// walk.
func (r *Registry) ExtractChunks(path string) []types.Chunk {
	e := r.Lookup(path)
	if e == nil {
		r.log.Warn("no extractor registered", "file", path, "ext", filepath.Ext(path))
		return nil
	}

	chunks, err := e.Extract(path)
	if err != nil {
		r.log.Warn("extraction skipped", "file", path, "error", err)
		return nil
	}
	return chunks
}

// readTextFile performs the up-front checks shared by all extractors: the
// path must exist, be a regular file, fit the size limit and decode as text.
func readTextFile(path string, maxSize int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s: not a regular file", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return "", fmt.Errorf("%s: file size %d exceeds limit %d", path, info.Size(), maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("%s: not readable as text", path)
	}

	return string(data), nil
}
