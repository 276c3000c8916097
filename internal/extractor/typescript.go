package extractor

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/contextlab/codectx/pkg/types"
)

// Declaration shapes located textually. A parser dependency is deliberately
// avoided for these languages; brace balancing recovers the body extent.
var (
	tsFuncPattern  = regexp.MustCompile(`(?m)(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\([^)]*\)\s*(?::\s*[^{]+)?\s*\{`)
	tsClassPattern = regexp.MustCompile(`(?m)(?:export\s+)?class\s+(\w+)(?:\s+extends\s+\w+)?(?:\s+implements\s+[^{]+?)?\s*\{`)
	tsIfacePattern = regexp.MustCompile(`(?m)(?:export\s+)?interface\s+(\w+)(?:\s+extends\s+[^{]+?)?\s*\{`)
	tsArrowPattern = regexp.MustCompile(`(?m)(?:export\s+)?const\s+(\w+)\s*=\s*(?:\([^)]*\)|[^=\n]+)\s*=>\s*[{(]`)
)

// TypeScriptExtractor extracts declarations from TypeScript and JavaScript
// sources by pattern matching at the textual level.
type TypeScriptExtractor struct {
	opts Options
	log  *slog.Logger
}

// NewTypeScriptExtractor creates a TypeScript/JavaScript extractor.
func NewTypeScriptExtractor(opts Options) *TypeScriptExtractor {
	return &TypeScriptExtractor{
		opts: opts,
		log:  slog.Default().With("component", "extractor.ts"),
	}
}

// Extensions returns the extensions this extractor claims.
func (t *TypeScriptExtractor) Extensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx"}
}

// Extract locates named functions, classes, interfaces and arrow-style
// assigned functions. Each candidate with an unbalanced body is skipped
// individually; extraction continues with the next match.
func (t *TypeScriptExtractor) Extract(path string) ([]types.Chunk, error) {
	content, err := readTextFile(path, t.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}

	var chunks []types.Chunk
	chunks = append(chunks, t.matchPattern(path, content, tsFuncPattern, types.KindFunction)...)
	chunks = append(chunks, t.matchPattern(path, content, tsClassPattern, types.KindClass)...)
	chunks = append(chunks, t.matchPattern(path, content, tsIfacePattern, types.KindInterface)...)
	chunks = append(chunks, t.matchPattern(path, content, tsArrowPattern, types.KindArrowFunction)...)
	return chunks, nil
}

func (t *TypeScriptExtractor) matchPattern(path, content string, pattern *regexp.Regexp, kind types.ChunkKind) []types.Chunk {
	var chunks []types.Chunk

	for _, m := range pattern.FindAllStringSubmatchIndex(content, -1) {
		name := content[m[2]:m[3]]
		start := m[0]

		code, lineStart, lineEnd, ok := t.extractBlock(content, start)
		if !ok {
			t.log.Warn("unbalanced braces, skipping candidate", "file", path, "name", name, "offset", start)
			continue
		}

		doc := precedingDocComment(content, start)
		full := types.ComposeFullText(code, doc)
		if strings.TrimSpace(full) == "" {
			continue
		}

		chunks = append(chunks, types.Chunk{
			File:      path,
			Name:      name,
			Kind:      kind,
			Code:      code,
			DocText:   doc,
			FullText:  full,
			LineStart: lineStart,
			LineEnd:   lineEnd,
		})
	}

	return chunks
}

// extractBlock walks forward from the first { after start, counting nested
// braces to find the matching close. A count that never returns to zero
// before end-of-file means the candidate is malformed.
func (t *TypeScriptExtractor) extractBlock(content string, start int) (code string, lineStart, lineEnd int, ok bool) {
	open := strings.IndexByte(content[start:], '{')
	if open < 0 {
		return "", 0, 0, false
	}
	open += start

	depth := 1
	pos := open + 1
	for pos < len(content) && depth > 0 {
		switch content[pos] {
		case '{':
			depth++
		case '}':
			depth--
		}
		pos++
	}
	if depth != 0 {
		return "", 0, 0, false
	}

	code = content[start:pos]
	lineStart = strings.Count(content[:start], "\n") + 1
	lineEnd = strings.Count(content[:pos], "\n") + 1
	return code, lineStart, lineEnd, true
}

// precedingDocComment returns the interior of a /** ... */ comment that ends
// exactly at pos, ignoring whitespace between the comment and the match.
func precedingDocComment(content string, pos int) string {
	area := strings.TrimRight(content[:pos], " \t\r\n")
	if !strings.HasSuffix(area, "*/") {
		return ""
	}
	open := strings.LastIndex(area, "/**")
	if open < 0 || open+3 > len(area)-2 {
		return ""
	}
	interior := area[open+3 : len(area)-2]
	// The closing */ must pair with the /** found above. A plain /* ... */
	// comment ends the area too, but its opener is not a /**, and accepting
	// it would pull in an earlier doc comment plus everything between.
	if strings.Contains(interior, "*/") {
		return ""
	}
	return strings.TrimSpace(interior)
}
