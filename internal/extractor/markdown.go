package extractor

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/contextlab/codectx/pkg/types"
)

var headingPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// MarkdownExtractor splits documents into heading-delimited sections.
type MarkdownExtractor struct {
	opts Options
	log  *slog.Logger
}

// NewMarkdownExtractor creates a markdown extractor.
func NewMarkdownExtractor(opts Options) *MarkdownExtractor {
	return &MarkdownExtractor{
		opts: opts,
		log:  slog.Default().With("component", "extractor.md"),
	}
}

// Extensions returns the extensions this extractor claims.
func (m *MarkdownExtractor) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Extract always emits one chunk for the whole file. With heading splitting
// enabled it additionally emits one chunk per section, where a section runs
// from a heading line to the line before the next heading. A document with
// no headings yields a single synthetic section covering the whole body.
func (m *MarkdownExtractor) Extract(path string) ([]types.Chunk, error) {
	content, err := readTextFile(path, m.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	base := filepath.Base(path)
	chunks := []types.Chunk{{
		File:      path,
		Name:      base,
		Kind:      types.KindDocument,
		DocText:   content,
		FullText:  content,
		LineStart: 1,
		LineEnd:   strings.Count(content, "\n") + 1,
	}}

	if !m.opts.SplitByHeadings {
		return chunks, nil
	}

	// Line numbers accumulate from section lengths rather than re-scanning
	// the file. Whitespace-only sections are dropped but still advance the
	// running counter.
	lineCount := 1
	for _, sec := range splitByHeadings(content) {
		sectionLines := strings.Count(sec.content, "\n") + 1
		lineStart := lineCount
		lineEnd := lineStart + sectionLines - 1
		lineCount = lineEnd + 1

		if strings.TrimSpace(sec.body) == "" {
			continue
		}

		chunks = append(chunks, types.Chunk{
			File:      path,
			Name:      base + ":" + sec.heading,
			Kind:      types.KindSection,
			DocText:   sec.content,
			FullText:  sec.content,
			LineStart: lineStart,
			LineEnd:   lineEnd,
		})
	}

	return chunks, nil
}

type mdSection struct {
	heading string
	content string // heading line included
	body    string // content below the heading line
}

func splitByHeadings(content string) []mdSection {
	matches := headingPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return []mdSection{{heading: "Document", content: content, body: content}}
	}

	sections := make([]mdSection, 0, len(matches))
	for i, match := range matches {
		heading := strings.TrimSpace(content[match[4]:match[5]])
		start := match[0]
		end := len(content)
		if i < len(matches)-1 {
			end = matches[i+1][0]
		}

		sec := mdSection{heading: heading, content: content[start:end]}
		if nl := strings.IndexByte(sec.content, '\n'); nl >= 0 {
			sec.body = sec.content[nl+1:]
		}
		sections = append(sections, sec)
	}
	return sections
}
