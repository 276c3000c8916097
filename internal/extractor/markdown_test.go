package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextlab/codectx/pkg/types"
)

func TestMarkdownExtract_SplitsByHeadings(t *testing.T) {
	content := `# Guide

Intro text.

## Install

Run the installer.

## Usage

Call the thing.
`
	path := writeFile(t, "guide.md", content)

	m := NewMarkdownExtractor(DefaultOptions())
	chunks, err := m.Extract(path)
	require.NoError(t, err)

	require.NotEmpty(t, chunks)
	assert.Equal(t, types.KindDocument, chunks[0].Kind)
	assert.Equal(t, "guide.md", chunks[0].Name)
	assert.Equal(t, 1, chunks[0].LineStart)

	var sections []types.Chunk
	for _, c := range chunks[1:] {
		assert.Equal(t, types.KindSection, c.Kind)
		sections = append(sections, c)
	}
	require.Len(t, sections, 3)
	assert.Equal(t, "guide.md:Guide", sections[0].Name)
	assert.Equal(t, "guide.md:Install", sections[1].Name)
	assert.Equal(t, "guide.md:Usage", sections[2].Name)
	assert.Contains(t, sections[1].FullText, "Run the installer.")
}

func TestMarkdownExtract_NoHeadingsSyntheticSection(t *testing.T) {
	content := "Just a paragraph of prose.\nAnd another line.\n"
	path := writeFile(t, "plain.md", content)

	m := NewMarkdownExtractor(DefaultOptions())
	chunks, err := m.Extract(path)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, types.KindDocument, chunks[0].Kind)
	assert.Equal(t, types.KindSection, chunks[1].Kind)
	assert.Equal(t, "plain.md:Document", chunks[1].Name)
}

func TestMarkdownExtract_SplitDisabled(t *testing.T) {
	path := writeFile(t, "doc.md", "# A\n\ntext\n")

	opts := DefaultOptions()
	opts.SplitByHeadings = false
	m := NewMarkdownExtractor(opts)
	chunks, err := m.Extract(path)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, types.KindDocument, chunks[0].Kind)
}

func TestMarkdownExtract_EmptySectionAdvancesCounter(t *testing.T) {
	// The "Empty" section holds nothing but whitespace; it is dropped but the
	// following section's line numbers must still account for it.
	content := "## First\n\ntext\n\n## Empty\n\n## Last\n\nmore\n"
	path := writeFile(t, "gaps.md", content)

	m := NewMarkdownExtractor(DefaultOptions())
	chunks, err := m.Extract(path)
	require.NoError(t, err)

	var names []string
	var last types.Chunk
	for _, c := range chunks[1:] {
		names = append(names, c.Name)
		last = c
	}
	assert.Equal(t, []string{"gaps.md:First", "gaps.md:Last"}, names)
	assert.Greater(t, last.LineStart, 5)
}

func TestMarkdownExtract_Invariants(t *testing.T) {
	path := writeFile(t, "inv.md", "# H\n\nbody\n\n## S\n\nmore\n")

	m := NewMarkdownExtractor(DefaultOptions())
	chunks, err := m.Extract(path)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.NoError(t, c.Validate())
		assert.LessOrEqual(t, c.LineStart, c.LineEnd)
		assert.NotEmpty(t, c.FullText)
	}
}
