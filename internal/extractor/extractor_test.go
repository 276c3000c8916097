package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextlab/codectx/pkg/types"
)

type stubExtractor struct {
	exts   []string
	chunks []types.Chunk
}

func (s *stubExtractor) Extract(path string) ([]types.Chunk, error) { return s.chunks, nil }
func (s *stubExtractor) Extensions() []string                       { return s.exts }

func TestRegistry_DispatchByExtension(t *testing.T) {
	reg := NewRegistry(DefaultOptions())

	assert.IsType(t, &GoExtractor{}, reg.Lookup("main.go"))
	assert.IsType(t, &TypeScriptExtractor{}, reg.Lookup("app.tsx"))
	assert.IsType(t, &MarkdownExtractor{}, reg.Lookup("README.md"))
	assert.Nil(t, reg.Lookup("image.png"))
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	assert.NotNil(t, reg.Lookup("README.MD"))
	assert.NotNil(t, reg.Lookup("Main.GO"))
}

func TestRegistry_UnknownExtensionYieldsEmpty(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	assert.Empty(t, reg.ExtractChunks("binary.bin"))
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	reg := NewRegistry(DefaultOptions())

	stub := &stubExtractor{exts: []string{".go"}}
	reg.Register(stub)

	assert.Same(t, Extractor(stub), reg.Lookup("main.go"))
}

func TestRegistry_ExtractChunks(t *testing.T) {
	content := `package p

func F() { _ = 1 }
`
	path := writeFile(t, "f.go", content)

	reg := NewRegistry(DefaultOptions())
	chunks := reg.ExtractChunks(path)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "F", chunks[0].Name)
}
