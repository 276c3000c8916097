package extractor

import (
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/contextlab/codectx/pkg/types"
)

// GoExtractor extracts declarations from Go source by walking the parse
// tree. Files that fail to parse are skipped with a log line, never fatal.
type GoExtractor struct {
	opts Options
	log  *slog.Logger
}

// NewGoExtractor creates a Go source extractor.
func NewGoExtractor(opts Options) *GoExtractor {
	return &GoExtractor{
		opts: opts,
		log:  slog.Default().With("component", "extractor.go"),
	}
}

// Extensions returns the extensions this extractor claims.
func (g *GoExtractor) Extensions() []string {
	return []string{".go"}
}

// Extract emits one chunk for the package doc comment when present and one
// chunk per declaration: functions, methods, and type declarations. Type
// declarations nested inside function bodies are visited independently and
// also emitted.
func (g *GoExtractor) Extract(path string) ([]types.Chunk, error) {
	content, err := readTextFile(path, g.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		g.log.Warn("parse failed, skipping file", "file", path, "error", err)
		return nil, nil
	}

	lines := strings.Split(content, "\n")
	var chunks []types.Chunk

	if file.Doc != nil {
		doc := strings.TrimSpace(file.Doc.Text())
		if doc != "" {
			start := fset.Position(file.Doc.Pos()).Line
			end := fset.Position(file.Doc.End()).Line
			chunks = append(chunks, types.Chunk{
				File:      path,
				Name:      filepath.Base(path) + ":module",
				Kind:      types.KindModule,
				DocText:   doc,
				FullText:  doc,
				LineStart: start,
				LineEnd:   end,
			})
		}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch decl := n.(type) {
		case *ast.FuncDecl:
			if c, ok := g.funcChunk(fset, decl, path, lines); ok {
				chunks = append(chunks, c)
			}
		case *ast.GenDecl:
			if decl.Tok != token.TYPE {
				return true
			}
			for _, spec := range decl.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				if c, ok := g.typeChunk(fset, decl, ts, path, lines); ok {
					chunks = append(chunks, c)
				}
			}
		}
		return true
	})

	return chunks, nil
}

// funcChunk builds a chunk for a function or method declaration. The end
// line is the maximum of the declaration's own end and the ends of its
// direct body statements, which tolerates under-reported trailing spans.
func (g *GoExtractor) funcChunk(fset *token.FileSet, decl *ast.FuncDecl, path string, lines []string) (types.Chunk, bool) {
	start := fset.Position(decl.Pos()).Line
	end := fset.Position(decl.End()).Line
	if decl.Body != nil {
		for _, stmt := range decl.Body.List {
			if l := fset.Position(stmt.End()).Line; l > end {
				end = l
			}
		}
	}

	kind := types.KindFunction
	if decl.Recv != nil {
		kind = types.KindMethod
	}

	return g.buildChunk(path, decl.Name.Name, kind, decl.Doc.Text(), lines, start, end)
}

// typeChunk builds a chunk for one type spec. Interface types get the
// interface kind, struct types class, everything else type. The doc comment
// comes from the type spec when present, else from the enclosing declaration.
func (g *GoExtractor) typeChunk(fset *token.FileSet, decl *ast.GenDecl, ts *ast.TypeSpec, path string, lines []string) (types.Chunk, bool) {
	start := fset.Position(ts.Pos()).Line
	if len(decl.Specs) == 1 {
		// Single-spec declarations start at the type keyword.
		start = fset.Position(decl.TokPos).Line
	}
	end := fset.Position(ts.End()).Line

	var kind types.ChunkKind
	switch ts.Type.(type) {
	case *ast.InterfaceType:
		kind = types.KindInterface
	case *ast.StructType:
		kind = types.KindClass
	default:
		kind = types.KindType
	}

	doc := ts.Doc.Text()
	if doc == "" {
		doc = decl.Doc.Text()
	}

	return g.buildChunk(path, ts.Name.Name, kind, doc, lines, start, end)
}

func (g *GoExtractor) buildChunk(path, name string, kind types.ChunkKind, doc string, lines []string, start, end int) (types.Chunk, bool) {
	if start <= 0 || start > len(lines) {
		return types.Chunk{}, false
	}
	if end > len(lines) {
		end = len(lines)
	}

	code := strings.Join(lines[start-1:end], "\n")
	doc = strings.TrimSpace(doc)
	full := types.ComposeFullText(code, doc)
	if strings.TrimSpace(full) == "" {
		return types.Chunk{}, false
	}

	return types.Chunk{
		File:      path,
		Name:      name,
		Kind:      kind,
		Code:      code,
		DocText:   doc,
		FullText:  full,
		LineStart: start,
		LineEnd:   end,
	}, true
}
