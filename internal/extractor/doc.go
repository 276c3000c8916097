// Package extractor discovers retrievable chunks in source and documentation
// files.
//
// Three extractors ship by default, dispatched by file extension through a
// Registry:
//
//   - GoExtractor parses Go files with go/parser and emits one chunk per
//     declaration plus one for the package doc comment.
//   - TypeScriptExtractor locates functions, classes, interfaces and arrow
//     functions in TypeScript/JavaScript textually, recovering the body
//     extent by brace balancing.
//   - MarkdownExtractor emits a whole-document chunk plus one chunk per
//     heading-delimited section.
//
// # Usage
//
//	reg := extractor.NewRegistry(extractor.DefaultOptions())
//	chunks := reg.ExtractChunks("internal/auth/token.go")
//
// A file that is missing, oversized, unreadable as text or unparseable
// yields zero chunks with a logged warning. Nothing an extractor encounters
// aborts the caller.
//
// New extractors register by declaring their extension set:
//
//	reg.Register(myExtractor) // last registration wins on collisions
package extractor
