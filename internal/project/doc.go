// Package project keeps a SQLite registry of codebases known to the tool:
// each project maps a name to a root path and a persisted index name, with
// a current-project pointer for command defaults. The driver is selected at
// build time: mattn/go-sqlite3 with the cgo_sqlite tag, modernc.org/sqlite
// otherwise.
package project
