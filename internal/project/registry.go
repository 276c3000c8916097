package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNotFound is returned when a requested project doesn't exist
	ErrNotFound = errors.New("project not found")
	// ErrNoCurrent is returned when no current project has been selected
	ErrNoCurrent = errors.New("no current project set")
)

// Project is one registered codebase: a name, its root path and the index
// artifact name its embeddings persist under.
type Project struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	IndexName string    `json:"index_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Registry stores registered projects and the current-project pointer in a
// SQLite database. It is injected into its consumers rather than held as
// process-global state.
type Registry struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	name       TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	index_name TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const currentKey = "current_project"

// Open opens (creating if needed) the registry database at dbPath.
func Open(dbPath string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}

	// Single writer suits SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close closes the database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Set registers a project or updates an existing one's path and index name.
func (r *Registry) Set(ctx context.Context, name, path, indexName string) (*Project, error) {
	if name == "" {
		return nil, errors.New("project name must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	if indexName == "" {
		indexName = name
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (name, path, index_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path = excluded.path,
			index_name = excluded.index_name,
			updated_at = excluded.updated_at`,
		name, abs, indexName, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert project %s: %w", name, err)
	}

	return r.Get(ctx, name)
}

// Get returns the project with the given name.
func (r *Registry) Get(ctx context.Context, name string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, path, index_name, created_at, updated_at
		FROM projects WHERE name = ?`, name)

	var p Project
	err := row.Scan(&p.Name, &p.Path, &p.IndexName, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", name, err)
	}
	return &p, nil
}

// List returns all registered projects ordered by name.
func (r *Registry) List(ctx context.Context) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, path, index_name, created_at, updated_at
		FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.Name, &p.Path, &p.IndexName, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Remove deletes a project. Removing the current project clears the pointer.
func (r *Registry) Remove(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("remove project %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	_, err = r.db.ExecContext(ctx,
		`DELETE FROM settings WHERE key = ? AND value = ?`, currentKey, name)
	if err != nil {
		return fmt.Errorf("clear current pointer: %w", err)
	}
	return nil
}

// SetCurrent marks an existing project as the current one.
func (r *Registry) SetCurrent(ctx context.Context, name string) error {
	if _, err := r.Get(ctx, name); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		currentKey, name)
	if err != nil {
		return fmt.Errorf("set current project: %w", err)
	}
	return nil
}

// Current returns the current project, or ErrNoCurrent when none is set.
func (r *Registry) Current(ctx context.Context) (*Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, currentKey)

	var name string
	err := row.Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoCurrent
	}
	if err != nil {
		return nil, fmt.Errorf("read current project: %w", err)
	}
	return r.Get(ctx, name)
}
