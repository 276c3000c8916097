package project

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Open(filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestSetAndGet(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	p, err := reg.Set(ctx, "myapp", "/tmp/myapp", "")
	require.NoError(t, err)
	assert.Equal(t, "myapp", p.Name)
	assert.Equal(t, "/tmp/myapp", p.Path)
	assert.Equal(t, "myapp", p.IndexName, "index name defaults to project name")
	assert.False(t, p.CreatedAt.IsZero())

	got, err := reg.Get(ctx, "myapp")
	require.NoError(t, err)
	assert.Equal(t, p.Path, got.Path)
}

func TestSetUpserts(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Set(ctx, "myapp", "/tmp/old", "idx1")
	require.NoError(t, err)
	p, err := reg.Set(ctx, "myapp", "/tmp/new", "idx2")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/new", p.Path)
	assert.Equal(t, "idx2", p.IndexName)

	list, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSetRejectsEmptyName(t *testing.T) {
	reg := openTestRegistry(t)
	_, err := reg.Set(context.Background(), "", "/tmp/x", "")
	assert.Error(t, err)
}

func TestGetMissing(t *testing.T) {
	reg := openTestRegistry(t)
	_, err := reg.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrdered(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := reg.Set(ctx, name, "/tmp/"+name, "")
		require.NoError(t, err)
	}

	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "mid", list[1].Name)
	assert.Equal(t, "zeta", list[2].Name)
}

func TestRemove(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Set(ctx, "myapp", "/tmp/myapp", "")
	require.NoError(t, err)
	require.NoError(t, reg.Remove(ctx, "myapp"))

	_, err = reg.Get(ctx, "myapp")
	assert.ErrorIs(t, err, ErrNotFound)

	err = reg.Remove(ctx, "myapp")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCurrentPointer(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Current(ctx)
	assert.ErrorIs(t, err, ErrNoCurrent)

	_, err = reg.Set(ctx, "a", "/tmp/a", "")
	require.NoError(t, err)
	_, err = reg.Set(ctx, "b", "/tmp/b", "")
	require.NoError(t, err)

	require.NoError(t, reg.SetCurrent(ctx, "a"))
	cur, err := reg.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", cur.Name)

	// Switching works; pointing at a missing project does not.
	require.NoError(t, reg.SetCurrent(ctx, "b"))
	assert.ErrorIs(t, reg.SetCurrent(ctx, "ghost"), ErrNotFound)

	// Removing the current project clears the pointer.
	require.NoError(t, reg.Remove(ctx, "b"))
	_, err = reg.Current(ctx)
	assert.ErrorIs(t, err, ErrNoCurrent)
}

func TestRegistrySurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "projects.db")
	ctx := context.Background()

	reg, err := Open(dbPath)
	require.NoError(t, err)
	_, err = reg.Set(ctx, "persist", "/tmp/persist", "")
	require.NoError(t, err)
	require.NoError(t, reg.SetCurrent(ctx, "persist"))
	require.NoError(t, reg.Close())

	reg2, err := Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = reg2.Close() }()

	cur, err := reg2.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persist", cur.Name)
}
