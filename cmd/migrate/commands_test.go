package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteTarget(t *testing.T) *target {
	t.Helper()
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return &target{db: db, dialect: "sqlite3"}
}

func TestCommandNamesSorted(t *testing.T) {
	assert.Equal(t, "create|current|down|goto|status|up|validate", commandNames())
}

func TestOfflineCommandsSkipDatabase(t *testing.T) {
	assert.False(t, commands["create"].needsDB)
	assert.False(t, commands["validate"].needsDB)
	assert.True(t, commands["up"].needsDB)
}

func TestCreateThenValidate(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}

	err := runCreate(context.Background(), invocation{dir: dir}, out)
	require.Error(t, err)

	require.NoError(t, runCreate(context.Background(), invocation{dir: dir, name: "add_trip_notes"}, out))
	assert.True(t, strings.HasPrefix(out.String(), "created "))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_add_trip_notes.sql"))

	out.Reset()
	require.NoError(t, runValidate(context.Background(), invocation{dir: dir}, out))
	assert.Contains(t, out.String(), "migrations ok")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.sql"), []byte("-- nothing"), 0o644))
	assert.Error(t, runValidate(context.Background(), invocation{dir: dir}, out))
}

func TestEmbeddedUpThenCurrent(t *testing.T) {
	tgt := sqliteTarget(t)
	out := &bytes.Buffer{}

	require.NoError(t, runUp(context.Background(), invocation{embedded: true, target: tgt}, out))
	require.NoError(t, runCurrent(context.Background(), invocation{target: tgt}, out))
	assert.NotEqual(t, "0", strings.TrimSpace(out.String()))
}

func TestGotoRequiresVersion(t *testing.T) {
	err := runGoto(context.Background(), invocation{target: sqliteTarget(t)}, &bytes.Buffer{})
	assert.EqualError(t, err, "-version is required")
}
