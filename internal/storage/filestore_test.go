package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdvault/mdvault/pkg/document"
	"github.com/mdvault/mdvault/pkg/editor"
)

func TestFileStore_SaveAndLoad(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "notes/todo.md", "- [>] item\n"))
	content, err := store.Load("notes/todo.md")
	require.NoError(t, err)
	assert.Equal(t, "- [>] item\n", content)
}

func TestFileStore_SaveIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "a.md", "same\n"))
	full, err := store.Resolve("a.md")
	require.NoError(t, err)
	before, err := os.Stat(full)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "a.md", "same\n"))
	after, err := os.Stat(full)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime(), "identical content must not rewrite the file")
}

func TestFileStore_RejectsEscapingPaths(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	for _, path := range []string{"../outside.md", "a/../../outside.md", ".."} {
		err := store.Save(context.Background(), path, "x")
		assert.Error(t, err, "path %q", path)
	}

	// Leading slashes and inner ".." that stay inside the vault are fine.
	assert.NoError(t, store.Save(context.Background(), "/a/b/../c.md", "x"))
}

func TestFileStore_SaveCreatesParentDirectories(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root, nil)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "deep/nested/dir/note.md", "hi"))
	_, err = os.Stat(filepath.Join(root, "deep", "nested", "dir", "note.md"))
	assert.NoError(t, err)
}

func TestFileStore_LoadMissingFileErrors(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = store.Load("nope.md")
	assert.Error(t, err)
}

func TestEditorStates_RoundTrip(t *testing.T) {
	states := NewEditorStates(t.TempDir())

	state := editor.EditorState{
		Selection:    document.Selection{From: 3, To: 9},
		ScrollOffset: 42.5,
	}
	require.NoError(t, states.WriteState("notes/a.md", editor.SurfaceRich, state))

	got, ok, err := states.ReadState("notes/a.md", editor.SurfaceRich)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state, got)
}

func TestEditorStates_AbsenceIsNotAnError(t *testing.T) {
	states := NewEditorStates(t.TempDir())
	_, ok, err := states.ReadState("unknown.md", editor.SurfaceSource)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEditorStates_SurfacesDoNotCollide(t *testing.T) {
	states := NewEditorStates(t.TempDir())

	require.NoError(t, states.WriteState("a.md", editor.SurfaceRich, editor.EditorState{ScrollOffset: 1}))
	require.NoError(t, states.WriteState("a.md", editor.SurfaceSource, editor.EditorState{ScrollOffset: 2}))

	rich, ok, err := states.ReadState("a.md", editor.SurfaceRich)
	require.NoError(t, err)
	require.True(t, ok)
	source, ok, err := states.ReadState("a.md", editor.SurfaceSource)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(1), rich.ScrollOffset)
	assert.Equal(t, float64(2), source.ScrollOffset)
}
