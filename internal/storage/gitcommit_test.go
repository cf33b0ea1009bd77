package storage

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveCommitsToVaultHistory(t *testing.T) {
	root := t.TempDir()
	committer, err := NewCommitter(root, nil)
	require.NoError(t, err)

	store, err := NewFileStore(root, nil)
	require.NoError(t, err)
	store.WithCommitter(committer)

	require.NoError(t, store.Save(context.Background(), "notes/todo.md", "- [>] item\n"))

	repo, err := git.PlainOpen(root)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Update notes/todo.md", commit.Message)
}

func TestFileStore_IdenticalSaveAddsNoCommit(t *testing.T) {
	root := t.TempDir()
	committer, err := NewCommitter(root, nil)
	require.NoError(t, err)

	store, err := NewFileStore(root, nil)
	require.NoError(t, err)
	store.WithCommitter(committer)

	require.NoError(t, store.Save(context.Background(), "a.md", "x\n"))
	repo, err := git.PlainOpen(root)
	require.NoError(t, err)
	first, err := repo.Head()
	require.NoError(t, err)

	// Same content short-circuits before the write, so no new version
	// is recorded either.
	require.NoError(t, store.Save(context.Background(), "a.md", "x\n"))
	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, first.Hash(), head.Hash())
}

func TestNewCommitter_InitializesMissingRepository(t *testing.T) {
	root := t.TempDir()
	_, err := NewCommitter(root, nil)
	require.NoError(t, err)

	// A second committer reopens the repository it created.
	_, err = NewCommitter(root, nil)
	require.NoError(t, err)
}
