package storage

import (
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Committer records note writes as commits in the vault's git history,
// so every autosave leaves a recoverable version behind. A vault without
// a repository gets one initialized on first use.
type Committer struct {
	repo   *git.Repository
	logger *zap.Logger
}

func NewCommitter(root string, logger *zap.Logger) (*Committer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	repo, err := git.PlainOpen(root)
	if err == git.ErrRepositoryNotExists {
		repo, err = git.PlainInit(root, false)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening vault repository at %q", root)
	}
	return &Committer{repo: repo, logger: logger}, nil
}

// CommitSave stages the note at the vault-relative path and commits it.
func (c *Committer) CommitSave(rel string) error {
	wt, err := c.repo.Worktree()
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := wt.Add(rel); err != nil {
		return errors.Wrapf(err, "staging %q", rel)
	}
	hash, err := wt.Commit("Update "+rel, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "mdvault",
			Email: "mdvault@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return errors.Wrapf(err, "committing %q", rel)
	}
	c.logger.Debug("note committed", zap.String("path", rel), zap.String("commit", hash.String()))
	return nil
}
