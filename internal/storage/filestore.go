// Package storage provides the persistence collaborators the editor
// engine consumes: an atomic file store for note content and a key-value
// store for per-surface editor state.
package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FileStore persists note content under a single vault root. Every path
// is resolved against the root and anything escaping it is rejected.
type FileStore struct {
	root      string
	logger    *zap.Logger
	committer *Committer
}

func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving vault root %q", root)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating vault root %q", abs)
	}
	return &FileStore{root: abs, logger: logger}, nil
}

func (s *FileStore) Root() string { return s.root }

// WithCommitter makes every successful save also record a commit in the
// vault's git history.
func (s *FileStore) WithCommitter(c *Committer) *FileStore {
	s.committer = c
	return s
}

// Resolve validates a vault-relative path and returns the absolute
// location on disk. The relative path is validated before it is anchored
// to the root, so "../outside.md" is rejected instead of being silently
// remapped into the vault.
func (s *FileStore) Resolve(path string) (string, error) {
	rel, err := s.relative(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, rel), nil
}

// relative cleans a vault-relative path, rejecting anything that climbs
// out of the root. A leading slash is tolerated and means the vault root.
func (s *FileStore) relative(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimLeft(path, "/")))
	if filepath.IsAbs(cleaned) ||
		cleaned == ".." ||
		strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("path %q escapes the vault", path)
	}
	return cleaned, nil
}

// Save writes text to the note at path atomically: content lands in a
// temporary file first and is renamed over the target, so a crash never
// leaves a half-written note. Saving identical content is a no-op, which
// makes the operation idempotent for retries.
func (s *FileStore) Save(ctx context.Context, path, text string) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	rel, err := s.relative(path)
	if err != nil {
		return err
	}
	full := filepath.Join(s.root, rel)

	if existing, err := os.ReadFile(full); err == nil && bytes.Equal(existing, []byte(text)) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.Wrapf(err, "creating parent directory for %q", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".tmp-")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %q", path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "writing %q", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing temp file for %q", path)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return errors.Wrapf(err, "replacing %q", path)
	}

	if s.committer != nil {
		// Versioning is best-effort; the note itself is already on disk.
		if err := s.committer.CommitSave(rel); err != nil {
			s.logger.Warn("vault commit failed", zap.String("path", path), zap.Error(err))
		}
	}

	s.logger.Debug("note saved", zap.String("path", path), zap.Int("bytes", len(text)))
	return nil
}

// Load reads the note at path.
func (s *FileStore) Load(path string) (string, error) {
	full, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", errors.Wrapf(err, "reading %q", path)
	}
	return string(data), nil
}
