package storage

import (
	"encoding/base64"
	"encoding/json"
	"os"

	"github.com/peterbourgon/diskv/v3"
	"github.com/pkg/errors"

	"github.com/mdvault/mdvault/pkg/editor"
)

// EditorStates stores selection and scroll state per (path, surface) in a
// diskv key-value store. The contract is lossy and best-effort: a missing
// entry reports absence, never an error.
type EditorStates struct {
	d *diskv.Diskv
}

var _ editor.StatePersistence = (*EditorStates)(nil)

func NewEditorStates(basePath string) *EditorStates {
	return &EditorStates{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    func(string) []string { return nil },
			CacheSizeMax: 1024 * 1024, // 1MB
		}),
	}
}

func stateKey(path string, surface editor.SurfaceKind) string {
	// Note paths contain separators diskv cannot use in file names.
	return base64.RawURLEncoding.EncodeToString([]byte(path)) + "." + string(surface)
}

func (s *EditorStates) WriteState(path string, surface editor.SurfaceKind, state editor.EditorState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrapf(s.d.Write(stateKey(path, surface), data), "persisting editor state for %q", path)
}

func (s *EditorStates) ReadState(path string, surface editor.SurfaceKind) (editor.EditorState, bool, error) {
	data, err := s.d.Read(stateKey(path, surface))
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return editor.EditorState{}, false, nil
		}
		return editor.EditorState{}, false, errors.Wrapf(err, "reading editor state for %q", path)
	}
	var state editor.EditorState
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt entry is treated the same as a missing one.
		return editor.EditorState{}, false, nil
	}
	return state, true, nil
}
