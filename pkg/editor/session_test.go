package editor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdvault/mdvault/pkg/document"
)

// saveRecorder is a persistence collaborator that records every call.
type saveRecorder struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (r *saveRecorder) save(_ context.Context, _ string, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	r.calls = append(r.calls, text)
	return nil
}

func (r *saveRecorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *saveRecorder) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

// changeRecorder collects Changed and SaveStatus events.
type changeRecorder struct {
	mu       sync.Mutex
	changes  []string
	statuses []SaveStatus
}

func (r *changeRecorder) callbacks() Callbacks {
	return Callbacks{
		Changed: func(text string) {
			r.mu.Lock()
			r.changes = append(r.changes, text)
			r.mu.Unlock()
		},
		SaveStatus: func(ev SaveEvent) {
			r.mu.Lock()
			r.statuses = append(r.statuses, ev.Status)
			r.mu.Unlock()
		},
	}
}

func (r *changeRecorder) changedTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.changes...)
}

func (r *changeRecorder) statusList() []SaveStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SaveStatus(nil), r.statuses...)
}

func setParagraphText(t *testing.T, tree *document.Tree, text string) {
	t.Helper()
	para := tree.FindNode(func(n *document.Node) bool { return n.Kind == document.ParagraphKind })
	require.NotNil(t, para)
	para.Text = text
}

func TestSession_EditSchedulesDebouncedSave(t *testing.T) {
	recorder := &saveRecorder{}
	events := &changeRecorder{}
	s := Open("notes/a.md", "a\n", SurfaceRich, Config{
		Save:          recorder.save,
		Callbacks:     events.callbacks(),
		AutoSaveDelay: 30 * time.Millisecond,
	})
	defer s.Close()

	s.Edit(func(tree *document.Tree) { setParagraphText(t, tree, "ab") })

	assert.Equal(t, "ab\n", s.Document().CanonicalText())
	assert.Equal(t, []string{"ab\n"}, events.changedTexts())
	assert.Empty(t, recorder.texts(), "save must wait for the quiet period")

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, []string{"ab\n"}, recorder.texts())
	assert.Equal(t, []SaveStatus{StatusSaving, StatusSaved}, events.statusList())
}

func TestSession_DebounceCoalescesManyEdits(t *testing.T) {
	recorder := &saveRecorder{}
	s := Open("notes/a.md", "0\n", SurfaceRich, Config{
		Save:          recorder.save,
		AutoSaveDelay: 60 * time.Millisecond,
	})
	defer s.Close()

	texts := []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}
	for _, text := range texts {
		s.Edit(func(tree *document.Tree) { setParagraphText(t, tree, text) })
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"ten\n"}, recorder.texts(),
		"ten edits within one window collapse to one save carrying the last text")
}

func TestSession_NoOpEditSuppressed(t *testing.T) {
	recorder := &saveRecorder{}
	events := &changeRecorder{}
	s := Open("notes/a.md", "- [ ] item\n", SurfaceRich, Config{
		Save:          recorder.save,
		Callbacks:     events.callbacks(),
		AutoSaveDelay: 20 * time.Millisecond,
	})
	defer s.Close()

	// Toggling three times lands back on the starting state, so the edit
	// serializes to the prior canonical text.
	s.Edit(func(tree *document.Tree) {
		id := tree.TaskItems()[0].ID()
		for i := 0; i < 3; i++ {
			_, err := tree.CycleTask(id)
			require.NoError(t, err)
		}
	})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, events.changedTexts())
	assert.Empty(t, recorder.texts())
}

func TestSession_CloseFlushesPendingSave(t *testing.T) {
	// Concrete scenario: open "a", edit to "ab", close before the timer
	// fires. The close flush must save "ab" exactly once and never "a".
	recorder := &saveRecorder{}
	s := Open("notes/a.md", "a", SurfaceRich, Config{
		Save:          recorder.save,
		AutoSaveDelay: time.Hour,
	})

	s.Edit(func(tree *document.Tree) { setParagraphText(t, tree, "ab") })
	s.Close()

	assert.Equal(t, []string{"ab"}, recorder.texts())

	// Closing again does not save again.
	s.Close()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"ab"}, recorder.texts())
}

func TestSession_SwitchSurfaceWithoutLoss(t *testing.T) {
	recorder := &saveRecorder{}
	s := Open("notes/a.md", "t0", SurfaceRich, Config{
		Save:          recorder.save,
		AutoSaveDelay: time.Hour,
	})
	defer s.Close()

	s.Edit(func(tree *document.Tree) { setParagraphText(t, tree, "t1") })
	s.SwitchSurface(SurfaceSource)
	s.Flush()

	assert.Equal(t, []string{"t1"}, recorder.texts())
	assert.Equal(t, "t1", s.Document().CanonicalText())
}

func TestSession_SwitchSurfaceReusesTreeWhenTextUnchanged(t *testing.T) {
	s := Open("notes/a.md", "para\n", SurfaceRich, Config{
		Save:          (&saveRecorder{}).save,
		AutoSaveDelay: time.Hour,
	})
	defer s.Close()

	before := s.Document().Tree()
	s.SwitchSurface(SurfaceSource)
	s.SwitchSurface(SurfaceRich)
	assert.Same(t, before, s.Document().Tree(),
		"unchanged canonical text must not trigger a re-parse")
}

func TestSession_SwitchSurfaceReparsesAfterDivergence(t *testing.T) {
	s := Open("notes/a.md", "para\n", SurfaceRich, Config{
		Save:          (&saveRecorder{}).save,
		AutoSaveDelay: time.Hour,
	})
	defer s.Close()

	s.SwitchSurface(SurfaceSource)
	s.SwitchSurface(SurfaceRich)
	before := s.Document().Tree()

	// The source surface last parsed "para\n"; editing on the rich
	// surface diverges the canonical text, so activating source again
	// must rebuild the tree.
	s.Edit(func(tree *document.Tree) { setParagraphText(t, tree, "edited") })
	s.SwitchSurface(SurfaceSource)
	assert.NotSame(t, before, s.Document().Tree(),
		"diverged canonical text must re-parse for the incoming surface")
	assert.Equal(t, "edited\n", s.Document().CanonicalText())
}

func TestSession_CycleTaskEmitsIntermediateStates(t *testing.T) {
	events := &changeRecorder{}
	s := Open("notes/a.md", "- [ ] item\n", SurfaceRich, Config{
		Save:          (&saveRecorder{}).save,
		Callbacks:     events.callbacks(),
		AutoSaveDelay: time.Hour,
	})
	defer s.Close()

	id := s.Document().Tree().TaskItems()[0].ID()
	for i := 0; i < 3; i++ {
		_, err := s.CycleTask(id)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"- [>] item\n",
		"- [x] item\n",
		"- [ ] item\n",
	}, events.changedTexts())
	assert.Equal(t, "- [ ] item\n", s.Document().CanonicalText())
}

func TestSession_ExternalChangeReplacesTreeWithoutSaving(t *testing.T) {
	recorder := &saveRecorder{}
	events := &changeRecorder{}
	s := Open("notes/a.md", "old\n", SurfaceRich, Config{
		Save:          recorder.save,
		Callbacks:     events.callbacks(),
		AutoSaveDelay: 20 * time.Millisecond,
	})
	defer s.Close()

	s.ExternalTextChanged("new text\n")

	assert.Equal(t, "new text\n", s.Document().CanonicalText())
	para := s.Document().Tree().FindNode(func(n *document.Node) bool {
		return n.Kind == document.ParagraphKind
	})
	require.NotNil(t, para)
	assert.Equal(t, "new text", para.Text)

	time.Sleep(100 * time.Millisecond)
	// External changes are already persisted elsewhere: no save, no
	// Changed event.
	assert.Empty(t, recorder.texts())
	assert.Empty(t, events.changedTexts())
}

func TestSession_ExternalChangeIdenticalTextIsNoOp(t *testing.T) {
	s := Open("notes/a.md", "same\n", SurfaceRich, Config{
		Save:          (&saveRecorder{}).save,
		AutoSaveDelay: time.Hour,
	})
	defer s.Close()

	before := s.Document().Tree()
	s.ExternalTextChanged("same\n")
	assert.Same(t, before, s.Document().Tree())
}

func TestSession_ExternalChangeSupersedesPendingLocalSave(t *testing.T) {
	recorder := &saveRecorder{}
	s := Open("notes/a.md", "base\n", SurfaceRich, Config{
		Save:          recorder.save,
		AutoSaveDelay: 40 * time.Millisecond,
	})
	defer s.Close()

	s.Edit(func(tree *document.Tree) { setParagraphText(t, tree, "local") })
	s.ExternalTextChanged("external wins\n")

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, recorder.texts(),
		"a stale local edit must not overwrite an external update")
	assert.Equal(t, "external wins\n", s.Document().CanonicalText())
}

func TestSession_FlushRetriesSaveThatAlreadyFailed(t *testing.T) {
	recorder := &saveRecorder{}
	events := &changeRecorder{}
	s := Open("notes/a.md", "a\n", SurfaceRich, Config{
		Save:          recorder.save,
		Callbacks:     events.callbacks(),
		AutoSaveDelay: 30 * time.Millisecond,
	})
	defer s.Close()

	recorder.setFail(true)
	s.Edit(func(tree *document.Tree) { setParagraphText(t, tree, "b") })

	// Let the debounce timer fire and fail on its own.
	require.Eventually(t, func() bool {
		for _, st := range events.statusList() {
			if st == StatusFailed {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, recorder.texts())

	// The timer is spent, but the content is still unsaved; an explicit
	// flush must attempt it again.
	recorder.setFail(false)
	s.Flush()
	assert.Equal(t, []string{"b\n"}, recorder.texts())
}

func TestSession_CloseAfterFailedSavePersistsContent(t *testing.T) {
	recorder := &saveRecorder{}
	events := &changeRecorder{}
	s := Open("notes/a.md", "a\n", SurfaceRich, Config{
		Save:          recorder.save,
		Callbacks:     events.callbacks(),
		AutoSaveDelay: 30 * time.Millisecond,
	})

	recorder.setFail(true)
	s.Edit(func(tree *document.Tree) { setParagraphText(t, tree, "b") })
	require.Eventually(t, func() bool {
		for _, st := range events.statusList() {
			if st == StatusFailed {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	recorder.setFail(false)
	s.Close()
	assert.Equal(t, []string{"b\n"}, recorder.texts())
}

func TestSession_SaveFailureRetainsContentAndRetries(t *testing.T) {
	recorder := &saveRecorder{}
	events := &changeRecorder{}
	s := Open("notes/a.md", "a\n", SurfaceRich, Config{
		Save:          recorder.save,
		Callbacks:     events.callbacks(),
		AutoSaveDelay: time.Hour,
	})
	defer s.Close()

	recorder.setFail(true)
	s.Edit(func(tree *document.Tree) { setParagraphText(t, tree, "b") })
	s.Flush()

	assert.Contains(t, events.statusList(), StatusFailed)
	assert.Empty(t, recorder.texts())
	// In-memory state stays authoritative.
	assert.Equal(t, "b\n", s.Document().CanonicalText())

	recorder.setFail(false)
	s.Edit(func(tree *document.Tree) { setParagraphText(t, tree, "c") })
	s.Flush()
	assert.Equal(t, []string{"c\n"}, recorder.texts())
	assert.Equal(t, StatusSaved, events.statusList()[len(events.statusList())-1])
}
