package editor

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"storyloom/internal/model"
	"storyloom/internal/mutate"
)

type memStorage struct {
	mu      sync.Mutex
	stories map[string]*model.Story
	saves   int
	failN   int
}

func newMemStorage() *memStorage {
	return &memStorage{stories: map[string]*model.Story{}}
}

func (m *memStorage) LoadStory(_ context.Context, campaign, story string) (*model.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stories[campaign+"/"+story]
	if !ok {
		return nil, errors.New("not found")
	}
	return s.Clone(), nil
}

func (m *memStorage) SaveStory(_ context.Context, campaign, story string, doc *model.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failN > 0 {
		m.failN--
		return errors.New("disk full")
	}
	m.saves++
	m.stories[campaign+"/"+story] = doc.Clone()
	return nil
}

func (m *memStorage) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func openSession(t *testing.T, doc *model.Story) (*Session, *memStorage) {
	t.Helper()
	st := newMemStorage()
	st.stories["c/s"] = doc
	sess := NewSession(st, Options{})
	if err := sess.Open(context.Background(), "c", "s", false); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return sess, st
}

func twoNodes() *model.Story {
	return &model.Story{Title: "T", Nodes: []model.Node{
		{ID: "n1", Type: model.NodeTypeMain, Next: "n2", Branches: []model.Branch{}},
		{ID: "n2", Type: model.NodeTypeMain, Branches: []model.Branch{}},
	}}
}

func TestSession_UndoRestoresPreMutationState(t *testing.T) {
	sess, _ := openSession(t, twoNodes())
	before := sess.Story()

	if _, err := sess.DeleteNode("n2"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if got := sess.Story(); got.Nodes[0].Next != "" || len(got.Nodes) != 1 {
		t.Fatalf("expected n2 deleted and n1.next cleared; got %+v", got)
	}
	after := sess.Story()

	cp, ok := sess.Undo()
	if !ok || cp.Label != "delete node" {
		t.Fatalf("expected undo of delete node; got %+v ok=%v", cp, ok)
	}
	if !reflect.DeepEqual(sess.Story(), before) {
		t.Fatalf("undo did not restore the exact pre-mutation story")
	}
	if _, ok := sess.Redo(); !ok {
		t.Fatalf("expected redo")
	}
	if !reflect.DeepEqual(sess.Story(), after) {
		t.Fatalf("redo did not restore the exact post-mutation story:\n%+v\n%+v", sess.Story(), after)
	}
}

func TestSession_CheckpointClearsRedo(t *testing.T) {
	sess, _ := openSession(t, twoNodes())
	if _, err := sess.AddNode(model.NodeTypeBranch); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	sess.Undo()
	if _, redo := sess.HistoryLen(); redo != 1 {
		t.Fatalf("expected 1 redo; got %d", redo)
	}
	if _, _, err := sess.AddBranch("n1"); err != nil {
		t.Fatalf("AddBranch: %v", err)
	}
	if _, redo := sess.HistoryLen(); redo != 0 {
		t.Fatalf("expected redo cleared; got %d", redo)
	}
}

func TestSession_FieldEditsAreNotCheckpointed(t *testing.T) {
	sess, _ := openSession(t, twoNodes())
	title := "Gate"
	if _, err := sess.SetNodeFields("n1", mutate.NodeFields{Title: &title}); err != nil {
		t.Fatalf("SetNodeFields: %v", err)
	}
	if undo, _ := sess.HistoryLen(); undo != 0 {
		t.Fatalf("expected no checkpoint for a title edit; got %d", undo)
	}
	if !sess.Dirty() {
		t.Fatalf("expected dirty after edit")
	}

	typ := model.NodeTypeBranch
	if _, err := sess.SetNodeFields("n1", mutate.NodeFields{Type: &typ}); err != nil {
		t.Fatalf("SetNodeFields: %v", err)
	}
	if undo, _ := sess.HistoryLen(); undo != 1 {
		t.Fatalf("expected a checkpoint for a type change; got %d", undo)
	}
}

func TestSession_FailedRenameLeavesNoTrace(t *testing.T) {
	sess, _ := openSession(t, twoNodes())
	_, err := sess.RenameNode("n2", "n1")
	var dup *mutate.DuplicateIDError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateIDError; got %v", err)
	}
	if undo, _ := sess.HistoryLen(); undo != 0 {
		t.Fatalf("failed rename recorded a checkpoint")
	}
	if sess.Dirty() {
		t.Fatalf("failed rename marked the story dirty")
	}

	if err := sess.Select("n2"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	res, err := sess.RenameNode("n2", "hall")
	if err != nil {
		t.Fatalf("RenameNode: %v", err)
	}
	if res.Updated != 1 || sess.Selected() != "hall" {
		t.Fatalf("unexpected rename result %+v selected=%q", res, sess.Selected())
	}
}

func TestSession_UndoDropsMissingSelection(t *testing.T) {
	sess, _ := openSession(t, twoNodes())
	n, err := sess.AddNode(model.NodeTypeMain)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if sess.Selected() != n.ID {
		t.Fatalf("expected new node selected")
	}
	// The checkpoint was taken with nothing selected; after undo node_03 no longer exists.
	sess.Undo()
	if sess.Selected() != "" {
		t.Fatalf("expected selection cleared; got %q", sess.Selected())
	}
	sess.Redo()
	if sess.Selected() != "node_03" {
		t.Fatalf("expected selection restored on redo; got %q", sess.Selected())
	}
}

func TestSession_NoOpsRecordNothing(t *testing.T) {
	sess, _ := openSession(t, twoNodes())
	if ok, _ := sess.DeleteNode("missing"); ok {
		t.Fatalf("expected no-op delete")
	}
	if ok, _ := sess.DeleteBranch("n1", 0); ok {
		t.Fatalf("expected no-op branch delete")
	}
	if moved, _ := sess.MoveNode("n1", 0); moved {
		t.Fatalf("expected no-op move")
	}
	if undo, _ := sess.HistoryLen(); undo != 0 || sess.Dirty() {
		t.Fatalf("no-ops changed the session: undo=%d dirty=%v", undo, sess.Dirty())
	}
	if _, ok := sess.Undo(); ok {
		t.Fatalf("expected nothing to undo")
	}
}

func TestSession_SaveClearsDirtyAndOpenGuardsUnsaved(t *testing.T) {
	sess, st := openSession(t, twoNodes())
	if _, err := sess.MoveNode("n2", 0); err != nil {
		t.Fatalf("MoveNode: %v", err)
	}
	if err := sess.Open(context.Background(), "c", "s", false); !errors.Is(err, ErrUnsavedChanges) {
		t.Fatalf("expected ErrUnsavedChanges; got %v", err)
	}
	if err := sess.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if sess.Dirty() {
		t.Fatalf("expected clean after save")
	}
	if st.stories["c/s"].Nodes[0].ID != "n2" {
		t.Fatalf("saved story does not reflect move")
	}
	if err := sess.Open(context.Background(), "c", "s", false); err != nil {
		t.Fatalf("Open after save: %v", err)
	}
}

func TestSession_SavedSnapshotIsIsolated(t *testing.T) {
	sess, st := openSession(t, twoNodes())
	_ = sess.SetTitle("Before")
	if err := sess.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_ = sess.SetTitle("After")
	if st.stories["c/s"].Title != "Before" {
		t.Fatalf("stored story aliases the live session")
	}
}

func TestSession_NoStory(t *testing.T) {
	sess := NewSession(newMemStorage(), Options{})
	if _, err := sess.AddNode(model.NodeTypeMain); !errors.Is(err, ErrNoStory) {
		t.Fatalf("expected ErrNoStory; got %v", err)
	}
	if err := sess.Save(context.Background()); !errors.Is(err, ErrNoStory) {
		t.Fatalf("expected ErrNoStory; got %v", err)
	}
}
