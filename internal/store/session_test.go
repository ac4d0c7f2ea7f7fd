package store

import (
	"context"
	"reflect"
	"testing"

	"storyloom/internal/history"
	"storyloom/internal/model"
)

func TestSessionDB_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	db, err := s.OpenSessionDB(ctx)
	if err != nil {
		t.Fatalf("OpenSessionDB: %v", err)
	}
	defer db.Close()

	st, err := db.Load(ctx, "alpha", "crypt")
	if err != nil {
		t.Fatalf("Load(empty): %v", err)
	}
	if len(st.Undo) != 0 || len(st.Redo) != 0 || st.SelectedID != "" {
		t.Fatalf("expected empty session; got %+v", st)
	}

	h := history.New(0)
	doc := sampleStory()
	h.Save(doc, "node_01", "add node")
	doc2 := doc.Clone()
	doc2.Nodes = append(doc2.Nodes, model.Node{ID: "node_04", Type: model.NodeTypeBranch})
	h.Save(doc2, "node_04", "delete node")
	h.Undo(doc2, "node_04")

	undo, redo := h.Stacks()
	want := SessionState{Undo: undo, Redo: redo, SelectedID: "node_02"}
	if err := db.Save(ctx, "alpha", "crypt", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := db.Load(ctx, "alpha", "crypt")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SelectedID != "node_02" || len(got.Undo) != 1 || len(got.Redo) != 1 {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.Undo[0].ID != undo[0].ID || got.Undo[0].Label != "add node" {
		t.Fatalf("unexpected undo checkpoint: %+v", got.Undo[0])
	}
	if !reflect.DeepEqual(got.Undo[0].Snapshot, undo[0].Snapshot) {
		t.Fatalf("snapshot mismatch:\n%+v\n%+v", got.Undo[0].Snapshot, undo[0].Snapshot)
	}
	if !got.Undo[0].At.Equal(undo[0].At.Truncate(1e6)) {
		t.Fatalf("timestamp mismatch: %v vs %v", got.Undo[0].At, undo[0].At)
	}

	// Saving again replaces rather than appends.
	if err := db.Save(ctx, "alpha", "crypt", SessionState{Undo: undo}); err != nil {
		t.Fatalf("Save(2): %v", err)
	}
	got, _ = db.Load(ctx, "alpha", "crypt")
	if len(got.Undo) != 1 || len(got.Redo) != 0 {
		t.Fatalf("expected replaced stacks; got %+v", got)
	}

	if err := db.Clear(ctx, "alpha", "crypt"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ = db.Load(ctx, "alpha", "crypt")
	if len(got.Undo) != 0 {
		t.Fatalf("expected cleared session; got %+v", got)
	}
}

func TestEditorState_BestEffort(t *testing.T) {
	s := newTestStore(t)
	st, err := s.LoadEditorState()
	if err != nil || st.Version != 1 {
		t.Fatalf("expected default state; got %+v err=%v", st, err)
	}
	for _, k := range []string{"a", "b", "a"} {
		st.TouchRecent("camp", k)
	}
	st.SelectedNodeID = "node_02"
	if err := s.SaveEditorState(st); err != nil {
		t.Fatalf("SaveEditorState: %v", err)
	}
	got, err := s.LoadEditorState()
	if err != nil {
		t.Fatalf("LoadEditorState: %v", err)
	}
	if got.Story != "a" || got.SelectedNodeID != "node_02" || !reflect.DeepEqual(got.RecentStories, []string{"camp/a", "camp/b"}) {
		t.Fatalf("unexpected state: %+v", got)
	}
}
