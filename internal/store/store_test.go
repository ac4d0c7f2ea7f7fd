package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"storyloom/internal/analyze"
	"storyloom/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func sampleStory() *model.Story {
	return &model.Story{
		Title: "The Crypt",
		Nodes: []model.Node{
			{ID: "node_01", Type: model.NodeTypeMain, Title: "Gate", Content: "A door.", Next: "node_02",
				Branches: []model.Branch{{Choice: "Sneak", Entry: "node_03", Exit: "node_02"}}},
			{ID: "node_02", Type: model.NodeTypeMain, Title: "Hall", Branches: []model.Branch{}},
			{ID: "node_03", Type: model.NodeTypeBranch, Title: "Vent", Next: "gone"},
		},
	}
}

func TestSaveLoad_RoundTripAndLayout(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.CreateCampaign(ctx, "alpha"); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	doc := sampleStory()
	if err := s.SaveStory(ctx, "alpha", "crypt", doc); err != nil {
		t.Fatalf("SaveStory: %v", err)
	}

	path := filepath.Join(s.Dir, "alpha", "notes", "crypt.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected story file at %s: %v", path, err)
	}
	if !strings.Contains(string(raw), `"next": null`) {
		t.Fatalf("expected null next on disk; got:\n%s", raw)
	}
	if _, err := os.Stat(path + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected backup removed after a successful save; stat err=%v", err)
	}

	got, err := s.LoadStory(ctx, "alpha", "crypt")
	if err != nil {
		t.Fatalf("LoadStory: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", got, doc)
	}

	// Callers get private copies, even from the cache.
	got.Nodes[0].Title = "mutated"
	again, err := s.LoadStory(ctx, "alpha", "crypt")
	if err != nil {
		t.Fatalf("LoadStory: %v", err)
	}
	if again.Nodes[0].Title != "Gate" {
		t.Fatalf("cache leaked a shared story")
	}
}

func TestSaveStory_OverwriteKeepsSingleFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_ = s.CreateCampaign(ctx, "alpha")
	doc := sampleStory()
	if err := s.SaveStory(ctx, "alpha", "crypt", doc); err != nil {
		t.Fatalf("SaveStory: %v", err)
	}
	doc.Title = "Renamed"
	if err := s.SaveStory(ctx, "alpha", "crypt", doc); err != nil {
		t.Fatalf("SaveStory(2): %v", err)
	}
	got, err := s.LoadStory(ctx, "alpha", "crypt")
	if err != nil || got.Title != "Renamed" {
		t.Fatalf("expected updated title; got %+v err=%v", got, err)
	}
	ents, _ := os.ReadDir(filepath.Join(s.Dir, "alpha", "notes"))
	if len(ents) != 1 {
		t.Fatalf("expected only crypt.json in notes; got %d entries", len(ents))
	}
}

func TestSaveStory_RejectsStructuralErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_ = s.CreateCampaign(ctx, "alpha")
	doc := sampleStory()
	doc.Nodes[1].ID = "node_01"

	err := s.SaveStory(ctx, "alpha", "crypt", doc)
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "save" {
		t.Fatalf("expected StorageError(save); got %v", err)
	}
	var structErr *analyze.StructureError
	if !errors.As(err, &structErr) {
		t.Fatalf("expected wrapped StructureError; got %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "alpha", "notes", "crypt.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("rejected story must not be written")
	}
}

func TestLoadStory_NotFoundAndInvalidNames(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_ = s.CreateCampaign(ctx, "alpha")

	if _, err := s.LoadStory(ctx, "alpha", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
	for _, name := range []string{"", "..", "../x", ".hidden", `a\b`, " crypt", "crypt\t"} {
		if _, err := s.LoadStory(ctx, "alpha", name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("LoadStory(%q): expected ErrInvalidName; got %v", name, err)
		}
	}
	if err := s.SaveStory(ctx, "missing", "x", sampleStory()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing campaign; got %v", err)
	}
}

func TestCreateCampaign_RejectsSurroundingWhitespace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, name := range []string{" crypt", "crypt ", "\tcrypt"} {
		if err := s.CreateCampaign(ctx, name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("CreateCampaign(%q): expected ErrInvalidName; got %v", name, err)
		}
	}
	if _, err := s.StoryPath("alpha", " intro"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName for padded story name; got %v", err)
	}
	camps, err := s.ListCampaigns(ctx)
	if err != nil || len(camps) != 0 {
		t.Fatalf("expected no campaign directories; got %v err=%v", camps, err)
	}
}

func TestWriteWithBackup_FileNeverMissingDuringSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.json")
	if err := os.WriteFile(path, []byte("v0"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	done := make(chan struct{})
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		for {
			select {
			case <-done:
				return
			default:
			}
			if _, err := os.ReadFile(path); err != nil {
				errs <- err
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		if err := writeWithBackup(path, []byte(fmt.Sprintf("v%d", i+1))); err != nil {
			close(done)
			t.Fatalf("write %d: %v", i, err)
		}
	}
	close(done)
	if err := <-errs; err != nil {
		t.Fatalf("reader saw the story file missing mid-save: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil || string(b) != "v200" {
		t.Fatalf("expected last write on disk; got %q err=%v", b, err)
	}
	if _, err := os.Stat(path + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected backup removed; stat err=%v", err)
	}
}

func TestLoadStory_ExternalEditBypassesCache(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_ = s.CreateCampaign(ctx, "alpha")
	if err := s.SaveStory(ctx, "alpha", "crypt", sampleStory()); err != nil {
		t.Fatalf("SaveStory: %v", err)
	}
	if _, err := s.LoadStory(ctx, "alpha", "crypt"); err != nil {
		t.Fatalf("LoadStory: %v", err)
	}

	path := filepath.Join(s.Dir, "alpha", "notes", "crypt.json")
	if err := os.WriteFile(path, []byte(`{"title":"Edited by hand, longer","nodes":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := s.LoadStory(ctx, "alpha", "crypt")
	if err != nil {
		t.Fatalf("LoadStory: %v", err)
	}
	if got.Title != "Edited by hand, longer" || len(got.Nodes) != 0 {
		t.Fatalf("expected external edit to be visible; got %+v", got)
	}
}

func TestListCampaignsAndStories_Sorted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, c := range []string{"zeta", "alpha"} {
		if err := s.CreateCampaign(ctx, c); err != nil {
			t.Fatalf("CreateCampaign: %v", err)
		}
	}
	if err := s.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	camps, err := s.ListCampaigns(ctx)
	if err != nil {
		t.Fatalf("ListCampaigns: %v", err)
	}
	if !reflect.DeepEqual(camps, []string{"alpha", "zeta"}) {
		t.Fatalf("unexpected campaigns: %v", camps)
	}

	for _, name := range []string{"b", "a"} {
		if err := s.CreateStory(ctx, "alpha", name, NewStory(name)); err != nil {
			t.Fatalf("CreateStory: %v", err)
		}
	}
	if err := s.CreateStory(ctx, "alpha", "a", NewStory("dup")); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists; got %v", err)
	}
	_ = os.WriteFile(filepath.Join(s.Dir, "alpha", "notes", "readme.txt"), []byte("x"), 0o644)

	stories, err := s.ListStories(ctx, "alpha")
	if err != nil {
		t.Fatalf("ListStories: %v", err)
	}
	if !reflect.DeepEqual(stories, []string{"a", "b"}) {
		t.Fatalf("unexpected stories: %v", stories)
	}
	if _, err := s.ListStories(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestNewStory_SeedNode(t *testing.T) {
	doc := NewStory("  ")
	if doc.Title != "New story" || len(doc.Nodes) != 1 || doc.Nodes[0].ID != "node_01" {
		t.Fatalf("unexpected new story: %+v", doc)
	}
	if err := analyze.CheckSavable(doc); err != nil {
		t.Fatalf("new story must be savable: %v", err)
	}
}

func TestWriteWithBackup_RestoresOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.json")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Make the directory unwritable for new files so the temp file cannot be created.
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	if err := writeWithBackup(path, []byte("new")); err == nil {
		t.Fatalf("expected write failure")
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "old" {
		t.Fatalf("expected previous content preserved; got %q err=%v", b, err)
	}
}

func TestDiscoverDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".storyloom"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	nested := filepath.Join(root, "alpha", "notes")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, ok := DiscoverDir(nested)
	if !ok || got != root {
		t.Fatalf("DiscoverDir = %q,%v; want %q", got, ok, root)
	}
}
