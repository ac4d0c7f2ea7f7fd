// Package editor owns an editing session: the loaded story, the selected node, the
// dirty flag and the undo history. Every discrete action checkpoints before it mutates.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"storyloom/internal/analyze"
	"storyloom/internal/history"
	"storyloom/internal/model"
	"storyloom/internal/mutate"
)

var (
	ErrNoStory        = errors.New("no story open")
	ErrUnsavedChanges = errors.New("story has unsaved changes")
)

// Storage is the persistence boundary a session saves through.
type Storage interface {
	LoadStory(ctx context.Context, campaign, story string) (*model.Story, error)
	SaveStory(ctx context.Context, campaign, story string, doc *model.Story) error
}

type Options struct {
	HistoryCap   int
	MaxPathDepth int
	Logger       *zap.Logger
}

type Session struct {
	mu sync.Mutex

	storage Storage
	saver   *Saver
	log     *zap.Logger

	campaign string
	name     string
	story    *model.Story
	selected string
	dirty    bool
	// rev increments on every mutation; a save only clears dirty if rev is unchanged.
	rev uint64

	hist     *history.History
	maxDepth int
}

func NewSession(storage Storage, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	depth := opts.MaxPathDepth
	if depth <= 0 {
		depth = analyze.DefaultMaxDepth
	}
	return &Session{
		storage:  storage,
		saver:    NewSaver(storage),
		log:      log,
		hist:     history.New(opts.HistoryCap),
		maxDepth: depth,
	}
}

// Open loads a story from storage, replacing the current one. It refuses to drop unsaved
// changes unless discard is set.
func (s *Session) Open(ctx context.Context, campaign, name string, discard bool) error {
	s.mu.Lock()
	dirty := s.dirty && s.story != nil
	s.mu.Unlock()
	if dirty && !discard {
		return ErrUnsavedChanges
	}
	doc, err := s.storage.LoadStory(ctx, campaign, name)
	if err != nil {
		return err
	}
	s.Attach(campaign, name, doc)
	return nil
}

// Attach makes doc the session's story without touching storage. History is reset.
func (s *Session) Attach(campaign, name string, doc *model.Story) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaign = campaign
	s.name = name
	s.story = doc
	s.selected = ""
	s.dirty = false
	s.rev++
	s.hist.Clear()
}

func (s *Session) Campaign() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaign
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Story returns a deep copy of the current story (nil if none is open).
func (s *Session) Story() *model.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.story.Clone()
}

func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select changes the selected node. An empty id clears the selection.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.story == nil {
		return ErrNoStory
	}
	if id != "" && !s.story.HasNode(id) {
		return mutate.NotFoundError{Kind: "node", ID: id}
	}
	s.selected = id
	return nil
}

// apply runs fn against a copy of the story and commits the copy only if fn succeeds,
// so a rejected edit leaves neither a change nor a checkpoint behind. A non-empty label
// records a checkpoint of the pre-edit state.
func (s *Session) apply(label string, fn func(doc *model.Story) error) error {
	if s.story == nil {
		return ErrNoStory
	}
	next := s.story.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if label != "" {
		s.hist.Save(s.story, s.selected, label)
	}
	s.story = next
	s.dirty = true
	s.rev++
	return nil
}

func (s *Session) AddNode(kind model.NodeType) (model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out model.Node
	err := s.apply("add node", func(doc *model.Story) error {
		n, err := mutate.CreateNode(doc, kind)
		if err != nil {
			return err
		}
		out = n.Clone()
		return nil
	})
	if err != nil {
		return model.Node{}, err
	}
	s.selected = out.ID
	return out, nil
}

// DeleteNode removes a node and its inbound references. Deleting an unknown id is a
// no-op that records nothing.
func (s *Session) DeleteNode(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.story == nil {
		return false, ErrNoStory
	}
	if !s.story.HasNode(id) {
		return false, nil
	}
	if err := s.apply("delete node", func(doc *model.Story) error {
		mutate.DeleteNode(doc, id)
		return nil
	}); err != nil {
		return false, err
	}
	if s.selected == id {
		s.selected = ""
	}
	return true, nil
}

func (s *Session) RenameNode(oldID, newID string) (mutate.RenameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	label := "rename node"
	if strings.TrimSpace(newID) == oldID {
		label = ""
	}
	var res mutate.RenameResult
	err := s.apply(label, func(doc *model.Story) error {
		r, err := mutate.RenameNode(doc, oldID, newID)
		res = r
		return err
	})
	if err != nil {
		return mutate.RenameResult{}, err
	}
	if s.selected == oldID {
		s.selected = res.Node.ID
	}
	n := res.Node.Clone()
	res.Node = &n
	return res, nil
}

// SetNodeFields edits scalar fields. Only a type change is checkpointed; the story is
// marked dirty either way.
func (s *Session) SetNodeFields(id string, f mutate.NodeFields) (mutate.SetNodeFieldsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.story == nil {
		return mutate.SetNodeFieldsResult{}, ErrNoStory
	}
	label := ""
	if f.Type != nil {
		if n, ok := s.story.FindNode(id); ok && n.Type != *f.Type {
			label = "change type"
		}
	}
	var res mutate.SetNodeFieldsResult
	err := s.apply(label, func(doc *model.Story) error {
		r, err := mutate.SetNodeFields(doc, id, f)
		res = r
		return err
	})
	if err != nil {
		return mutate.SetNodeFieldsResult{}, err
	}
	n := res.Node.Clone()
	res.Node = &n
	return res, nil
}

func (s *Session) MoveNode(id string, to int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.story == nil {
		return false, ErrNoStory
	}
	from := s.story.IndexOf(id)
	if from < 0 {
		return false, mutate.NotFoundError{Kind: "node", ID: id}
	}
	if clamp(to, len(s.story.Nodes)) == from {
		return false, nil
	}
	err := s.apply("move node", func(doc *model.Story) error {
		_, err := mutate.MoveNode(doc, id, to)
		return err
	})
	return err == nil, err
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

func (s *Session) AddBranch(nodeID string) (model.Branch, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		out model.Branch
		idx int
	)
	err := s.apply("add branch", func(doc *model.Story) error {
		br, err := mutate.AddBranch(doc, nodeID)
		if err != nil {
			return err
		}
		out = *br
		n, _ := doc.FindNode(nodeID)
		idx = len(n.Branches) - 1
		return nil
	})
	return out, idx, err
}

// DeleteBranch removes a branch; an out-of-range index is a no-op that records nothing.
func (s *Session) DeleteBranch(nodeID string, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.story == nil {
		return false, ErrNoStory
	}
	n, ok := s.story.FindNode(nodeID)
	if !ok || index < 0 || index >= len(n.Branches) {
		return false, nil
	}
	if err := s.apply("delete branch", func(doc *model.Story) error {
		mutate.DeleteBranch(doc, nodeID, index)
		return nil
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) SetBranchFields(nodeID string, index int, f mutate.BranchFields) (model.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out model.Branch
	err := s.apply("", func(doc *model.Story) error {
		br, err := mutate.SetBranchFields(doc, nodeID, index, f)
		if err != nil {
			return err
		}
		out = *br
		return nil
	})
	return out, err
}

// SetTitle changes the story title (a field edit, not checkpointed).
func (s *Session) SetTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply("", func(doc *model.Story) error {
		doc.Title = title
		return nil
	})
}

// Undo restores the newest checkpoint. It reports false when there is nothing to undo.
func (s *Session) Undo() (history.Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.story == nil {
		return history.Checkpoint{}, false
	}
	cp, ok := s.hist.Undo(s.story, s.selected)
	if ok {
		s.restore(cp)
	}
	return cp, ok
}

func (s *Session) Redo() (history.Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.story == nil {
		return history.Checkpoint{}, false
	}
	cp, ok := s.hist.Redo(s.story, s.selected)
	if ok {
		s.restore(cp)
	}
	return cp, ok
}

func (s *Session) restore(cp history.Checkpoint) {
	s.story = cp.Snapshot.Clone()
	s.selected = history.RestoreSelection(s.story, cp.SelectedID)
	s.dirty = true
	s.rev++
}

// HistoryStacks exposes the undo/redo stacks for persistence.
func (s *Session) HistoryStacks() (undo, redo []history.Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Stacks()
}

func (s *Session) HistoryLen() (undo, redo int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Len()
}

// RestoreHistory replaces the history (and selection) with persisted state.
func (s *Session) RestoreHistory(capacity int, undo, redo []history.Checkpoint, selected string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hist = history.Restore(capacity, undo, redo)
	s.selected = history.RestoreSelection(s.story, selected)
}

func (s *Session) Issues() []analyze.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return analyze.DetectIssues(s.story)
}

func (s *Session) Paths() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return analyze.EnumeratePaths(s.story, s.maxDepth)
}

func (s *Session) Statistics() analyze.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return analyze.ComputeStatistics(s.story)
}

// Save writes a snapshot of the story. Edits made while the write is in flight keep
// the session dirty.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.story == nil {
		s.mu.Unlock()
		return ErrNoStory
	}
	campaign, name, rev := s.campaign, s.name, s.rev
	snap := s.story.Clone()
	s.mu.Unlock()

	if err := s.saver.Save(ctx, campaign, name, snap); err != nil {
		return err
	}

	s.mu.Lock()
	if s.rev == rev && s.campaign == campaign && s.name == name {
		s.dirty = false
	}
	s.mu.Unlock()
	s.log.Debug("session saved", zap.String("campaign", campaign), zap.String("story", name))
	return nil
}
