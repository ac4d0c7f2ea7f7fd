package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const editorStateFileName = "editor_state.json"

const maxRecentStories = 10

// EditorState stores small UI state for reopening the last story on relaunch.
// It is best effort: a missing or corrupt file is treated as empty.
type EditorState struct {
	Version  int    `json:"version"`
	Campaign string `json:"campaign,omitempty"`
	Story    string `json:"story,omitempty"`
	// SelectedNodeID is the node the editor had open.
	SelectedNodeID string `json:"selectedNodeId,omitempty"`
	ShowPreview    bool   `json:"showPreview,omitempty"`

	// RecentStories holds campaign/story keys, newest first.
	RecentStories []string `json:"recentStories,omitempty"`
}

func (s *Store) editorStatePath() string {
	return filepath.Join(s.StateDir(), editorStateFileName)
}

func (s *Store) LoadEditorState() (*EditorState, error) {
	b, err := os.ReadFile(s.editorStatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &EditorState{Version: 1}, nil
		}
		return nil, err
	}
	var st EditorState
	if err := json.Unmarshal(b, &st); err != nil {
		return &EditorState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (s *Store) SaveEditorState(st *EditorState) error {
	if st == nil {
		return nil
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(s.StateDir(), "editor_state.json.*.tmp", s.editorStatePath(), b, 0o644)
}

// TouchRecent moves campaign/story to the front of RecentStories.
func (st *EditorState) TouchRecent(campaign, story string) {
	key := cacheKey(campaign, story)
	out := []string{key}
	for _, k := range st.RecentStories {
		if k != key {
			out = append(out, k)
		}
	}
	if len(out) > maxRecentStories {
		out = out[:maxRecentStories]
	}
	st.RecentStories = out
	st.Campaign = campaign
	st.Story = story
}
