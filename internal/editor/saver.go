package editor

import (
	"context"
	"sync"

	"storyloom/internal/model"
)

// Saver serializes writes so a manual save and an autosave never interleave on the
// same file. The last call to finish wins.
type Saver struct {
	mu      sync.Mutex
	storage Storage
}

func NewSaver(storage Storage) *Saver {
	return &Saver{storage: storage}
}

func (s *Saver) Save(ctx context.Context, campaign, name string, doc *model.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.SaveStory(ctx, campaign, name, doc)
}
