package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// StoryChange describes an external edit to a story file.
type StoryChange struct {
	Campaign string
	Story    string
	Removed  bool
}

// Watcher invalidates cached stories when their files change on disk (an editor or
// git checkout touching the notes directories) and notifies listeners.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	log      *zap.Logger
	debounce time.Duration

	mu       sync.Mutex
	onChange []func(StoryChange)
	timers   map[string]*time.Timer
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewWatcher(s *Store, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		store:    s,
		watcher:  fw,
		log:      log,
		debounce: 100 * time.Millisecond,
		timers:   map[string]*time.Timer{},
		stopCh:   make(chan struct{}),
	}
	// New campaigns show up as directories under the root.
	if err := fw.Add(s.Dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	ents, err := os.ReadDir(s.Dir)
	if err != nil {
		_ = fw.Close()
		return nil, err
	}
	for _, e := range ents {
		if e.IsDir() && validName(e.Name()) {
			w.addCampaign(e.Name())
		}
	}
	return w, nil
}

func (w *Watcher) addCampaign(campaign string) {
	dir := w.store.notesDir(campaign)
	if err := w.watcher.Add(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.log.Warn("watch notes dir", zap.String("campaign", campaign), zap.Error(err))
	}
}

// OnChange registers fn to run (on the watcher goroutine) after each debounced change.
func (w *Watcher) OnChange(fn func(StoryChange)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, fn)
	w.mu.Unlock()
}

// Run processes events until Stop is called or the underlying watcher closes.
func (w *Watcher) Run() {
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.store.Dir, ev.Name)
	if err != nil {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	switch {
	case len(parts) == 1 && ev.Has(fsnotify.Create):
		if validName(parts[0]) {
			w.addCampaign(parts[0])
		}
	case len(parts) == 2 && parts[1] == notesDirName && ev.Has(fsnotify.Create):
		w.addCampaign(parts[0])
	case len(parts) == 3 && parts[1] == notesDirName && filepath.Ext(parts[2]) == storyExt:
		ch := StoryChange{
			Campaign: parts[0],
			Story:    strings.TrimSuffix(parts[2], storyExt),
			Removed:  ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename),
		}
		w.schedule(ch)
	}
}

// schedule coalesces bursts of events for one story (backup-rename saves emit several).
func (w *Watcher) schedule(ch StoryChange) {
	key := cacheKey(ch.Campaign, ch.Story)
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[key]; ok {
		t.Stop()
	}
	w.timers[key] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, key)
		handlers := append([]func(StoryChange){}, w.onChange...)
		w.mu.Unlock()

		if _, err := os.Stat(filepath.Join(w.store.notesDir(ch.Campaign), ch.Story+storyExt)); err == nil {
			ch.Removed = false
		}
		w.store.Invalidate(ch.Campaign, ch.Story)
		w.log.Debug("story changed on disk",
			zap.String("campaign", ch.Campaign),
			zap.String("story", ch.Story),
			zap.Bool("removed", ch.Removed),
		)
		for _, fn := range handlers {
			fn(ch)
		}
	})
}
