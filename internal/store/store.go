// Package store persists campaigns and stories on the local file system.
//
// Layout under Dir:
//
//	<campaign>/notes/<story>.json   story documents
//	.storyloom/session.sqlite       undo/redo stacks per story
//	.storyloom/editor_state.json    last opened story (best effort)
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"storyloom/internal/analyze"
	"storyloom/internal/model"
)

const (
	stateDirName   = ".storyloom"
	notesDirName   = "notes"
	storyExt       = ".json"
	defaultCacheSz = 128
)

type cachedStory struct {
	story   *model.Story
	modTime time.Time
	size    int64
}

type Store struct {
	Dir string

	log   *zap.Logger
	mu    sync.Mutex
	cache *lru.Cache[string, cachedStory]
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Store rooted at dir. cacheSize <= 0 uses a default.
func New(dir string, cacheSize int, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("store: empty data dir")
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSz
	}
	c, err := lru.New[string, cachedStory](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("store: cache: %w", err)
	}
	s := &Store{Dir: dir, log: zap.NewNop(), cache: c}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// DiscoverDir walks up from start looking for a directory that holds a .storyloom
// state directory.
func DiscoverDir(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, stateDirName)
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DefaultDir is the discovered data dir, or the working directory.
func DefaultDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if found, ok := DiscoverDir(cwd); ok {
		return found, nil
	}
	return cwd, nil
}

func (s *Store) Ensure() error {
	return os.MkdirAll(filepath.Join(s.Dir, stateDirName), 0o755)
}

func (s *Store) StateDir() string { return filepath.Join(s.Dir, stateDirName) }

func (s *Store) campaignDir(campaign string) string { return filepath.Join(s.Dir, campaign) }

func (s *Store) notesDir(campaign string) string {
	return filepath.Join(s.Dir, campaign, notesDirName)
}

// StoryPath returns <Dir>/<campaign>/notes/<story>.json after validating both names.
func (s *Store) StoryPath(campaign, story string) (string, error) {
	if !validName(campaign) || !validName(story) {
		return "", wrapErr("resolve", campaign, story, ErrInvalidName)
	}
	return filepath.Join(s.notesDir(campaign), story+storyExt), nil
}

func cacheKey(campaign, story string) string { return campaign + "/" + story }

// ListCampaigns returns campaign directory names, sorted.
func (s *Store) ListCampaigns(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, wrapErr("list campaigns", "", "", err)
	}
	out := []string{}
	for _, e := range ents {
		if e.IsDir() && validName(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CreateCampaign(ctx context.Context, campaign string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validName(campaign) {
		return wrapErr("create campaign", campaign, "", ErrInvalidName)
	}
	if err := os.MkdirAll(s.notesDir(campaign), 0o755); err != nil {
		return wrapErr("create campaign", campaign, "", err)
	}
	return nil
}

func (s *Store) campaignExists(campaign string) bool {
	st, err := os.Stat(s.campaignDir(campaign))
	return err == nil && st.IsDir()
}

// ListStories returns story names (file stems) in a campaign, sorted.
func (s *Store) ListStories(ctx context.Context, campaign string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validName(campaign) {
		return nil, wrapErr("list stories", campaign, "", ErrInvalidName)
	}
	if !s.campaignExists(campaign) {
		return nil, wrapErr("list stories", campaign, "", ErrNotFound)
	}
	ents, err := os.ReadDir(s.notesDir(campaign))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, wrapErr("list stories", campaign, "", err)
	}
	out := []string{}
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != storyExt {
			continue
		}
		out = append(out, strings.TrimSuffix(name, storyExt))
	}
	sort.Strings(out)
	return out, nil
}

// LoadStory reads a story. The returned value is a private copy.
func (s *Store) LoadStory(ctx context.Context, campaign, story string) (*model.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.StoryPath(campaign, story)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, wrapErr("load", campaign, story, ErrNotFound)
		}
		return nil, wrapErr("load", campaign, story, err)
	}

	key := cacheKey(campaign, story)
	s.mu.Lock()
	if c, ok := s.cache.Get(key); ok && c.modTime.Equal(st.ModTime()) && c.size == st.Size() {
		s.mu.Unlock()
		return c.story.Clone(), nil
	}
	s.mu.Unlock()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr("load", campaign, story, err)
	}
	doc, err := model.ParseStory(b)
	if err != nil {
		return nil, wrapErr("load", campaign, story, fmt.Errorf("parse: %w", err))
	}

	s.mu.Lock()
	s.cache.Add(key, cachedStory{story: doc.Clone(), modTime: st.ModTime(), size: st.Size()})
	s.mu.Unlock()
	return doc, nil
}

// SaveStory validates and writes a story. Structural problems (empty or duplicate ids,
// unknown types) reject the write; dangling references do not.
func (s *Store) SaveStory(ctx context.Context, campaign, story string, doc *model.Story) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.StoryPath(campaign, story)
	if err != nil {
		return err
	}
	if !s.campaignExists(campaign) {
		return wrapErr("save", campaign, story, ErrNotFound)
	}
	if err := analyze.CheckSavable(doc); err != nil {
		return wrapErr("save", campaign, story, err)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return wrapErr("save", campaign, story, err)
	}
	b = append(b, '\n')
	if err := writeWithBackup(path, b); err != nil {
		return wrapErr("save", campaign, story, err)
	}
	s.Invalidate(campaign, story)
	s.log.Debug("story saved",
		zap.String("campaign", campaign),
		zap.String("story", story),
		zap.Int("nodes", len(doc.Nodes)),
	)
	return nil
}

// CreateStory writes a new story and fails with ErrExists if the file is already there.
func (s *Store) CreateStory(ctx context.Context, campaign, story string, doc *model.Story) error {
	path, err := s.StoryPath(campaign, story)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return wrapErr("create", campaign, story, ErrExists)
	}
	return s.SaveStory(ctx, campaign, story, doc)
}

// Invalidate drops a cached story so the next load rereads the file.
func (s *Store) Invalidate(campaign, story string) {
	s.mu.Lock()
	s.cache.Remove(cacheKey(campaign, story))
	s.mu.Unlock()
}

// NewStory returns an empty story with one seed main node.
func NewStory(title string) *model.Story {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New story"
	}
	return &model.Story{
		Title: title,
		Nodes: []model.Node{{
			ID:       "node_01",
			Type:     model.NodeTypeMain,
			Title:    "Opening",
			Branches: []model.Branch{},
		}},
	}
}
