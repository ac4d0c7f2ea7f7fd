package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"

	"storyloom/internal/export"
	"storyloom/internal/store"
)

const keepAliveInterval = 25 * time.Second

// changeHub fans story change notifications out to live preview and websocket
// subscribers, keyed by campaign/story.
type changeHub struct {
	mu   sync.Mutex
	subs map[string]map[chan store.StoryChange]struct{}
}

func newChangeHub() *changeHub {
	return &changeHub{subs: map[string]map[chan store.StoryChange]struct{}{}}
}

func hubKey(campaign, story string) string { return campaign + "/" + story }

func (h *changeHub) subscribe(campaign, story string) (ch chan store.StoryChange, cancel func()) {
	key := hubKey(campaign, story)
	ch = make(chan store.StoryChange, 8)
	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = map[chan store.StoryChange]struct{}{}
	}
	h.subs[key][ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs[key], ch)
		if len(h.subs[key]) == 0 {
			delete(h.subs, key)
		}
		h.mu.Unlock()
	}
}

// publish never blocks; slow subscribers miss intermediate changes.
func (h *changeHub) publish(ch store.StoryChange) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[hubKey(ch.Campaign, ch.Story)] {
		select {
		case sub <- ch:
		default:
		}
	}
}

// Notify tells live subscribers that a story changed. It is the store watcher's
// OnChange callback when serving.
func (s *Server) Notify(ch store.StoryChange) {
	s.hub.publish(ch)
}

// previewEvents streams the rendered story into #story-preview whenever it changes.
func (s *Server) previewEvents(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	changes, cancel := s.hub.subscribe(ref.Campaign, ref.Story)
	defer cancel()

	sse := datastar.NewSSE(w, r)
	_ = sse.MarshalAndPatchSignals(map[string]any{"story": hubKey(ref.Campaign, ref.Story), "removed": false})

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case ch := <-changes:
			if ch.Removed {
				_ = sse.MarshalAndPatchSignals(map[string]any{"removed": true})
				continue
			}
			doc, err := s.store.LoadStory(sse.Context(), ref.Campaign, ref.Story)
			if err != nil {
				s.log.Warn("live preview reload failed", zap.String("story", hubKey(ref.Campaign, ref.Story)), zap.Error(err))
				continue
			}
			body := string(export.MarkdownHTML(export.Markdown(doc, export.Options{})))
			if strings.TrimSpace(body) == "" {
				continue
			}
			_ = sse.PatchElements(body, datastar.WithSelector("#story-preview"), datastar.WithMode(datastar.ElementPatchModeInner))
		}
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		return strings.Contains(origin, "://"+strings.TrimSpace(r.Host))
	},
}

type wsEvent struct {
	Type     string `json:"type"`
	Campaign string `json:"campaign"`
	Story    string `json:"story"`
	Removed  bool   `json:"removed,omitempty"`
}

// storyEvents pushes a JSON message per change of one story over a websocket.
func (s *Server) storyEvents(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		return
	}
	defer conn.Close()

	changes, cancel := s.hub.subscribe(ref.Campaign, ref.Story)
	defer cancel()

	// The client never sends anything useful; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(wsEvent{Type: "ready", Campaign: ref.Campaign, Story: ref.Story}); err != nil {
		return
	}

	ping := time.NewTicker(keepAliveInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case ch := <-changes:
			ev := wsEvent{Type: "changed", Campaign: ch.Campaign, Story: ch.Story, Removed: ch.Removed}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
