package cli

import (
	"context"

	"github.com/spf13/cobra"

	"storyloom/internal/editor"
	"storyloom/internal/history"
	"storyloom/internal/model"
	"storyloom/internal/store"
)

// storySession is an editor session for one story whose undo history lives in the
// session database between invocations.
type storySession struct {
	*editor.Session

	db       *store.SessionDB
	campaign string
	story    string
}

func (app *App) openSession(ctx context.Context, campaign, story string) (*storySession, error) {
	st, err := app.openStore()
	if err != nil {
		return nil, err
	}
	sess := editor.NewSession(st, editor.Options{
		HistoryCap:   app.cfg.HistoryCap,
		MaxPathDepth: app.cfg.MaxPathDepth,
		Logger:       app.logger(),
	})
	if err := sess.Open(ctx, campaign, story, false); err != nil {
		return nil, err
	}
	db, err := st.OpenSessionDB(ctx)
	if err != nil {
		return nil, err
	}
	state, err := db.Load(ctx, campaign, story)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	sess.RestoreHistory(app.cfg.HistoryCap, state.Undo, state.Redo, state.SelectedID)
	return &storySession{Session: sess, db: db, campaign: campaign, story: story}, nil
}

// commit writes the story if it changed, then the history.
func (s *storySession) commit(ctx context.Context) error {
	if s.Dirty() {
		if err := s.Save(ctx); err != nil {
			return err
		}
	}
	undo, redo := s.HistoryStacks()
	return s.db.Save(ctx, s.campaign, s.story, sessionState(undo, redo, s.Selected()))
}

func sessionState(undo, redo []history.Checkpoint, selected string) store.SessionState {
	return store.SessionState{Undo: undo, Redo: redo, SelectedID: selected}
}

func (s *storySession) Close() error {
	return s.db.Close()
}

// editStory runs fn in a session, commits on success and prints fn's result.
func (app *App) editStory(cmd *cobra.Command, campaign, story string, fn func(s *storySession) (any, error)) error {
	ctx := commandContext(cmd)
	s, err := app.openSession(ctx, campaign, story)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer s.Close()

	out, err := fn(s)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := s.commit(ctx); err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, out)
}

// loadStory opens a story read-only.
func (app *App) loadStory(cmd *cobra.Command, campaign, story string) (*model.Story, error) {
	st, err := app.openStore()
	if err != nil {
		return nil, err
	}
	return st.LoadStory(commandContext(cmd), campaign, story)
}
