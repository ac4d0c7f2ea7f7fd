package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storyloom/internal/tui"
)

func newEditCmd(app *App) *cobra.Command {
	var noAutosave bool

	cmd := &cobra.Command{
		Use:   "edit [<campaign> <story>]",
		Short: "Open the interactive editor (default: the last edited story)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return errUsage("expected <campaign> <story> or no arguments")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			campaign, story := "", ""
			if len(args) == 2 {
				campaign, story = args[0], args[1]
			}
			return runEdit(cmd, app, campaign, story, !noAutosave)
		},
	}
	cmd.Flags().BoolVar(&noAutosave, "no-autosave", false, "Disable periodic saving")
	return cmd
}

func runEdit(cmd *cobra.Command, app *App, campaign, story string, autosave bool) error {
	ctx := commandContext(cmd)
	st, err := app.openStore()
	if err != nil {
		return writeErr(cmd, err)
	}
	state, err := st.LoadEditorState()
	if err != nil {
		return writeErr(cmd, err)
	}
	if campaign == "" {
		if state.Campaign == "" || state.Story == "" {
			return writeErr(cmd, errors.New("no story to reopen; run: storyloom edit <campaign> <story>"))
		}
		campaign, story = state.Campaign, state.Story
	}

	s, err := app.openSession(ctx, campaign, story)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer s.Close()

	sameStory := state.Campaign == campaign && state.Story == story
	if sameStory && s.Selected() == "" && state.SelectedNodeID != "" {
		_ = s.Select(state.SelectedNodeID)
	}

	opts := tui.Options{
		Session:     s.Session,
		ShowPreview: sameStory && state.ShowPreview,
		Logger:      app.logger(),
	}
	if autosave {
		opts.AutosaveInterval = app.cfg.AutosaveInterval
	}
	res, runErr := tui.Run(ctx, opts)

	// The editor already saved (or the user declined to); keep only the history here.
	undo, redo := s.HistoryStacks()
	if err := s.db.Save(ctx, campaign, story, sessionState(undo, redo, res.SelectedID)); err != nil {
		app.logger().Warn("persist history failed", zap.Error(err))
	}
	state.TouchRecent(campaign, story)
	state.SelectedNodeID = res.SelectedID
	state.ShowPreview = res.ShowPreview
	if err := st.SaveEditorState(state); err != nil {
		app.logger().Warn("persist editor state failed", zap.Error(err))
	}
	if runErr != nil {
		return writeErr(cmd, runErr)
	}
	return nil
}
