package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"storyloom/internal/format"
	"storyloom/internal/history"
)

var (
	errNothingToUndo = errors.New("nothing to undo")
	errNothingToRedo = errors.New("nothing to redo")
)

func newUndoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "undo <campaign> <story>",
		Short: "Revert the last node or choice edit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.editStory(cmd, args[0], args[1], func(s *storySession) (any, error) {
				cp, ok := s.Undo()
				if !ok {
					return nil, errNothingToUndo
				}
				return stepResult("undo", cp, s), nil
			})
		},
	}
}

func newRedoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "redo <campaign> <story>",
		Short: "Re-apply the last undone edit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.editStory(cmd, args[0], args[1], func(s *storySession) (any, error) {
				cp, ok := s.Redo()
				if !ok {
					return nil, errNothingToRedo
				}
				return stepResult("redo", cp, s), nil
			})
		},
	}
}

func stepResult(action string, cp history.Checkpoint, s *storySession) format.Envelope {
	undo, redo := s.HistoryLen()
	return format.Envelope{Data: map[string]any{
		"action":   action,
		"label":    cp.Label,
		"selected": s.Selected(),
		"undo":     undo,
		"redo":     redo,
	}}
}

type checkpointView struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	At    time.Time `json:"at"`
	Nodes int       `json:"nodes"`
}

func checkpointViews(cps []history.Checkpoint) []checkpointView {
	out := make([]checkpointView, 0, len(cps))
	// Newest first.
	for i := len(cps) - 1; i >= 0; i-- {
		cp := cps[i]
		out = append(out, checkpointView{ID: cp.ID, Label: cp.Label, At: cp.At, Nodes: len(cp.Snapshot.Nodes)})
	}
	return out
}

func newHistoryCmd(app *App) *cobra.Command {
	var forget bool

	cmd := &cobra.Command{
		Use:   "history <campaign> <story>",
		Short: "List undo/redo steps (newest first)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := app.openSession(ctx, args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()
			if forget {
				if err := s.db.Clear(ctx, args[0], args[1]); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, format.Envelope{Data: map[string]any{"cleared": true}})
			}
			undo, redo := s.HistoryStacks()
			return writeOut(cmd, app, format.Envelope{Data: map[string]any{
				"undo": checkpointViews(undo),
				"redo": checkpointViews(redo),
			}})
		},
	}
	cmd.Flags().BoolVar(&forget, "clear", false, "Forget the stored history")
	return cmd
}
