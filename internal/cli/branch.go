package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"storyloom/internal/format"
	"storyloom/internal/mutate"
)

func newBranchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "branch",
		Aliases: []string{"choice"},
		Short:   "Choice commands for main nodes",
	}
	cmd.AddCommand(newBranchAddCmd(app))
	cmd.AddCommand(newBranchRmCmd(app))
	cmd.AddCommand(newBranchSetCmd(app))
	return cmd
}

// parseBranchNumber turns a 1-based choice number into an index.
func parseBranchNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errUsage("choice number must be a positive integer, got %q", s)
	}
	return n - 1, nil
}

func branchFieldsFromFlags(cmd *cobra.Command, choice, entry, exit *string) mutate.BranchFields {
	var f mutate.BranchFields
	if cmd.Flags().Changed("choice") {
		f.Choice = choice
	}
	if cmd.Flags().Changed("entry") {
		f.Entry = entry
	}
	if cmd.Flags().Changed("exit") {
		f.Exit = exit
	}
	return f
}

func newBranchAddCmd(app *App) *cobra.Command {
	var choice, entry, exit string

	cmd := &cobra.Command{
		Use:   "add <campaign> <story> <node-id>",
		Short: "Add a choice to a main node",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.editStory(cmd, args[0], args[1], func(s *storySession) (any, error) {
				br, idx, err := s.AddBranch(args[2])
				if err != nil {
					return nil, err
				}
				if f := branchFieldsFromFlags(cmd, &choice, &entry, &exit); f != (mutate.BranchFields{}) {
					if br, err = s.SetBranchFields(args[2], idx, f); err != nil {
						return nil, err
					}
				}
				return format.Envelope{Data: map[string]any{
					"node":   args[2],
					"number": idx + 1,
					"branch": br,
				}}, nil
			})
		},
	}
	cmd.Flags().StringVar(&choice, "choice", "", "Choice label")
	cmd.Flags().StringVar(&entry, "entry", "", "Node the choice leads to")
	cmd.Flags().StringVar(&exit, "exit", "", "Node the branch rejoins at")
	return cmd
}

func newBranchRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <campaign> <story> <node-id> <number>",
		Short: "Delete a choice (1-based)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseBranchNumber(args[3])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.editStory(cmd, args[0], args[1], func(s *storySession) (any, error) {
				ok, err := s.DeleteBranch(args[2], idx)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, mutate.NotFoundError{Kind: "choice", ID: args[2] + "#" + args[3]}
				}
				return format.Envelope{Data: map[string]any{"node": args[2], "deleted": idx + 1}}, nil
			})
		},
	}
}

func newBranchSetCmd(app *App) *cobra.Command {
	var choice, entry, exit string

	cmd := &cobra.Command{
		Use:   "set <campaign> <story> <node-id> <number>",
		Short: "Edit a choice's label, entry or exit",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseBranchNumber(args[3])
			if err != nil {
				return writeErr(cmd, err)
			}
			f := branchFieldsFromFlags(cmd, &choice, &entry, &exit)
			if f == (mutate.BranchFields{}) {
				return writeErr(cmd, errUsage("nothing to set; pass at least one of --choice, --entry, --exit"))
			}
			return app.editStory(cmd, args[0], args[1], func(s *storySession) (any, error) {
				br, err := s.SetBranchFields(args[2], idx, f)
				if err != nil {
					return nil, err
				}
				return format.Envelope{Data: br}, nil
			})
		},
	}
	cmd.Flags().StringVar(&choice, "choice", "", "Choice label")
	cmd.Flags().StringVar(&entry, "entry", "", "Node the choice leads to")
	cmd.Flags().StringVar(&exit, "exit", "", "Node the branch rejoins at")
	return cmd
}
