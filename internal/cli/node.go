package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"storyloom/internal/format"
	"storyloom/internal/model"
	"storyloom/internal/mutate"
)

func newNodeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "node",
		Aliases: []string{"nodes"},
		Short:   "Node commands (each edit is saved and can be undone)",
	}
	cmd.AddCommand(newNodeAddCmd(app))
	cmd.AddCommand(newNodeRmCmd(app))
	cmd.AddCommand(newNodeRenameCmd(app))
	cmd.AddCommand(newNodeSetCmd(app))
	cmd.AddCommand(newNodeMoveCmd(app))
	return cmd
}

func parseNodeType(s string) (model.NodeType, error) {
	t, ok := model.ParseNodeType(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", mutate.ErrInvalidNodeType, s)
	}
	return t, nil
}

func newNodeAddCmd(app *App) *cobra.Command {
	var (
		typ     string
		title   string
		content string
		next    string
	)

	cmd := &cobra.Command{
		Use:   "add <campaign> <story>",
		Short: "Append a node with a generated id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseNodeType(typ)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.editStory(cmd, args[0], args[1], func(s *storySession) (any, error) {
				n, err := s.AddNode(kind)
				if err != nil {
					return nil, err
				}
				var f mutate.NodeFields
				if cmd.Flags().Changed("title") {
					f.Title = &title
				}
				if cmd.Flags().Changed("content") {
					f.Content = &content
				}
				if cmd.Flags().Changed("next") {
					f.Next = &next
				}
				if f != (mutate.NodeFields{}) {
					res, err := s.SetNodeFields(n.ID, f)
					if err != nil {
						return nil, err
					}
					n = *res.Node
				}
				return format.Envelope{
					Data:  n,
					Hints: []string{"storyloom node set " + args[0] + " " + args[1] + " " + n.ID + " --title \"...\" --content \"...\""},
				}, nil
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "main", "Node type (main|branch)")
	cmd.Flags().StringVar(&title, "title", "", "Title (default \""+mutate.DefaultNodeTitle+"\")")
	cmd.Flags().StringVar(&content, "content", "", "Content")
	cmd.Flags().StringVar(&next, "next", "", "Next node id")
	return cmd
}

func newNodeRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <campaign> <story> <node-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a node and clear every reference to it",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[2]
			return app.editStory(cmd, args[0], args[1], func(s *storySession) (any, error) {
				ok, err := s.DeleteNode(id)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, errNodeNotFound(id)
				}
				return format.Envelope{
					Data:  map[string]any{"deleted": id},
					Hints: []string{"storyloom undo " + args[0] + " " + args[1]},
				}, nil
			})
		},
	}
}

func newNodeRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <campaign> <story> <old-id> <new-id>",
		Short: "Change a node id and repoint every reference",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.editStory(cmd, args[0], args[1], func(s *storySession) (any, error) {
				res, err := s.RenameNode(args[2], args[3])
				if err != nil {
					return nil, err
				}
				return format.Envelope{Data: map[string]any{
					"node":    res.Node,
					"updated": res.Updated,
				}}, nil
			})
		},
	}
}

func newNodeSetCmd(app *App) *cobra.Command {
	var (
		typ     string
		title   string
		content string
		next    string
	)

	cmd := &cobra.Command{
		Use:   "set <campaign> <story> <node-id>",
		Short: "Edit node fields (only a type change is an undo step)",
		Long: strings.TrimSpace(`
Edit node fields. Converting a main node to a branch node drops its choices;
converting a branch node to main gives it an empty choice list. Pass --next ""
to clear the successor.`),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f mutate.NodeFields
			if cmd.Flags().Changed("type") {
				t, err := parseNodeType(typ)
				if err != nil {
					return writeErr(cmd, err)
				}
				f.Type = &t
			}
			if cmd.Flags().Changed("title") {
				f.Title = &title
			}
			if cmd.Flags().Changed("content") {
				f.Content = &content
			}
			if cmd.Flags().Changed("next") {
				f.Next = &next
			}
			if f == (mutate.NodeFields{}) {
				return writeErr(cmd, errUsage("nothing to set; pass at least one of --type, --title, --content, --next"))
			}
			return app.editStory(cmd, args[0], args[1], func(s *storySession) (any, error) {
				res, err := s.SetNodeFields(args[2], f)
				if err != nil {
					return nil, err
				}
				out := format.Envelope{Data: res.Node}
				if res.DroppedBranches > 0 {
					out = out.Hint(fmt.Sprintf("dropped %d choice(s); restore them with: storyloom undo %s %s", res.DroppedBranches, args[0], args[1]))
				}
				return out, nil
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Node type (main|branch)")
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&content, "content", "", "Content")
	cmd.Flags().StringVar(&next, "next", "", "Next node id (empty clears)")
	return cmd
}

func newNodeMoveCmd(app *App) *cobra.Command {
	var to int

	cmd := &cobra.Command{
		Use:   "move <campaign> <story> <node-id>",
		Short: "Move a node to a new position (0-based, clamped)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.editStory(cmd, args[0], args[1], func(s *storySession) (any, error) {
				moved, err := s.MoveNode(args[2], to)
				if err != nil {
					return nil, err
				}
				return format.Envelope{Data: map[string]any{
					"moved": moved,
					"order": nodeOrder(s.Story()),
				}}, nil
			})
		},
	}
	cmd.Flags().IntVar(&to, "to", 0, "Target index")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func nodeOrder(doc *model.Story) []string {
	out := make([]string, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		out = append(out, n.ID)
	}
	return out
}
