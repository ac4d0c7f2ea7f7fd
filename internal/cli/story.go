package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"storyloom/internal/analyze"
	"storyloom/internal/export"
	"storyloom/internal/format"
	"storyloom/internal/model"
	"storyloom/internal/store"
	"storyloom/internal/tui"
)

func newStoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "story",
		Aliases: []string{"stories"},
		Short:   "Story commands",
	}
	cmd.AddCommand(newStoryNewCmd(app))
	cmd.AddCommand(newStoryListCmd(app))
	cmd.AddCommand(newStoryShowCmd(app))
	cmd.AddCommand(newStoryTitleCmd(app))
	cmd.AddCommand(newStoryStatsCmd(app))
	cmd.AddCommand(newStoryValidateCmd(app))
	cmd.AddCommand(newStoryPathsCmd(app))
	cmd.AddCommand(newStorySearchCmd(app))
	cmd.AddCommand(newStoryExportCmd(app))
	return cmd
}

func newStoryNewCmd(app *App) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "new <campaign> <story>",
		Short: "Create a story with one opening node (creates the campaign if needed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			st, err := app.openStore()
			if err != nil {
				return writeErr(cmd, err)
			}
			campaign, name := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			if err := st.CreateCampaign(ctx, campaign); err != nil {
				return writeErr(cmd, err)
			}
			doc := store.NewStory(title)
			if err := st.CreateStory(ctx, campaign, name, doc); err != nil {
				return writeErr(cmd, err)
			}
			// A new file must not inherit history left by an older story of the same name.
			db, err := st.OpenSessionDB(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close()
			if err := db.Clear(ctx, campaign, name); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{
				Data: doc,
				Hints: []string{
					"storyloom edit " + campaign + " " + name,
					"storyloom node add " + campaign + " " + name + " --title \"...\"",
				},
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Story title")
	return cmd
}

func newStoryListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <campaign>",
		Short: "List stories in a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openStore()
			if err != nil {
				return writeErr(cmd, err)
			}
			stories, err := st.ListStories(commandContext(cmd), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: stories})
		},
	}
}

func newStoryShowCmd(app *App) *cobra.Command {
	var (
		nodeID string
		render bool
		width  int
	)

	cmd := &cobra.Command{
		Use:   "show <campaign> <story>",
		Short: "Show a story (or one node)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.loadStory(cmd, args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			if nodeID != "" {
				n, ok := doc.FindNode(nodeID)
				if !ok {
					return writeErr(cmd, errNodeNotFound(nodeID))
				}
				if render {
					return writeRendered(cmd.OutOrStdout(), nodeMarkdown(*n), width)
				}
				return writeOut(cmd, app, format.Envelope{Data: n})
			}
			if render {
				return writeRendered(cmd.OutOrStdout(), export.Markdown(doc, export.Options{}), width)
			}
			return writeOut(cmd, app, format.Envelope{Data: doc})
		},
	}
	cmd.Flags().StringVar(&nodeID, "node", "", "Only show this node")
	cmd.Flags().BoolVar(&render, "render", false, "Render as formatted terminal markdown instead of data")
	cmd.Flags().IntVar(&width, "width", 100, "Wrap width for --render")
	return cmd
}

func nodeMarkdown(n model.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", n.ID)
	fmt.Fprintf(&b, "**Type:** %s  \n**Title:** %s  \n**Next:** %s\n\n", n.Type, orNone(n.Title), orNone(n.Next))
	if strings.TrimSpace(n.Content) != "" {
		b.WriteString(n.Content)
		b.WriteString("\n\n")
	}
	for i, br := range n.Branches {
		fmt.Fprintf(&b, "%d. %s → %s → %s\n", i+1, orNone(br.Choice), orNone(br.Entry), orNone(br.Exit))
	}
	return b.String()
}

func writeRendered(w io.Writer, md string, width int) error {
	_, err := fmt.Fprintln(w, tui.RenderMarkdown(md, width))
	return err
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

func newStoryTitleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "title <campaign> <story> <title>",
		Short: "Set the story title",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.editStory(cmd, args[0], args[1], func(s *storySession) (any, error) {
				if err := s.SetTitle(strings.TrimSpace(args[2])); err != nil {
					return nil, err
				}
				return format.Envelope{Data: map[string]any{"title": s.Story().Title}}, nil
			})
		},
	}
}

func newStoryStatsCmd(app *App) *cobra.Command {
	var text bool

	cmd := &cobra.Command{
		Use:   "stats <campaign> <story>",
		Short: "Story statistics",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.loadStory(cmd, args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			stats := analyze.ComputeStatistics(doc)
			if text {
				_, err := io.WriteString(cmd.OutOrStdout(), statsText(doc, stats))
				return err
			}
			return writeOut(cmd, app, format.Envelope{Data: stats})
		},
	}
	cmd.Flags().BoolVar(&text, "text", false, "Print a human-readable summary")
	return cmd
}

func statsText(doc *model.Story, st analyze.Statistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story: %s\n", orNone(doc.Title))
	fmt.Fprintf(&b, "Nodes: %d (%d main, %d branch)\n", st.TotalNodes, st.MainNodes, st.BranchNodes)
	fmt.Fprintf(&b, "Choices: %d across %d node(s), %.2f per branching node\n", st.TotalBranches, st.NodesWithBranches, st.AvgBranches)
	fmt.Fprintf(&b, "Average content length: %d characters\n", st.AvgContentLength)
	fmt.Fprintf(&b, "Completion: %d%% (%d meaningful node(s))\n", st.CompletionRate, st.MeaningfulNodes)
	fmt.Fprintf(&b, "Empty titles: %d, empty content: %d\n", st.EmptyTitleCount, st.EmptyContentCount)
	if len(st.Orphans) > 0 {
		fmt.Fprintf(&b, "Orphans: %s\n", strings.Join(st.Orphans, ", "))
	}
	return b.String()
}

func newStoryValidateCmd(app *App) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <campaign> <story>",
		Short: "Check a story for structural errors and dangling references",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.loadStory(cmd, args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			rep := analyze.Validate(doc)
			if err := writeOut(cmd, app, format.Envelope{Data: rep}); err != nil {
				return err
			}
			if strict && !rep.Valid {
				return writeErr(cmd, fmt.Errorf("story has %d error(s)", rep.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when errors are found")
	return cmd
}

func newStoryPathsCmd(app *App) *cobra.Command {
	var (
		start string
		depth int
	)

	cmd := &cobra.Command{
		Use:   "paths <campaign> <story>",
		Short: "Enumerate complete paths through the story",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.loadStory(cmd, args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			if start != "" && !doc.HasNode(start) {
				return writeErr(cmd, errNodeNotFound(start))
			}
			if depth <= 0 {
				depth = app.cfg.MaxPathDepth
			}
			paths := analyze.EnumeratePathsFrom(doc, analyze.PathOptions{StartID: start, MaxDepth: depth})
			if paths == nil {
				paths = [][]string{}
			}
			return writeOut(cmd, app, format.Envelope{Data: paths})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start node id (default: first node)")
	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum path length (default from config)")
	return cmd
}

func newStorySearchCmd(app *App) *cobra.Command {
	var fuzzy bool

	cmd := &cobra.Command{
		Use:   "search <campaign> <story> <term>",
		Short: "Find nodes by id, title or content",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.loadStory(cmd, args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			hits := analyze.Search(doc, args[2], fuzzy)
			if hits == nil {
				hits = []analyze.Hit{}
			}
			return writeOut(cmd, app, format.Envelope{Data: hits})
		},
	}
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "Rank by fuzzy match instead of substring")
	return cmd
}

func newStoryExportCmd(app *App) *cobra.Command {
	var (
		as        string
		out       string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "export <campaign> <story>",
		Short: "Export a story (text|markdown|json|csv|dot|html)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(as)
			if err != nil {
				return writeErr(cmd, err)
			}
			doc, err := app.loadStory(cmd, args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := export.Render(doc, f, export.Options{})
			if err != nil {
				if errors.Is(err, export.ErrNotImplemented) {
					return writeErr(cmd, fmt.Errorf("%w; export dot and render it with graphviz instead", err))
				}
				return writeErr(cmd, err)
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(b)
				return err
			}
			if err := export.WriteFile(out, b, overwrite); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{
				Data: map[string]any{"path": out, "format": f, "bytes": len(b)},
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "markdown", "Export format")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing output file")
	return cmd
}
