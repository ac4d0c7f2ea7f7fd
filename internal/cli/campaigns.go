package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"storyloom/internal/format"
)

func newCampaignsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "campaigns",
		Aliases: []string{"campaign"},
		Short:   "Campaign commands",
	}
	cmd.AddCommand(newCampaignsListCmd(app))
	cmd.AddCommand(newCampaignsCreateCmd(app))
	return cmd
}

func newCampaignsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openStore()
			if err != nil {
				return writeErr(cmd, err)
			}
			camps, err := st.ListCampaigns(commandContext(cmd))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: camps})
		},
	}
}

func newCampaignsCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openStore()
			if err != nil {
				return writeErr(cmd, err)
			}
			name := strings.TrimSpace(args[0])
			if err := st.CreateCampaign(commandContext(cmd), name); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{
				Data:  map[string]any{"campaign": name},
				Hints: []string{"storyloom story new " + name + " <story> --title \"...\""},
			})
		},
	}
}
