// Package cli wires the storyloom command tree.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storyloom/internal/config"
	"storyloom/internal/format"
	"storyloom/internal/logging"
	"storyloom/internal/store"
)

type App struct {
	Dir        string
	ConfigPath string
	Format     string
	PrettyJSON bool
	LogLevel   string

	cfg config.Config
	log *zap.Logger
	st  *store.Store
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "storyloom",
		Short:        "Branching story editor (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Create a campaign and a story
  storyloom campaigns create crypt
  storyloom story new crypt intro --title "The Crypt"

  # Edit interactively
  storyloom edit crypt intro

  # Scriptable edits
  storyloom node add crypt intro --type branch
  storyloom node set crypt intro node_02 --title "Vent" --next node_01
  storyloom undo crypt intro

  # Shortcut for: storyloom story show crypt intro
  storyloom crypt/intro
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand reopens the last edited story, if there is one.
			if len(args) == 0 && app.hasLastStory() {
				return runEdit(cmd, app, "", "", true)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init(cmd)
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app.log != nil {
			_ = app.log.Sync()
		}
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", "", "Data directory holding campaigns (default: discovered .storyloom root, else cwd; env STORYLOOM_DIR)")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Config file (YAML; default ~/.storyloom/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "Output format (json|yaml)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")

	cmd.AddCommand(newCampaignsCmd(app))
	cmd.AddCommand(newStoryCmd(app))
	cmd.AddCommand(newNodeCmd(app))
	cmd.AddCommand(newBranchCmd(app))
	cmd.AddCommand(newUndoCmd(app))
	cmd.AddCommand(newRedoCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// init merges config layers (defaults, file, env, flags) and builds the logger.
func (app *App) init(cmd *cobra.Command) error {
	cfg, err := config.Load(config.LoadOptions{
		Path:   app.ConfigPath,
		DotEnv: []string{".env"},
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	if app.Dir != "" {
		cfg.DataDir = app.Dir
	}
	if app.Format != "" {
		cfg.Format = app.Format
	}
	if app.PrettyJSON {
		cfg.Pretty = true
	}
	if app.LogLevel != "" {
		cfg.LogLevel = app.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg
	app.Format = cfg.Format
	app.PrettyJSON = cfg.Pretty

	log, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	app.log = log
	return nil
}

// openStore resolves the data dir and returns a store rooted there.
func (app *App) openStore() (*store.Store, error) {
	if app.st != nil {
		return app.st, nil
	}
	dir := strings.TrimSpace(app.cfg.DataDir)
	if dir == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	st, err := store.New(abs, app.cfg.CacheSize, store.WithLogger(app.log))
	if err != nil {
		return nil, err
	}
	app.Dir = abs
	app.st = st
	return st, nil
}

func (app *App) hasLastStory() bool {
	st, err := app.openStore()
	if err != nil {
		return false
	}
	state, err := st.LoadEditorState()
	return err == nil && state.Campaign != "" && state.Story != ""
}

func (app *App) logger() *zap.Logger {
	if app.log == nil {
		return zap.NewNop()
	}
	return app.log
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	for _, h := range hintsFor(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), "hint: "+h)
	}
	return err
}
