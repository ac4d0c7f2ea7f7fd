// Package tui is the interactive terminal editor for a single story.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"storyloom/internal/editor"
)

type Options struct {
	Session *editor.Session
	// AutosaveInterval > 0 saves a dirty story on that cadence while the editor runs.
	AutosaveInterval time.Duration
	ShowPreview      bool
	Logger           *zap.Logger
}

// Result is the UI state worth remembering for the next launch.
type Result struct {
	SelectedID  string
	ShowPreview bool
}

func Run(ctx context.Context, opts Options) (Result, error) {
	applyColorProfilePreference()
	applyThemePreference()

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	m := newAppModel(ctx, opts.Session, opts.ShowPreview)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.AutosaveInterval > 0 {
		auto := editor.NewAutosaver(opts.Session, editor.AutosaverOpts{
			Interval: opts.AutosaveInterval,
			Logger:   log,
			OnSave:   func(err error) { p.Send(autosavedMsg{err: err}) },
		})
		auto.Start()
		defer auto.Stop()
	}

	final, err := p.Run()
	res := Result{SelectedID: opts.Session.Selected(), ShowPreview: opts.ShowPreview}
	if fm, ok := final.(appModel); ok {
		res.ShowPreview = fm.showPreview
	}
	return res, err
}
