package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"storyloom/internal/editor"
	"storyloom/internal/model"
	"storyloom/internal/mutate"
)

type mode int

const (
	modeBrowse mode = iota
	modePrompt
	modeConfirmDelete
	modeConfirmQuit
)

type promptKind int

const (
	promptRename promptKind = iota
	promptTitle
	promptContent
	promptNext
	promptChoice
	promptStoryTitle
)

func (k promptKind) label() string {
	switch k {
	case promptRename:
		return "ID"
	case promptTitle:
		return "Title"
	case promptContent:
		return "Content"
	case promptNext:
		return "Next"
	case promptChoice:
		return "Choice | entry | exit"
	case promptStoryTitle:
		return "Story title"
	default:
		return ""
	}
}

type savedMsg struct {
	err  error
	quit bool
}

type autosavedMsg struct {
	err error
}

type appModel struct {
	ctx     context.Context
	session *editor.Session

	keys   keyMap
	help   help.Model
	input  textinput.Model
	detail viewport.Model

	mode   mode
	prompt promptKind
	// branchIdx is the highlighted choice of the selected node.
	branchIdx int

	width  int
	height int

	showPreview bool
	showIssues  bool

	status    string
	statusErr bool
}

func newAppModel(ctx context.Context, s *editor.Session, showPreview bool) appModel {
	in := textinput.New()
	in.CharLimit = 4000
	in.Prompt = "> "

	m := appModel{
		ctx:         ctx,
		session:     s,
		keys:        defaultKeyMap(),
		help:        help.New(),
		input:       in,
		detail:      viewport.New(40, 10),
		showPreview: showPreview,
		width:       100,
		height:      30,
	}
	if doc := s.Story(); doc != nil && len(doc.Nodes) > 0 && !doc.HasNode(s.Selected()) {
		_ = s.Select(doc.Nodes[0].ID)
	}
	m.layout()
	return m
}

func (m appModel) Init() tea.Cmd {
	return nil
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	return m, cmd
}

func (m *appModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.layout()
		return nil

	case savedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("save failed: %w", msg.err))
			m.mode = modeBrowse
			return nil
		}
		m.setStatus("saved")
		if msg.quit {
			return tea.Quit
		}
		return nil

	case autosavedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("autosave failed: %w", msg.err))
		} else {
			m.setStatus("autosaved")
		}
		return nil

	case tea.KeyMsg:
		switch m.mode {
		case modePrompt:
			return m.updatePrompt(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		case modeConfirmQuit:
			return m.updateConfirmQuit(msg)
		default:
			return m.updateBrowse(msg)
		}
	}

	if m.mode == modePrompt {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return cmd
	}
	return nil
}

func (m *appModel) updateBrowse(msg tea.KeyMsg) tea.Cmd {
	sel := m.session.Selected()
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.session.Dirty() {
			m.mode = modeConfirmQuit
			return nil
		}
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)

	case key.Matches(msg, m.keys.MoveUp), key.Matches(msg, m.keys.MoveDown):
		if sel == "" {
			return nil
		}
		delta := 1
		if key.Matches(msg, m.keys.MoveUp) {
			delta = -1
		}
		idx := m.session.Story().IndexOf(sel)
		if _, err := m.session.MoveNode(sel, idx+delta); err != nil {
			m.setError(err)
		}

	case key.Matches(msg, m.keys.AddMain), key.Matches(msg, m.keys.AddBranch):
		kind := model.NodeTypeMain
		if key.Matches(msg, m.keys.AddBranch) {
			kind = model.NodeTypeBranch
		}
		n, err := m.session.AddNode(kind)
		if err != nil {
			m.setError(err)
			break
		}
		m.branchIdx = 0
		m.setStatus("added " + n.ID)

	case key.Matches(msg, m.keys.Delete):
		if sel != "" {
			m.mode = modeConfirmDelete
		}

	case key.Matches(msg, m.keys.Rename):
		if sel != "" {
			return m.startPrompt(promptRename, sel)
		}
	case key.Matches(msg, m.keys.EditTitle):
		if n, ok := m.selectedNode(); ok {
			return m.startPrompt(promptTitle, n.Title)
		}
	case key.Matches(msg, m.keys.EditBody):
		if n, ok := m.selectedNode(); ok {
			return m.startPrompt(promptContent, n.Content)
		}
	case key.Matches(msg, m.keys.EditNext):
		if n, ok := m.selectedNode(); ok {
			return m.startPrompt(promptNext, n.Next)
		}
	case key.Matches(msg, m.keys.StoryTitle):
		if doc := m.session.Story(); doc != nil {
			return m.startPrompt(promptStoryTitle, doc.Title)
		}

	case key.Matches(msg, m.keys.ToggleType):
		n, ok := m.selectedNode()
		if !ok {
			break
		}
		to := model.NodeTypeBranch
		if n.Type == model.NodeTypeBranch {
			to = model.NodeTypeMain
		}
		res, err := m.session.SetNodeFields(sel, mutate.NodeFields{Type: &to})
		if err != nil {
			m.setError(err)
			break
		}
		m.branchIdx = 0
		if res.DroppedBranches > 0 {
			m.setStatus(fmt.Sprintf("%s is now %s; dropped %d choice(s)", sel, to, res.DroppedBranches))
		} else {
			m.setStatus(fmt.Sprintf("%s is now %s", sel, to))
		}

	case key.Matches(msg, m.keys.NewChoice):
		if sel == "" {
			break
		}
		_, idx, err := m.session.AddBranch(sel)
		if err != nil {
			m.setError(err)
			break
		}
		m.branchIdx = idx
	case key.Matches(msg, m.keys.NextChoice):
		if n, ok := m.selectedNode(); ok && len(n.Branches) > 0 {
			m.branchIdx = (m.branchIdx + 1) % len(n.Branches)
		}
	case key.Matches(msg, m.keys.EditChoice):
		n, ok := m.selectedNode()
		if !ok || m.branchIdx >= len(n.Branches) {
			break
		}
		br := n.Branches[m.branchIdx]
		return m.startPrompt(promptChoice, br.Choice+" | "+br.Entry+" | "+br.Exit)
	case key.Matches(msg, m.keys.DropChoice):
		if sel == "" {
			break
		}
		if ok, err := m.session.DeleteBranch(sel, m.branchIdx); err != nil {
			m.setError(err)
		} else if ok && m.branchIdx > 0 {
			m.branchIdx--
		}

	case key.Matches(msg, m.keys.Undo):
		if cp, ok := m.session.Undo(); ok {
			m.setStatus("undo: " + cp.Label)
		} else {
			m.setStatus("nothing to undo")
		}
		m.branchIdx = 0
	case key.Matches(msg, m.keys.Redo):
		if cp, ok := m.session.Redo(); ok {
			m.setStatus("redo: " + cp.Label)
		} else {
			m.setStatus("nothing to redo")
		}
		m.branchIdx = 0

	case key.Matches(msg, m.keys.Save):
		m.setStatus("saving…")
		return m.saveCmd(false)

	case key.Matches(msg, m.keys.Preview):
		m.showPreview = !m.showPreview
	case key.Matches(msg, m.keys.Issues):
		m.showIssues = !m.showIssues

	case msg.String() == "pgdown":
		m.detail.HalfViewDown()
		return nil
	case msg.String() == "pgup":
		m.detail.HalfViewUp()
		return nil
	}
	m.syncDetail()
	return nil
}

func (m *appModel) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		m.setStatus("cancelled")
		return nil
	case tea.KeyEnter:
		m.mode = modeBrowse
		m.input.Blur()
		if err := m.commitPrompt(m.input.Value()); err != nil {
			m.setError(err)
		}
		m.syncDetail()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *appModel) commitPrompt(val string) error {
	sel := m.session.Selected()
	switch m.prompt {
	case promptRename:
		res, err := m.session.RenameNode(sel, val)
		if err != nil {
			return err
		}
		m.setStatus(fmt.Sprintf("renamed to %s (%d reference(s) updated)", res.Node.ID, res.Updated))
	case promptTitle:
		_, err := m.session.SetNodeFields(sel, mutate.NodeFields{Title: &val})
		return err
	case promptContent:
		// Single-line input; a literal \n becomes a line break.
		body := strings.ReplaceAll(val, `\n`, "\n")
		_, err := m.session.SetNodeFields(sel, mutate.NodeFields{Content: &body})
		return err
	case promptNext:
		next := strings.TrimSpace(val)
		_, err := m.session.SetNodeFields(sel, mutate.NodeFields{Next: &next})
		return err
	case promptChoice:
		choice, entry, exit := splitChoice(val)
		_, err := m.session.SetBranchFields(sel, m.branchIdx, mutate.BranchFields{
			Choice: &choice,
			Entry:  &entry,
			Exit:   &exit,
		})
		return err
	case promptStoryTitle:
		return m.session.SetTitle(strings.TrimSpace(val))
	}
	return nil
}

// splitChoice parses "choice | entry | exit"; missing parts are empty.
func splitChoice(val string) (choice, entry, exit string) {
	parts := strings.SplitN(val, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
}

func (m *appModel) updateConfirmDelete(msg tea.KeyMsg) tea.Cmd {
	m.mode = modeBrowse
	if msg.String() != "y" && msg.String() != "Y" {
		m.setStatus("delete cancelled")
		return nil
	}
	sel := m.session.Selected()
	idx := m.session.Story().IndexOf(sel)
	if _, err := m.session.DeleteNode(sel); err != nil {
		m.setError(err)
		return nil
	}
	if doc := m.session.Story(); doc != nil && len(doc.Nodes) > 0 {
		if idx >= len(doc.Nodes) {
			idx = len(doc.Nodes) - 1
		}
		_ = m.session.Select(doc.Nodes[idx].ID)
	}
	m.branchIdx = 0
	m.setStatus("deleted " + sel)
	m.syncDetail()
	return nil
}

func (m *appModel) updateConfirmQuit(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y", "s":
		m.setStatus("saving…")
		return m.saveCmd(true)
	case "n", "N":
		return tea.Quit
	default:
		m.mode = modeBrowse
		m.setStatus("")
		return nil
	}
}

func (m *appModel) startPrompt(kind promptKind, value string) tea.Cmd {
	m.mode = modePrompt
	m.prompt = kind
	if kind == promptContent {
		value = strings.ReplaceAll(value, "\n", `\n`)
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Prompt = kind.label() + ": "
	m.input.Width = max(10, m.width-len(m.input.Prompt)-4)
	return m.input.Focus()
}

func (m *appModel) saveCmd(quit bool) tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		return savedMsg{err: s.Save(ctx), quit: quit}
	}
}

func (m *appModel) moveSelection(delta int) {
	doc := m.session.Story()
	if doc == nil || len(doc.Nodes) == 0 {
		return
	}
	idx := doc.IndexOf(m.session.Selected()) + delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(doc.Nodes) {
		idx = len(doc.Nodes) - 1
	}
	_ = m.session.Select(doc.Nodes[idx].ID)
	m.branchIdx = 0
}

func (m *appModel) selectedNode() (model.Node, bool) {
	doc := m.session.Story()
	n, ok := doc.FindNode(m.session.Selected())
	if !ok {
		return model.Node{}, false
	}
	return *n, true
}

func (m *appModel) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *appModel) setError(err error) {
	var dup *mutate.DuplicateIDError
	switch {
	case errors.As(err, &dup):
		m.status = fmt.Sprintf("id %q is already taken", dup.ID)
	case errors.Is(err, mutate.ErrEmptyID):
		m.status = "id cannot be empty"
	default:
		m.status = err.Error()
	}
	m.statusErr = true
}
