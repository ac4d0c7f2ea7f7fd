package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	MoveUp     key.Binding
	MoveDown   key.Binding
	AddMain    key.Binding
	AddBranch  key.Binding
	Delete     key.Binding
	Rename     key.Binding
	EditTitle  key.Binding
	EditBody   key.Binding
	EditNext   key.Binding
	ToggleType key.Binding
	NewChoice  key.Binding
	DropChoice key.Binding
	NextChoice key.Binding
	EditChoice key.Binding
	StoryTitle key.Binding
	Undo       key.Binding
	Redo       key.Binding
	Save       key.Binding
	Preview    key.Binding
	Issues     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		MoveUp:     key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("K", "move up")),
		MoveDown:   key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("J", "move down")),
		AddMain:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add main")),
		AddBranch:  key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "add branch node")),
		Delete:     key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Rename:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename id")),
		EditTitle:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "title")),
		EditBody:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "content")),
		EditNext:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		ToggleType: key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "toggle type")),
		NewChoice:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "add choice")),
		DropChoice: key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "drop choice")),
		NextChoice: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next choice")),
		EditChoice: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "edit choice")),
		StoryTitle: key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "story title")),
		Undo:       key.NewBinding(key.WithKeys("u", "ctrl+z"), key.WithHelp("u", "undo")),
		Redo:       key.NewBinding(key.WithKeys("ctrl+r", "ctrl+y"), key.WithHelp("ctrl+r", "redo")),
		Save:       key.NewBinding(key.WithKeys("s", "ctrl+s"), key.WithHelp("s", "save")),
		Preview:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview")),
		Issues:     key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "issues")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.AddMain, k.Delete, k.EditTitle, k.EditBody, k.Undo, k.Save, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.MoveUp, k.MoveDown},
		{k.AddMain, k.AddBranch, k.Delete, k.Rename, k.ToggleType},
		{k.EditTitle, k.EditBody, k.EditNext, k.StoryTitle},
		{k.NewChoice, k.NextChoice, k.EditChoice, k.DropChoice},
		{k.Undo, k.Redo, k.Save, k.Preview, k.Issues, k.Help, k.Quit},
	}
}
