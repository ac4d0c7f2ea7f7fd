package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"storyloom/internal/analyze"
	"storyloom/internal/model"
)

const (
	minListWidth = 24
	maxListWidth = 44
)

func (m *appModel) listWidth() int {
	w := m.width / 3
	if w < minListWidth {
		w = minListWidth
	}
	if w > maxListWidth {
		w = maxListWidth
	}
	return w
}

// bodyHeight is the inner height of both panes.
func (m *appModel) bodyHeight() int {
	footer := 2 + lipgloss.Height(m.help.View(m.keys))
	h := m.height - 1 - footer - 2
	if h < 3 {
		h = 3
	}
	return h
}

func (m *appModel) layout() {
	// Pane borders and padding take four columns each.
	w := m.width - m.listWidth() - 8
	if w < 10 {
		w = 10
	}
	m.detail.Width = w
	m.detail.Height = m.bodyHeight()
	m.syncDetail()
}

func (m *appModel) syncDetail() {
	m.detail.SetContent(m.renderDetail(m.detail.Width))
}

func (m appModel) View() string {
	header := m.renderHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		stylePane(true).Width(m.listWidth()).Height(m.bodyHeight()).Render(m.renderList(m.listWidth(), m.bodyHeight())),
		stylePane(false).Render(m.detail.View()),
	)
	return strings.Join([]string{header, body, m.renderFooterLine(), m.help.View(m.keys)}, "\n")
}

func (m *appModel) renderHeader() string {
	doc := m.session.Story()
	if doc == nil {
		return styleHeader().Render("storyloom")
	}
	title := doc.Title
	if strings.TrimSpace(title) == "" {
		title = "(untitled)"
	}
	dirty := ""
	if m.session.Dirty() {
		dirty = " ●"
	}
	undo, redo := m.session.HistoryLen()
	meta := fmt.Sprintf("  %s/%s  %d nodes  undo %d  redo %d", m.session.Campaign(), m.session.Name(), len(doc.Nodes), undo, redo)
	line := styleHeader().Render(title+dirty) + styleMuted().Render(meta)
	return xansi.Truncate(line, m.width, "…")
}

func (m *appModel) renderList(width, height int) string {
	doc := m.session.Story()
	if doc == nil || len(doc.Nodes) == 0 {
		return styleMuted().Render("No nodes. Press a to add one.")
	}
	sel := doc.IndexOf(m.session.Selected())
	start := 0
	if sel >= height {
		start = sel - height + 1
	}
	end := min(len(doc.Nodes), start+height)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		n := doc.Nodes[i]
		marker := "M"
		if n.Type == model.NodeTypeBranch {
			marker = "B"
		}
		title := n.Title
		if strings.TrimSpace(title) == "" {
			title = "(no title)"
		}
		text := fmt.Sprintf("%s %s", n.ID, title)
		text = xansi.Truncate(text, width-4, "…")
		if i == sel {
			pad := width - 4 - xansi.StringWidth(text)
			if pad > 0 {
				text += strings.Repeat(" ", pad)
			}
			lines = append(lines, styleNodeType(n.IsMain()).Render(marker)+" "+styleSelected().Render(text))
			continue
		}
		lines = append(lines, styleNodeType(n.IsMain()).Render(marker)+" "+text)
	}
	return strings.Join(lines, "\n")
}

func (m *appModel) renderDetail(width int) string {
	doc := m.session.Story()
	n, ok := doc.FindNode(m.session.Selected())
	var b strings.Builder
	if !ok {
		b.WriteString(styleMuted().Render("Nothing selected."))
	} else {
		writeNodeDetail(&b, *n, m.branchIdx, m.showPreview, width)
	}
	if m.showIssues {
		b.WriteString("\n\n")
		writeIssues(&b, analyze.DetectIssues(doc), width)
	}
	return b.String()
}

func writeNodeDetail(b *strings.Builder, n model.Node, branchIdx int, preview bool, width int) {
	b.WriteString(styleHeader().Render(n.ID))
	b.WriteString("  ")
	b.WriteString(styleNodeType(n.IsMain()).Render(string(n.Type)))
	b.WriteString("\n\n")

	label := styleMuted()
	fmt.Fprintf(b, "%s %s\n", label.Render("Title:"), orNone(n.Title))
	fmt.Fprintf(b, "%s %s\n\n", label.Render("Next: "), orNone(n.Next))

	b.WriteString(label.Render("Content:"))
	b.WriteString("\n")
	switch {
	case strings.TrimSpace(n.Content) == "":
		b.WriteString(styleMuted().Render("(empty)"))
	case preview:
		b.WriteString(RenderMarkdown(n.Content, width))
	default:
		b.WriteString(lipgloss.NewStyle().Width(width).Render(n.Content))
	}
	b.WriteString("\n")

	if !n.IsMain() {
		return
	}
	b.WriteString("\n")
	b.WriteString(label.Render(fmt.Sprintf("Choices (%d):", len(n.Branches))))
	for i, br := range n.Branches {
		line := fmt.Sprintf("%d. %s → %s → %s", i+1, orNone(br.Choice), orNone(br.Entry), orNone(br.Exit))
		line = xansi.Truncate(line, width-2, "…")
		if i == branchIdx {
			line = styleSelected().Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
}

func writeIssues(b *strings.Builder, issues []analyze.Issue, width int) {
	w, e := analyze.Count(issues)
	b.WriteString(styleMuted().Render(fmt.Sprintf("Issues: %d error(s), %d warning(s)", e, w)))
	for _, is := range issues {
		st := lipgloss.NewStyle().Foreground(colorWarn)
		if is.Severity == analyze.SeverityError {
			st = lipgloss.NewStyle().Foreground(colorError)
		}
		b.WriteString("\n")
		b.WriteString(st.Render(xansi.Truncate(is.String(), width, "…")))
	}
}

func (m *appModel) renderFooterLine() string {
	var line string
	switch m.mode {
	case modePrompt:
		line = m.input.View()
	case modeConfirmDelete:
		line = styleStatus(true).Render(fmt.Sprintf("Delete %s and clear references to it? (y/N)", m.session.Selected()))
	case modeConfirmQuit:
		line = styleStatus(true).Render("Unsaved changes. Save before quitting? (y)es / (n)o / esc")
	default:
		line = styleStatus(m.statusErr).Render(m.status)
	}
	return xansi.Truncate(line, max(m.width, 10), "…")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
