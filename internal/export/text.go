package export

import (
	"bytes"
	"fmt"
	"strings"

	"storyloom/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

func Text(doc *model.Story, opt Options) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("Story: " + doc.Title)
	writeLn("Generated: " + opt.now().Format(timeLayout))
	writeLn(fmt.Sprintf("Nodes: %d", len(doc.Nodes)))
	writeLn("")
	writeLn(strings.Repeat("=", 50))
	writeLn("")

	for i, n := range doc.Nodes {
		writeLn(fmt.Sprintf("%d. ID: %s", i+1, n.ID))
		writeLn("   Type: " + typeLabel(n.Type))
		writeLn("   Title: " + orDefault(n.Title, "Untitled"))
		writeLn("   Content: " + orDefault(n.Content, "(no content)"))
		if n.Next != "" {
			writeLn("   Next: " + n.Next)
		}
		if len(n.Branches) > 0 {
			writeLn("   Choices:")
			for j, br := range n.Branches {
				writeLn(fmt.Sprintf("     %d. %s → %s → %s", j+1, br.Choice, br.Entry, br.Exit))
			}
		}
		writeLn("")
		writeLn(strings.Repeat("-", 30))
		writeLn("")
	}
	return buf.String()
}

func Markdown(doc *model.Story, opt Options) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + doc.Title)
	writeLn("")
	writeLn("**Generated:** " + opt.now().Format(timeLayout) + "  ")
	writeLn(fmt.Sprintf("**Nodes:** %d", len(doc.Nodes)))
	writeLn("")

	for i, n := range doc.Nodes {
		writeLn(fmt.Sprintf("## %d. %s", i+1, n.ID))
		writeLn("")
		writeLn("**Type:** " + typeLabel(n.Type) + "  ")
		writeLn("**Title:** " + orDefault(n.Title, "Untitled") + "  ")
		writeLn("")
		if strings.TrimSpace(n.Content) != "" {
			writeLn("**Content:**")
			writeLn("")
			writeLn(n.Content)
			writeLn("")
		}
		if n.Next != "" {
			writeLn("**Next:** " + n.Next)
			writeLn("")
		}
		if len(n.Branches) > 0 {
			writeLn("**Choices:**")
			writeLn("")
			for j, br := range n.Branches {
				writeLn(fmt.Sprintf("%d. %s → %s → %s", j+1, br.Choice, br.Entry, br.Exit))
			}
			writeLn("")
		}
		writeLn("---")
		writeLn("")
	}
	return buf.String()
}
