package export

import (
	"bytes"
	"fmt"
	"strings"

	"storyloom/internal/model"
)

const (
	mainColor   = "#4CAF50"
	branchColor = "#2196F3"
	choiceColor = "#FF9800"
	exitColor   = "#9E9E9E"
)

// DOT renders the story graph for Graphviz. Edges to missing nodes are omitted.
func DOT(doc *model.Story) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	ids := doc.NodeIDs()
	writeLn("digraph Story {")
	writeLn("    rankdir=TB;")
	writeLn("    splines=ortho;")
	writeLn("    nodesep=0.6;")
	writeLn("    ranksep=0.8;")
	writeLn("")
	writeLn("    node [shape=box, style=filled, fontcolor=white];")
	writeLn("")

	for _, n := range doc.Nodes {
		color := mainColor
		if n.Type != model.NodeTypeMain {
			color = branchColor
		}
		label := dotEscape(n.Title) + `\n[` + dotEscape(n.ID) + `]`
		writeLn(fmt.Sprintf(`    "%s" [label="%s", fillcolor="%s"];`, dotEscape(n.ID), label, color))
	}
	writeLn("")

	for _, n := range doc.Nodes {
		if _, ok := ids[n.Next]; ok && n.Next != "" {
			writeLn(fmt.Sprintf(`    "%s" -> "%s";`, dotEscape(n.ID), dotEscape(n.Next)))
		}
	}
	writeLn("")

	for _, n := range doc.Nodes {
		if n.Type != model.NodeTypeMain {
			continue
		}
		for _, br := range n.Branches {
			_, entryOK := ids[br.Entry]
			_, exitOK := ids[br.Exit]
			if br.Entry != "" && entryOK {
				writeLn(fmt.Sprintf(`    "%s" -> "%s" [label="%s", color="%s"];`,
					dotEscape(n.ID), dotEscape(br.Entry), dotEscape(br.Choice), choiceColor))
			}
			if br.Entry != "" && br.Exit != "" && entryOK && exitOK {
				writeLn(fmt.Sprintf(`    "%s" -> "%s" [style=dashed, color="%s"];`,
					dotEscape(br.Entry), dotEscape(br.Exit), exitColor))
			}
		}
	}
	writeLn("}")
	return buf.String()
}

var dotReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func dotEscape(s string) string { return dotReplacer.Replace(s) }
