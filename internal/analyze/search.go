package analyze

import (
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"

	"storyloom/internal/model"
)

type Hit struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Title string `json:"title"`
	// Score is only set by fuzzy search; higher is better.
	Score int `json:"score,omitempty"`
}

// nodeSource adapts story nodes to fuzzy.Source.
type nodeSource []model.Node

func (s nodeSource) String(i int) string {
	n := s[i]
	return n.ID + " " + n.Title + " " + n.Content
}

func (s nodeSource) Len() int { return len(s) }

// Search filters nodes on id, title and content. Plain search is a case-insensitive
// substring match in node order; fuzzy search ranks by match quality. An empty term
// matches every node.
func Search(s *model.Story, term string, useFuzzy bool) []Hit {
	if s == nil {
		return nil
	}
	term = strings.TrimSpace(term)
	out := []Hit{}
	if term == "" {
		for i, n := range s.Nodes {
			out = append(out, Hit{Index: i, ID: n.ID, Title: n.Title})
		}
		return out
	}
	if useFuzzy {
		for _, m := range fuzzy.FindFrom(term, nodeSource(s.Nodes)) {
			n := s.Nodes[m.Index]
			out = append(out, Hit{Index: m.Index, ID: n.ID, Title: n.Title, Score: m.Score})
		}
		return out
	}
	fold := cases.Fold()
	needle := fold.String(term)
	for i, n := range s.Nodes {
		if strings.Contains(fold.String(n.ID), needle) ||
			strings.Contains(fold.String(n.Title), needle) ||
			strings.Contains(fold.String(n.Content), needle) {
			out = append(out, Hit{Index: i, ID: n.ID, Title: n.Title})
		}
	}
	return out
}
