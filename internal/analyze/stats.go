package analyze

import (
	"math"
	"strings"
	"unicode/utf8"

	"storyloom/internal/model"
	"storyloom/internal/mutate"
	"storyloom/internal/refs"
)

// Titles that count as "not yet written".
var placeholderTitles = map[string]bool{
	mutate.DefaultNodeTitle: true,
	"Untitled":              true,
}

type Statistics struct {
	TotalNodes    int `json:"totalNodes"`
	MainNodes     int `json:"mainNodes"`
	BranchNodes   int `json:"branchNodes"`
	TotalBranches int `json:"totalBranches"`
	// AvgContentLength is the mean content length in characters, rounded.
	AvgContentLength int `json:"avgContentLength"`
	// CompletionRate is the rounded percentage of nodes with both title and content.
	CompletionRate int `json:"completionRate"`

	NodesWithBranches int      `json:"nodesWithBranches"`
	AvgBranches       float64  `json:"avgBranches"`
	MeaningfulNodes   int      `json:"meaningfulNodes"`
	EmptyTitleCount   int      `json:"emptyTitleCount"`
	EmptyContentCount int      `json:"emptyContentCount"`
	Orphans           []string `json:"orphans"`
}

func ComputeStatistics(s *model.Story) Statistics {
	st := Statistics{Orphans: []string{}}
	if s == nil || len(s.Nodes) == 0 {
		return st
	}
	var contentLen, complete int
	for _, n := range s.Nodes {
		switch n.Type {
		case model.NodeTypeMain:
			st.MainNodes++
			st.TotalBranches += len(n.Branches)
			if len(n.Branches) > 0 {
				st.NodesWithBranches++
			}
		case model.NodeTypeBranch:
			st.BranchNodes++
		}
		contentLen += utf8.RuneCountInString(n.Content)

		title := strings.TrimSpace(n.Title)
		hasTitle := title != ""
		hasContent := strings.TrimSpace(n.Content) != ""
		if hasTitle && hasContent {
			complete++
		}
		if hasTitle && !placeholderTitles[title] {
			st.MeaningfulNodes++
		} else {
			st.EmptyTitleCount++
		}
		if !hasContent {
			st.EmptyContentCount++
		}
	}
	total := len(s.Nodes)
	st.TotalNodes = total
	st.AvgContentLength = int(math.Round(float64(contentLen) / float64(total)))
	st.CompletionRate = int(math.Round(float64(complete) / float64(total) * 100))
	if st.NodesWithBranches > 0 {
		st.AvgBranches = math.Round(float64(st.TotalBranches)/float64(st.NodesWithBranches)*100) / 100
	}
	st.Orphans = Orphans(s)
	return st
}

// Orphans lists nodes, other than the first, that no next/entry/exit points at.
func Orphans(s *model.Story) []string {
	out := []string{}
	if s == nil || len(s.Nodes) < 2 {
		return out
	}
	referenced := refs.Referenced(s.Nodes)
	for _, n := range s.Nodes[1:] {
		if _, ok := referenced[n.ID]; !ok {
			out = append(out, n.ID)
		}
	}
	return out
}
