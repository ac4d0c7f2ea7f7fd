// Package refs keeps next/entry/exit links consistent when a node is deleted or renamed.
//
// Both operations are full scans over the node list. Stories are small (tens to low
// hundreds of nodes), so no reverse index is maintained.
package refs

import "storyloom/internal/model"

// CascadeClear clears every next, entry and exit that names deletedID.
// Entry and exit are handled independently. It returns the number of fields cleared.
func CascadeClear(nodes []model.Node, deletedID string) int {
	if deletedID == "" {
		return 0
	}
	return rewrite(nodes, deletedID, "")
}

// PropagateRename repoints every next, entry and exit naming oldID to newID.
// It returns the number of fields updated.
func PropagateRename(nodes []model.Node, oldID, newID string) int {
	if oldID == "" || oldID == newID {
		return 0
	}
	return rewrite(nodes, oldID, newID)
}

func rewrite(nodes []model.Node, from, to string) int {
	n := 0
	for i := range nodes {
		node := &nodes[i]
		if node.Next == from {
			node.Next = to
			n++
		}
		for j := range node.Branches {
			br := &node.Branches[j]
			if br.Entry == from {
				br.Entry = to
				n++
			}
			if br.Exit == from {
				br.Exit = to
				n++
			}
		}
	}
	return n
}

// Ref is a single outgoing reference held by a node.
type Ref struct {
	From  string `json:"from"`
	Field string `json:"field"` // next|entry|exit
	// Branch is the 0-based branch index for entry/exit refs, -1 for next.
	Branch int    `json:"branch"`
	To     string `json:"to"`
}

// Outgoing lists every non-empty reference in document order.
func Outgoing(nodes []model.Node) []Ref {
	var out []Ref
	for _, node := range nodes {
		if node.Next != "" {
			out = append(out, Ref{From: node.ID, Field: "next", Branch: -1, To: node.Next})
		}
		for j, br := range node.Branches {
			if br.Entry != "" {
				out = append(out, Ref{From: node.ID, Field: "entry", Branch: j, To: br.Entry})
			}
			if br.Exit != "" {
				out = append(out, Ref{From: node.ID, Field: "exit", Branch: j, To: br.Exit})
			}
		}
	}
	return out
}

// Referenced returns the set of ids named by any next, entry or exit.
func Referenced(nodes []model.Node) map[string]struct{} {
	out := map[string]struct{}{}
	for _, r := range Outgoing(nodes) {
		out[r.To] = struct{}{}
	}
	return out
}
