package model

import (
	"encoding/json"
	"strings"
)

// wireNode is the on-disk shape of a node.
//
// next is null when absent. branches is always present (possibly []) on main nodes and
// never present on branch nodes.
type wireNode struct {
	ID       string    `json:"id"`
	Type     NodeType  `json:"type"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Next     *string   `json:"next"`
	Branches *[]Branch `json:"branches,omitempty"`
}

func (n Node) MarshalJSON() ([]byte, error) {
	w := wireNode{
		ID:      n.ID,
		Type:    n.Type,
		Title:   n.Title,
		Content: n.Content,
	}
	if n.Next != "" {
		next := n.Next
		w.Next = &next
	}
	if n.Type == NodeTypeMain {
		branches := n.Branches
		if branches == nil {
			branches = []Branch{}
		}
		w.Branches = &branches
	}
	return json.Marshal(w)
}

func (n *Node) UnmarshalJSON(b []byte) error {
	var w wireNode
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*n = Node{
		ID:      w.ID,
		Type:    w.Type,
		Title:   w.Title,
		Content: w.Content,
	}
	// Older files omit type; those nodes load as main.
	if strings.TrimSpace(string(n.Type)) == "" {
		n.Type = NodeTypeMain
	}
	if w.Next != nil {
		n.Next = *w.Next
	}
	if w.Branches != nil {
		n.Branches = *w.Branches
	}
	if n.Type == NodeTypeMain && n.Branches == nil {
		n.Branches = []Branch{}
	}
	return nil
}

func (s Story) MarshalJSON() ([]byte, error) {
	type alias Story
	a := alias(s)
	if a.Nodes == nil {
		a.Nodes = []Node{}
	}
	return json.Marshal(a)
}

// ParseStory decodes a story document from its JSON wire format.
func ParseStory(b []byte) (*Story, error) {
	var s Story
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s.Nodes == nil {
		s.Nodes = []Node{}
	}
	return &s, nil
}
