package model

import "strings"

type NodeType string

const (
	NodeTypeMain   NodeType = "main"
	NodeTypeBranch NodeType = "branch"
)

func (t NodeType) Valid() bool {
	return t == NodeTypeMain || t == NodeTypeBranch
}

// ParseNodeType accepts the canonical names plus a few aliases used on the command line.
func ParseNodeType(s string) (NodeType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "main", "mainline", "m":
		return NodeTypeMain, true
	case "branch", "b":
		return NodeTypeBranch, true
	default:
		return "", false
	}
}

// Story is a branching story document. Node order is significant: it is the display order
// and the default start for path enumeration.
type Story struct {
	Title string `json:"title"`
	Nodes []Node `json:"nodes"`
}

// Node is a unit of narrative content.
//
// Next == "" means there is no successor. Only main nodes own branches; see the wire
// format in wire.go for how the distinction is kept on disk.
type Node struct {
	ID       string
	Type     NodeType
	Title    string
	Content  string
	Next     string
	Branches []Branch
}

// Branch is a labeled choice owned by a main node.
type Branch struct {
	Choice string `json:"choice"`
	Entry  string `json:"entry"`
	Exit   string `json:"exit"`
}

func (n *Node) IsMain() bool { return n != nil && n.Type == NodeTypeMain }

func (s *Story) FindNode(id string) (*Node, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

func (s *Story) IndexOf(id string) int {
	if s == nil {
		return -1
	}
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Story) HasNode(id string) bool {
	return s.IndexOf(id) >= 0
}

// NodeIDs returns the set of ids currently present.
func (s *Story) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}

// Clone returns a deep copy. Every field is copied explicitly so snapshots never share
// backing arrays with the live document.
func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	out := &Story{Title: s.Title}
	if s.Nodes != nil {
		out.Nodes = make([]Node, len(s.Nodes))
		for i := range s.Nodes {
			out.Nodes[i] = s.Nodes[i].Clone()
		}
	}
	return out
}

func (n Node) Clone() Node {
	out := Node{
		ID:      n.ID,
		Type:    n.Type,
		Title:   n.Title,
		Content: n.Content,
		Next:    n.Next,
	}
	if n.Branches != nil {
		out.Branches = make([]Branch, len(n.Branches))
		copy(out.Branches, n.Branches)
	}
	return out
}
