package mutate

import (
	"fmt"
	"strings"

	"storyloom/internal/model"
	"storyloom/internal/refs"
)

// DefaultNodeTitle is the title given to freshly created nodes.
const DefaultNodeTitle = "New node"

// NextNodeID returns node_NN where NN is len(nodes)+1, advanced past any id already taken
// (ids can collide after manual renames).
func NextNodeID(s *model.Story) string {
	n := len(s.Nodes) + 1
	for {
		id := fmt.Sprintf("node_%02d", n)
		if !s.HasNode(id) {
			return id
		}
		n++
	}
}

// CreateNode appends a new node of the given kind and returns a pointer into s.Nodes.
// The pointer is only valid until the next structural mutation.
func CreateNode(s *model.Story, kind model.NodeType) (*model.Node, error) {
	if s == nil {
		return nil, ErrNilStory
	}
	if !kind.Valid() {
		return nil, ErrInvalidNodeType
	}
	node := model.Node{
		ID:    NextNodeID(s),
		Type:  kind,
		Title: DefaultNodeTitle,
	}
	if kind == model.NodeTypeMain {
		node.Branches = []model.Branch{}
	}
	s.Nodes = append(s.Nodes, node)
	return &s.Nodes[len(s.Nodes)-1], nil
}

// DeleteNode removes the node and clears every reference to it.
// It reports false (and does nothing) when id is not present.
func DeleteNode(s *model.Story, id string) bool {
	if s == nil {
		return false
	}
	idx := s.IndexOf(id)
	if idx < 0 {
		return false
	}
	s.Nodes = append(s.Nodes[:idx], s.Nodes[idx+1:]...)
	refs.CascadeClear(s.Nodes, id)
	return true
}

type RenameResult struct {
	Node *model.Node
	// Updated is the number of next/entry/exit fields repointed to the new id.
	Updated int
}

// RenameNode changes a node id and repoints references. A rename onto an id owned by a
// different node fails with *DuplicateIDError and leaves s untouched.
func RenameNode(s *model.Story, oldID, newID string) (RenameResult, error) {
	if s == nil {
		return RenameResult{}, ErrNilStory
	}
	newID = strings.TrimSpace(newID)
	if newID == "" {
		return RenameResult{}, ErrEmptyID
	}
	node, ok := s.FindNode(oldID)
	if !ok {
		return RenameResult{}, NotFoundError{Kind: "node", ID: oldID}
	}
	if newID == oldID {
		return RenameResult{Node: node}, nil
	}
	if s.HasNode(newID) {
		return RenameResult{}, &DuplicateIDError{ID: newID}
	}
	node.ID = newID
	n := refs.PropagateRename(s.Nodes, oldID, newID)
	return RenameResult{Node: node, Updated: n}, nil
}

// NodeFields holds the editable scalar fields of a node. Nil fields are left unchanged.
type NodeFields struct {
	Type    *model.NodeType
	Title   *string
	Content *string
	Next    *string
}

type SetNodeFieldsResult struct {
	Node        *model.Node
	TypeChanged bool
	// DroppedBranches is how many branches a main->branch conversion discarded.
	DroppedBranches int
}

// SetNodeFields applies the type conversion rule first, then the scalar updates.
// Callers mark the story dirty unconditionally.
func SetNodeFields(s *model.Story, id string, f NodeFields) (SetNodeFieldsResult, error) {
	if s == nil {
		return SetNodeFieldsResult{}, ErrNilStory
	}
	node, ok := s.FindNode(id)
	if !ok {
		return SetNodeFieldsResult{}, NotFoundError{Kind: "node", ID: id}
	}
	res := SetNodeFieldsResult{Node: node}

	if f.Type != nil {
		typ := *f.Type
		if !typ.Valid() {
			return SetNodeFieldsResult{}, ErrInvalidNodeType
		}
		if typ != node.Type {
			res.TypeChanged = true
			switch typ {
			case model.NodeTypeBranch:
				res.DroppedBranches = len(node.Branches)
				node.Branches = nil
			case model.NodeTypeMain:
				node.Branches = []model.Branch{}
			}
			node.Type = typ
		}
	}
	if f.Title != nil {
		node.Title = strings.TrimSpace(*f.Title)
	}
	if f.Content != nil {
		node.Content = strings.TrimSpace(*f.Content)
	}
	if f.Next != nil {
		node.Next = strings.TrimSpace(*f.Next)
	}
	return res, nil
}

// MoveNode moves a node so it ends up at index to (clamped to the valid range).
// It reports whether the order changed.
func MoveNode(s *model.Story, id string, to int) (bool, error) {
	if s == nil {
		return false, ErrNilStory
	}
	from := s.IndexOf(id)
	if from < 0 {
		return false, NotFoundError{Kind: "node", ID: id}
	}
	if to < 0 {
		to = 0
	}
	if to > len(s.Nodes)-1 {
		to = len(s.Nodes) - 1
	}
	if from == to {
		return false, nil
	}
	node := s.Nodes[from]
	s.Nodes = append(s.Nodes[:from], s.Nodes[from+1:]...)
	s.Nodes = append(s.Nodes[:to], append([]model.Node{node}, s.Nodes[to:]...)...)
	return true, nil
}
