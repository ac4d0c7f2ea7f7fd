package mutate

import (
	"fmt"
	"strings"

	"storyloom/internal/model"
)

func mainNode(s *model.Story, id string) (*model.Node, error) {
	if s == nil {
		return nil, ErrNilStory
	}
	node, ok := s.FindNode(id)
	if !ok {
		return nil, NotFoundError{Kind: "node", ID: id}
	}
	if node.Type != model.NodeTypeMain {
		return nil, &NotMainNodeError{NodeID: node.ID, Type: string(node.Type)}
	}
	return node, nil
}

// AddBranch appends a branch labeled "Choice N" with empty entry and exit.
func AddBranch(s *model.Story, nodeID string) (*model.Branch, error) {
	node, err := mainNode(s, nodeID)
	if err != nil {
		return nil, err
	}
	node.Branches = append(node.Branches, model.Branch{
		Choice: fmt.Sprintf("Choice %d", len(node.Branches)+1),
	})
	return &node.Branches[len(node.Branches)-1], nil
}

// DeleteBranch removes branch index (0-based). Out-of-range indexes are a no-op.
func DeleteBranch(s *model.Story, nodeID string, index int) bool {
	if s == nil {
		return false
	}
	node, ok := s.FindNode(nodeID)
	if !ok || index < 0 || index >= len(node.Branches) {
		return false
	}
	node.Branches = append(node.Branches[:index], node.Branches[index+1:]...)
	return true
}

type BranchFields struct {
	Choice *string
	Entry  *string
	Exit   *string
}

// SetBranchFields edits a branch in place. Entry/exit may name nodes that do not exist yet.
func SetBranchFields(s *model.Story, nodeID string, index int, f BranchFields) (*model.Branch, error) {
	node, err := mainNode(s, nodeID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(node.Branches) {
		return nil, &BranchIndexError{NodeID: node.ID, Index: index, Len: len(node.Branches)}
	}
	br := &node.Branches[index]
	if f.Choice != nil {
		br.Choice = *f.Choice
	}
	if f.Entry != nil {
		br.Entry = strings.TrimSpace(*f.Entry)
	}
	if f.Exit != nil {
		br.Exit = strings.TrimSpace(*f.Exit)
	}
	return br, nil
}
