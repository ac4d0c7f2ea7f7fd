package mutate

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyID         = errors.New("node id is empty")
	ErrInvalidNodeType = errors.New("invalid node type (expected main|branch)")
	ErrNilStory        = errors.New("no story loaded")
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// DuplicateIDError rejects a rename or create that would reuse an existing node id.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("node id %q already exists", e.ID)
}

// NotMainNodeError rejects branch operations on nodes that cannot own branches.
type NotMainNodeError struct {
	NodeID string
	Type   string
}

func (e *NotMainNodeError) Error() string {
	return fmt.Sprintf("node %s is a %s node; only main nodes can have branches", e.NodeID, e.Type)
}

type BranchIndexError struct {
	NodeID string
	Index  int
	Len    int
}

func (e *BranchIndexError) Error() string {
	return fmt.Sprintf("node %s has no branch %d (has %d)", e.NodeID, e.Index+1, e.Len)
}
