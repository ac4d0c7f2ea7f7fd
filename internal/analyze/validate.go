package analyze

import (
	"fmt"
	"strings"

	"storyloom/internal/model"
)

// Report is the full validation result shown by the validate command and endpoint.
type Report struct {
	Valid    bool    `json:"valid"`
	Errors   int     `json:"errors"`
	Warnings int     `json:"warnings"`
	Issues   []Issue `json:"issues"`
}

// Structure checks what a story must satisfy to be written to disk: non-empty unique
// ids, known node types, and branches only on main nodes.
func Structure(s *model.Story) []Issue {
	if s == nil {
		return nil
	}
	var out []Issue
	seen := map[string]bool{}
	for i, n := range s.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			out = append(out, Issue{
				Severity: SeverityError,
				Code:     CodeEmptyID,
				Message:  fmt.Sprintf("node %d has an empty id", i),
			})
			continue
		}
		if seen[n.ID] {
			out = append(out, Issue{
				Severity: SeverityError,
				Code:     CodeDuplicateID,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("node id %q is duplicated", n.ID),
			})
		}
		seen[n.ID] = true
		if !n.Type.Valid() {
			out = append(out, Issue{
				Severity: SeverityError,
				Code:     CodeInvalidType,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("node %s has type %q (expected main or branch)", n.ID, n.Type),
			})
		} else if n.Type == model.NodeTypeBranch && len(n.Branches) > 0 {
			out = append(out, Issue{
				Severity: SeverityError,
				Code:     CodeBranchOwner,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("branch node %s owns branches", n.ID),
			})
		}
	}
	return out
}

// Validate combines the structural checks, DetectIssues and orphan warnings.
func Validate(s *model.Story) Report {
	issues := Structure(s)
	issues = append(issues, DetectIssues(s)...)
	for _, id := range Orphans(s) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     CodeOrphan,
			NodeID:   id,
			Message:  fmt.Sprintf("node %s is not reachable from any other node", id),
		})
	}
	if issues == nil {
		issues = []Issue{}
	}
	w, e := Count(issues)
	return Report{Valid: e == 0, Errors: e, Warnings: w, Issues: issues}
}

// StructureError is returned when a story fails Structure.
type StructureError struct {
	Issues []Issue
}

func (e *StructureError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid story"
	}
	if len(e.Issues) == 1 {
		return "invalid story: " + e.Issues[0].Message
	}
	return fmt.Sprintf("invalid story: %s (and %d more)", e.Issues[0].Message, len(e.Issues)-1)
}

// CheckSavable returns a *StructureError if s cannot be written.
func CheckSavable(s *model.Story) error {
	if s == nil {
		return &StructureError{}
	}
	if issues := Structure(s); len(issues) > 0 {
		return &StructureError{Issues: issues}
	}
	return nil
}
