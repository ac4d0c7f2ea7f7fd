// Package analyze inspects a story without modifying it: issue detection, path
// enumeration, statistics, search and save-time validation.
package analyze

import (
	"fmt"
	"strings"

	"storyloom/internal/model"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

const (
	CodeMissingTitle   = "missing-title"
	CodeMissingContent = "missing-content"
	CodeDanglingNext   = "dangling-next"
	CodeDanglingEntry  = "dangling-entry"
	CodeDanglingExit   = "dangling-exit"
	CodeEmptyID        = "empty-id"
	CodeDuplicateID    = "duplicate-id"
	CodeInvalidType    = "invalid-type"
	CodeBranchOwner    = "branches-on-branch-node"
	CodeOrphan         = "orphan"
)

// Issue is an advisory finding. Issues never block editing.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	NodeID   string   `json:"nodeId,omitempty"`
	// Branch is the 1-based branch number for entry/exit findings.
	Branch  int    `json:"branch,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Severity, i.Message)
}

// DetectIssues reports missing titles/content (warnings) and dangling next, entry and
// exit references (errors), in node order.
func DetectIssues(s *model.Story) []Issue {
	if s == nil {
		return nil
	}
	ids := s.NodeIDs()
	var out []Issue
	for _, n := range s.Nodes {
		if strings.TrimSpace(n.Title) == "" {
			out = append(out, Issue{
				Severity: SeverityWarning,
				Code:     CodeMissingTitle,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("node %s is missing a title", n.ID),
			})
		}
		if strings.TrimSpace(n.Content) == "" {
			out = append(out, Issue{
				Severity: SeverityWarning,
				Code:     CodeMissingContent,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("node %s is missing content", n.ID),
			})
		}
		if n.Next != "" {
			if _, ok := ids[n.Next]; !ok {
				out = append(out, Issue{
					Severity: SeverityError,
					Code:     CodeDanglingNext,
					NodeID:   n.ID,
					Message:  fmt.Sprintf("node %s references missing node %s", n.ID, n.Next),
				})
			}
		}
		for i, br := range n.Branches {
			if br.Entry != "" {
				if _, ok := ids[br.Entry]; !ok {
					out = append(out, Issue{
						Severity: SeverityError,
						Code:     CodeDanglingEntry,
						NodeID:   n.ID,
						Branch:   i + 1,
						Message:  fmt.Sprintf("branch %d of node %s references missing entry node %s", i+1, n.ID, br.Entry),
					})
				}
			}
			if br.Exit != "" {
				if _, ok := ids[br.Exit]; !ok {
					out = append(out, Issue{
						Severity: SeverityError,
						Code:     CodeDanglingExit,
						NodeID:   n.ID,
						Branch:   i + 1,
						Message:  fmt.Sprintf("branch %d of node %s references missing exit node %s", i+1, n.ID, br.Exit),
					})
				}
			}
		}
	}
	return out
}

// Count returns the number of warnings and errors in issues.
func Count(issues []Issue) (warnings, errors int) {
	for _, i := range issues {
		switch i.Severity {
		case SeverityWarning:
			warnings++
		case SeverityError:
			errors++
		}
	}
	return warnings, errors
}
