package analyze

import "storyloom/internal/model"

// DefaultMaxDepth bounds path length during enumeration.
const DefaultMaxDepth = 10

type PathOptions struct {
	// StartID overrides the default start (the first node).
	StartID  string
	MaxDepth int
}

// EnumeratePaths lists complete paths from the first node, following next and every
// branch entry. A path is complete when its last node has no next and no branch with an
// entry; choices that lead nowhere yet do not continue it.
// Revisiting a node on the current path and running out of depth both end the walk
// silently, so no returned path is longer than maxDepth.
func EnumeratePaths(s *model.Story, maxDepth int) [][]string {
	return EnumeratePathsFrom(s, PathOptions{MaxDepth: maxDepth})
}

func EnumeratePathsFrom(s *model.Story, opts PathOptions) [][]string {
	if s == nil || len(s.Nodes) == 0 {
		return nil
	}
	start := opts.StartID
	if start == "" {
		start = s.Nodes[0].ID
	}
	depth := opts.MaxDepth
	if depth == 0 {
		depth = DefaultMaxDepth
	}
	w := walker{
		byID: make(map[string]*model.Node, len(s.Nodes)),
	}
	for i := range s.Nodes {
		if _, dup := w.byID[s.Nodes[i].ID]; !dup {
			w.byID[s.Nodes[i].ID] = &s.Nodes[i]
		}
	}
	w.walk(start, nil, map[string]struct{}{}, depth)
	return w.paths
}

type walker struct {
	byID  map[string]*model.Node
	paths [][]string
}

func (w *walker) walk(id string, path []string, visited map[string]struct{}, depth int) {
	if depth <= 0 {
		return
	}
	if _, seen := visited[id]; seen {
		return
	}
	node, ok := w.byID[id]
	if !ok {
		return
	}
	cur := make([]string, len(path)+1)
	copy(cur, path)
	cur[len(path)] = node.ID
	visited[id] = struct{}{}

	if node.Next == "" && !hasEntry(node.Branches) {
		w.paths = append(w.paths, cur)
		return
	}
	if node.Next != "" {
		w.walk(node.Next, cur, copySet(visited), depth-1)
	}
	for _, br := range node.Branches {
		if br.Entry != "" {
			w.walk(br.Entry, cur, copySet(visited), depth-1)
		}
	}
}

func hasEntry(branches []model.Branch) bool {
	for _, br := range branches {
		if br.Entry != "" {
			return true
		}
	}
	return false
}

func copySet(m map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
