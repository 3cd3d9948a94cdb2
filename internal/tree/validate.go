package tree

import (
	"fmt"

	"github.com/gammazero/toposort"
)

// Validate checks the structural invariants of a resolved or in-progress tree:
// the root sits at depth 1, every child is exactly one level below its parent,
// no node exceeds maxDepth, IDs are unique, and the parent/child relation
// orders topologically. Returns the nodes' IDs in parent-before-child order.
func Validate(root Snapshot, maxDepth int) ([]string, error) {
	if root.Depth != 1 {
		return nil, fmt.Errorf("root %q at depth %d, want 1", root.ID, root.Depth)
	}

	seen := make(map[string]bool)
	edges := []toposort.Edge{{nil, root.ID}}
	var verr error

	root.Walk(func(node, parent *Snapshot) bool {
		if verr != nil {
			return false
		}
		if seen[node.ID] {
			verr = fmt.Errorf("duplicate node ID %q", node.ID)
			return false
		}
		seen[node.ID] = true

		if maxDepth > 0 && node.Depth > maxDepth {
			verr = fmt.Errorf("node %q at depth %d exceeds max depth %d", node.ID, node.Depth, maxDepth)
			return false
		}
		if parent != nil {
			if node.Depth != parent.Depth+1 {
				verr = fmt.Errorf("node %q at depth %d under parent %q at depth %d", node.ID, node.Depth, parent.ID, parent.Depth)
				return false
			}
			// Edge (parent, child) means the parent must come first
			edges = append(edges, toposort.Edge{parent.ID, node.ID})
		}
		return true
	})
	if verr != nil {
		return nil, verr
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("tree contains cycle: %w", err)
	}

	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}
	if len(order) != len(seen) {
		return nil, fmt.Errorf("topological sort visited %d of %d nodes", len(order), len(seen))
	}

	return order, nil
}
