package tree

// Snapshot is an immutable copy of a subtree taken at one point in time.
// Different nodes may be copied at slightly different moments, so a snapshot
// can show a parent still waiting while a child has already resolved.
type Snapshot struct {
	ID            string     `json:"id"`
	Label         string     `json:"label"`
	Specification string     `json:"specification"`
	Interface     string     `json:"interface,omitempty"`
	Output        string     `json:"output"`
	HasOutput     bool       `json:"has_output"`
	Failed        bool       `json:"failed,omitempty"`
	Depth         int        `json:"depth"`
	Status        Status     `json:"status"`
	Children      []Snapshot `json:"children,omitempty"`
}

// Snapshot copies the subtree rooted at n. The node's own role is used as the
// label; children are labelled by the key their parent files them under.
func (n *Node) Snapshot() Snapshot {
	return n.snapshot(n.role)
}

func (n *Node) snapshot(label string) Snapshot {
	n.mu.RLock()
	s := Snapshot{
		ID:            n.id,
		Label:         label,
		Specification: n.specification,
		Interface:     n.iface,
		Output:        n.output,
		HasOutput:     n.hasOutput,
		Failed:        n.failed,
		Depth:         n.depth,
		Status:        n.status,
	}
	children := make([]Child, 0, len(n.order))
	for _, role := range n.order {
		children = append(children, Child{Role: role, Node: n.children[role]})
	}
	n.mu.RUnlock()

	// Recurse without holding our lock so a slow reader never blocks the
	// engine from writing a deeper node.
	if len(children) > 0 {
		s.Children = make([]Snapshot, 0, len(children))
		for _, c := range children {
			s.Children = append(s.Children, c.Node.snapshot(c.Role))
		}
	}
	return s
}

// Walk visits s and every descendant in pre-order. parent is nil for s.
// Returning false from fn skips the visited node's children.
func (s *Snapshot) Walk(fn func(node, parent *Snapshot) bool) {
	s.walk(nil, fn)
}

func (s *Snapshot) walk(parent *Snapshot, fn func(node, parent *Snapshot) bool) {
	if !fn(s, parent) {
		return
	}
	for i := range s.Children {
		s.Children[i].walk(s, fn)
	}
}

// Find returns the node with the given ID.
func (s Snapshot) Find(id string) (Snapshot, bool) {
	var found *Snapshot
	s.Walk(func(node, _ *Snapshot) bool {
		if found != nil {
			return false
		}
		if node.ID == id {
			found = node
			return false
		}
		return true
	})
	if found == nil {
		return Snapshot{}, false
	}
	return *found, true
}

// Stats summarises a snapshot for progress displays.
type Stats struct {
	Total    int
	Leaves   int
	Failed   int
	MaxDepth int
	ByStatus map[Status]int
}

// Stats counts the nodes in the snapshot.
func (s Snapshot) Stats() Stats {
	st := Stats{ByStatus: make(map[Status]int)}
	s.Walk(func(node, _ *Snapshot) bool {
		st.Total++
		st.ByStatus[node.Status]++
		if len(node.Children) == 0 {
			st.Leaves++
		}
		if node.Failed {
			st.Failed++
		}
		if node.Depth > st.MaxDepth {
			st.MaxDepth = node.Depth
		}
		return true
	})
	return st
}
