package tree

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Status represents how far a node has progressed through resolution.
type Status int

const (
	StatusPending     Status = iota // Created, engine has not reached it yet
	StatusElaborating                // Elaboration request in flight
	StatusDecomposing                // Decomposition request in flight
	StatusWaiting                    // Children launched, waiting on the join
	StatusResolved                   // Output and children final
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusElaborating:
		return "elaborating"
	case StatusDecomposing:
		return "decomposing"
	case StatusWaiting:
		return "waiting"
	case StatusResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON snapshots.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RootLabel is the display label of the node without a parent.
const RootLabel = "Root"

var (
	// ErrOutputAlreadySet is returned when a node's output is written twice.
	ErrOutputAlreadySet = errors.New("output already set")

	// ErrChildrenAlreadySet is returned when children are attached twice.
	ErrChildrenAlreadySet = errors.New("children already attached")
)

// Child pairs a node with the key its parent files it under.
type Child struct {
	Role string
	Node *Node
}

// Node is one unit of work in the decomposition tree.
//
// Output and children are written only by the engine call that owns the node.
// The mutex exists so readers on other goroutines (the view) never observe a
// half-written field; writers never contend with each other.
type Node struct {
	id            string
	role          string
	specification string
	iface         string
	depth         int

	mu        sync.RWMutex
	status    Status
	output    string
	hasOutput bool
	failed    bool
	children  map[string]*Node
	order     []string
	attached  bool
}

// NewRoot creates the depth-1 node for an initial specification.
func NewRoot(specification string) *Node {
	return newNode(RootLabel, specification, "", 1)
}

// NewChild creates a detached node one level below n. The caller attaches it
// with AttachChildren once it has resolved.
func (n *Node) NewChild(role, specification, iface string) *Node {
	return newNode(role, specification, iface, n.depth+1)
}

func newNode(role, specification, iface string, depth int) *Node {
	return &Node{
		id:            uuid.New().String()[:8],
		role:          role,
		specification: specification,
		iface:         iface,
		depth:         depth,
		status:        StatusPending,
		children:      make(map[string]*Node),
	}
}

// ID returns the short identifier used in events and traces.
func (n *Node) ID() string { return n.id }

// Role returns the role the node was requested under ("Root" for the root).
func (n *Node) Role() string { return n.role }

// Specification returns the prompt text the node is responsible for.
func (n *Node) Specification() string { return n.specification }

// Interface returns the advisory contract carried from the subtask descriptor.
func (n *Node) Interface() string { return n.iface }

// Depth returns the recursion level, starting at 1 for the root.
func (n *Node) Depth() int { return n.depth }

// Status returns the current lifecycle stage.
func (n *Node) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// SetStatus advances the lifecycle stage.
func (n *Node) SetStatus(s Status) {
	n.mu.Lock()
	n.status = s
	n.mu.Unlock()
}

// Output returns the elaboration result and whether it has been set.
func (n *Node) Output() (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.output, n.hasOutput
}

// Failed reports whether the stored output describes a collaborator failure.
func (n *Node) Failed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.failed
}

// SetOutput stores the elaboration result. It may be called once.
func (n *Node) SetOutput(output string, failed bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.hasOutput {
		return ErrOutputAlreadySet
	}
	n.output = output
	n.hasOutput = true
	n.failed = failed
	return nil
}

// AttachChildren files the resolved children under their roles, preserving
// the given order. It may be called once. A repeated role replaces the earlier
// node but keeps the earlier position.
func (n *Node) AttachChildren(children []Child) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.attached {
		return ErrChildrenAlreadySet
	}
	n.attached = true

	for _, c := range children {
		if _, exists := n.children[c.Role]; !exists {
			n.order = append(n.order, c.Role)
		}
		n.children[c.Role] = c.Node
	}
	return nil
}

// Child returns the child filed under role.
func (n *Node) Child(role string) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	c, ok := n.children[role]
	return c, ok
}

// Children returns the attached children in attach order.
func (n *Node) Children() []Child {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]Child, 0, len(n.order))
	for _, role := range n.order {
		out = append(out, Child{Role: role, Node: n.children[role]})
	}
	return out
}
