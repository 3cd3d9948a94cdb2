package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	NodeID() string
	NodeDepth() int
}

// Topic constants
const (
	TopicNode = "node"
	TopicRun  = "run"
)

// Event type constants
const (
	EventTypeNodeStarted        = "node.started"
	EventTypeNodeElaborated     = "node.elaborated"
	EventTypeNodeDecomposed     = "node.decomposed"
	EventTypeNodeFanOutRejected = "node.fanout_rejected"
	EventTypeNodeTerminal       = "node.terminal"
	EventTypeNodeResolved       = "node.resolved"
	EventTypeRunCompleted       = "run.completed"
)

// NodeStartedEvent is published when the engine begins resolving a node.
type NodeStartedEvent struct {
	ID            string
	Role          string
	Depth         int
	Specification string
	Timestamp     time.Time
}

func (e NodeStartedEvent) EventType() string { return EventTypeNodeStarted }
func (e NodeStartedEvent) NodeID() string    { return e.ID }
func (e NodeStartedEvent) NodeDepth() int    { return e.Depth }

// NodeElaboratedEvent is published once a node's output is stored.
// Failed is set when the output is an error description.
type NodeElaboratedEvent struct {
	ID        string
	Depth     int
	Failed    bool
	Duration  time.Duration
	Timestamp time.Time
}

func (e NodeElaboratedEvent) EventType() string { return EventTypeNodeElaborated }
func (e NodeElaboratedEvent) NodeID() string    { return e.ID }
func (e NodeElaboratedEvent) NodeDepth() int    { return e.Depth }

// NodeDecomposedEvent is published when a decomposition request returns.
type NodeDecomposedEvent struct {
	ID         string
	Depth      int
	Candidates int
	Err        error // decomposition failure, treated as zero candidates
	Duration   time.Duration
	Timestamp  time.Time
}

func (e NodeDecomposedEvent) EventType() string { return EventTypeNodeDecomposed }
func (e NodeDecomposedEvent) NodeID() string    { return e.ID }
func (e NodeDecomposedEvent) NodeDepth() int    { return e.Depth }

// NodeFanOutRejectedEvent is published when a decomposition returned some
// candidates but fewer than the fan-out floor, so none were accepted.
type NodeFanOutRejectedEvent struct {
	ID         string
	Depth      int
	Candidates int
	MinFanOut  int
	Timestamp  time.Time
}

func (e NodeFanOutRejectedEvent) EventType() string { return EventTypeNodeFanOutRejected }
func (e NodeFanOutRejectedEvent) NodeID() string    { return e.ID }
func (e NodeFanOutRejectedEvent) NodeDepth() int    { return e.Depth }

// NodeTerminalEvent is published when a node stops at the depth bound.
type NodeTerminalEvent struct {
	ID        string
	Depth     int
	MaxDepth  int
	Timestamp time.Time
}

func (e NodeTerminalEvent) EventType() string { return EventTypeNodeTerminal }
func (e NodeTerminalEvent) NodeID() string    { return e.ID }
func (e NodeTerminalEvent) NodeDepth() int    { return e.Depth }

// NodeResolvedEvent is published when a node and its whole subtree are final.
type NodeResolvedEvent struct {
	ID        string
	Depth     int
	Children  int
	Duration  time.Duration
	Timestamp time.Time
}

func (e NodeResolvedEvent) EventType() string { return EventTypeNodeResolved }
func (e NodeResolvedEvent) NodeID() string    { return e.ID }
func (e NodeResolvedEvent) NodeDepth() int    { return e.Depth }

// RunCompletedEvent is published when the root resolves.
type RunCompletedEvent struct {
	RootID    string
	Nodes     int
	Failed    int
	Duration  time.Duration
	Timestamp time.Time
}

func (e RunCompletedEvent) EventType() string { return EventTypeRunCompleted }
func (e RunCompletedEvent) NodeID() string    { return e.RootID }
func (e RunCompletedEvent) NodeDepth() int    { return 1 }
