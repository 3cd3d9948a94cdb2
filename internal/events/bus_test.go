package events

import (
	"fmt"
	"testing"
	"time"
)

func started(id string) NodeStartedEvent {
	return NodeStartedEvent{ID: id, Role: "frontend", Depth: 2, Timestamp: time.Now()}
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicNode, 10)
	bus.Publish(TopicNode, started("n-1"))

	ev := receive(t, ch)
	if ev.NodeID() != "n-1" {
		t.Errorf("expected node ID 'n-1', got '%s'", ev.NodeID())
	}
	if ev.NodeDepth() != 2 {
		t.Errorf("expected depth 2, got %d", ev.NodeDepth())
	}
	if ev.EventType() != EventTypeNodeStarted {
		t.Errorf("expected event type '%s', got '%s'", EventTypeNodeStarted, ev.EventType())
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch1 := bus.Subscribe(TopicNode, 10)
	ch2 := bus.Subscribe(TopicNode, 10)

	bus.Publish(TopicNode, NodeResolvedEvent{ID: "n-2", Depth: 1, Children: 3, Timestamp: time.Now()})

	for i, ch := range []<-chan Event{ch1, ch2} {
		if id := receive(t, ch).NodeID(); id != "n-2" {
			t.Errorf("subscriber %d: expected node ID 'n-2', got '%s'", i+1, id)
		}
	}
}

func TestNonBlockingSendCountsDrops(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicNode, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(TopicNode, started(fmt.Sprintf("n-%d", i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publisher blocked (expected non-blocking behavior)")
	}

	if id := receive(t, ch).NodeID(); id != "n-0" {
		t.Errorf("expected first event 'n-0' buffered, got '%s'", id)
	}
	if dropped := bus.Dropped(); dropped != 9 {
		t.Errorf("expected 9 dropped events, got %d", dropped)
	}
}

func TestCloseSignalsSubscribers(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(TopicNode, 10)
	all := bus.SubscribeAll(10)

	bus.Close()
	bus.Close() // idempotent

	if _, ok := <-ch; ok {
		t.Error("expected topic channel closed")
	}
	if _, ok := <-all; ok {
		t.Error("expected wildcard channel closed")
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(TopicNode, 10)
	bus.Close()

	// Must not panic
	bus.Publish(TopicNode, started("n-1"))

	if _, ok := <-ch; ok {
		t.Error("received event after bus was closed")
	}
}

func TestSubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	bus := NewEventBus()
	bus.Close()

	if _, ok := <-bus.Subscribe(TopicRun, 1); ok {
		t.Error("expected closed channel from a closed bus")
	}
}

func TestTopicIsolation(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	nodeCh := bus.Subscribe(TopicNode, 10)
	runCh := bus.Subscribe(TopicRun, 10)

	bus.Publish(TopicNode, started("n-1"))
	bus.Publish(TopicRun, RunCompletedEvent{RootID: "root", Nodes: 4, Timestamp: time.Now()})

	if typ := receive(t, nodeCh).EventType(); typ != EventTypeNodeStarted {
		t.Errorf("node channel: expected '%s', got '%s'", EventTypeNodeStarted, typ)
	}
	if typ := receive(t, runCh).EventType(); typ != EventTypeRunCompleted {
		t.Errorf("run channel: expected '%s', got '%s'", EventTypeRunCompleted, typ)
	}

	select {
	case <-nodeCh:
		t.Error("node channel received unexpected event")
	case <-runCh:
		t.Error("run channel received unexpected event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	allCh := bus.SubscribeAll(20)

	bus.Publish(TopicNode, NodeFanOutRejectedEvent{ID: "n-1", Depth: 2, Candidates: 1, MinFanOut: 2})
	bus.Publish(TopicRun, RunCompletedEvent{RootID: "root"})

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		got[receive(t, allCh).EventType()] = true
	}
	for _, typ := range []string{EventTypeNodeFanOutRejected, EventTypeRunCompleted} {
		if !got[typ] {
			t.Errorf("expected '%s' on the wildcard subscription", typ)
		}
	}
}
