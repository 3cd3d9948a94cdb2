// Package engine resolves a task tree: each node is elaborated, then, while
// it is above the depth bound, decomposed into subtasks that resolve
// concurrently before being attached to it.
package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/decomposer/internal/events"
	"github.com/aristath/decomposer/internal/reasoning"
	"github.com/aristath/decomposer/internal/tree"
)

// SpanName names the span opened for every node.
const SpanName = "engine.node"

// Engine drives nodes to resolution against a Reasoner.
type Engine struct {
	reasoner  reasoning.Reasoner
	policy    Policy
	publisher events.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sends lifecycle events to p.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracerProvider sets where node spans are recorded. The global provider
// is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer("github.com/aristath/decomposer/internal/engine") }
}

// New creates an Engine. The policy must already be valid.
func New(r reasoning.Reasoner, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		reasoner: r,
		policy:   policy,
		logger:   slog.Default(),
		tracer:   otel.Tracer("github.com/aristath/decomposer/internal/engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Policy returns the bounds the engine applies.
func (e *Engine) Policy() Policy { return e.policy }

// Run resolves root and its whole subtree. Collaborator failures are stored
// in the tree, never returned. A cancelled ctx stops further decomposition;
// Run still returns once every started node has resolved. The only errors
// are misuse: running a node that was already run.
func (e *Engine) Run(ctx context.Context, root *tree.Node) error {
	start := time.Now()

	if err := e.resolve(ctx, root); err != nil {
		return err
	}

	snap := root.Snapshot()
	stats := snap.Stats()
	if _, err := tree.Validate(snap, e.policy.MaxDepth); err != nil {
		e.logger.Error("resolved tree failed validation", "root", root.ID(), "error", err)
	}

	e.logger.Info("run completed", "root", root.ID(), "nodes", stats.Total,
		"failed", stats.Failed, "max_depth", stats.MaxDepth, "duration", time.Since(start))
	e.publish(events.TopicRun, events.RunCompletedEvent{
		RootID:    root.ID(),
		Nodes:     stats.Total,
		Failed:    stats.Failed,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	})
	return nil
}

// resolve performs the node's two mutations, output then children. Nothing
// else writes to node.
func (e *Engine) resolve(ctx context.Context, node *tree.Node) error {
	ctx, span := e.tracer.Start(ctx, SpanName, trace.WithAttributes(
		attribute.String("node.id", node.ID()),
		attribute.String("node.role", node.Role()),
		attribute.Int("node.depth", node.Depth()),
	))
	defer span.End()

	start := time.Now()
	depth := node.Depth()
	e.publish(events.TopicNode, events.NodeStartedEvent{
		ID:            node.ID(),
		Role:          node.Role(),
		Depth:         depth,
		Specification: node.Specification(),
		Timestamp:     start,
	})

	node.SetStatus(tree.StatusElaborating)
	elaboration := e.reasoner.Elaborate(ctx, node.Specification(), depth)
	if err := node.SetOutput(elaboration.Output(), elaboration.Failed()); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if elaboration.Failed() {
		span.RecordError(elaboration.Err)
	}
	e.publish(events.TopicNode, events.NodeElaboratedEvent{
		ID:        node.ID(),
		Depth:     depth,
		Failed:    elaboration.Failed(),
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	})

	children, err := e.expand(ctx, node)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := node.AttachChildren(children); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	node.SetStatus(tree.StatusResolved)

	attached := len(node.Children())
	span.SetAttributes(attribute.Int("node.children", attached))
	e.publish(events.TopicNode, events.NodeResolvedEvent{
		ID:        node.ID(),
		Depth:     depth,
		Children:  attached,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	})
	return nil
}

// expand decomposes node and resolves the accepted subtasks concurrently.
// The returned children are in launch order and fully resolved.
func (e *Engine) expand(ctx context.Context, node *tree.Node) ([]tree.Child, error) {
	depth := node.Depth()

	if depth >= e.policy.MaxDepth {
		e.logger.Info("maximum depth reached, not decomposing", "node", node.ID(), "depth", depth)
		e.publish(events.TopicNode, events.NodeTerminalEvent{
			ID:        node.ID(),
			Depth:     depth,
			MaxDepth:  e.policy.MaxDepth,
			Timestamp: time.Now(),
		})
		return nil, nil
	}
	if ctx.Err() != nil {
		e.logger.Debug("context done, skipping decomposition", "node", node.ID(), "depth", depth)
		return nil, nil
	}

	node.SetStatus(tree.StatusDecomposing)
	start := time.Now()
	decomposition := e.reasoner.Decompose(ctx, node.Specification(), depth)

	var candidates []reasoning.Subtask
	if decomposition.Err == nil {
		candidates = e.policy.accept(decomposition.Subtasks)
	}
	e.publish(events.TopicNode, events.NodeDecomposedEvent{
		ID:         node.ID(),
		Depth:      depth,
		Candidates: len(candidates),
		Err:        decomposition.Err,
		Duration:   time.Since(start),
		Timestamp:  time.Now(),
	})

	switch n := len(candidates); {
	case n == 0:
		return nil, nil
	case n < e.policy.MinFanOut:
		e.logger.Warn("too few subtasks produced, skipping further subtask queries",
			"node", node.ID(), "depth", depth, "candidates", n, "min_fanout", e.policy.MinFanOut)
		e.publish(events.TopicNode, events.NodeFanOutRejectedEvent{
			ID:         node.ID(),
			Depth:      depth,
			Candidates: n,
			MinFanOut:  e.policy.MinFanOut,
			Timestamp:  time.Now(),
		})
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, nil
	}

	children := make([]tree.Child, len(candidates))
	for i, s := range candidates {
		children[i] = tree.Child{Role: s.Role, Node: node.NewChild(s.Role, s.Prompt, s.Interface)}
	}

	node.SetStatus(tree.StatusWaiting)

	var g errgroup.Group
	for _, c := range children {
		g.Go(func() error {
			return e.resolve(ctx, c.Node)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return children, nil
}

func (e *Engine) publish(topic string, ev events.Event) {
	if e.publisher != nil {
		e.publisher.Publish(topic, ev)
	}
}
