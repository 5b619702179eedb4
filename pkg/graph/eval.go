package graph

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/opgraph/pkg/geom"
)

// Evaluate errors.
var (
	ErrReentrant = errors.New("evaluation already in progress")
	ErrNoSink    = errors.New("graph has no output node")
)

// Evaluator runs passes over one graph, registering every collection it
// produces in its cache.
type Evaluator struct {
	graph *Graph
	cache *geom.Cache
	time  float64
}

// NewEvaluator returns an evaluator for g that registers collections in
// cache.
func NewEvaluator(g *Graph, cache *geom.Cache) *Evaluator {
	return &Evaluator{graph: g, cache: cache}
}

// Graph returns the evaluated graph.
func (ev *Evaluator) Graph() *Graph { return ev.graph }

// Cache returns the cache owning this evaluator's collections.
func (ev *Evaluator) Cache() *geom.Cache { return ev.cache }

// Time returns the evaluation time of the current pass.
func (ev *Evaluator) Time() float64 { return ev.time }

// Evaluate runs one full pass at time t: it clears the cache, resets every
// operator and executes the output node. The returned collection belongs to
// the cache and is freed by the next pass unless retained.
func (ev *Evaluator) Evaluate(t float64) (*geom.Collection, error) {
	g := ev.graph
	if g.evaluating {
		return nil, ErrReentrant
	}
	sink := g.Sink()
	if sink == nil || sink.op == nil {
		return nil, ErrNoSink
	}
	g.evaluating = true
	defer func() { g.evaluating = false }()

	freed := ev.cache.Clear()
	for _, n := range g.Nodes() {
		if n.op != nil {
			n.op.Base().reset()
		}
	}
	ev.time = t
	g.log().Debug("evaluation pass", "time", t, "nodes", g.Len(), "freed", freed)

	ev.execute(sink)

	for _, n := range g.Nodes() {
		n.dirty = false
	}
	g.dirty = false
	return sink.op.Base().collection, nil
}

// PullInput pulls op's first input named name into dst.
func (ev *Evaluator) PullInput(op Operator, name string, dst *geom.Collection) bool {
	n := op.Base().node
	if n == nil {
		return false
	}
	return ev.Pull(n.Input(name), dst)
}

// Pull fetches the data feeding in into dst and reports whether any arrived.
// The producer runs at most once per pass. When its output feeds several
// inputs the result is copied and kept for the other consumers; otherwise it
// is moved into dst and the producer is left empty.
func (ev *Evaluator) Pull(in *InputSocket, dst *geom.Collection) bool {
	if in == nil || in.link == nil {
		return false
	}
	g := ev.graph
	producer, ok := g.Node(in.link.Node)
	if !ok || producer.op == nil {
		g.log().Warn("pull: stale link", "node", in.node.name, "input", in.name)
		return false
	}
	out := producer.OutputAt(in.link.Index)
	b := producer.op.Base()

	switch {
	case b.state == StateExecuting:
		if in.node.op != nil {
			in.node.op.Base().Warn("input %q: %q is still executing", in.name, producer.name)
		}
		g.log().Warn("pull: producer still executing", "node", in.node.name, "input", in.name, "producer", producer.name)
		return false
	case !b.buffered && b.needsExecution:
		ev.execute(producer)
	}

	src := b.collection
	if src.IsEmpty() {
		return false
	}
	if out != nil && out.LinkCount() > 1 {
		dst.CopyFrom(src)
		b.buffered = true
		b.state = StateBuffered
		out.hasBuffer = true
	} else {
		dst.TakeFrom(src)
		b.state = StateConsumed
	}
	return true
}

func (ev *Evaluator) execute(n *Node) {
	b := n.op.Base()
	b.state = StateExecuting
	b.collection = geom.NewCollection()
	ev.cache.Register(b.collection)

	start := time.Now()
	err := run(ev, n.op)
	elapsed := time.Since(start)

	b.stats.Executions++
	b.stats.Last = elapsed
	b.stats.Total += elapsed
	b.needsExecution = false
	b.state = StateExecuted
	if err != nil {
		b.Warn("%v", err)
		b.logger().Warn("operator failed", "node", n.name, "operator", b.key, "err", err)
	}
	b.logger().Debug("executed", "node", n.name, "operator", b.key, "elapsed", elapsed, "primitives", b.collection.Len())
}

func run(ev *Evaluator, op Operator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return op.Execute(ev, ev.time)
}
