// Package scene ties operator graphs to the object-level depsgraph. An
// Object owns one graph, its cache and its evaluator; a Scene holds objects
// by name and evaluates them in depsgraph order.
package scene

import (
	"context"
	"fmt"

	"github.com/chazu/opgraph/internal/ctxlog"
	"github.com/chazu/opgraph/pkg/geom"
	"github.com/chazu/opgraph/pkg/graph"
)

// Warning is an operator warning from the latest pass.
type Warning struct {
	Node    string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Node, w.Message)
}

// Object is one evaluable unit.
type Object struct {
	name   string
	graph  *graph.Graph
	cache  *geom.Cache
	eval   *graph.Evaluator
	time   float64
	result *geom.Collection
	warns  []Warning
}

// NewObject wraps g.
func NewObject(name string, g *graph.Graph) *Object {
	cache := geom.NewCache()
	return &Object{
		name:  name,
		graph: g,
		cache: cache,
		eval:  graph.NewEvaluator(g, cache),
	}
}

func (o *Object) Name() string        { return o.name }
func (o *Object) Graph() *graph.Graph { return o.graph }

// SetTime sets the evaluation time used by the next Process.
func (o *Object) SetTime(t float64) { o.time = t }

// Result returns the output of the latest successful pass. It stays valid
// until the next pass completes.
func (o *Object) Result() *geom.Collection { return o.result }

// Warnings returns the operator warnings from the latest pass.
func (o *Object) Warnings() []Warning { return o.warns }

// Process runs one evaluation pass and keeps its result.
func (o *Object) Process(ctx context.Context) error {
	res, err := o.eval.Evaluate(o.time)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", o.name, err)
	}
	res.Retain()
	if o.result != nil {
		o.result.Release()
	}
	o.result = res

	o.warns = nil
	logger := ctxlog.FromContext(ctx)
	for _, n := range o.graph.Nodes() {
		if n.Operator() == nil {
			continue
		}
		for _, msg := range n.Operator().Base().Warnings() {
			o.warns = append(o.warns, Warning{Node: n.Name(), Message: msg})
			logger.Warn("operator warning", "object", o.name, "node", n.Name(), "warning", msg)
		}
	}
	logger.Debug("object evaluated", "object", o.name, "primitives", res.Len(), "warnings", len(o.warns))
	return nil
}
