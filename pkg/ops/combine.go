package ops

import (
	"fmt"

	"github.com/chazu/opgraph/pkg/geom"
	"github.com/chazu/opgraph/pkg/graph"
	"github.com/chazu/opgraph/pkg/kernel"
)

// Merge concatenates the primitives on inputs a and b.
type Merge struct{ graph.OperatorBase }

func NewMerge(n *graph.Node, ctx *graph.Context) graph.Operator {
	op := &Merge{}
	op.Init(n, ctx)
	op.DeclareInput("a")
	op.DeclareInput("b")
	op.DeclareOutput("out")
	return op
}

func (op *Merge) Execute(ev *graph.Evaluator, _ float64) error {
	ev.PullInput(op, "a", op.Collection())
	ev.PullInput(op, "b", op.Collection())
	return nil
}

// Boolean modes.
const (
	ModeUnion        = "union"
	ModeDifference   = "difference"
	ModeIntersection = "intersection"
)

// Boolean combines everything on a with everything on b into one solid.
// Each side is unioned first. With nothing on b, a passes through unioned.
type Boolean struct{ graph.OperatorBase }

func NewBoolean(n *graph.Node, ctx *graph.Context) graph.Operator {
	op := &Boolean{}
	op.Init(n, ctx)
	op.DeclareInput("a")
	op.DeclareInput("b")
	op.DeclareOutput("out")
	op.Props().AddEnum("mode", []string{ModeUnion, ModeDifference, ModeIntersection}, ModeUnion)
	return op
}

func (op *Boolean) Execute(ev *graph.Evaluator, _ float64) error {
	k, err := kernelOf(op.Base())
	if err != nil {
		return err
	}
	a, b := geom.NewCollection(), geom.NewCollection()
	if !ev.PullInput(op, "a", a) {
		op.Warn("input a is empty")
		return nil
	}
	ev.PullInput(op, "b", b)

	result := unionAll(k, a)
	if !b.IsEmpty() {
		other := unionAll(k, b)
		switch mode := op.Props().Text("mode"); mode {
		case ModeUnion:
			result = k.Union(result, other)
		case ModeDifference:
			result = k.Difference(result, other)
		case ModeIntersection:
			result = k.Intersection(result, other)
		default:
			return fmt.Errorf("unknown boolean mode %q", mode)
		}
	}
	op.Collection().Add(geom.Primitive{Name: op.Node().Name(), Solid: result})
	return nil
}

func unionAll(k kernel.Kernel, c *geom.Collection) kernel.Solid {
	s := c.At(0).Solid
	for i := 1; i < c.Len(); i++ {
		s = k.Union(s, c.At(i).Solid)
	}
	return s
}
