package ops

import (
	"github.com/chazu/opgraph/pkg/geom"
	"github.com/chazu/opgraph/pkg/graph"
)

// Transform scales, rotates (degrees, X then Y then Z) and translates every
// primitive on its input, in that order.
type Transform struct{ graph.OperatorBase }

func NewTransform(n *graph.Node, ctx *graph.Context) graph.Operator {
	op := &Transform{}
	op.Init(n, ctx)
	op.DeclareInput("in")
	op.DeclareOutput("out")
	op.Props().AddVector("translate", 0, 0, 0)
	op.Props().AddVector("rotate", 0, 0, 0)
	op.Props().AddVector("scale", 1, 1, 1)
	return op
}

func (op *Transform) Execute(ev *graph.Evaluator, _ float64) error {
	k, err := kernelOf(op.Base())
	if err != nil {
		return err
	}
	c := op.Collection()
	if !ev.PullInput(op, "in", c) {
		return nil
	}
	t := op.Props().Vector("translate")
	r := op.Props().Vector("rotate")
	s := op.Props().Vector("scale")
	if s[0] == 0 || s[1] == 0 || s[2] == 0 {
		op.Warn("zero scale component in %v ignored", s)
		s = [3]float64{1, 1, 1}
	}

	c.Map(func(p geom.Primitive) geom.Primitive {
		solid := p.Solid
		if s != [3]float64{1, 1, 1} {
			solid = k.Scale(solid, s[0], s[1], s[2])
		}
		if r != [3]float64{} {
			solid = k.Rotate(solid, r[0], r[1], r[2])
		}
		if t != [3]float64{} {
			solid = k.Translate(solid, t[0], t[1], t[2])
		}
		p.Solid = solid
		return p
	})
	return nil
}
