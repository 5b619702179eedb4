package ops

import (
	"github.com/chazu/opgraph/pkg/geom"
	"github.com/chazu/opgraph/pkg/graph"
)

// Box emits one box with its minimum corner at the origin.
type Box struct{ graph.OperatorBase }

func NewBox(n *graph.Node, ctx *graph.Context) graph.Operator {
	op := &Box{}
	op.Init(n, ctx)
	op.DeclareOutput("out")
	op.Props().AddVector("size", 1, 1, 1)
	return op
}

func (op *Box) Execute(_ *graph.Evaluator, _ float64) error {
	k, err := kernelOf(op.Base())
	if err != nil {
		return err
	}
	size := op.Props().Vector("size")
	if err := positive("size", size[:]...); err != nil {
		return err
	}
	op.Collection().Add(geom.Primitive{Name: op.Node().Name(), Solid: k.Box(size[0], size[1], size[2])})
	return nil
}

// Sphere emits one sphere centred on the origin.
type Sphere struct{ graph.OperatorBase }

func NewSphere(n *graph.Node, ctx *graph.Context) graph.Operator {
	op := &Sphere{}
	op.Init(n, ctx)
	op.DeclareOutput("out")
	op.Props().AddScalar("radius", 1)
	op.Props().AddInt("segments", 32)
	return op
}

func (op *Sphere) Execute(_ *graph.Evaluator, _ float64) error {
	k, err := kernelOf(op.Base())
	if err != nil {
		return err
	}
	r := op.Props().Scalar("radius")
	if err := positive("radius", r); err != nil {
		return err
	}
	op.Collection().Add(geom.Primitive{Name: op.Node().Name(), Solid: k.Sphere(r, op.Props().Int("segments"))})
	return nil
}

// Cylinder emits one Z-aligned cylinder centred on the origin.
type Cylinder struct{ graph.OperatorBase }

func NewCylinder(n *graph.Node, ctx *graph.Context) graph.Operator {
	op := &Cylinder{}
	op.Init(n, ctx)
	op.DeclareOutput("out")
	op.Props().AddScalar("height", 2)
	op.Props().AddScalar("radius", 1)
	op.Props().AddInt("segments", 32)
	return op
}

func (op *Cylinder) Execute(_ *graph.Evaluator, _ float64) error {
	k, err := kernelOf(op.Base())
	if err != nil {
		return err
	}
	h, r := op.Props().Scalar("height"), op.Props().Scalar("radius")
	if err := positive("height and radius", h, r); err != nil {
		return err
	}
	segs := op.Props().Int("segments")
	if segs < 3 {
		op.Warn("segments %d raised to 3", segs)
		segs = 3
	}
	op.Collection().Add(geom.Primitive{Name: op.Node().Name(), Solid: k.Cylinder(h, r, segs)})
	return nil
}
