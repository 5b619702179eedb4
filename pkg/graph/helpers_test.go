package graph

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/opgraph/pkg/geom"
	"github.com/chazu/opgraph/pkg/kernel/kerneltest"
)

// source emits count unit boxes named after its node.
type source struct{ OperatorBase }

func newSource(n *Node, ctx *Context) Operator {
	op := &source{}
	op.Init(n, ctx)
	op.DeclareOutput("out")
	op.Props().AddInt("count", 1)
	return op
}

func (op *source) Execute(_ *Evaluator, _ float64) error {
	for i := 0; i < op.Props().Int("count"); i++ {
		op.Collection().Add(geom.Primitive{
			Name:  fmt.Sprintf("%s.%d", op.Node().Name(), i),
			Solid: op.Kernel().Box(1, 1, 1),
		})
	}
	return nil
}

// tag prefixes every primitive it receives with its node name.
type tag struct{ OperatorBase }

func newTag(n *Node, ctx *Context) Operator {
	op := &tag{}
	op.Init(n, ctx)
	op.DeclareInput("in")
	op.DeclareOutput("out")
	return op
}

func (op *tag) Execute(ev *Evaluator, _ float64) error {
	c := op.Collection()
	ev.PullInput(op, "in", c)
	c.Map(func(p geom.Primitive) geom.Primitive {
		p.Name = op.Node().Name() + ":" + p.Name
		return p
	})
	return nil
}

// join concatenates inputs a and b.
type join struct{ OperatorBase }

func newJoin(n *Node, ctx *Context) Operator {
	op := &join{}
	op.Init(n, ctx)
	op.DeclareInput("a")
	op.DeclareInput("b")
	op.DeclareOutput("out")
	return op
}

func (op *join) Execute(ev *Evaluator, _ float64) error {
	ev.PullInput(op, "a", op.Collection())
	ev.PullInput(op, "b", op.Collection())
	return nil
}

// broken adds one primitive, then fails or panics.
type broken struct {
	OperatorBase
	panics bool
}

func newBroken(panics bool) OperatorFactory {
	return func(n *Node, ctx *Context) Operator {
		op := &broken{panics: panics}
		op.Init(n, ctx)
		op.DeclareOutput("out")
		return op
	}
}

func (op *broken) Execute(_ *Evaluator, _ float64) error {
	op.Collection().Add(geom.Primitive{Name: "partial", Solid: op.Kernel().Box(1, 1, 1)})
	if op.panics {
		panic("boom")
	}
	return errors.New("bad parameters")
}

// reenter starts a nested pass on its own graph.
type reenter struct {
	OperatorBase
	err error
}

func newReenter(n *Node, ctx *Context) Operator {
	op := &reenter{}
	op.Init(n, ctx)
	op.DeclareOutput("out")
	return op
}

func (op *reenter) Execute(ev *Evaluator, t float64) error {
	_, op.err = ev.Evaluate(t)
	return op.err
}

// peek pulls target while it is itself executing. target is linked from
// peek's own output, so its producer is still running.
type peek struct {
	OperatorBase
	target *InputSocket
	got    bool
}

func newPeek(n *Node, ctx *Context) Operator {
	op := &peek{}
	op.Init(n, ctx)
	op.DeclareOutput("out")
	return op
}

func (op *peek) Execute(ev *Evaluator, _ float64) error {
	op.got = ev.Pull(op.target, geom.NewCollection())
	op.Collection().Add(geom.Primitive{Name: "peeked", Solid: op.Kernel().Box(1, 1, 1)})
	return nil
}

func testContext(t *testing.T) *Context {
	t.Helper()
	ctx := NewContext(kerneltest.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx.Operators.Register("source", newSource)
	ctx.Operators.Register("tag", newTag)
	ctx.Operators.Register("join", newJoin)
	ctx.Operators.Register("fail", newBroken(false))
	ctx.Operators.Register("panic", newBroken(true))
	ctx.Operators.Register("reenter", newReenter)
	ctx.Operators.Register("peek", newPeek)
	return ctx
}

func mustAdd(t *testing.T, g *Graph, name, key string) *Node {
	t.Helper()
	n, err := g.AddNode(name, key)
	require.NoError(t, err)
	return n
}

func mustLink(t *testing.T, g *Graph, from, to *Node, input string) {
	t.Helper()
	require.True(t, g.Connect(from.Output("out"), to.Input(input)), "connect %s -> %s.%s", from.Name(), to.Name(), input)
}

func names(c *geom.Collection) []string {
	var out []string
	for _, p := range c.Primitives() {
		out = append(out, p.Name)
	}
	return out
}

func newCache() *geom.Cache { return geom.NewCache() }
