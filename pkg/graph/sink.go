package graph

// SinkKey is the operator key of the output node every graph is built with.
const SinkKey = "output"

// Sink is the output operator. It takes whatever reaches its input as its
// own collection.
type Sink struct {
	OperatorBase
}

// NewSink is the OperatorFactory for the output node.
func NewSink(n *Node, ctx *Context) Operator {
	s := &Sink{}
	s.Init(n, ctx)
	s.DeclareInput("in")
	return s
}

func (s *Sink) Execute(ev *Evaluator, _ float64) error {
	ev.PullInput(s, "in", s.Collection())
	return nil
}
