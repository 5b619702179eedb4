// Package depsgraph orders whole objects for evaluation. Each vertex wraps
// one Object and has a single input (at most one link) and a single output
// (any number of links). Evaluate processes every object once per call, in
// the order computed by Order.
package depsgraph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/chazu/opgraph/internal/ctxlog"
)

var (
	ErrUnknownObject = errors.New("object not in depsgraph")
	ErrInputLinked   = errors.New("input already linked")
	ErrCycle         = errors.New("link would create a cycle")
)

// Object is something the depsgraph can schedule. Implementations must be
// comparable (typically pointers).
type Object interface {
	Name() string
	Process(ctx context.Context) error
}

// Node is one vertex.
type Node struct {
	obj     Object
	input   *Link
	outputs []*Link
}

func (n *Node) Object() Object { return n.obj }

// Input returns the link feeding n, or nil.
func (n *Node) Input() *Link { return n.input }

// Outputs returns the links n feeds.
func (n *Node) Outputs() []*Link { return append([]*Link(nil), n.outputs...) }

// Isolated reports whether n has no links at all.
func (n *Node) Isolated() bool { return n.input == nil && len(n.outputs) == 0 }

// Link records that To depends on From.
type Link struct {
	From *Node
	To   *Node
}

// Graph is the object-level dependency graph. It is not safe for
// concurrent use.
type Graph struct {
	nodes       []*Node
	byObj       map[Object]*Node
	order       []*Node
	needsUpdate bool
}

// New returns an empty depsgraph.
func New() *Graph {
	return &Graph{byObj: make(map[Object]*Node)}
}

// CreateNode adds obj, or returns its existing node.
func (g *Graph) CreateNode(obj Object) *Node {
	if n, ok := g.byObj[obj]; ok {
		return n
	}
	n := &Node{obj: obj}
	g.nodes = append(g.nodes, n)
	g.byObj[obj] = n
	g.needsUpdate = true
	return n
}

// Node returns obj's node.
func (g *Graph) Node(obj Object) (*Node, bool) {
	n, ok := g.byObj[obj]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// RemoveNode disconnects obj's links and removes it.
func (g *Graph) RemoveNode(obj Object) bool {
	n, ok := g.byObj[obj]
	if !ok {
		return false
	}
	if n.input != nil {
		g.unlink(n.input)
	}
	for _, l := range n.Outputs() {
		g.unlink(l)
	}
	for i, x := range g.nodes {
		if x == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	delete(g.byObj, obj)
	g.needsUpdate = true
	return true
}

// Connect records that to depends on from.
func (g *Graph) Connect(from, to Object) (*Link, error) {
	src, ok := g.byObj[from]
	if !ok {
		return nil, fmt.Errorf("connect %s: %w", from.Name(), ErrUnknownObject)
	}
	dst, ok := g.byObj[to]
	if !ok {
		return nil, fmt.Errorf("connect %s: %w", to.Name(), ErrUnknownObject)
	}
	if dst.input != nil {
		return nil, fmt.Errorf("connect %s -> %s: %w", from.Name(), to.Name(), ErrInputLinked)
	}
	if src == dst || reaches(dst, src) {
		return nil, fmt.Errorf("connect %s -> %s: %w", from.Name(), to.Name(), ErrCycle)
	}
	l := &Link{From: src, To: dst}
	dst.input = l
	src.outputs = append(src.outputs, l)
	g.needsUpdate = true
	return l, nil
}

// Disconnect removes the link from from to to, if present.
func (g *Graph) Disconnect(from, to Object) bool {
	dst, ok := g.byObj[to]
	if !ok || dst.input == nil || dst.input.From.obj != from {
		return false
	}
	g.unlink(dst.input)
	g.needsUpdate = true
	return true
}

func (g *Graph) unlink(l *Link) {
	l.To.input = nil
	outs := l.From.outputs
	for i, x := range outs {
		if x == l {
			l.From.outputs = append(outs[:i], outs[i+1:]...)
			break
		}
	}
	g.needsUpdate = true
}

// reaches reports whether to is downstream of from.
func reaches(from, to *Node) bool {
	stack := []*Node{from}
	seen := make(map[*Node]bool)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		for _, l := range n.outputs {
			stack = append(stack, l.To)
		}
	}
	return false
}

// Links returns every link, grouped by source in insertion order.
func (g *Graph) Links() []*Link {
	var out []*Link
	for _, n := range g.nodes {
		out = append(out, n.outputs...)
	}
	return out
}

// Order returns the evaluation order, recomputing it only after a mutation.
//
// Isolated nodes come first, in insertion order. The rest are ordered by a
// worklist seeded with every node whose out-degree is zero: popping a node
// appends it and decrements the out-degree of the node feeding its input,
// which joins the worklist on reaching zero. Consumers therefore come before
// the producers they depend on.
func (g *Graph) Order() []Object {
	if g.needsUpdate || g.order == nil {
		g.order = g.sort()
		g.needsUpdate = false
	}
	out := make([]Object, len(g.order))
	for i, n := range g.order {
		out[i] = n.obj
	}
	return out
}

func (g *Graph) sort() []*Node {
	order := make([]*Node, 0, len(g.nodes))
	degree := make(map[*Node]int, len(g.nodes))
	var work []*Node
	for _, n := range g.nodes {
		if n.Isolated() {
			order = append(order, n)
			continue
		}
		degree[n] = len(n.outputs)
		if degree[n] == 0 {
			work = append(work, n)
		}
	}
	for len(work) > 0 {
		n := work[0]
		work = work[1:]
		order = append(order, n)
		if n.input == nil {
			continue
		}
		src := n.input.From
		degree[src]--
		if degree[src] == 0 {
			work = append(work, src)
		}
	}
	return order
}

// Evaluate calls Process on every object in Order. A failing object does
// not stop the walk; all failures are returned together.
func (g *Graph) Evaluate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs *multierror.Error
	for _, obj := range g.Order() {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		start := time.Now()
		if err := obj.Process(ctx); err != nil {
			logger.Warn("object failed", "object", obj.Name(), "err", err)
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", obj.Name(), err))
			continue
		}
		logger.Debug("object processed", "object", obj.Name(), "elapsed", time.Since(start))
	}
	return errs.ErrorOrNil()
}
