package graph

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

type slot struct {
	gen  uint32
	node *Node
}

// Graph owns the nodes and links of one editable unit. It is not safe for
// concurrent use.
type Graph struct {
	ctx        *Context
	slots      []slot
	free       []uint32
	sink       NodeID
	selection  map[NodeID]struct{}
	dirty      bool
	evaluating bool

	// OnEvent, when set, receives every mutation notification.
	OnEvent func(Event)
}

// New returns a graph containing only its output node.
func New(ctx *Context) *Graph {
	return NewWithSinkUID(ctx, uuid.New())
}

// NewWithSinkUID is New with a fixed UID for the output node, so a loaded
// graph keeps the output socket ids it was saved with.
func NewWithSinkUID(ctx *Context, uid uuid.UUID) *Graph {
	g := &Graph{
		ctx:       ctx,
		selection: make(map[NodeID]struct{}),
		dirty:     true,
	}
	sink := NewNodeWithUID("Output", uid)
	sink.SetOperator(NewSink(sink, ctx), SinkKey)
	g.sink = g.Insert(sink)
	return g
}

func (g *Graph) Context() *Context { return g.ctx }

func (g *Graph) log() *slog.Logger { return g.ctx.logger() }

// Sink returns the output node, nil if it has been removed.
func (g *Graph) Sink() *Node {
	n, _ := g.Node(g.sink)
	return n
}

// IsDirty reports whether the graph changed since the last evaluation pass.
func (g *Graph) IsDirty() bool { return g.dirty }

func (g *Graph) markDirty() { g.dirty = true }

// Insert adds a detached node and returns its handle. Inserting a node twice
// returns its existing handle; a node owned by another graph is refused with
// the zero NodeID.
func (g *Graph) Insert(n *Node) NodeID {
	if !n.id.IsZero() {
		if g.owns(n) {
			g.log().Warn("node already inserted", "node", n.name, "id", n.id)
			return n.id
		}
		g.log().Warn("insert: node belongs to another graph", "node", n.name, "id", n.id)
		return NodeID{}
	}
	var idx uint32
	if k := len(g.free); k > 0 {
		idx = g.free[k-1]
		g.free = g.free[:k-1]
	} else {
		idx = uint32(len(g.slots))
		g.slots = append(g.slots, slot{gen: 1})
	}
	g.slots[idx].node = n
	n.id = NodeID{index: idx, gen: g.slots[idx].gen}
	g.markDirty()
	g.emit(CategoryNode, ActionAdd, n.id)
	return n.id
}

// AddNode creates a node named name running the operator registered under
// key and inserts it.
func (g *Graph) AddNode(name, key string) (*Node, error) {
	n, err := NewOperatorNode(g.ctx, name, key)
	if err != nil {
		return nil, err
	}
	g.Insert(n)
	return n, nil
}

// AddPreset creates a node from the node registry and inserts it.
func (g *Graph) AddPreset(category, name string) (*Node, error) {
	f, ok := g.ctx.Nodes.Lookup(category, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownPreset, category, name)
	}
	n, err := f(g.ctx)
	if err != nil {
		return nil, fmt.Errorf("preset %s/%s: %w", category, name, err)
	}
	g.Insert(n)
	return n, nil
}

// Node resolves a handle. Stale handles report false.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	if id.IsZero() || int(id.index) >= len(g.slots) {
		return nil, false
	}
	s := g.slots[id.index]
	if s.gen != id.gen || s.node == nil {
		return nil, false
	}
	return s.node, true
}

// Nodes returns the live nodes in arena order.
func (g *Graph) Nodes() []*Node {
	var out []*Node
	for _, s := range g.slots {
		if s.node != nil {
			out = append(out, s.node)
		}
	}
	return out
}

// Len returns the number of live nodes.
func (g *Graph) Len() int {
	return len(g.slots) - len(g.free)
}

// Lookup returns the first node named name in arena order, or nil.
func (g *Graph) Lookup(name string) *Node {
	for _, s := range g.slots {
		if s.node != nil && s.node.name == name {
			return s.node
		}
	}
	return nil
}

// InputSocket resolves an input handle, nil when stale.
func (g *Graph) InputSocket(ref SocketRef) *InputSocket {
	if ref.Kind != Input {
		return nil
	}
	n, ok := g.Node(ref.Node)
	if !ok {
		return nil
	}
	return n.InputAt(ref.Index)
}

// OutputSocket resolves an output handle, nil when stale.
func (g *Graph) OutputSocket(ref SocketRef) *OutputSocket {
	if ref.Kind != Output {
		return nil
	}
	n, ok := g.Node(ref.Node)
	if !ok {
		return nil
	}
	return n.OutputAt(ref.Index)
}

// owns reports whether n is a live node of g.
func (g *Graph) owns(n *Node) bool {
	if n == nil {
		return false
	}
	live, ok := g.Node(n.id)
	return ok && live == n
}

// Connect links out to in. It does nothing and returns false when in is
// already linked, when either socket does not belong to a live node of g, or
// when the link would close a cycle.
func (g *Graph) Connect(out *OutputSocket, in *InputSocket) bool {
	if out == nil || in == nil {
		g.log().Warn("connect: nil socket")
		return false
	}
	if !g.owns(out.node) || !g.owns(in.node) {
		g.log().Warn("connect: socket of a node not in this graph", "from", out.name, "to", in.name)
		return false
	}
	if in.link != nil {
		g.log().Warn("connect: input already linked", "node", in.node.name, "input", in.name)
		return false
	}
	if out.node == in.node || g.reaches(in.node.id, out.node.id) {
		g.log().Warn("connect: link would create a cycle", "from", out.node.name, "to", in.node.name)
		return false
	}
	ref := out.Ref()
	in.link = &ref
	out.links = append(out.links, in.Ref())
	g.markDirty()
	g.emit(CategoryLink, ActionAdd, in.node.id)
	return true
}

// Disconnect removes the link from out to in. It does nothing and returns
// false when no such link exists.
func (g *Graph) Disconnect(out *OutputSocket, in *InputSocket) bool {
	if out == nil || in == nil || in.link == nil || *in.link != out.Ref() {
		g.log().Warn("disconnect: no such link")
		return false
	}
	g.unlink(out, in)
	g.markDirty()
	g.emit(CategoryLink, ActionRemove, in.node.id)
	return true
}

func (g *Graph) unlink(out *OutputSocket, in *InputSocket) {
	target := in.Ref()
	for i, r := range out.links {
		if r == target {
			out.links = append(out.links[:i], out.links[i+1:]...)
			break
		}
	}
	in.link = nil
	if len(out.links) <= 1 {
		out.hasBuffer = false
	}
}

// RemoveNode disconnects every link of the node, drops it from the selection
// and frees its slot. Any handle to it goes stale.
func (g *Graph) RemoveNode(id NodeID) bool {
	n, ok := g.Node(id)
	if !ok {
		g.log().Warn("remove: no such node", "id", id)
		return false
	}
	for _, in := range n.inputs {
		if in.link == nil {
			continue
		}
		if out := g.OutputSocket(*in.link); out != nil {
			g.unlink(out, in)
			g.emit(CategoryLink, ActionRemove, n.id)
		} else {
			in.link = nil
		}
	}
	for _, out := range n.outputs {
		for _, ref := range out.Links() {
			if in := g.InputSocket(ref); in != nil {
				g.unlink(out, in)
				g.emit(CategoryLink, ActionRemove, ref.Node)
			}
		}
		out.links = nil
	}
	if _, sel := g.selection[id]; sel {
		delete(g.selection, id)
		g.emit(CategorySelection, ActionRemove, id)
	}
	g.slots[id.index].node = nil
	g.slots[id.index].gen++
	g.free = append(g.free, id.index)
	n.id = NodeID{}
	g.markDirty()
	g.emit(CategoryNode, ActionRemove, id)
	return true
}

// Links returns every link, ordered by consuming node then input index.
func (g *Graph) Links() []Link {
	var out []Link
	for _, s := range g.slots {
		if s.node == nil {
			continue
		}
		for _, in := range s.node.inputs {
			if in.link != nil {
				out = append(out, Link{From: *in.link, To: in.Ref()})
			}
		}
	}
	return out
}

// reaches reports whether to is downstream of from.
func (g *Graph) reaches(from, to NodeID) bool {
	seen := make(map[NodeID]bool)
	stack := []NodeID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		for _, out := range n.outputs {
			for _, r := range out.links {
				stack = append(stack, r.Node)
			}
		}
	}
	return false
}

// MarkDownstreamDirty flags id and every node it feeds.
func (g *Graph) MarkDownstreamDirty(id NodeID) {
	g.walk(id, func(n *Node) []NodeID {
		var next []NodeID
		for _, out := range n.outputs {
			for _, r := range out.links {
				next = append(next, r.Node)
			}
		}
		return next
	})
}

// MarkUpstreamDirty flags id and every node feeding it.
func (g *Graph) MarkUpstreamDirty(id NodeID) {
	g.walk(id, func(n *Node) []NodeID {
		var next []NodeID
		for _, in := range n.inputs {
			if in.link != nil {
				next = append(next, in.link.Node)
			}
		}
		return next
	})
}

func (g *Graph) walk(start NodeID, next func(*Node) []NodeID) {
	seen := make(map[NodeID]bool)
	stack := []NodeID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		n.dirty = true
		stack = append(stack, next(n)...)
	}
	g.markDirty()
}
