package graph

import "github.com/google/uuid"

// Position is a node's location on the editor canvas.
type Position struct {
	X, Y float64
}

// Node owns its sockets and exactly one operator. A node is created
// detached (zero ID) and becomes addressable once a Graph inserts it.
type Node struct {
	id       NodeID
	uid      uuid.UUID
	name     string
	key      string
	inputs   []*InputSocket
	outputs  []*OutputSocket
	op       Operator
	position Position
	dirty    bool
}

// NewNode returns a detached node with a fresh UID.
func NewNode(name string) *Node {
	return NewNodeWithUID(name, uuid.New())
}

// NewNodeWithUID returns a detached node with the given UID. Loaders use it
// to keep socket ids stable across a save/load round trip.
func NewNodeWithUID(name string, uid uuid.UUID) *Node {
	return &Node{uid: uid, name: name, dirty: true}
}

func (n *Node) ID() NodeID          { return n.id }
func (n *Node) UID() uuid.UUID      { return n.uid }
func (n *Node) Name() string        { return n.name }
func (n *Node) SetName(name string) { n.name = name }

// Key returns the registry key of the node's operator, empty if none is set.
func (n *Node) Key() string { return n.key }

func (n *Node) Position() Position { return n.position }

func (n *Node) SetPosition(x, y float64) {
	n.position = Position{X: x, Y: y}
}

// IsDirty reports whether the node has been invalidated since the last pass.
func (n *Node) IsDirty() bool { return n.dirty }

// IsBuffered reports whether the node's operator result is reusable for the
// rest of the current pass.
func (n *Node) IsBuffered() bool {
	return n.op != nil && n.op.Base().buffered
}

// AddInput appends an input socket named name.
func (n *Node) AddInput(name string) *InputSocket {
	idx := len(n.inputs)
	s := &InputSocket{Socket: Socket{node: n, name: name, kind: Input, index: idx, id: socketID(n, Input, idx)}}
	n.inputs = append(n.inputs, s)
	return s
}

// AddOutput appends an output socket named name.
func (n *Node) AddOutput(name string) *OutputSocket {
	idx := len(n.outputs)
	s := &OutputSocket{Socket: Socket{node: n, name: name, kind: Output, index: idx, id: socketID(n, Output, idx)}}
	n.outputs = append(n.outputs, s)
	return s
}

// Input returns the first input named name, or nil.
func (n *Node) Input(name string) *InputSocket {
	for _, s := range n.inputs {
		if s.name == name {
			return s
		}
	}
	return nil
}

// InputAt returns the i-th input, or nil when i is out of range.
func (n *Node) InputAt(i int) *InputSocket {
	if i < 0 || i >= len(n.inputs) {
		return nil
	}
	return n.inputs[i]
}

// Output returns the first output named name, or nil.
func (n *Node) Output(name string) *OutputSocket {
	for _, s := range n.outputs {
		if s.name == name {
			return s
		}
	}
	return nil
}

// OutputAt returns the i-th output, or nil when i is out of range.
func (n *Node) OutputAt(i int) *OutputSocket {
	if i < 0 || i >= len(n.outputs) {
		return nil
	}
	return n.outputs[i]
}

func (n *Node) Inputs() []*InputSocket   { return n.inputs }
func (n *Node) Outputs() []*OutputSocket { return n.outputs }

// IsLinked reports whether any socket of n carries a link.
func (n *Node) IsLinked() bool {
	for _, s := range n.inputs {
		if s.IsLinked() {
			return true
		}
	}
	for _, s := range n.outputs {
		if s.IsLinked() {
			return true
		}
	}
	return false
}

// Operator returns the node's operator, nil until one is set.
func (n *Node) Operator() Operator { return n.op }

// SetOperator attaches op under registry key key and creates a socket for
// every declared name the node does not already carry.
func (n *Node) SetOperator(op Operator, key string) {
	b := op.Base()
	b.node = n
	b.key = key
	n.op = op
	n.key = key
	for i, name := range b.inputs {
		if n.InputAt(i) == nil {
			n.AddInput(name)
		}
	}
	for i, name := range b.outputs {
		if n.OutputAt(i) == nil {
			n.AddOutput(name)
		}
	}
}
