package graph

import "fmt"

// Socket holds what input and output sockets have in common.
type Socket struct {
	node  *Node
	name  string
	kind  SocketKind
	index int
	id    string
}

// Name returns the socket name given at creation.
func (s *Socket) Name() string { return s.name }

// Node returns the owning node.
func (s *Socket) Node() *Node { return s.node }

// Kind returns Input or Output.
func (s *Socket) Kind() SocketKind { return s.kind }

// Index returns the socket's position among its node's sockets of the same kind.
func (s *Socket) Index() int { return s.index }

// ID returns the persistent identifier assigned when the socket was created.
// It is derived from the owning node's UID and stays stable across save/load.
func (s *Socket) ID() string { return s.id }

// Ref returns the handle for this socket.
func (s *Socket) Ref() SocketRef {
	return SocketRef{Node: s.node.id, Kind: s.kind, Index: s.index}
}

func socketID(n *Node, kind SocketKind, index int) string {
	return fmt.Sprintf("%s/%s/%d", n.uid, kind, index)
}

// InputSocket accepts at most one link.
type InputSocket struct {
	Socket
	link *SocketRef
}

// Link returns the output feeding this input, if any.
func (s *InputSocket) Link() (SocketRef, bool) {
	if s.link == nil {
		return SocketRef{}, false
	}
	return *s.link, true
}

// IsLinked reports whether an output feeds this input.
func (s *InputSocket) IsLinked() bool {
	return s.link != nil
}

// OutputSocket feeds zero or more inputs.
type OutputSocket struct {
	Socket
	links     []SocketRef
	hasBuffer bool
}

// Links returns the inputs this output feeds.
func (s *OutputSocket) Links() []SocketRef {
	out := make([]SocketRef, len(s.links))
	copy(out, s.links)
	return out
}

// LinkCount returns the number of outgoing links.
func (s *OutputSocket) LinkCount() int {
	return len(s.links)
}

// IsLinked reports whether the output feeds anything.
func (s *OutputSocket) IsLinked() bool {
	return len(s.links) > 0
}

// HasBuffer reports whether the producer behind this output was buffered for
// fan-out during the current pass.
func (s *OutputSocket) HasBuffer() bool {
	return s.hasBuffer
}
