package graph

import "fmt"

// NodeID is a generational handle to a node slot in a Graph. The zero value
// never refers to a node.
type NodeID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the zero handle.
func (id NodeID) IsZero() bool {
	return id.gen == 0
}

// Index returns the arena slot index.
func (id NodeID) Index() int {
	return int(id.index)
}

func (id NodeID) String() string {
	if id.IsZero() {
		return "node(none)"
	}
	return fmt.Sprintf("node(%d#%d)", id.index, id.gen)
}

// SocketKind distinguishes input from output sockets.
type SocketKind int

const (
	Input SocketKind = iota
	Output
)

func (k SocketKind) String() string {
	switch k {
	case Input:
		return "in"
	case Output:
		return "out"
	default:
		return fmt.Sprintf("SocketKind(%d)", int(k))
	}
}

// SocketRef addresses a socket by its node handle, kind and position.
type SocketRef struct {
	Node  NodeID
	Kind  SocketKind
	Index int
}

func (r SocketRef) String() string {
	return fmt.Sprintf("%s/%s/%d", r.Node, r.Kind, r.Index)
}

// Link is one edge of the graph, from an output socket to an input socket.
type Link struct {
	From SocketRef
	To   SocketRef
}
