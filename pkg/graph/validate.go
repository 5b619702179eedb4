package graph

import "fmt"

// ValidationError describes one structural problem found by Validate.
type ValidationError struct {
	Node    NodeID // zero if graph-level
	Message string
}

func (e ValidationError) Error() string {
	if e.Node.IsZero() {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Node, e.Message)
}

// Validate checks the link invariant on both ends of every link, that every
// link resolves to a live socket, and that the graph is acyclic. An empty
// result means the graph is valid. It never mutates g.
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateLinks(g)...)
	errs = append(errs, validateDAG(g)...)
	if g.Sink() == nil {
		errs = append(errs, ValidationError{Message: "graph has no output node"})
	}
	return errs
}

func validateLinks(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, n := range g.Nodes() {
		for _, in := range n.inputs {
			if in.link == nil {
				continue
			}
			out := g.OutputSocket(*in.link)
			if out == nil {
				errs = append(errs, ValidationError{Node: n.id, Message: fmt.Sprintf("input %q links to missing output %s", in.name, in.link)})
				continue
			}
			if !containsRef(out.links, in.Ref()) {
				errs = append(errs, ValidationError{Node: n.id, Message: fmt.Sprintf("input %q link not mirrored on output %q", in.name, out.name)})
			}
		}
		for _, out := range n.outputs {
			for _, r := range out.links {
				in := g.InputSocket(r)
				if in == nil {
					errs = append(errs, ValidationError{Node: n.id, Message: fmt.Sprintf("output %q links to missing input %s", out.name, r)})
					continue
				}
				if in.link == nil || *in.link != out.Ref() {
					errs = append(errs, ValidationError{Node: n.id, Message: fmt.Sprintf("output %q link not mirrored on input %q", out.name, in.name)})
				}
			}
		}
	}
	return errs
}

func containsRef(refs []SocketRef, r SocketRef) bool {
	for _, x := range refs {
		if x == r {
			return true
		}
	}
	return false
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = on the current path, black (2) = done.
// Reaching a gray node means a cycle.
func validateDAG(g *Graph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{Node: id, Message: "node is part of a cycle"})
			return true
		}
		color[id] = gray
		n, ok := g.Node(id)
		if !ok {
			// Dangling; reported by validateLinks.
			color[id] = black
			return false
		}
		for _, out := range n.outputs {
			for _, r := range out.links {
				if visit(r.Node) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, n := range g.Nodes() {
		if color[n.id] == white && visit(n.id) {
			// One cycle is enough.
			break
		}
	}
	return errs
}
