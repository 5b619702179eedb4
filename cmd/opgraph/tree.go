package main

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/chazu/opgraph/pkg/graph"
)

// upstreamTree renders everything the output node pulls from, one branch per
// linked input. A node feeding several consumers appears under each of them.
func upstreamTree(g *graph.Graph) string {
	sink := g.Sink()
	if sink == nil {
		return ""
	}
	root := treeprint.NewWithRoot(label(sink))
	addInputs(g, root, sink)
	return root.String()
}

func addInputs(g *graph.Graph, t treeprint.Tree, n *graph.Node) {
	for _, in := range n.Inputs() {
		ref, ok := in.Link()
		if !ok {
			continue
		}
		out := g.OutputSocket(ref)
		if out == nil {
			t.AddNode(fmt.Sprintf("%s <- (stale)", in.Name()))
			continue
		}
		producer := out.Node()
		branch := t.AddMetaBranch(in.Name(), fmt.Sprintf("%s.%s", label(producer), out.Name()))
		addInputs(g, branch, producer)
	}
}

func label(n *graph.Node) string {
	if n.Key() == "" {
		return n.Name()
	}
	return fmt.Sprintf("%s [%s]", n.Name(), n.Key())
}
