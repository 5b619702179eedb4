package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/zclconf/go-cty/cty"

	"github.com/chazu/opgraph/pkg/graph"
)

// sexpNode is a handle to a graph node passed between builtins.
type sexpNode struct {
	id   graph.NodeID
	name string
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(node %q)", n.name)
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

type sexpVec3 struct {
	vec [3]float64
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts :keyword or "string".
func toKeywordString(s zygo.Sexp) (string, error) {
	if kw, ok := isKW(s); ok {
		return kw, nil
	}
	str, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected keyword or string: %w", err)
	}
	return str, nil
}

func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toValue converts a script value into the cty form properties use.
// Keywords become strings so enum values can be written as :difference.
func toValue(s zygo.Sexp) (cty.Value, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return cty.NumberIntVal(v.Val), nil
	case *zygo.SexpFloat:
		return cty.NumberFloatVal(v.Val), nil
	case *zygo.SexpBool:
		return cty.BoolVal(v.Val), nil
	case *zygo.SexpStr:
		if kw, ok := isKW(v); ok {
			return cty.StringVal(kw), nil
		}
		return cty.StringVal(v.S), nil
	case *sexpVec3:
		return graph.Vec3(v.vec[0], v.vec[1], v.vec[2]), nil
	case *zygo.SexpPair, *zygo.SexpArray:
		items, err := sexpListToSlice(s)
		if err != nil {
			return cty.NilVal, err
		}
		vals := make([]cty.Value, 0, len(items))
		for i, item := range items {
			val, err := toValue(item)
			if err != nil {
				return cty.NilVal, fmt.Errorf("element %d: %w", i, err)
			}
			vals = append(vals, val)
		}
		return cty.TupleVal(vals), nil
	}
	return cty.NilVal, fmt.Errorf("unsupported value %T (%s)", s, s.SexpString(nil))
}

// resolve finds the node a builtin argument names, by handle or label.
func resolve(g *graph.Graph, s zygo.Sexp) (*graph.Node, error) {
	switch v := s.(type) {
	case *sexpNode:
		if n, ok := g.Node(v.id); ok {
			return n, nil
		}
		return nil, fmt.Errorf("node %q no longer exists", v.name)
	case *zygo.SexpStr:
		if n := g.Lookup(v.S); n != nil {
			return n, nil
		}
		return nil, fmt.Errorf("no node labelled %q", v.S)
	}
	return nil, fmt.Errorf("expected node or label, got %T (%s)", s, s.SexpString(nil))
}

func nodeRef(n *graph.Node) *sexpNode {
	return &sexpNode{id: n.ID(), name: n.Name()}
}

// registerBuiltins installs the graph-building builtins into env. They
// operate on g. Source must go through preprocessSource first so :keyword
// arguments are recognisable.
func registerBuiltins(env *zygo.Zlisp, g *graph.Graph) {
	// label must be unused; scripts refer to nodes by label.
	newLabel := func(fn string, s zygo.Sexp) (string, error) {
		label, err := toString(s)
		if err != nil {
			return "", fmt.Errorf("%s: label: %w", fn, err)
		}
		if g.Lookup(label) != nil {
			return "", fmt.Errorf("%s: label %q already used", fn, label)
		}
		return label, nil
	}

	// (node "label" "key")
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("node requires a label and an operator key")
		}
		label, err := newLabel(name, args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		key, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: key: %w", err)
		}
		n, err := g.AddNode(label, key)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: %w", err)
		}
		return nodeRef(n), nil
	})

	// (preset "label" "Category" "Name")
	env.AddFunction("preset", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("preset requires a label, a category and a name")
		}
		label, err := newLabel(name, args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		category, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("preset: category: %w", err)
		}
		preset, err := toKeywordString(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("preset: name: %w", err)
		}
		n, err := g.AddPreset(category, preset)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("preset: %w", err)
		}
		n.SetName(label)
		return nodeRef(n), nil
	})

	// (param node :prop value :prop value ...)
	env.AddFunction("param", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 3 || len(args)%2 != 1 {
			return zygo.SexpNull, fmt.Errorf("param requires a node followed by :property value pairs")
		}
		n, err := resolve(g, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: %w", err)
		}
		if n.Operator() == nil {
			return zygo.SexpNull, fmt.Errorf("param: node %q has no operator", n.Name())
		}
		props := n.Operator().Base().Props()
		for i := 1; i < len(args); i += 2 {
			prop, err := toKeywordString(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("param: property name: %w", err)
			}
			val, err := toValue(args[i+1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("param: %s: %w", prop, err)
			}
			if err := props.Set(prop, val); err != nil {
				return zygo.SexpNull, fmt.Errorf("param: node %q: %w", n.Name(), err)
			}
		}
		return nodeRef(n), nil
	})

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v sexpVec3
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			v.vec[i] = f
		}
		return &v, nil
	})

	// (connect from "out" to "in")
	env.AddFunction("connect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("connect requires from, output, to and input")
		}
		from, err := resolve(g, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: from: %w", err)
		}
		to, err := resolve(g, args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: to: %w", err)
		}
		if err := link(g, from, args[1], to, args[3]); err != nil {
			return zygo.SexpNull, fmt.Errorf("connect: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (output node) or (output node "socket")
	env.AddFunction("output", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 || len(args) > 2 {
			return zygo.SexpNull, fmt.Errorf("output requires a node and an optional output name")
		}
		from, err := resolve(g, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("output: %w", err)
		}
		var socket zygo.Sexp = &zygo.SexpStr{S: "out"}
		if len(args) == 2 {
			socket = args[1]
		}
		sink := g.Sink()
		if sink == nil {
			return zygo.SexpNull, fmt.Errorf("output: graph has no output node")
		}
		if err := link(g, from, socket, sink, &zygo.SexpStr{S: "in"}); err != nil {
			return zygo.SexpNull, fmt.Errorf("output: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (position node x y)
	env.AddFunction("position", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("position requires a node, x and y")
		}
		n, err := resolve(g, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("position: %w", err)
		}
		x, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("position: x: %w", err)
		}
		y, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("position: y: %w", err)
		}
		n.SetPosition(x, y)
		return nodeRef(n), nil
	})
}

func link(g *graph.Graph, from *graph.Node, outName zygo.Sexp, to *graph.Node, inName zygo.Sexp) error {
	o, err := toKeywordString(outName)
	if err != nil {
		return fmt.Errorf("output name: %w", err)
	}
	i, err := toKeywordString(inName)
	if err != nil {
		return fmt.Errorf("input name: %w", err)
	}
	out := from.Output(o)
	if out == nil {
		return fmt.Errorf("node %q has no output %q", from.Name(), o)
	}
	in := to.Input(i)
	if in == nil {
		return fmt.Errorf("node %q has no input %q", to.Name(), i)
	}
	if !g.Connect(out, in) {
		return fmt.Errorf("%s.%s -> %s.%s rejected: input already linked or link would form a cycle", from.Name(), o, to.Name(), i)
	}
	return nil
}
