package graph

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownOperator = errors.New("unknown operator")
	ErrUnknownPreset   = errors.New("unknown node preset")
)

// OperatorFactory builds an operator for n. It declares the operator's
// sockets and properties; the caller attaches the result with SetOperator.
type OperatorFactory func(n *Node, ctx *Context) Operator

// OperatorRegistry maps operator keys to factories.
type OperatorRegistry struct {
	factories map[string]OperatorFactory
	order     []string
}

func NewOperatorRegistry() *OperatorRegistry {
	return &OperatorRegistry{factories: make(map[string]OperatorFactory)}
}

// Register adds f under key. Registering a key twice is a programming error
// and panics.
func (r *OperatorRegistry) Register(key string, f OperatorFactory) {
	if _, dup := r.factories[key]; dup {
		panic(fmt.Sprintf("graph: operator %q registered twice", key))
	}
	r.factories[key] = f
	r.order = append(r.order, key)
}

// Lookup returns the factory registered under key.
func (r *OperatorRegistry) Lookup(key string) (OperatorFactory, bool) {
	f, ok := r.factories[key]
	return f, ok
}

// Keys returns registered keys in registration order.
func (r *OperatorRegistry) Keys() []string {
	return append([]string(nil), r.order...)
}

// NodeFactory builds a complete, detached node: operator, sockets and
// property values.
type NodeFactory func(ctx *Context) (*Node, error)

// PresetKey names a node type within its category.
type PresetKey struct {
	Category string
	Name     string
}

func (k PresetKey) String() string { return k.Category + "/" + k.Name }

// NodeRegistry maps (category, name) pairs to node factories.
type NodeRegistry struct {
	factories map[PresetKey]NodeFactory
	order     []PresetKey
}

func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{factories: make(map[PresetKey]NodeFactory)}
}

// Register adds f under (category, name) and panics on a duplicate.
func (r *NodeRegistry) Register(category, name string, f NodeFactory) {
	k := PresetKey{Category: category, Name: name}
	if _, dup := r.factories[k]; dup {
		panic(fmt.Sprintf("graph: node preset %s registered twice", k))
	}
	r.factories[k] = f
	r.order = append(r.order, k)
}

func (r *NodeRegistry) Lookup(category, name string) (NodeFactory, bool) {
	f, ok := r.factories[PresetKey{Category: category, Name: name}]
	return f, ok
}

// Keys returns registered presets in registration order.
func (r *NodeRegistry) Keys() []PresetKey {
	return append([]PresetKey(nil), r.order...)
}

// Categories returns the distinct categories, sorted.
func (r *NodeRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, k := range r.order {
		if !seen[k.Category] {
			seen[k.Category] = true
			cats = append(cats, k.Category)
		}
	}
	sort.Strings(cats)
	return cats
}

// NewOperatorNode builds a detached node named name running the operator
// registered under key.
func NewOperatorNode(ctx *Context, name, key string) (*Node, error) {
	f, ok := ctx.Operators.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, key)
	}
	n := NewNode(name)
	n.SetOperator(f(n, ctx), key)
	return n, nil
}
