// Package ops provides the built-in operators and the node presets built on
// them.
package ops

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/opgraph/pkg/graph"
	"github.com/chazu/opgraph/pkg/kernel"
)

// Operator keys.
const (
	KeyBox       = "box"
	KeySphere    = "sphere"
	KeyCylinder  = "cylinder"
	KeyTransform = "transform"
	KeyMerge     = "merge"
	KeyBoolean   = "boolean"
	KeyOutput    = graph.SinkKey
)

// Preset categories.
const (
	CategoryPrimitives = "Primitives"
	CategoryModifiers  = "Modifiers"
)

var errNoKernel = errors.New("no geometry kernel configured")

// Register adds every built-in operator to reg.
func Register(reg *graph.OperatorRegistry) {
	reg.Register(KeyBox, NewBox)
	reg.Register(KeySphere, NewSphere)
	reg.Register(KeyCylinder, NewCylinder)
	reg.Register(KeyTransform, NewTransform)
	reg.Register(KeyMerge, NewMerge)
	reg.Register(KeyBoolean, NewBoolean)
	reg.Register(KeyOutput, graph.NewSink)
}

// RegisterNodes adds the node presets to reg. The operators they use must be
// registered in the same Context.
func RegisterNodes(reg *graph.NodeRegistry) {
	reg.Register(CategoryPrimitives, "Box", preset("Box", KeyBox))
	reg.Register(CategoryPrimitives, "Sphere", preset("Sphere", KeySphere))
	reg.Register(CategoryPrimitives, "Cylinder", preset("Cylinder", KeyCylinder))
	reg.Register(CategoryModifiers, "Transform", preset("Transform", KeyTransform))
	reg.Register(CategoryModifiers, "Merge", preset("Merge", KeyMerge))
	reg.Register(CategoryModifiers, "Boolean", preset("Boolean", KeyBoolean))
}

// NewContext returns a Context with every built-in operator and preset
// registered.
func NewContext(k kernel.Kernel, logger *slog.Logger) *graph.Context {
	ctx := graph.NewContext(k, logger)
	Register(ctx.Operators)
	RegisterNodes(ctx.Nodes)
	return ctx
}

func preset(name, key string) graph.NodeFactory {
	return func(ctx *graph.Context) (*graph.Node, error) {
		return graph.NewOperatorNode(ctx, name, key)
	}
}

func kernelOf(b *graph.OperatorBase) (kernel.Kernel, error) {
	k := b.Kernel()
	if k == nil {
		return nil, errNoKernel
	}
	return k, nil
}

func positive(name string, vals ...float64) error {
	for _, v := range vals {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %g", name, v)
		}
	}
	return nil
}
