package graph

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/chazu/opgraph/pkg/geom"
	"github.com/chazu/opgraph/pkg/kernel"
)

// State tracks an operator through one evaluation pass.
type State int

const (
	StateDirty State = iota
	StateExecuting
	StateExecuted
	StateBuffered
	StateConsumed
)

func (s State) String() string {
	switch s {
	case StateDirty:
		return "dirty"
	case StateExecuting:
		return "executing"
	case StateExecuted:
		return "executed"
	case StateBuffered:
		return "buffered"
	case StateConsumed:
		return "consumed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats are execution diagnostics. They never influence evaluation.
type Stats struct {
	Executions int
	Last       time.Duration
	Total      time.Duration
}

// Operator computes a node's collection. Execute fills Base().Collection(),
// usually after pulling inputs through ev. A returned error or a panic
// becomes a warning on the operator; the pass continues.
type Operator interface {
	Base() *OperatorBase
	Execute(ev *Evaluator, t float64) error
}

// OperatorBase carries the state every operator shares. Concrete operators
// embed it and call Init from their factory.
type OperatorBase struct {
	node    *Node
	ctx     *Context
	key     string
	inputs  []string
	outputs []string
	props   Properties

	needsExecution bool
	buffered       bool
	state          State
	collection     *geom.Collection
	warnings       []string
	stats          Stats
}

// Init binds the operator to its node and context.
func (b *OperatorBase) Init(n *Node, ctx *Context) {
	b.node = n
	b.ctx = ctx
	b.needsExecution = true
}

// Base returns b. Embedding types inherit it and satisfy Operator with
// nothing but Execute.
func (b *OperatorBase) Base() *OperatorBase { return b }

// DeclareInput names an input the node should carry.
func (b *OperatorBase) DeclareInput(name string) { b.inputs = append(b.inputs, name) }

// DeclareOutput names an output the node should carry.
func (b *OperatorBase) DeclareOutput(name string) { b.outputs = append(b.outputs, name) }

// InputNames returns the declared input names in declaration order.
func (b *OperatorBase) InputNames() []string { return b.inputs }

// OutputNames returns the declared output names in declaration order.
func (b *OperatorBase) OutputNames() []string { return b.outputs }

func (b *OperatorBase) Node() *Node       { return b.node }
func (b *OperatorBase) Context() *Context { return b.ctx }
func (b *OperatorBase) Key() string       { return b.key }

// Kernel returns the geometry kernel from the operator's context.
func (b *OperatorBase) Kernel() kernel.Kernel {
	if b.ctx == nil {
		return nil
	}
	return b.ctx.Kernel
}

// Props returns the operator's parameters.
func (b *OperatorBase) Props() *Properties { return &b.props }

// Collection returns the collection produced by the latest execution. It is
// nil before the first execution of a pass.
func (b *OperatorBase) Collection() *geom.Collection { return b.collection }

// State returns where the operator is in the current pass.
func (b *OperatorBase) State() State { return b.state }

func (b *OperatorBase) NeedsExecution() bool { return b.needsExecution }
func (b *OperatorBase) IsBuffered() bool     { return b.buffered }

// Stats returns execution counts and timings accumulated across passes.
func (b *OperatorBase) Stats() Stats { return b.stats }

func (b *OperatorBase) Warnings() []string { return b.warnings }
func (b *OperatorBase) ClearWarnings()       { b.warnings = nil }

// Warn records a non-fatal problem with the current execution.
func (b *OperatorBase) Warn(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// reset prepares the operator for a new pass.
func (b *OperatorBase) reset() {
	b.needsExecution = true
	b.buffered = false
	b.state = StateDirty
	b.collection = nil
	b.warnings = nil
	if b.node != nil {
		for _, out := range b.node.outputs {
			out.hasBuffer = false
		}
	}
}

func (b *OperatorBase) logger() *slog.Logger {
	return b.ctx.logger()
}
