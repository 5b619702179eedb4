package graph

import (
	"log/slog"

	"github.com/chazu/opgraph/pkg/kernel"
)

// Context carries what operators and graphs need from their host: the
// registries used to create nodes, the geometry kernel and a logger.
type Context struct {
	Operators *OperatorRegistry
	Nodes     *NodeRegistry
	Kernel    kernel.Kernel
	Logger    *slog.Logger
}

// NewContext returns a Context with empty registries.
func NewContext(k kernel.Kernel, logger *slog.Logger) *Context {
	return &Context{
		Operators: NewOperatorRegistry(),
		Nodes:     NewNodeRegistry(),
		Kernel:    k,
		Logger:    logger,
	}
}

func (c *Context) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
