package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/opgraph/internal/ctxlog"
	"github.com/chazu/opgraph/pkg/config"
	"github.com/chazu/opgraph/pkg/engine"
	"github.com/chazu/opgraph/pkg/graph"
	"github.com/chazu/opgraph/pkg/kernel"
	"github.com/chazu/opgraph/pkg/kernel/manifold"
	"github.com/chazu/opgraph/pkg/kernel/sdfx"
	"github.com/chazu/opgraph/pkg/ops"
	"github.com/chazu/opgraph/pkg/persist"
	"github.com/chazu/opgraph/pkg/scene"
	"github.com/chazu/opgraph/pkg/tessellate"
)

// colorPalette assigns distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// objectName is the scene object holding the graph being evaluated.
const objectName = "main"

// App runs one evaluation session: a kernel, the operator context, the
// script engine built from a Config and the scene evaluated graphs live in.
type App struct {
	kernel kernel.Kernel
	ctx    *graph.Context
	engine *engine.Engine
	scene  *scene.Scene
	logger *slog.Logger
}

// MeshData is the JSON mesh format written by -json.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a script error, a load failure or an operator warning.
// Line and Col are zero when the message has no source position.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is everything one evaluation produced.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`

	// Graph is the evaluated graph, nil when nothing could be built.
	Graph *graph.Graph `json:"-"`
}

func newResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

func (r *EvalResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, EvalErrorData{Message: fmt.Sprintf(format, args...)})
}

func (r *EvalResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, EvalErrorData{Message: fmt.Sprintf(format, args...)})
}

// NewKernel builds the kernel named by cfg.
func NewKernel(cfg *config.Config) (kernel.Kernel, error) {
	switch cfg.Kernel {
	case "sdfx":
		return sdfx.NewWithCells(cfg.MeshCells), nil
	case "manifold":
		return manifold.New()
	default:
		return nil, fmt.Errorf("unknown kernel %q", cfg.Kernel)
	}
}

// NewApp creates an App from cfg using kernel k.
func NewApp(cfg *config.Config, k kernel.Kernel, logger *slog.Logger) (*App, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	gctx := ops.NewContext(k, logger)
	return &App{
		kernel: k,
		ctx:    gctx,
		engine: engine.NewEngine(gctx, engine.WithTimeout(timeout)),
		scene:  scene.New(),
		logger: logger,
	}, nil
}

// Evaluate runs a script and meshes the graph it builds.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := newResult()
	ctx = ctxlog.WithLogger(ctx, a.logger)

	g, evalErrs, err := a.engine.EvaluateContext(ctx, source)
	if err != nil {
		a.logger.Error("evaluate fatal error", "err", err)
		result.fail("%v", err)
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	a.render(ctx, g, &result)
	return result
}

// Load reads a saved graph and meshes it. A graph with nodes whose operator
// is unknown is still evaluated; the missing keys are reported as warnings.
func (a *App) Load(ctx context.Context, path string) EvalResult {
	result := newResult()
	ctx = ctxlog.WithLogger(ctx, a.logger)

	g, err := persist.LoadFile(path, a.ctx)
	switch {
	case err == nil:
	case persist.StatusOf(err) == persist.MissingPlugin && g != nil:
		a.logger.Warn("loaded with missing operators", "path", path, "err", err)
		result.warn("%v", err)
	default:
		a.logger.Error("load failed", "path", path, "status", persist.StatusOf(err), "err", err)
		result.fail("%v", err)
		return result
	}
	a.render(ctx, g, &result)
	return result
}

// Save writes g to path.
func (a *App) Save(g *graph.Graph, path string) error {
	if g == nil {
		return errors.New("nothing to save")
	}
	if err := persist.SaveFile(path, g); err != nil {
		return err
	}
	a.logger.Info("graph saved", "path", path, "nodes", g.Len())
	return nil
}

// render replaces the scene's object with g, evaluates the scene once and
// converts the object's result into meshes.
func (a *App) render(ctx context.Context, g *graph.Graph, result *EvalResult) {
	result.Graph = g

	a.scene.Remove(objectName)
	obj := scene.NewObject(objectName, g)
	if err := a.scene.Add(obj); err != nil {
		result.fail("%v", err)
		return
	}
	if err := a.scene.Evaluate(ctx); err != nil {
		result.fail("%v", err)
		return
	}
	for _, w := range obj.Warnings() {
		result.warn("%s", w)
	}

	meshes, err := tessellate.Collection(obj.Result(), a.kernel)
	if err != nil {
		a.logger.Error("tessellate error", "err", err)
		result.fail("tessellation failed: %v", err)
	}
	for i, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	verts, tris := tessellate.Stats(meshes)
	a.logger.Debug("rendered", "meshes", len(meshes), "vertices", verts, "triangles", tris)
}
