// Command opgraph evaluates an operator graph and reports the meshes it
// produces.
//
// The graph comes either from a script:
//
//	opgraph [flags] model.opg
//	opgraph [flags] - < model.opg
//
// or from a saved graph:
//
//	opgraph [flags] -load model.json
//
// With -save the evaluated graph is written back out as JSON, so scripts
// can be converted into saved graphs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/chazu/opgraph/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath string
	loadPath   string
	savePath   string
	jsonOut    bool
	tree       bool
	logLevel   string
	logFormat  string
	kernel     string
	cells      int
	timeout    string
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	fs := flag.NewFlagSet("opgraph", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: opgraph [flags] <script.opg | ->")
		fmt.Fprintln(stderr, "       opgraph [flags] -load <graph.json>")
		fs.PrintDefaults()
	}

	var o options
	fs.StringVar(&o.configPath, "config", "", "HCL config file")
	fs.StringVar(&o.loadPath, "load", "", "evaluate a saved graph instead of a script")
	fs.StringVar(&o.savePath, "save", "", "write the evaluated graph to this file")
	fs.BoolVar(&o.jsonOut, "json", false, "print the full result as JSON")
	fs.BoolVar(&o.tree, "tree", false, "print the nodes feeding the output before the mesh table")
	fs.StringVar(&o.logLevel, "log-level", "", "override log_level")
	fs.StringVar(&o.logFormat, "log-format", "", "override log_format")
	fs.StringVar(&o.kernel, "kernel", "", "override kernel (sdfx or manifold)")
	fs.IntVar(&o.cells, "cells", 0, "override mesh_cells")
	fs.StringVar(&o.timeout, "timeout", "", "override eval_timeout")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return &o, fs.Args(), nil
}

// loadConfig reads the config file, if any, and applies flag overrides.
func (o *options) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if o.kernel != "" {
		cfg.Kernel = o.kernel
	}
	if o.cells > 0 {
		cfg.MeshCells = o.cells
	}
	if o.timeout != "" {
		cfg.EvalTimeout = o.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run is main without the process exit. It returns 0 on success, 1 when the
// evaluation reported errors and 2 for usage or setup failures.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, rest, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}
	if (o.loadPath == "") == (len(rest) == 0) || len(rest) > 1 {
		fmt.Fprintln(stderr, "opgraph: give exactly one script or -load")
		return 2
	}

	cfg, err := o.loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "opgraph: %v\n", err)
		return 2
	}
	logger := cfg.NewLogger(stderr)

	k, err := NewKernel(cfg)
	if err != nil {
		logger.Error("kernel unavailable", "kernel", cfg.Kernel, "err", err)
		return 2
	}
	app, err := NewApp(cfg, k, logger)
	if err != nil {
		logger.Error("setup failed", "err", err)
		return 2
	}

	var result EvalResult
	if o.loadPath != "" {
		result = app.Load(ctx, o.loadPath)
	} else {
		src, err := readSource(rest[0], stdin)
		if err != nil {
			logger.Error("read script", "err", err)
			return 2
		}
		result = app.Evaluate(ctx, string(src))
	}

	if o.savePath != "" && result.Graph != nil {
		if err := app.Save(result.Graph, o.savePath); err != nil {
			result.fail("save: %v", err)
		}
	}

	if o.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			logger.Error("encode result", "err", err)
			return 1
		}
	} else {
		if o.tree && result.Graph != nil {
			fmt.Fprint(stdout, upstreamTree(result.Graph))
		}
		report(stdout, stderr, result)
	}
	if len(result.Errors) > 0 {
		return 1
	}
	return 0
}

func readSource(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// report prints one row per mesh to stdout and problems to stderr.
func report(stdout, stderr io.Writer, result EvalResult) {
	for _, e := range result.Errors {
		if e.Line > 0 {
			fmt.Fprintf(stderr, "error: line %d: %s\n", e.Line, e.Message)
		} else {
			fmt.Fprintf(stderr, "error: %s\n", e.Message)
		}
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w.Message)
	}
	if len(result.Meshes) == 0 {
		return
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PART\tVERTICES\tTRIANGLES\tCOLOR")
	var verts, tris int
	for _, m := range result.Meshes {
		v, t := len(m.Vertices)/3, len(m.Indices)/3
		verts += v
		tris += t
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", m.PartName, v, t, m.Color)
	}
	fmt.Fprintf(tw, "total\t%d\t%d\t\n", verts, tris)
	tw.Flush()
}
