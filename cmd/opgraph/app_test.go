package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/opgraph/pkg/config"
	"github.com/chazu/opgraph/pkg/kernel/kerneltest"
	"github.com/chazu/opgraph/pkg/kernel/sdfx"
)

const examplePath = "../../examples/plate.opg"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApp uses the bounding-box kernel so tests do not tessellate SDFs.
func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(config.Default(), kerneltest.New(), quietLogger())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func requireNoErrors(t *testing.T, result EvalResult) {
	t.Helper()
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
}

func partNames(result EvalResult) []string {
	var names []string
	for _, m := range result.Meshes {
		names = append(names, m.PartName)
	}
	return names
}

// TestE2EExample runs the example script through the whole pipeline with the
// sdfx kernel: script, graph, evaluation, tessellation.
func TestE2EExample(t *testing.T) {
	source, err := os.ReadFile(examplePath)
	if err != nil {
		t.Fatalf("failed to read example: %v", err)
	}
	app, err := NewApp(config.Default(), sdfx.NewWithCells(24), quietLogger())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	result := app.Evaluate(context.Background(), string(source))
	requireNoErrors(t, result)

	if got := strings.Join(partNames(result), ","); got != "cut,ball" {
		t.Fatalf("parts = %s, want cut,ball", got)
	}
	for i, m := range result.Meshes {
		if len(m.Vertices) == 0 {
			t.Errorf("mesh %q has no vertices", m.PartName)
		}
		if len(m.Vertices)%3 != 0 || len(m.Normals) != len(m.Vertices) {
			t.Errorf("mesh %q: %d vertex floats, %d normal floats", m.PartName, len(m.Vertices), len(m.Normals))
		}
		if len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
			t.Errorf("mesh %q: bad index count %d", m.PartName, len(m.Indices))
		}
		if m.Color != colorPalette[i] {
			t.Errorf("mesh %q color = %s, want %s", m.PartName, m.Color, colorPalette[i])
		}
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestEvaluateEmptySource(t *testing.T) {
	result := newTestApp(t).Evaluate(context.Background(), "")
	requireNoErrors(t, result)
	if len(result.Meshes) != 0 {
		t.Errorf("expected no meshes, got %d", len(result.Meshes))
	}
	if result.Graph == nil || result.Graph.Len() != 1 {
		t.Errorf("expected a graph holding only the output node")
	}
}

func TestEvaluateScriptError(t *testing.T) {
	result := newTestApp(t).Evaluate(context.Background(), `(node "a" "no-such-operator")`)
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for an unknown operator")
	}
	if len(result.Meshes) != 0 || result.Graph != nil {
		t.Error("a failed script must not produce meshes or a graph")
	}
}

func TestEvaluateParseError(t *testing.T) {
	result := newTestApp(t).Evaluate(context.Background(), "(node \"a\" \"box\"")
	if len(result.Errors) == 0 {
		t.Fatal("expected a parse error for unbalanced parens")
	}
}

func TestEvaluateReportsOperatorWarnings(t *testing.T) {
	result := newTestApp(t).Evaluate(context.Background(), `
(node "cut" "boolean")
(output "cut")
`)
	requireNoErrors(t, result)
	if len(result.Meshes) != 0 {
		t.Errorf("expected no meshes, got %d", len(result.Meshes))
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Message != "cut: input a is empty" {
		t.Errorf("warnings = %v", result.Warnings)
	}
}

func TestEvaluateFanOut(t *testing.T) {
	result := newTestApp(t).Evaluate(context.Background(), `
(node "b" "box")
(node "left" "transform")
(param "left" :translate (vec3 -5 0 0))
(node "right" "transform")
(param "right" :translate (vec3 5 0 0))
(connect "b" "out" "left" "in")
(connect "b" "out" "right" "in")
(node "m" "merge")
(connect "left" "out" "m" "a")
(connect "right" "out" "m" "b")
(output "m")
`)
	requireNoErrors(t, result)
	if got := strings.Join(partNames(result), ","); got != "b,b" {
		t.Fatalf("parts = %s, want b,b", got)
	}
	// x of the first vertex is the min corner of each copy.
	if a, b := result.Meshes[0].Vertices[0], result.Meshes[1].Vertices[0]; a != -5 || b != 5 {
		t.Errorf("copies at x=%v and x=%v, want -5 and 5", a, b)
	}
}

func TestSaveAndLoad(t *testing.T) {
	source, err := os.ReadFile(examplePath)
	if err != nil {
		t.Fatalf("failed to read example: %v", err)
	}
	app := newTestApp(t)
	first := app.Evaluate(context.Background(), string(source))
	requireNoErrors(t, first)

	path := filepath.Join(t.TempDir(), "plate.json")
	if err := app.Save(first.Graph, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := app.Load(context.Background(), path)
	requireNoErrors(t, second)

	if a, b := strings.Join(partNames(first), ","), strings.Join(partNames(second), ","); a != b {
		t.Errorf("parts after load = %s, want %s", b, a)
	}
	if second.Graph.Len() != first.Graph.Len() {
		t.Errorf("loaded %d nodes, want %d", second.Graph.Len(), first.Graph.Len())
	}
}

func TestEvaluateReplacesSceneObject(t *testing.T) {
	app := newTestApp(t)
	first := app.Evaluate(context.Background(), `(node "a" "box") (output "a")`)
	requireNoErrors(t, first)
	second := app.Evaluate(context.Background(), `(node "b" "sphere") (output "b")`)
	requireNoErrors(t, second)

	objs := app.scene.Objects()
	if len(objs) != 1 {
		t.Fatalf("scene holds %d objects, want 1", len(objs))
	}
	if objs[0].Graph() != second.Graph {
		t.Error("scene object should hold the latest graph")
	}
	if got := strings.Join(app.scene.Order(), ","); got != objectName {
		t.Errorf("order = %s, want %s", got, objectName)
	}
	if got := strings.Join(partNames(second), ","); got != "b" {
		t.Errorf("parts = %s, want b", got)
	}
}

func TestSaveNothing(t *testing.T) {
	if err := newTestApp(t).Save(nil, filepath.Join(t.TempDir(), "x.json")); err == nil {
		t.Error("expected an error saving a nil graph")
	}
}

func TestLoadMissingFile(t *testing.T) {
	result := newTestApp(t).Load(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Message, "not found") {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestNewKernel(t *testing.T) {
	cfg := config.Default()
	if _, err := NewKernel(cfg); err != nil {
		t.Errorf("sdfx kernel: %v", err)
	}
	cfg.Kernel = "cgal"
	if _, err := NewKernel(cfg); err == nil {
		t.Error("expected an error for an unknown kernel")
	}
}

func TestRunScript(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-cells", "16", "-log-level", "error", examplePath}, nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"PART", "cut", "ball", "total"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunStdinJSONAndSave(t *testing.T) {
	dir := t.TempDir()
	saved := filepath.Join(dir, "out.json")
	src := strings.NewReader(`(node "s" "sphere") (param "s" :radius 2) (output "s")`)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-json", "-cells", "16", "-log-level", "error", "-save", saved, "-"}, src, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr.String())
	}

	var result EvalResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout.String())
	}
	if len(result.Meshes) != 1 || result.Meshes[0].PartName != "s" {
		t.Errorf("meshes = %v", partNames(result))
	}

	stdout.Reset()
	code = run(context.Background(), []string{"-cells", "16", "-log-level", "error", "-load", saved}, nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("reload exit code %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "\ns ") {
		t.Errorf("reload output:\n%s", stdout.String())
	}
}

func TestRunScriptErrorExitCode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	src := strings.NewReader(`(connect "a" "out" "b" "in")`)
	code := run(context.Background(), []string{"-log-level", "error", "-"}, src, &stdout, &stderr)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "error:") {
		t.Errorf("stderr missing error line:\n%s", stderr.String())
	}
}

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no input", nil},
		{"script and load", []string{"-load", "x.json", "y.opg"}},
		{"two scripts", []string{"a.opg", "b.opg"}},
		{"bad flag", []string{"-frobnicate"}},
		{"bad kernel", []string{"-kernel", "cgal", "a.opg"}},
		{"bad timeout", []string{"-timeout", "soon", "a.opg"}},
		{"missing config", []string{"-config", "/nonexistent/opgraph.hcl", "a.opg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, nil, &stdout, &stderr); code != 2 {
				t.Errorf("exit code = %d, want 2", code)
			}
		})
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opgraph.hcl")
	if err := os.WriteFile(path, []byte("log_level = \"debug\"\nmesh_cells = 32\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	o := &options{configPath: path, cells: 8, timeout: "250ms"}
	cfg, err := o.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %s, want debug from file", cfg.LogLevel)
	}
	if cfg.MeshCells != 8 {
		t.Errorf("mesh cells = %d, want flag value 8", cfg.MeshCells)
	}
	if d, _ := cfg.Timeout(); d.Milliseconds() != 250 {
		t.Errorf("timeout = %s, want 250ms", d)
	}
}
