package persist_test

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/opgraph/pkg/geom"
	"github.com/chazu/opgraph/pkg/graph"
	"github.com/chazu/opgraph/pkg/kernel/kerneltest"
	"github.com/chazu/opgraph/pkg/ops"
	"github.com/chazu/opgraph/pkg/persist"
)

func newContext() *graph.Context {
	return ops.NewContext(kerneltest.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// sample builds Box feeding two transforms that are merged into the output.
func sample(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(newContext())
	box, err := g.AddNode("Box", ops.KeyBox)
	require.NoError(t, err)
	require.NoError(t, box.Operator().Base().Props().Set("size", graph.Vec3(1, 2, 3)))
	box.SetPosition(-100, 40)

	left, err := g.AddNode("Left", ops.KeyTransform)
	require.NoError(t, err)
	require.NoError(t, left.Operator().Base().Props().Set("translate", graph.Vec3(-2, 0, 0)))
	right, err := g.AddNode("Right", ops.KeyTransform)
	require.NoError(t, err)
	require.NoError(t, right.Operator().Base().Props().Set("translate", graph.Vec3(2, 0, 0)))
	merge, err := g.AddNode("Merge", ops.KeyMerge)
	require.NoError(t, err)

	require.True(t, g.Connect(box.Output("out"), left.Input("in")))
	require.True(t, g.Connect(box.Output("out"), right.Input("in")))
	require.True(t, g.Connect(left.Output("out"), merge.Input("a")))
	require.True(t, g.Connect(right.Output("out"), merge.Input("b")))
	require.True(t, g.Connect(merge.Output("out"), g.Sink().Input("in")))
	return g
}

func save(t *testing.T, g *graph.Graph) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, persist.Save(&buf, g))
	return buf.Bytes()
}

func bounds(t *testing.T, g *graph.Graph) [][2][3]float64 {
	t.Helper()
	out, err := graph.NewEvaluator(g, geom.NewCache()).Evaluate(0)
	require.NoError(t, err)
	var bs [][2][3]float64
	for _, p := range out.Primitives() {
		lo, hi := p.Solid.BoundingBox()
		bs = append(bs, [2][3]float64{lo, hi})
	}
	return bs
}

func TestRoundTrip(t *testing.T) {
	g := sample(t)
	// Sockets beyond the declared set survive too.
	merge := g.Lookup("Merge")
	extra := merge.AddInput("c")
	merge.AddOutput("spare")
	require.True(t, g.Connect(g.Lookup("Box").Output("out"), extra))
	data := save(t, g)

	loaded, err := persist.Load(bytes.NewReader(data), newContext())
	require.NoError(t, err)

	assert.Equal(t, string(data), string(save(t, loaded)), "save is deterministic across a round trip")
	assert.Equal(t, g.Len(), loaded.Len())
	assert.Len(t, loaded.Links(), 6)
	assert.Empty(t, graph.Validate(loaded))

	lm := loaded.Lookup("Merge")
	require.NotNil(t, lm)
	require.Len(t, lm.Inputs(), 3)
	assert.Equal(t, "c", lm.InputAt(2).Name())
	assert.Equal(t, extra.ID(), lm.InputAt(2).ID())
	assert.True(t, lm.InputAt(2).IsLinked())
	require.Len(t, lm.Outputs(), 2)
	assert.Equal(t, "spare", lm.OutputAt(1).Name())

	box := loaded.Lookup("Box")
	require.NotNil(t, box)
	assert.Equal(t, g.Lookup("Box").UID(), box.UID())
	assert.Equal(t, graph.Position{X: -100, Y: 40}, box.Position())
	assert.Equal(t, [3]float64{1, 2, 3}, box.Operator().Base().Props().Vector("size"))
	assert.Equal(t, g.Sink().Input("in").ID(), loaded.Sink().Input("in").ID())

	assert.Equal(t, bounds(t, g), bounds(t, loaded))
}

func TestRoundTripFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	require.NoError(t, persist.SaveFile(path, sample(t)))

	g, err := persist.LoadFile(path, newContext())
	require.NoError(t, err)
	assert.Equal(t, 5, g.Len())
}

func TestMissingPlugin(t *testing.T) {
	data := save(t, sample(t))

	ctx := graph.NewContext(kerneltest.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx.Operators.Register(ops.KeyBox, ops.NewBox)
	ctx.Operators.Register(ops.KeyMerge, ops.NewMerge)

	g, err := persist.Load(bytes.NewReader(data), ctx)
	require.Error(t, err)
	assert.Equal(t, persist.MissingPlugin, persist.StatusOf(err))
	assert.Contains(t, err.Error(), `"transform"`)

	require.NotNil(t, g, "partial graph is returned")
	assert.Equal(t, 3, g.Len())
	assert.Nil(t, g.Lookup("Left"))
	assert.Len(t, g.Links(), 1, "only merge -> output survives")
	assert.Empty(t, graph.Validate(g))
}

func TestLoadFailures(t *testing.T) {
	g := sample(t)
	valid := string(save(t, g))
	boxUID := g.Lookup("Box").UID().String()

	tests := []struct {
		name   string
		doc    string
		status persist.Status
	}{
		{"not json", "{", persist.Corrupted},
		{"unknown field", `{"version":1,"extra":true}`, persist.Corrupted},
		{"bad version", `{"version":99,"nodes":[]}`, persist.Unknown},
		{"no output", `{"version":1,"nodes":[]}`, persist.Corrupted},
		{"dangling link", strings.Replace(valid, `"links": [`, `"links": [{"input":"nope/in/0","output":"nope/out/0"},`, 1), persist.Corrupted},
		{"socket id mismatch", strings.Replace(valid, `/in/0"`, `/in/7"`, 1), persist.Corrupted},
		{"bad property", strings.Replace(valid, `"size": [`, `"size": ["x",`, 1), persist.Corrupted},
		{"duplicate uid", strings.Replace(valid, `"name": "Left"`, `"name": "Left", "uid": "`+boxUID+`"`, 1), persist.Corrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := persist.Load(strings.NewReader(tt.doc), newContext())
			require.Error(t, err)
			assert.Nil(t, g)
			assert.Equal(t, tt.status, persist.StatusOf(err), err.Error())
		})
	}
}

func TestFileStatuses(t *testing.T) {
	dir := t.TempDir()

	_, err := persist.LoadFile(filepath.Join(dir, "missing.json"), newContext())
	assert.Equal(t, persist.NotFound, persist.StatusOf(err))

	err = persist.SaveFile(filepath.Join(dir, "no", "such", "dir.json"), sample(t))
	assert.Equal(t, persist.NotOpen, persist.StatusOf(err))

	assert.Equal(t, persist.None, persist.StatusOf(nil))
	assert.Equal(t, persist.Unknown, persist.StatusOf(io.EOF))
}
