package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphHasSink(t *testing.T) {
	g := New(testContext(t))
	sink := g.Sink()
	require.NotNil(t, sink)
	assert.Equal(t, SinkKey, sink.Key())
	assert.Equal(t, 1, g.Len())
	require.Len(t, sink.Inputs(), 1)
	assert.Empty(t, sink.Outputs())
	assert.True(t, g.IsDirty())
}

func TestInsert(t *testing.T) {
	ctx := testContext(t)
	g1, g2 := New(ctx), New(ctx)
	n := NewNode("n")

	id := g1.Insert(n)
	require.False(t, id.IsZero())
	assert.Equal(t, id, g1.Insert(n), "inserting twice keeps the handle")
	assert.Equal(t, 2, g1.Len())

	assert.True(t, g2.Insert(n).IsZero(), "a node owned by another graph is refused")
	assert.Equal(t, 1, g2.Len())
	got, ok := g1.Node(id)
	require.True(t, ok)
	assert.Same(t, n, got)
}

func TestSocketLookupAndIDs(t *testing.T) {
	n := NewNode("n")
	a := n.AddInput("x")
	n.AddInput("x")
	o := n.AddOutput("out")

	assert.Same(t, a, n.Input("x"), "duplicate names resolve to the first")
	assert.Nil(t, n.Input("missing"))
	assert.Nil(t, n.InputAt(5))
	assert.Same(t, o, n.OutputAt(0))
	assert.Equal(t, n.UID().String()+"/in/1", n.InputAt(1).ID())
	assert.Equal(t, n.UID().String()+"/out/0", o.ID())
	assert.False(t, n.IsLinked())
}

func TestConnectMaintainsLinkInvariant(t *testing.T) {
	g := New(testContext(t))
	a := mustAdd(t, g, "A", "source")
	b := mustAdd(t, g, "B", "tag")
	mustLink(t, g, a, b, "in")

	ref, ok := b.Input("in").Link()
	require.True(t, ok)
	assert.Equal(t, a.Output("out").Ref(), ref)
	assert.Equal(t, []SocketRef{b.Input("in").Ref()}, a.Output("out").Links())
	assert.True(t, a.IsLinked())
	assert.True(t, b.IsLinked())
	assert.Empty(t, Validate(g))
}

func TestConnectRejections(t *testing.T) {
	g := New(testContext(t))
	a := mustAdd(t, g, "A", "source")
	b := mustAdd(t, g, "B", "tag")
	c := mustAdd(t, g, "C", "tag")
	mustLink(t, g, a, b, "in")
	mustLink(t, g, b, c, "in")

	assert.False(t, g.Connect(a.Output("out"), b.Input("in")), "input already linked")
	assert.False(t, g.Connect(c.Output("out"), b.Input("in")), "already linked")

	g.Disconnect(a.Output("out"), b.Input("in"))
	assert.False(t, g.Connect(c.Output("out"), b.Input("in")), "cycle B -> C -> B")
	assert.False(t, g.Connect(b.Output("out"), b.Input("in")), "self loop")

	other := New(testContext(t))
	stranger := mustAdd(t, other, "S", "source")
	assert.False(t, g.Connect(stranger.Output("out"), b.Input("in")), "foreign node")
	assert.False(t, g.Connect(nil, b.Input("in")))
	assert.Empty(t, Validate(g))
}

func TestConnectDisconnectRoundTrip(t *testing.T) {
	g := New(testContext(t))
	a := mustAdd(t, g, "A", "source")
	b := mustAdd(t, g, "B", "tag")
	c := mustAdd(t, g, "C", "tag")
	mustLink(t, g, a, b, "in")
	before := g.Links()

	require.True(t, g.Connect(a.Output("out"), c.Input("in")))
	assert.Len(t, g.Links(), 2)
	require.True(t, g.Disconnect(a.Output("out"), c.Input("in")))

	assert.Equal(t, before, g.Links())
	assert.False(t, c.Input("in").IsLinked())
	assert.Len(t, a.Output("out").Links(), 1)
	assert.Empty(t, Validate(g))

	assert.False(t, g.Disconnect(a.Output("out"), c.Input("in")), "missing link is a no-op")
}

func TestRemoveNodeDisconnectsEverything(t *testing.T) {
	g := New(testContext(t))
	a := mustAdd(t, g, "A", "source")
	b := mustAdd(t, g, "B", "tag")
	c := mustAdd(t, g, "C", "tag")
	mustLink(t, g, a, b, "in")
	mustLink(t, g, b, c, "in")
	require.True(t, g.Connect(c.Output("out"), g.Sink().Input("in")))
	g.Select(b.ID())
	g.dirty = false

	id := b.ID()
	require.True(t, g.RemoveNode(id))

	assert.True(t, g.IsDirty())
	assert.False(t, g.IsSelected(id))
	assert.False(t, a.Output("out").IsLinked())
	assert.False(t, c.Input("in").IsLinked())
	for _, l := range g.Links() {
		assert.NotEqual(t, id, l.From.Node)
		assert.NotEqual(t, id, l.To.Node)
	}
	_, ok := g.Node(id)
	assert.False(t, ok, "stale handle")
	assert.Empty(t, Validate(g))

	d := mustAdd(t, g, "D", "source")
	assert.Equal(t, id.Index(), d.ID().Index(), "slot reused")
	assert.NotEqual(t, id, d.ID())
	_, ok = g.Node(id)
	assert.False(t, ok, "stale handle does not resolve to the new node")

	assert.False(t, g.RemoveNode(id))
}

func TestSelection(t *testing.T) {
	g := New(testContext(t))
	a := mustAdd(t, g, "A", "source")
	b := mustAdd(t, g, "B", "tag")
	c := mustAdd(t, g, "C", "tag")
	mustLink(t, g, a, b, "in")

	g.Select(c.ID())
	g.Select(a.ID())
	g.Select(a.ID())
	assert.Equal(t, []NodeID{a.ID(), c.ID()}, g.Selected())

	g.Deselect(c.ID())
	assert.Equal(t, []NodeID{a.ID()}, g.Selected())

	g.Select(b.ID())
	assert.Equal(t, 2, g.DeleteSelection())
	assert.Empty(t, g.Selected())
	assert.Equal(t, 2, g.Len(), "sink and C remain")
	assert.Same(t, c, g.Lookup("C"))
	assert.Nil(t, g.Lookup("A"))

	g.Select(c.ID())
	g.ClearSelection()
	assert.Empty(t, g.Selected())
	assert.False(t, g.Select(a.ID()), "removed node cannot be selected")
}

func TestEvents(t *testing.T) {
	g := New(testContext(t))
	var got []Event
	g.OnEvent = func(e Event) { got = append(got, e) }

	a := mustAdd(t, g, "A", "source")
	b := mustAdd(t, g, "B", "tag")
	mustLink(t, g, a, b, "in")
	g.Select(b.ID())
	g.RemoveNode(b.ID())

	var kinds []string
	for _, e := range got {
		kinds = append(kinds, e.String())
	}
	assert.Equal(t, []string{
		"node:add", "node:add", "link:add", "selection:add",
		"link:remove", "selection:remove", "node:remove",
	}, kinds)

	assert.True(t, got[2].Matches(CategoryLink|CategoryNode, ActionAdd))
	assert.False(t, got[2].Matches(CategorySelection, ActionAdd|ActionRemove))
	assert.Equal(t, uint16(CategoryLink)<<8|uint16(ActionAdd), got[2].Mask())
}

func TestMarkDirty(t *testing.T) {
	g := New(testContext(t))
	a := mustAdd(t, g, "A", "source")
	b := mustAdd(t, g, "B", "tag")
	c := mustAdd(t, g, "C", "tag")
	mustLink(t, g, a, b, "in")
	mustLink(t, g, b, c, "in")
	_, err := NewEvaluator(g, newCache()).Evaluate(0)
	require.NoError(t, err)
	for _, n := range g.Nodes() {
		require.False(t, n.IsDirty())
	}

	g.MarkDownstreamDirty(b.ID())
	assert.False(t, a.IsDirty())
	assert.True(t, b.IsDirty())
	assert.True(t, c.IsDirty())

	_, err = NewEvaluator(g, newCache()).Evaluate(0)
	require.NoError(t, err)
	g.MarkUpstreamDirty(b.ID())
	assert.True(t, a.IsDirty())
	assert.True(t, b.IsDirty())
	assert.False(t, c.IsDirty())
}

func TestValidateReportsBrokenLinks(t *testing.T) {
	g := New(testContext(t))
	a := mustAdd(t, g, "A", "source")
	b := mustAdd(t, g, "B", "tag")
	mustLink(t, g, a, b, "in")

	// Corrupt one side only.
	a.Output("out").links = nil
	errs := Validate(g)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "not mirrored")
}

func TestValidateDetectsCycle(t *testing.T) {
	g := New(testContext(t))
	b := mustAdd(t, g, "B", "tag")
	c := mustAdd(t, g, "C", "tag")
	mustLink(t, g, b, c, "in")

	// Connect refuses this, so build it by hand.
	ref := c.Output("out").Ref()
	b.Input("in").link = &ref
	c.Output("out").links = append(c.Output("out").links, b.Input("in").Ref())

	errs := Validate(g)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "cycle")
}
