package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/opgraph/pkg/geom"
)

func TestChainEvaluation(t *testing.T) {
	g := New(testContext(t))
	box := mustAdd(t, g, "Box", "source")
	xf := mustAdd(t, g, "Transform", "tag")
	mustLink(t, g, box, xf, "in")
	mustLink(t, g, xf, g.Sink(), "in")

	ev := NewEvaluator(g, geom.NewCache())
	out, err := ev.Evaluate(0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Transform:Box.0"}, names(out))
	assert.Equal(t, 1, box.Operator().Base().Stats().Executions)
	assert.Equal(t, 1, xf.Operator().Base().Stats().Executions)
	assert.False(t, g.IsDirty())
}

func TestSingleConsumerTransfersOwnership(t *testing.T) {
	g := New(testContext(t))
	a := mustAdd(t, g, "A", "source")
	require.NoError(t, a.Operator().Base().Props().Set("count", ctyInt(3)))
	b := mustAdd(t, g, "B", "tag")
	mustLink(t, g, a, b, "in")
	mustLink(t, g, b, g.Sink(), "in")

	out, err := NewEvaluator(g, geom.NewCache()).Evaluate(0)
	require.NoError(t, err)

	ab := a.Operator().Base()
	assert.Equal(t, StateConsumed, ab.State())
	assert.True(t, ab.Collection().IsEmpty(), "producer emptied")
	assert.False(t, a.IsBuffered())
	assert.False(t, a.Output("out").HasBuffer())
	assert.Equal(t, StateConsumed, b.Operator().Base().State())
	assert.Equal(t, StateExecuted, g.Sink().Operator().Base().State())
	assert.Equal(t, 3, out.Len())
}

func TestFanOutExecutesOnce(t *testing.T) {
	g := New(testContext(t))
	a := mustAdd(t, g, "A", "source")
	require.NoError(t, a.Operator().Base().Props().Set("count", ctyInt(2)))
	b := mustAdd(t, g, "B", "tag")
	c := mustAdd(t, g, "C", "tag")
	d := mustAdd(t, g, "D", "join")
	mustLink(t, g, a, b, "in")
	mustLink(t, g, a, c, "in")
	mustLink(t, g, b, d, "a")
	mustLink(t, g, c, d, "b")
	mustLink(t, g, d, g.Sink(), "in")

	out, err := NewEvaluator(g, geom.NewCache()).Evaluate(0)
	require.NoError(t, err)

	ab := a.Operator().Base()
	assert.Equal(t, 1, ab.Stats().Executions)
	assert.Equal(t, StateBuffered, ab.State())
	assert.True(t, a.IsBuffered())
	assert.True(t, a.Output("out").HasBuffer())

	// Each consumer renamed its own copy; the producer's result is intact.
	assert.Equal(t, []string{"A.0", "A.1"}, names(ab.Collection()))
	assert.Equal(t, []string{"B:A.0", "B:A.1", "C:A.0", "C:A.1"}, names(out))
}

func TestEvaluateRecomputesEveryPass(t *testing.T) {
	g := New(testContext(t))
	a := mustAdd(t, g, "A", "source")
	mustLink(t, g, a, g.Sink(), "in")
	cache := geom.NewCache()
	ev := NewEvaluator(g, cache)

	first, err := ev.Evaluate(0)
	require.NoError(t, err)
	require.Equal(t, 1, first.Len())
	assert.Equal(t, 2, cache.Len())

	second, err := ev.Evaluate(1)
	require.NoError(t, err)
	assert.True(t, first.Freed(), "previous pass released")
	assert.Equal(t, 1, second.Len())
	assert.Equal(t, 2, a.Operator().Base().Stats().Executions)
	assert.Equal(t, 1.0, ev.Time())
}

func TestRetainedResultSurvivesNextPass(t *testing.T) {
	g := New(testContext(t))
	a := mustAdd(t, g, "A", "source")
	mustLink(t, g, a, g.Sink(), "in")
	ev := NewEvaluator(g, geom.NewCache())

	first, err := ev.Evaluate(0)
	require.NoError(t, err)
	first.Retain()
	_, err = ev.Evaluate(0)
	require.NoError(t, err)
	assert.False(t, first.Freed())
	assert.Equal(t, 1, first.Len())

	first.Release()
	assert.True(t, first.Freed())
}

func TestUnlinkedInputYieldsNothing(t *testing.T) {
	g := New(testContext(t))
	b := mustAdd(t, g, "B", "tag")
	mustLink(t, g, b, g.Sink(), "in")

	out, err := NewEvaluator(g, geom.NewCache()).Evaluate(0)
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())

	ev := NewEvaluator(g, geom.NewCache())
	assert.False(t, ev.Pull(b.Input("in"), geom.NewCollection()))
	assert.False(t, ev.Pull(nil, geom.NewCollection()))
}

func TestOperatorFailureBecomesWarning(t *testing.T) {
	for _, key := range []string{"fail", "panic"} {
		t.Run(key, func(t *testing.T) {
			g := New(testContext(t))
			bad := mustAdd(t, g, "Bad", key)
			mustLink(t, g, bad, g.Sink(), "in")

			out, err := NewEvaluator(g, geom.NewCache()).Evaluate(0)
			require.NoError(t, err, "the pass does not abort")

			warns := bad.Operator().Base().Warnings()
			require.Len(t, warns, 1)
			assert.Equal(t, []string{"partial"}, names(out), "partial result kept")
		})
	}
}

func TestReentrantEvaluateRejected(t *testing.T) {
	g := New(testContext(t))
	r := mustAdd(t, g, "R", "reenter")
	mustLink(t, g, r, g.Sink(), "in")

	_, err := NewEvaluator(g, geom.NewCache()).Evaluate(0)
	require.NoError(t, err)

	op := r.Operator().(*reenter)
	assert.ErrorIs(t, op.err, ErrReentrant)
	require.Len(t, op.Warnings(), 1)
}

func TestEvaluateWithoutSink(t *testing.T) {
	g := New(testContext(t))
	g.RemoveNode(g.Sink().ID())

	_, err := NewEvaluator(g, geom.NewCache()).Evaluate(0)
	assert.ErrorIs(t, err, ErrNoSink)
}

func TestPullFromExecutingProducer(t *testing.T) {
	g := New(testContext(t))
	p := mustAdd(t, g, "P", "peek")
	tg := mustAdd(t, g, "T", "tag")
	mustLink(t, g, p, tg, "in")
	mustLink(t, g, tg, g.Sink(), "in")
	op := p.Operator().(*peek)
	op.target = tg.Input("in")

	out, err := NewEvaluator(g, geom.NewCache()).Evaluate(0)
	require.NoError(t, err)

	assert.False(t, op.got, "no data while the producer is running")
	assert.Equal(t, []string{`input "in": "P" is still executing`}, tg.Operator().Base().Warnings())
	assert.Empty(t, op.Warnings())
	assert.Equal(t, 1, op.Stats().Executions)
	assert.Equal(t, []string{"T:peeked"}, names(out))
}
