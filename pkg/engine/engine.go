// Package engine runs zygomys (Lisp) scripts that build operator graphs.
// Each evaluation gets a fresh sandbox and a fresh graph, so scripts cannot
// reach the filesystem and results are deterministic.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/opgraph/internal/ctxlog"
	"github.com/chazu/opgraph/pkg/graph"
)

// EvalError is a non-fatal problem in user code: a parse error or a runtime
// error raised by the interpreter or a builtin.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates scripts against one graph.Context. It is safe for
// concurrent use.
type Engine struct {
	ctx     *graph.Context
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine returns an Engine that creates nodes through ctx's registries.
func NewEngine(ctx *graph.Context, opts ...Option) *Engine {
	e := &Engine{ctx: ctx, timeout: DefaultTimeout}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate runs source and returns the graph it built.
//
//   - On success: graph, nil, nil.
//   - On parse or runtime errors in the script: nil, errors, nil.
//   - On timeout, panic or a newer evaluation superseding this one: nil, nil, err.
func (e *Engine) Evaluate(source string) (*graph.Graph, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate with cancellation and a request-scoped logger.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*graph.Graph, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		g, evalErrs := e.evaluate(source)
		ch <- evalResult{graph: g, errors: evalErrs}
	}()

	g, evalErrs, err := waitWithTimeout(ctx, ch, gen, e.timeout, &e.mu, &e.generation)
	switch {
	case err != nil:
		logger.Warn("script evaluation failed", "err", err)
	case len(evalErrs) > 0:
		logger.Debug("script errors", "count", len(evalErrs), "first", evalErrs[0].Error())
	default:
		logger.Debug("script evaluated", "nodes", g.Len(), "links", len(g.Links()), "elapsed", time.Since(start))
	}
	return g, evalErrs, err
}

func (e *Engine) evaluate(source string) (*graph.Graph, []EvalError) {
	g := graph.New(e.ctx)
	if strings.TrimSpace(source) == "" {
		return g, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, g)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err)
	}
	return g, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches "line N: ...".
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts an interpreter error into EvalErrors, pulling
// out the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
