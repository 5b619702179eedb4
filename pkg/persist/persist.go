// Package persist saves operator graphs as JSON and loads them back.
//
// Every socket is written with the persistent id it was created with and
// links are stored as input id to output id pairs, so a load recreates all
// nodes first and resolves links second.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/chazu/opgraph/pkg/graph"
)

// Version is the document format version written by Save.
const Version = 1

type document struct {
	Version int       `json:"version"`
	Nodes   []nodeDoc `json:"nodes"`
	Links   []linkDoc `json:"links,omitempty"`
}

type nodeDoc struct {
	UID        uuid.UUID                          `json:"uid"`
	Name       string                             `json:"name"`
	Operator   string                             `json:"operator"`
	Position   positionDoc                        `json:"position"`
	Properties map[string]ctyjson.SimpleJSONValue `json:"properties,omitempty"`
	Inputs     []socketDoc                        `json:"inputs,omitempty"`
	Outputs    []socketDoc                        `json:"outputs,omitempty"`
}

// socketDoc names a socket so ones added after the operator's declared set
// can be recreated on load.
type socketDoc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type positionDoc struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type linkDoc struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Save writes g to w.
func Save(w io.Writer, g *graph.Graph) error {
	doc := document{Version: Version}
	for _, n := range g.Nodes() {
		nd := nodeDoc{
			UID:      n.UID(),
			Name:     n.Name(),
			Operator: n.Key(),
			Position: positionDoc{X: n.Position().X, Y: n.Position().Y},
		}
		if op := n.Operator(); op != nil {
			for _, p := range op.Base().Props().List() {
				if nd.Properties == nil {
					nd.Properties = make(map[string]ctyjson.SimpleJSONValue)
				}
				nd.Properties[p.Name] = ctyjson.SimpleJSONValue{Value: p.Value}
			}
		}
		for _, s := range n.Inputs() {
			nd.Inputs = append(nd.Inputs, socketDoc{ID: s.ID(), Name: s.Name()})
		}
		for _, s := range n.Outputs() {
			nd.Outputs = append(nd.Outputs, socketDoc{ID: s.ID(), Name: s.Name()})
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, l := range g.Links() {
		in, out := g.InputSocket(l.To), g.OutputSocket(l.From)
		if in == nil || out == nil {
			return fail(Corrupted, "link %s -> %s does not resolve", l.From, l.To)
		}
		doc.Links = append(doc.Links, linkDoc{Input: in.ID(), Output: out.ID()})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return &Error{Status: NotOpen, Err: err}
	}
	return nil
}

// SaveFile writes g to path, replacing any existing file.
func SaveFile(path string, g *graph.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return &Error{Status: NotOpen, Err: err}
	}
	if err := Save(f, g); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return &Error{Status: NotOpen, Err: err}
	}
	return nil
}

// LoadFile reads a graph from path.
func LoadFile(path string, ctx *graph.Context) (*graph.Graph, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &Error{Status: NotFound, Err: err}
	}
	if err != nil {
		return nil, &Error{Status: NotOpen, Err: err}
	}
	defer f.Close()
	return Load(f, ctx)
}

// Load reads a graph from r, building nodes through ctx's operator registry.
//
// Nodes whose operator is not registered are skipped along with their
// links; the graph is still returned, together with a MissingPlugin error
// naming every missing key. Any other failure returns a nil graph.
func Load(r io.Reader, ctx *graph.Context) (*graph.Graph, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, &Error{Status: Corrupted, Err: err}
	}
	if doc.Version != Version {
		return nil, fail(Unknown, "unsupported version %d", doc.Version)
	}

	l := loader{
		ctx:     ctx,
		inputs:  make(map[string]*graph.InputSocket),
		outputs: make(map[string]*graph.OutputSocket),
		skipped: make(map[string]bool),
	}
	if err := l.nodes(doc.Nodes); err != nil {
		return nil, err
	}
	if err := l.links(doc.Links); err != nil {
		return nil, err
	}
	if errs := graph.Validate(l.g); len(errs) > 0 {
		var merr *multierror.Error
		for _, e := range errs {
			merr = multierror.Append(merr, e)
		}
		return nil, &Error{Status: Corrupted, Err: merr}
	}
	if l.missing != nil {
		return l.g, &Error{Status: MissingPlugin, Err: l.missing}
	}
	return l.g, nil
}

type loader struct {
	ctx     *graph.Context
	g       *graph.Graph
	inputs  map[string]*graph.InputSocket
	outputs map[string]*graph.OutputSocket
	skipped map[string]bool
	missing *multierror.Error
}

// nodes is the first phase: create every node with its operator, sockets
// and property values. The output node always takes the first slot.
func (l *loader) nodes(docs []nodeDoc) error {
	seen := make(map[uuid.UUID]bool)
	sink := -1
	for i, nd := range docs {
		if seen[nd.UID] {
			return fail(Corrupted, "duplicate node uid %s", nd.UID)
		}
		seen[nd.UID] = true
		if nd.Operator == graph.SinkKey {
			if sink >= 0 {
				return fail(Corrupted, "more than one output node")
			}
			sink = i
		}
	}
	if sink < 0 {
		return fail(Corrupted, "document has no output node")
	}
	l.g = graph.NewWithSinkUID(l.ctx, docs[sink].UID)

	for i, nd := range docs {
		var n *graph.Node
		if i == sink {
			n = l.g.Sink()
			n.SetName(nd.Name)
		} else {
			var err error
			if n, err = l.node(nd); err != nil {
				return err
			}
			if n == nil {
				continue
			}
			l.g.Insert(n)
		}
		n.SetPosition(nd.Position.X, nd.Position.Y)
		if err := l.register(n, nd); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) node(nd nodeDoc) (*graph.Node, error) {
	f, ok := l.ctx.Operators.Lookup(nd.Operator)
	if !ok {
		l.missing = multierror.Append(l.missing, fmt.Errorf("node %q: %w: %q", nd.Name, graph.ErrUnknownOperator, nd.Operator))
		for _, sd := range nd.Inputs {
			l.skipped[sd.ID] = true
		}
		for _, sd := range nd.Outputs {
			l.skipped[sd.ID] = true
		}
		return nil, nil
	}
	n := graph.NewNodeWithUID(nd.Name, nd.UID)
	n.SetOperator(f(n, l.ctx), nd.Operator)

	props := n.Operator().Base().Props()
	names := make([]string, 0, len(nd.Properties))
	for name := range nd.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := props.Set(name, nd.Properties[name].Value); err != nil {
			return nil, fail(Corrupted, "node %q: %w", nd.Name, err)
		}
	}
	return n, nil
}

// register recreates sockets the document lists beyond the operator's
// declared ones, checks every id and records the sockets for the link phase.
func (l *loader) register(n *graph.Node, nd nodeDoc) error {
	for i, sd := range nd.Inputs {
		s := n.InputAt(i)
		if s == nil {
			s = n.AddInput(sd.Name)
		}
		if s.ID() != sd.ID {
			return fail(Corrupted, "node %q: unknown input socket %s", nd.Name, sd.ID)
		}
	}
	for i, sd := range nd.Outputs {
		s := n.OutputAt(i)
		if s == nil {
			s = n.AddOutput(sd.Name)
		}
		if s.ID() != sd.ID {
			return fail(Corrupted, "node %q: unknown output socket %s", nd.Name, sd.ID)
		}
	}
	for _, s := range n.Inputs() {
		l.inputs[s.ID()] = s
	}
	for _, s := range n.Outputs() {
		l.outputs[s.ID()] = s
	}
	return nil
}

// links is the second phase: resolve socket ids and connect.
func (l *loader) links(docs []linkDoc) error {
	for _, ld := range docs {
		if l.skipped[ld.Input] || l.skipped[ld.Output] {
			continue
		}
		in, ok := l.inputs[ld.Input]
		if !ok {
			return fail(Corrupted, "link to unknown input %s", ld.Input)
		}
		out, ok := l.outputs[ld.Output]
		if !ok {
			return fail(Corrupted, "link from unknown output %s", ld.Output)
		}
		if !l.g.Connect(out, in) {
			return fail(Corrupted, "link %s -> %s rejected", ld.Output, ld.Input)
		}
	}
	return nil
}
