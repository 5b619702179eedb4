// Package graph implements the operator graph: nodes that own input and
// output sockets and exactly one operator, the container that links them,
// and the evaluator that pulls data from the sink upstream on demand.
//
// Nodes live in an arena addressed by generational handles (NodeID), so a
// handle kept past RemoveNode resolves to "not found" instead of to whatever
// node reused the slot. Links are stored on both ends as socket handles and
// are only ever changed by Connect, Disconnect and RemoveNode.
//
// Evaluation is single-threaded. A pass clears the object's cache, marks
// every operator dirty and executes the sink, which pulls its inputs
// recursively. A producer whose output feeds several consumers is executed
// once and buffered for the rest of the pass; a producer with a single
// consumer hands its collection over instead of copying it.
package graph
