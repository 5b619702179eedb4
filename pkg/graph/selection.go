package graph

import "sort"

// Select adds id to the selection.
func (g *Graph) Select(id NodeID) bool {
	if _, ok := g.Node(id); !ok {
		g.log().Warn("select: no such node", "id", id)
		return false
	}
	if _, ok := g.selection[id]; ok {
		return true
	}
	g.selection[id] = struct{}{}
	g.emit(CategorySelection, ActionAdd, id)
	return true
}

// Deselect removes id from the selection.
func (g *Graph) Deselect(id NodeID) {
	if _, ok := g.selection[id]; !ok {
		return
	}
	delete(g.selection, id)
	g.emit(CategorySelection, ActionRemove, id)
}

func (g *Graph) IsSelected(id NodeID) bool {
	_, ok := g.selection[id]
	return ok
}

// ClearSelection empties the selection.
func (g *Graph) ClearSelection() {
	if len(g.selection) == 0 {
		return
	}
	clear(g.selection)
	g.emit(CategorySelection, ActionChange, NodeID{})
}

// Selected returns the selected handles in arena order.
func (g *Graph) Selected() []NodeID {
	out := make([]NodeID, 0, len(g.selection))
	for id := range g.selection {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}

// DeleteSelection removes every selected node and returns how many were
// removed.
func (g *Graph) DeleteSelection() int {
	removed := 0
	for _, id := range g.Selected() {
		if g.RemoveNode(id) {
			removed++
		}
	}
	return removed
}
