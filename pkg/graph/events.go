package graph

import "strings"

// EventCategory is the kind of object an event concerns.
type EventCategory uint8

const (
	CategoryNode EventCategory = 1 << iota
	CategoryLink
	CategorySelection
)

// EventAction is what happened to it.
type EventAction uint8

const (
	ActionAdd EventAction = 1 << iota
	ActionRemove
	ActionChange
)

// Event is a coarse notification of a graph mutation. Node is the node
// affected, or the consuming node for link events.
type Event struct {
	Category EventCategory
	Action   EventAction
	Node     NodeID
}

// Mask packs category and action into one bitmask for filtering.
func (e Event) Mask() uint16 {
	return uint16(e.Category)<<8 | uint16(e.Action)
}

// Matches reports whether e falls within the category and action masks.
func (e Event) Matches(categories EventCategory, actions EventAction) bool {
	return e.Category&categories != 0 && e.Action&actions != 0
}

func (e Event) String() string {
	var b strings.Builder
	switch e.Category {
	case CategoryNode:
		b.WriteString("node")
	case CategoryLink:
		b.WriteString("link")
	case CategorySelection:
		b.WriteString("selection")
	}
	b.WriteByte(':')
	switch e.Action {
	case ActionAdd:
		b.WriteString("add")
	case ActionRemove:
		b.WriteString("remove")
	case ActionChange:
		b.WriteString("change")
	}
	return b.String()
}

func (g *Graph) emit(cat EventCategory, act EventAction, id NodeID) {
	if g.OnEvent != nil {
		g.OnEvent(Event{Category: cat, Action: act, Node: id})
	}
}
