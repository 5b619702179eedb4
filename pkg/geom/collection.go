// Package geom holds the data that flows along graph links: primitives
// grouped into reference-counted collections, and the per-pass cache that
// owns them.
package geom

import (
	"math"

	"github.com/chazu/opgraph/pkg/kernel"
)

// Primitive is one named solid in a collection. Solids are immutable kernel
// handles, so copying a Primitive never copies geometry.
type Primitive struct {
	Name  string
	Solid kernel.Solid
}

// Collection is an ordered set of primitives produced by one operator
// execution. Its reference count grows only when a Cache registers it;
// Retain/Release track holders outside the cache (a finished pass's result).
type Collection struct {
	prims []Primitive
	refs  int
	held  int
	freed bool
}

// NewCollection returns an empty, unregistered collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Add appends p.
func (c *Collection) Add(p Primitive) {
	c.prims = append(c.prims, p)
}

// Len returns the number of primitives. A nil collection has none.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.prims)
}

// IsEmpty reports whether c is nil or holds no primitives.
func (c *Collection) IsEmpty() bool {
	return c.Len() == 0
}

// At returns the i-th primitive.
func (c *Collection) At(i int) Primitive {
	return c.prims[i]
}

// Set replaces the i-th primitive.
func (c *Collection) Set(i int, p Primitive) {
	c.prims[i] = p
}

// Primitives returns a copy of the primitive list.
func (c *Collection) Primitives() []Primitive {
	if c == nil {
		return nil
	}
	out := make([]Primitive, len(c.prims))
	copy(out, c.prims)
	return out
}

// Map replaces every primitive with fn's result, in place.
func (c *Collection) Map(fn func(Primitive) Primitive) {
	for i, p := range c.prims {
		c.prims[i] = fn(p)
	}
}

// CopyFrom appends src's primitives to c. src is left untouched, and later
// edits to either collection do not show up in the other.
func (c *Collection) CopyFrom(src *Collection) {
	if src.IsEmpty() {
		return
	}
	c.prims = append(c.prims, src.prims...)
}

// TakeFrom moves src's primitives into c and leaves src empty.
func (c *Collection) TakeFrom(src *Collection) {
	if src.IsEmpty() {
		return
	}
	if len(c.prims) == 0 {
		c.prims = src.prims
	} else {
		c.prims = append(c.prims, src.prims...)
	}
	src.prims = nil
}

// Clear drops every primitive. The collection stays usable.
func (c *Collection) Clear() {
	c.prims = nil
}

// RefCount returns the number of caches holding c.
func (c *Collection) RefCount() int {
	return c.refs
}

// Retain marks c as held outside its cache so clearing the cache keeps it.
func (c *Collection) Retain() {
	c.held++
}

// Release undoes one Retain. A collection whose cache is gone and that is no
// longer held is freed.
func (c *Collection) Release() {
	if c.held == 0 {
		return
	}
	c.held--
	if c.held == 0 && c.refs == 0 {
		c.free()
	}
}

// Freed reports whether c's contents have been released.
func (c *Collection) Freed() bool {
	return c.freed
}

func (c *Collection) free() {
	c.prims = nil
	c.freed = true
}

// Bounds returns the union of every primitive's bounding box. ok is false for
// an empty collection.
func (c *Collection) Bounds() (min, max [3]float64, ok bool) {
	if c.IsEmpty() {
		return min, max, false
	}
	for i := 0; i < 3; i++ {
		min[i] = math.Inf(1)
		max[i] = math.Inf(-1)
	}
	for _, p := range c.prims {
		if p.Solid == nil {
			continue
		}
		lo, hi := p.Solid.BoundingBox()
		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], lo[i])
			max[i] = math.Max(max[i], hi[i])
		}
	}
	return min, max, !math.IsInf(min[0], 1)
}
