// Package kerneltest provides a bounding-box-only kernel.Kernel for tests
// that exercise evaluation without paying for real tessellation.
package kerneltest

import (
	"math"

	"github.com/chazu/opgraph/pkg/kernel"
)

var (
	_ kernel.Kernel = (*Kernel)(nil)
	_ kernel.Solid  = (*Solid)(nil)
)

// Solid is an axis-aligned box standing in for real geometry. Ops records
// the kernel calls that produced it, oldest first.
type Solid struct {
	Min, Max [3]float64
	Ops      []string
}

// BoundingBox returns the tracked bounds.
func (s *Solid) BoundingBox() (min, max [3]float64) {
	return s.Min, s.Max
}

func (s *Solid) derive(op string) *Solid {
	ops := make([]string, len(s.Ops), len(s.Ops)+1)
	copy(ops, s.Ops)
	return &Solid{Min: s.Min, Max: s.Max, Ops: append(ops, op)}
}

// Kernel counts calls so tests can assert how often geometry was built.
type Kernel struct {
	Calls map[string]int
}

// New returns an empty Kernel.
func New() *Kernel {
	return &Kernel{Calls: make(map[string]int)}
}

func (k *Kernel) count(op string) {
	k.Calls[op]++
}

func unwrap(s kernel.Solid) *Solid {
	return s.(*Solid)
}

// Box has its minimum corner at the origin, matching the sdfx kernel.
func (k *Kernel) Box(x, y, z float64) kernel.Solid {
	k.count("box")
	return &Solid{Max: [3]float64{x, y, z}, Ops: []string{"box"}}
}

func (k *Kernel) Sphere(radius float64, _ int) kernel.Solid {
	k.count("sphere")
	return &Solid{
		Min: [3]float64{-radius, -radius, -radius},
		Max: [3]float64{radius, radius, radius},
		Ops: []string{"sphere"},
	}
}

func (k *Kernel) Cylinder(height, radius float64, _ int) kernel.Solid {
	k.count("cylinder")
	return &Solid{
		Min: [3]float64{-radius, -radius, -height / 2},
		Max: [3]float64{radius, radius, height / 2},
		Ops: []string{"cylinder"},
	}
}

func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	k.count("union")
	sa, sb := unwrap(a), unwrap(b)
	out := sa.derive("union")
	for i := 0; i < 3; i++ {
		out.Min[i] = math.Min(sa.Min[i], sb.Min[i])
		out.Max[i] = math.Max(sa.Max[i], sb.Max[i])
	}
	return out
}

func (k *Kernel) Difference(a, _ kernel.Solid) kernel.Solid {
	k.count("difference")
	return unwrap(a).derive("difference")
}

func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	k.count("intersection")
	sa, sb := unwrap(a), unwrap(b)
	out := sa.derive("intersection")
	for i := 0; i < 3; i++ {
		out.Min[i] = math.Max(sa.Min[i], sb.Min[i])
		out.Max[i] = math.Min(sa.Max[i], sb.Max[i])
	}
	return out
}

func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	k.count("translate")
	out := unwrap(s).derive("translate")
	d := [3]float64{x, y, z}
	for i := 0; i < 3; i++ {
		out.Min[i] += d[i]
		out.Max[i] += d[i]
	}
	return out
}

// Rotate keeps the bounds unchanged; only the call is recorded.
func (k *Kernel) Rotate(s kernel.Solid, _, _, _ float64) kernel.Solid {
	k.count("rotate")
	return unwrap(s).derive("rotate")
}

func (k *Kernel) Scale(s kernel.Solid, x, y, z float64) kernel.Solid {
	k.count("scale")
	out := unwrap(s).derive("scale")
	f := [3]float64{x, y, z}
	for i := 0; i < 3; i++ {
		a, b := out.Min[i]*f[i], out.Max[i]*f[i]
		out.Min[i], out.Max[i] = math.Min(a, b), math.Max(a, b)
	}
	return out
}

// ToMesh emits the 12-triangle box spanning the solid's bounds.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	k.count("mesh")
	lo, hi := unwrap(s).BoundingBox()
	corner := func(i int) [3]float32 {
		c := [3]float32{float32(lo[0]), float32(lo[1]), float32(lo[2])}
		if i&1 != 0 {
			c[0] = float32(hi[0])
		}
		if i&2 != 0 {
			c[1] = float32(hi[1])
		}
		if i&4 != 0 {
			c[2] = float32(hi[2])
		}
		return c
	}
	m := &kernel.Mesh{}
	for i := 0; i < 8; i++ {
		c := corner(i)
		m.Vertices = append(m.Vertices, c[0], c[1], c[2])
		m.Normals = append(m.Normals, 0, 0, 0)
	}
	m.Indices = []uint32{
		0, 2, 1, 1, 2, 3, // -z
		4, 5, 6, 5, 7, 6, // +z
		0, 1, 4, 1, 5, 4, // -y
		2, 6, 3, 3, 6, 7, // +y
		0, 4, 2, 2, 4, 6, // -x
		1, 3, 5, 3, 7, 5, // +x
	}
	return m, nil
}
