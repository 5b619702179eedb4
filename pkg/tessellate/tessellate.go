// Package tessellate turns evaluated collections into triangle meshes using
// a geometry kernel. One mesh is produced per primitive.
package tessellate

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/chazu/opgraph/pkg/geom"
	"github.com/chazu/opgraph/pkg/kernel"
)

// Collection meshes every primitive in c, in order. A primitive that fails
// to mesh is skipped and its error is reported in the returned multierror
// alongside the meshes that succeeded. It never mutates c.
func Collection(c *geom.Collection, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if c.IsEmpty() {
		return nil, nil
	}
	if k == nil {
		return nil, fmt.Errorf("tessellate: no kernel")
	}

	var (
		meshes []*kernel.Mesh
		errs   *multierror.Error
	)
	for i, p := range c.Primitives() {
		if p.Solid == nil {
			errs = multierror.Append(errs, fmt.Errorf("tessellate: primitive %d (%s) has no solid", i, partName(p, i)))
			continue
		}
		m, err := k.ToMesh(p.Solid)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("tessellate: ToMesh failed for %s: %w", partName(p, i), err))
			continue
		}
		m.PartName = partName(p, i)
		meshes = append(meshes, m)
	}
	return meshes, errs.ErrorOrNil()
}

// partName prefers the primitive's name and falls back to its position.
func partName(p geom.Primitive, i int) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("part%d", i)
}

// Stats sums vertex and triangle counts over meshes.
func Stats(meshes []*kernel.Mesh) (vertices, triangles int) {
	for _, m := range meshes {
		vertices += m.VertexCount()
		triangles += m.TriangleCount()
	}
	return vertices, triangles
}
