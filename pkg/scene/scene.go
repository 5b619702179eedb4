package scene

import (
	"context"
	"fmt"

	"github.com/chazu/opgraph/pkg/depsgraph"
)

// Scene holds objects by name and the depsgraph relating them.
type Scene struct {
	objects map[string]*Object
	order   []string
	deps    *depsgraph.Graph
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{objects: make(map[string]*Object), deps: depsgraph.New()}
}

// Add registers o. Names must be unique.
func (s *Scene) Add(o *Object) error {
	if _, dup := s.objects[o.name]; dup {
		return fmt.Errorf("scene: object %q already exists", o.name)
	}
	s.objects[o.name] = o
	s.order = append(s.order, o.name)
	s.deps.CreateNode(o)
	return nil
}

// Object returns the object named name.
func (s *Scene) Object(name string) (*Object, bool) {
	o, ok := s.objects[name]
	return o, ok
}

// Objects returns every object in insertion order.
func (s *Scene) Objects() []*Object {
	out := make([]*Object, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.objects[name])
	}
	return out
}

// Remove drops the object named name and its relations.
func (s *Scene) Remove(name string) bool {
	o, ok := s.objects[name]
	if !ok {
		return false
	}
	s.deps.RemoveNode(o)
	delete(s.objects, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if o.result != nil {
		o.result.Release()
		o.result = nil
	}
	return true
}

// Relate records that to depends on from.
func (s *Scene) Relate(from, to string) error {
	src, ok := s.objects[from]
	if !ok {
		return fmt.Errorf("scene: no object %q", from)
	}
	dst, ok := s.objects[to]
	if !ok {
		return fmt.Errorf("scene: no object %q", to)
	}
	_, err := s.deps.Connect(src, dst)
	return err
}

// Order returns object names in evaluation order.
func (s *Scene) Order() []string {
	var out []string
	for _, o := range s.deps.Order() {
		out = append(out, o.Name())
	}
	return out
}

// Evaluate processes every object once, in depsgraph order.
func (s *Scene) Evaluate(ctx context.Context) error {
	return s.deps.Evaluate(ctx)
}
