//go:build !manifold

// Package manifold binds the Manifold library as a geometry kernel through
// CGo. Without the "manifold" build tag only this stub is compiled and New
// reports ErrUnavailable.
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/opgraph/pkg/kernel"
)

// ErrUnavailable is returned by New when the binary was built without the
// manifold tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

// New always fails in this build.
func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
