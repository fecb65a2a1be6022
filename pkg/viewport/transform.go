// Package viewport holds the pan/zoom transform layered on top of the
// image fit. The transform is a uniform scale plus translation, the same
// subset of a canvas matrix that panning and wheel zooming produce.
package viewport

import (
	"fmt"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
)

const (
	// ZoomInFactor is applied per wheel tick away from the user.
	ZoomInFactor = 1.1
	// ZoomOutFactor is applied per wheel tick toward the user.
	ZoomOutFactor = 0.9

	DefaultMinScale = 0.05
	DefaultMaxScale = 40.0
)

// Matrix is the affine matrix [a c e; b d f] restricted to a == d and b == c == 0.
type Matrix struct {
	A float64 `json:"a"`
	E float64 `json:"e"`
	F float64 `json:"f"`
}

// Identity is the matrix of a freshly loaded image.
var Identity = Matrix{A: 1}

// Apply maps a point from pre-transform space into canvas space.
func (m Matrix) Apply(p geometry.Point) geometry.Point {
	return geometry.Point{X: m.A*p.X + m.E, Y: m.A*p.Y + m.F}
}

// Invert maps a canvas point back into pre-transform space.
func (m Matrix) Invert(x, y float64) geometry.Point {
	inv := 1 / m.A
	return geometry.Point{X: inv*x - inv*m.E, Y: inv*y - inv*m.F}
}

func (m Matrix) String() string {
	return fmt.Sprintf("matrix(%g, 0, 0, %g, %g, %g)", m.A, m.A, m.E, m.F)
}

// Transform owns the cumulative pan/zoom of one drawing surface.
// Scale is kept within [min, max]; zooming past a bound is clamped to it.
type Transform struct {
	m        Matrix
	minScale float64
	maxScale float64
}

// New returns an identity transform with the given scale bounds.
// Non-positive bounds fall back to the defaults.
func New(minScale, maxScale float64) *Transform {
	if minScale <= 0 {
		minScale = DefaultMinScale
	}
	if maxScale <= 0 {
		maxScale = DefaultMaxScale
	}
	if minScale > maxScale {
		minScale, maxScale = maxScale, minScale
	}
	return &Transform{m: Identity, minScale: minScale, maxScale: maxScale}
}

// Reset returns to identity. Called whenever a new image is loaded.
func (t *Transform) Reset() {
	t.m = Identity
}

// Matrix returns a snapshot of the current transform.
func (t *Transform) Matrix() Matrix {
	return t.m
}

// Scale is the current zoom level.
func (t *Transform) Scale() float64 {
	return t.m.A
}

// Bounds returns the scale limits.
func (t *Transform) Bounds() (float64, float64) {
	return t.minScale, t.maxScale
}

// translate composes a translation expressed in the current transformed space.
func (t *Transform) translate(dx, dy float64) {
	t.m.E += t.m.A * dx
	t.m.F += t.m.A * dy
}

// ZoomAt scales by factor around the pivot, given in pre-transform space,
// so the content under the pivot stays where it is on screen.
// It returns the factor actually applied after clamping.
func (t *Transform) ZoomAt(pivotX, pivotY, factor float64) float64 {
	if factor <= 0 {
		return 1
	}
	next := t.m.A * factor
	switch {
	case next < t.minScale:
		next = t.minScale
	case next > t.maxScale:
		next = t.maxScale
	}
	applied := next / t.m.A

	t.translate(pivotX, pivotY)
	t.m.A = next
	t.translate(-pivotX, -pivotY)
	return applied
}

// PanBy translates by a delta measured in pre-transform space, which is the
// space pointer positions are resolved into by ToImageSpace.
func (t *Transform) PanBy(dx, dy float64) {
	t.translate(dx, dy)
}

// ToImageSpace maps a canvas point into the space the fit transform and
// translated polygons live in.
func (t *Transform) ToImageSpace(canvasX, canvasY float64) geometry.Point {
	return t.m.Invert(canvasX, canvasY)
}
