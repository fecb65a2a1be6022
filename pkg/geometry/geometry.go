package geometry

import "math"

// Point is a 2D coordinate. Depending on context it is in image pixels,
// fitted canvas space, or raw canvas space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Polygon is a closed boundary; the last vertex connects back to the first.
type Polygon []Point

// Rect is an axis aligned rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

// Fit maps image pixels onto a drawing surface, scaled uniformly and centered.
type Fit struct {
	Ratio  float64
	ShiftX float64
	ShiftY float64
}

// NeutralFit is returned when the image or surface has no usable size.
var NeutralFit = Fit{Ratio: 1}

// PointInPolygon reports whether p lies inside poly using the even-odd rule.
// An edge counts as crossed when p.Y is strictly between its endpoints'
// y-values on the half-open interval and p.X is left of the crossing, so a
// box's minimum-x and minimum-y edges are inside and its maximum edges are
// outside. Polygons with fewer than three vertices contain nothing.
func PointInPolygon(poly Polygon, p Point) bool {
	if len(poly) < 3 {
		return false
	}

	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		xi, yi := poly[i].X, poly[i].Y
		xj, yj := poly[j].X, poly[j].Y

		// horizontal and zero-length edges never satisfy the straddle test,
		// so the division below never sees yj == yi
		if (yi > p.Y) != (yj > p.Y) && p.X < (xj-xi)*(p.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// TranslateImagePoint maps an image space point into fitted canvas space.
func TranslateImagePoint(p Point, ratio, shiftX, shiftY float64) (float64, float64) {
	return p.X*ratio + shiftX, p.Y*ratio + shiftY
}

// ComputeFitTransform scales the image to fit entirely inside the surface,
// preserving aspect ratio, and centers it. Zero or negative dimensions yield
// NeutralFit.
func ComputeFitTransform(surfaceWidth, surfaceHeight, imageWidth, imageHeight float64) Fit {
	if imageWidth <= 0 || imageHeight <= 0 || surfaceWidth <= 0 || surfaceHeight <= 0 {
		return NeutralFit
	}

	ratio := math.Min(surfaceWidth/imageWidth, surfaceHeight/imageHeight)
	return Fit{
		Ratio:  ratio,
		ShiftX: (surfaceWidth - imageWidth*ratio) / 2,
		ShiftY: (surfaceHeight - imageHeight*ratio) / 2,
	}
}

// Apply maps an image space point into fitted canvas space.
func (f Fit) Apply(p Point) Point {
	x, y := TranslateImagePoint(p, f.Ratio, f.ShiftX, f.ShiftY)
	return Point{X: x, Y: y}
}

// Invert maps a fitted canvas space point back into image space.
func (f Fit) Invert(p Point) Point {
	if f.Ratio == 0 {
		return p
	}
	return Point{
		X: (p.X - f.ShiftX) / f.Ratio,
		Y: (p.Y - f.ShiftY) / f.Ratio,
	}
}

// ImageRect is the destination rectangle of an image of the given size.
func (f Fit) ImageRect(imageWidth, imageHeight float64) Rect {
	return Rect{
		X:      f.ShiftX,
		Y:      f.ShiftY,
		Width:  imageWidth * f.Ratio,
		Height: imageHeight * f.Ratio,
	}
}

// Translate returns a copy of poly mapped through the fit.
func (poly Polygon) Translate(f Fit) Polygon {
	out := make(Polygon, len(poly))
	for i, p := range poly {
		out[i] = f.Apply(p)
	}
	return out
}

// Bounds returns the smallest rectangle enclosing poly.
func (poly Polygon) Bounds() Rect {
	if len(poly) == 0 {
		return Rect{}
	}
	minX, minY := poly[0].X, poly[0].Y
	maxX, maxY := minX, minY
	for _, p := range poly[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Contains reports whether p is inside the rectangle, edges inclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Polygon returns the rectangle's corners in clockwise order from the top left.
func (r Rect) Polygon() Polygon {
	return Polygon{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	}
}
