// Package render draws the fitted image and its OCR overlays onto a
// drawing surface and coalesces redraw requests into frames.
package render

import (
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
	"github.com/lehigh-university-libraries/wordlens/pkg/viewport"
)

// Surface is a 2D raster the renderer draws on. Coordinates passed to
// DrawImage and StrokePolygon are mapped through the ambient transform set
// by SetTransform; Clear always covers the whole surface.
type Surface interface {
	Size() (width, height int)
	SetTransform(m viewport.Matrix)
	Clear()
	DrawImage(img image.Image, dst geometry.Rect)
	StrokePolygon(poly geometry.Polygon, c color.Color)
}

// RasterSurface is an in-memory Surface backed by gg.
type RasterSurface struct {
	dc         *gg.Context
	background color.Color
	lineWidth  float64
}

// NewRasterSurface allocates a width x height surface. Non-positive sizes
// are raised to one pixel.
func NewRasterSurface(width, height int) *RasterSurface {
	s := &RasterSurface{background: color.White, lineWidth: 1}
	s.Resize(width, height)
	return s
}

// Resize reallocates the surface, discarding its contents.
func (s *RasterSurface) Resize(width, height int) {
	s.dc = gg.NewContext(max(width, 1), max(height, 1))
	s.dc.SetLineWidth(s.lineWidth)
}

// SetLineWidth sets the stroke width in surface pixels.
func (s *RasterSurface) SetLineWidth(w float64) {
	if w > 0 {
		s.lineWidth = w
		s.dc.SetLineWidth(w)
	}
}

func (s *RasterSurface) Size() (int, int) {
	return s.dc.Width(), s.dc.Height()
}

// SetTransform replaces the ambient matrix.
func (s *RasterSurface) SetTransform(m viewport.Matrix) {
	s.dc.Identity()
	s.dc.Translate(m.E, m.F)
	s.dc.Scale(m.A, m.A)
}

// Clear fills the surface with the background under an identity transform
// and restores the previous transform afterwards.
func (s *RasterSurface) Clear() {
	s.dc.Push()
	s.dc.Identity()
	s.dc.SetColor(s.background)
	s.dc.Clear()
	s.dc.Pop()
}

func (s *RasterSurface) DrawImage(img image.Image, dst geometry.Rect) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	s.dc.Push()
	s.dc.Translate(dst.X, dst.Y)
	s.dc.Scale(dst.Width/float64(b.Dx()), dst.Height/float64(b.Dy()))
	s.dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	s.dc.Pop()
}

func (s *RasterSurface) StrokePolygon(poly geometry.Polygon, c color.Color) {
	if len(poly) == 0 {
		return
	}
	s.dc.NewSubPath()
	s.dc.MoveTo(poly[0].X, poly[0].Y)
	for _, p := range poly[1:] {
		s.dc.LineTo(p.X, p.Y)
	}
	s.dc.ClosePath()
	s.dc.SetColor(c)
	s.dc.Stroke()
}

// Image returns the current pixels.
func (s *RasterSurface) Image() image.Image {
	return s.dc.Image()
}

// EncodePNG writes the current pixels as PNG.
func (s *RasterSurface) EncodePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}
