package render

import (
	"image"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
	"github.com/lehigh-university-libraries/wordlens/pkg/viewport"
)

// Options control which overlays are drawn.
type Options struct {
	ShowLines bool
	ShowWords bool
	Palette   Palette
}

// Scene is the live state read at draw time.
type Scene struct {
	Image    image.Image
	Matrix   viewport.Matrix
	Index    *ocr.Index
	Selected func(*ocr.Word) bool
}

// Stats counts what a frame stroked.
type Stats struct {
	Lines    int
	Words    int
	Selected int
}

// Renderer draws frames. It keeps no per-frame state.
type Renderer struct {
	Options Options
}

// NewRenderer creates a renderer with the given options
func NewRenderer(opts Options) *Renderer {
	return &Renderer{Options: opts}
}

// DrawFrame clears the surface, draws the fitted image under the scene's
// pan/zoom matrix and strokes the overlays. A scene without an image only
// clears.
func (r *Renderer) DrawFrame(s Surface, scene Scene) Stats {
	var stats Stats

	s.SetTransform(scene.Matrix)
	s.Clear()
	if scene.Image == nil {
		return stats
	}

	w, h := s.Size()
	b := scene.Image.Bounds()
	fit := geometry.ComputeFitTransform(float64(w), float64(h), float64(b.Dx()), float64(b.Dy()))
	s.DrawImage(scene.Image, fit.ImageRect(float64(b.Dx()), float64(b.Dy())))

	selected := scene.Selected
	if selected == nil {
		selected = func(*ocr.Word) bool { return false }
	}
	p := r.Options.Palette

	for _, il := range scene.Index.Lines() {
		if r.Options.ShowLines {
			s.StrokePolygon(il.Line.BoundingPolygon.Translate(fit), p.Line)
			stats.Lines++
		}
		for _, word := range il.Line.Words {
			if word == nil {
				continue
			}
			isSelected := selected(word)
			if !r.Options.ShowWords && !isSelected {
				continue
			}
			c := p.Word
			if isSelected {
				c = p.Selected
				stats.Selected++
			}
			s.StrokePolygon(word.BoundingPolygon.Translate(fit), c)
			stats.Words++
		}
	}
	return stats
}
