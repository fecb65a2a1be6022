// Package interaction turns pointer and wheel events into panning, zooming
// and word selection over an OCR'd image.
package interaction

import (
	"log/slog"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
	"github.com/lehigh-university-libraries/wordlens/pkg/viewport"
)

// State is the gesture in progress.
type State int

const (
	Idle State = iota
	Panning
	Selecting
)

func (s State) String() string {
	switch s {
	case Panning:
		return "panning"
	case Selecting:
		return "selecting"
	default:
		return "idle"
	}
}

// Cursor is the pointer affordance the host should display.
type Cursor string

const (
	CursorDefault   Cursor = "default"
	CursorCrosshair Cursor = "crosshair"
	CursorGrabbing  Cursor = "grabbing"
)

// PointerEvent is a pointer down, move or up in client coordinates.
// Modifier is the selection key (ctrl in the browser).
type PointerEvent struct {
	ClientX  float64 `json:"clientX" yaml:"x"`
	ClientY  float64 `json:"clientY" yaml:"y"`
	Modifier bool    `json:"ctrlKey" yaml:"modifier"`
}

// WheelEvent is a wheel tick in client coordinates. Negative DeltaY scrolls
// away from the user.
type WheelEvent struct {
	ClientX float64 `json:"clientX" yaml:"x"`
	ClientY float64 `json:"clientY" yaml:"y"`
	DeltaY  float64 `json:"deltaY" yaml:"delta_y"`
}

// Canvas is the drawing surface as the controller sees it.
type Canvas interface {
	// ClientToCanvas maps client coordinates onto surface pixels.
	ClientToCanvas(clientX, clientY float64) geometry.Point
	// Fit is the image fit for the current surface and image sizes.
	Fit() geometry.Fit
}

// ClientRect is a Canvas whose on-screen box may differ in size from its
// pixel buffer, like a CSS-scaled canvas element.
type ClientRect struct {
	Left, Top, Width, Height float64
	CanvasWidth              float64
	CanvasHeight             float64
	ImageWidth               float64
	ImageHeight              float64
}

func (r ClientRect) ClientToCanvas(clientX, clientY float64) geometry.Point {
	if r.Width <= 0 || r.Height <= 0 {
		return geometry.Point{X: clientX - r.Left, Y: clientY - r.Top}
	}
	return geometry.Point{
		X: (clientX - r.Left) / r.Width * r.CanvasWidth,
		Y: (clientY - r.Top) / r.Height * r.CanvasHeight,
	}
}

func (r ClientRect) Fit() geometry.Fit {
	return geometry.ComputeFitTransform(r.CanvasWidth, r.CanvasHeight, r.ImageWidth, r.ImageHeight)
}

// Options wires a Controller to its collaborators.
type Options struct {
	Transform *viewport.Transform
	Canvas    Canvas
	// Index returns the hit-test index of the current OCR result.
	Index  func() *ocr.Index
	Host   TextField
	Mode   ModeSource
	Redraw func()
}

// Controller is the gesture state machine. It is not safe for concurrent
// use; the owner serialises events.
type Controller struct {
	opts      Options
	state     State
	cursor    Cursor
	anchor    geometry.Point
	selection Selection
}

// NewController creates an idle controller. Missing collaborators are
// replaced with inert ones.
func NewController(opts Options) *Controller {
	if opts.Transform == nil {
		opts.Transform = viewport.New(0, 0)
	}
	if opts.Canvas == nil {
		opts.Canvas = ClientRect{}
	}
	if opts.Index == nil {
		opts.Index = func() *ocr.Index { return nil }
	}
	if opts.Host == nil {
		opts.Host = &Keyword{}
	}
	if opts.Mode == nil {
		opts.Mode = FixedMode(Override)
	}
	if opts.Redraw == nil {
		opts.Redraw = func() {}
	}
	return &Controller{opts: opts, cursor: CursorDefault}
}

func (c *Controller) State() State   { return c.state }
func (c *Controller) Cursor() Cursor { return c.cursor }

// Selection returns the words selected so far in the current gesture.
func (c *Controller) Selection() []*ocr.Word {
	return c.selection.Words()
}

// IsSelected reports whether w is part of the current gesture's selection.
func (c *Controller) IsSelected(w *ocr.Word) bool {
	return c.selection.Contains(w)
}

// pointerPosition resolves a client point into pre-zoom canvas space.
func (c *Controller) pointerPosition(clientX, clientY float64) geometry.Point {
	p := c.opts.Canvas.ClientToCanvas(clientX, clientY)
	return c.opts.Transform.ToImageSpace(p.X, p.Y)
}

// PointerDown starts a gesture. The modifier decides between selecting and
// panning for the whole gesture.
func (c *Controller) PointerDown(ev PointerEvent) {
	pos := c.pointerPosition(ev.ClientX, ev.ClientY)
	c.selection.Reset()

	if ev.Modifier {
		c.state = Selecting
		c.cursor = CursorCrosshair
		c.hitTest(pos)
	} else {
		c.state = Panning
		c.cursor = CursorGrabbing
		c.anchor = pos
	}
	c.opts.Redraw()
}

// PointerMove extends the current gesture. Moves while idle are ignored.
func (c *Controller) PointerMove(ev PointerEvent) {
	switch c.state {
	case Selecting:
		if c.hitTest(c.pointerPosition(ev.ClientX, ev.ClientY)) > 0 {
			c.opts.Redraw()
		}
	case Panning:
		pos := c.pointerPosition(ev.ClientX, ev.ClientY)
		dx, dy := pos.X-c.anchor.X, pos.Y-c.anchor.Y
		if dx == 0 && dy == 0 {
			return
		}
		c.opts.Transform.PanBy(dx, dy)
		c.anchor = c.pointerPosition(ev.ClientX, ev.ClientY)
		c.opts.Redraw()
	}
}

// PointerUp ends the gesture. A selecting gesture emits its text to the
// host; the returned bool reports whether it did.
func (c *Controller) PointerUp(PointerEvent) (string, bool) {
	return c.end()
}

// WindowPointerUp ends the gesture when the pointer is released outside
// the drawing surface.
func (c *Controller) WindowPointerUp() (string, bool) {
	return c.end()
}

// Cancel abandons the gesture without emitting, e.g. when the image changes.
func (c *Controller) Cancel() {
	c.reset()
	c.opts.Redraw()
}

func (c *Controller) end() (string, bool) {
	var (
		text    string
		emitted bool
	)
	if c.state == Selecting {
		text = c.selection.Text()
		mode := c.opts.Mode.WordSelectionMode()
		c.opts.Host.SetText(mode.Merge(c.opts.Host.Text(), text))
		emitted = true
		slog.Debug("Emitted word selection", "words", c.selection.Len(), "mode", mode.String())
	}
	c.reset()
	c.opts.Redraw()
	return text, emitted
}

func (c *Controller) reset() {
	c.selection.Reset()
	c.state = Idle
	c.cursor = CursorDefault
	c.anchor = geometry.Point{}
}

// Wheel zooms around the pointer in any state. It returns true when the
// host should prevent its default scrolling.
func (c *Controller) Wheel(ev WheelEvent) bool {
	if ev.DeltaY == 0 {
		return true
	}
	factor := viewport.ZoomOutFactor
	if ev.DeltaY < 0 {
		factor = viewport.ZoomInFactor
	}
	pos := c.pointerPosition(ev.ClientX, ev.ClientY)
	c.opts.Transform.ZoomAt(pos.X, pos.Y, factor)
	c.opts.Redraw()
	return true
}

// hitTest adds every word under pos, given in pre-zoom canvas space, and
// returns how many were new.
func (c *Controller) hitTest(pos geometry.Point) int {
	imagePos := c.opts.Canvas.Fit().Invert(pos)
	added := 0
	for _, w := range c.opts.Index().HitTest(imagePos) {
		if c.selection.Add(w) {
			added++
		}
	}
	return added
}
