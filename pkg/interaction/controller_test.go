package interaction

import (
	"math"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
	"github.com/lehigh-university-libraries/wordlens/pkg/viewport"
)

// two words side by side on one line of a 100x100 image:
// A covers x 0..40, B covers x 50..90, both y 0..20.
func twoWordIndex(a, b string) *ocr.Index {
	return ocr.NewIndex(&ocr.Result{Blocks: []*ocr.Block{{Lines: []*ocr.Line{{
		Text:            a + " " + b,
		BoundingPolygon: geometry.Rect{X: 0, Y: 0, Width: 100, Height: 30}.Polygon(),
		Words: []*ocr.Word{
			{Text: a, BoundingPolygon: geometry.Rect{X: 0, Y: 0, Width: 40, Height: 20}.Polygon()},
			{Text: b, BoundingPolygon: geometry.Rect{X: 50, Y: 0, Width: 40, Height: 20}.Polygon()},
		},
	}}}}})
}

type harness struct {
	c       *Controller
	host    *Keyword
	mode    SelectionMode
	redraws int
	t       *viewport.Transform
}

func newHarness(idx *ocr.Index, canvas Canvas) *harness {
	h := &harness{host: &Keyword{}, t: viewport.New(0, 0)}
	if canvas == nil {
		canvas = ClientRect{Width: 100, Height: 100, CanvasWidth: 100, CanvasHeight: 100, ImageWidth: 100, ImageHeight: 100}
	}
	h.c = NewController(Options{
		Transform: h.t,
		Canvas:    canvas,
		Index:     func() *ocr.Index { return idx },
		Host:      h.host,
		Mode:      ModeFunc(func() SelectionMode { return h.mode }),
		Redraw:    func() { h.redraws++ },
	})
	return h
}

func sel(x, y float64) PointerEvent { return PointerEvent{ClientX: x, ClientY: y, Modifier: true} }
func pan(x, y float64) PointerEvent { return PointerEvent{ClientX: x, ClientY: y} }

func TestSelectionDedup(t *testing.T) {
	h := newHarness(twoWordIndex("A", "B"), nil)

	h.c.PointerDown(sel(10, 10))
	h.c.PointerMove(sel(60, 10))
	h.c.PointerMove(sel(10, 10))
	h.c.PointerMove(sel(12, 12))
	h.c.PointerMove(sel(60, 10))

	if got := len(h.c.Selection()); got != 2 {
		t.Fatalf("selection has %d words, want 2", got)
	}
	text, emitted := h.c.PointerUp(sel(60, 10))
	if !emitted {
		t.Fatal("selecting gesture did not emit")
	}
	if strings.Count(text, "A") != 1 || strings.Count(text, "B") != 1 {
		t.Errorf("emitted %q, want each word once", text)
	}
}

func TestEmissionOrder(t *testing.T) {
	h := newHarness(twoWordIndex("A", "B"), nil)

	h.c.PointerDown(sel(60, 10))
	h.c.PointerMove(sel(10, 10))
	text, _ := h.c.PointerUp(sel(10, 10))

	if text != "BA" {
		t.Errorf("emitted %q, want selection order %q", text, "BA")
	}
	if h.host.Text() != "BA" {
		t.Errorf("host text = %q", h.host.Text())
	}
}

func TestSelectionModes(t *testing.T) {
	tests := []struct {
		name string
		mode SelectionMode
		want string
	}{
		{name: "add appends", mode: Add, want: "foobar"},
		{name: "override replaces", mode: Override, want: "bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(twoWordIndex("bar", "baz"), nil)
			h.mode = tt.mode
			h.host.SetText("foo")

			h.c.PointerDown(sel(10, 10))
			h.c.PointerUp(sel(10, 10))

			if got := h.host.Text(); got != tt.want {
				t.Errorf("host text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWindowPointerUpEndsGesture(t *testing.T) {
	h := newHarness(twoWordIndex("A", "B"), nil)

	h.c.PointerDown(sel(10, 10))
	h.c.PointerMove(sel(500, 500))
	if h.c.State() != Selecting {
		t.Fatalf("state = %v, want selecting", h.c.State())
	}

	h.c.WindowPointerUp()

	if h.c.State() != Idle || h.c.Cursor() != CursorDefault {
		t.Errorf("state = %v cursor = %v after window release", h.c.State(), h.c.Cursor())
	}
	if len(h.c.Selection()) != 0 {
		t.Errorf("selection not cleared: %d words", len(h.c.Selection()))
	}
	h.c.PointerMove(sel(60, 10))
	if len(h.c.Selection()) != 0 {
		t.Error("moves after release must not select")
	}
}

func TestNoResultSelectsNothing(t *testing.T) {
	for _, idx := range []*ocr.Index{nil, ocr.NewIndex(nil)} {
		h := newHarness(idx, nil)
		h.host.SetText("keep")
		h.mode = Add

		h.c.PointerDown(sel(10, 10))
		h.c.PointerMove(sel(60, 10))
		text, emitted := h.c.PointerUp(sel(60, 10))

		if text != "" || !emitted || h.host.Text() != "keep" {
			t.Errorf("text = %q emitted = %v host = %q", text, emitted, h.host.Text())
		}
	}
}

func TestPanning(t *testing.T) {
	h := newHarness(twoWordIndex("A", "B"), nil)

	h.c.PointerDown(pan(10, 10))
	if h.c.State() != Panning || h.c.Cursor() != CursorGrabbing {
		t.Fatalf("state = %v cursor = %v", h.c.State(), h.c.Cursor())
	}
	h.c.PointerMove(pan(30, 20))
	h.c.PointerMove(pan(40, 20))

	if m := h.t.Matrix(); m.E != 30 || m.F != 10 {
		t.Errorf("matrix = %v, want translation (30, 10)", m)
	}

	h.host.SetText("untouched")
	if _, emitted := h.c.PointerUp(pan(40, 20)); emitted {
		t.Error("panning gesture must not emit")
	}
	if h.host.Text() != "untouched" {
		t.Errorf("host text = %q", h.host.Text())
	}

	// the word A now sits 30px to the right on screen
	h.c.PointerDown(sel(35, 10))
	if words := h.c.Selection(); len(words) != 1 || words[0].Text != "A" {
		t.Errorf("selection after pan = %v", words)
	}
}

func TestWheelZoomKeepsPointerFixed(t *testing.T) {
	h := newHarness(nil, nil)

	before := h.t.ToImageSpace(50, 40)
	if !h.c.Wheel(WheelEvent{ClientX: 50, ClientY: 40, DeltaY: -100}) {
		t.Error("wheel should prevent default scrolling")
	}
	after := h.t.ToImageSpace(50, 40)

	if math.Abs(before.X-after.X) > 1e-9 || math.Abs(before.Y-after.Y) > 1e-9 {
		t.Errorf("pivot moved from %v to %v", before, after)
	}
	if math.Abs(h.t.Scale()-viewport.ZoomInFactor) > 1e-12 {
		t.Errorf("scale = %v", h.t.Scale())
	}

	h.c.Wheel(WheelEvent{ClientX: 50, ClientY: 40, DeltaY: 100})
	if math.Abs(h.t.Scale()-viewport.ZoomInFactor*viewport.ZoomOutFactor) > 1e-12 {
		t.Errorf("scale after zoom out = %v", h.t.Scale())
	}

	scale := h.t.Scale()
	h.c.Wheel(WheelEvent{ClientX: 50, ClientY: 40})
	if h.t.Scale() != scale {
		t.Error("zero delta must not zoom")
	}
}

func TestFitAndClientMapping(t *testing.T) {
	// surface 200x100 shown at half size, image 100x100 centered with a 50px shift
	canvas := ClientRect{Left: 10, Top: 10, Width: 100, Height: 50, CanvasWidth: 200, CanvasHeight: 100, ImageWidth: 100, ImageHeight: 100}
	h := newHarness(twoWordIndex("A", "B"), canvas)

	// client (45, 15) -> canvas (70, 10) -> image (20, 10)
	h.c.PointerDown(sel(45, 15))
	if words := h.c.Selection(); len(words) != 1 || words[0].Text != "A" {
		t.Errorf("selection = %v", words)
	}
	h.c.Cancel()
	if h.c.State() != Idle || len(h.c.Selection()) != 0 {
		t.Error("Cancel did not reset the gesture")
	}
}

func TestRedrawRequested(t *testing.T) {
	h := newHarness(twoWordIndex("A", "B"), nil)

	h.c.PointerDown(sel(10, 10))
	h.c.PointerMove(sel(12, 12))
	afterDuplicate := h.redraws
	h.c.PointerMove(sel(60, 10))
	h.c.PointerUp(sel(60, 10))

	if afterDuplicate != 1 {
		t.Errorf("redraws after down + duplicate move = %d, want 1", afterDuplicate)
	}
	if h.redraws != 3 {
		t.Errorf("redraws = %d, want 3", h.redraws)
	}
}

func TestParseSelectionMode(t *testing.T) {
	tests := []struct {
		in      string
		want    SelectionMode
		wantErr bool
	}{
		{in: "override", want: Override},
		{in: " Add ", want: Add},
		{in: "append", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSelectionMode(tt.in)
		if (err != nil) != tt.wantErr || (!tt.wantErr && got != tt.want) {
			t.Errorf("ParseSelectionMode(%q) = %v, %v", tt.in, got, err)
		}
	}
	if Add.String() != "add" || Override.String() != "override" {
		t.Error("String() mismatch")
	}
}
