package viewer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
	"github.com/lehigh-university-libraries/wordlens/pkg/interaction"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
	"github.com/lehigh-university-libraries/wordlens/pkg/render"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func wordResult(text string) *ocr.Result {
	return &ocr.Result{Blocks: []*ocr.Block{{Lines: []*ocr.Line{{
		Text:            text,
		BoundingPolygon: geometry.Rect{X: 0, Y: 0, Width: 100, Height: 30}.Polygon(),
		Words: []*ocr.Word{
			{Text: text, BoundingPolygon: geometry.Rect{X: 0, Y: 0, Width: 40, Height: 20}.Polygon()},
		},
	}}}}}
}

func fixedAnalyzer(text string) ocr.Analyzer {
	return ocr.AnalyzerFunc(func(context.Context, ocr.Config, string) (*ocr.Result, error) {
		return wordResult(text), nil
	})
}

func wait(t *testing.T, ch <-chan ocr.Outcome) ocr.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := ocr.Wait(ctx, ch)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return o
}

func TestLoadSelectEmit(t *testing.T) {
	host := &interaction.Keyword{}
	host.SetText("foo")
	s := NewSession(Options{
		Analyzer: fixedAnalyzer("bar"),
		Mode:     interaction.FixedMode(interaction.Add),
		Host:     host,
		Width:    100,
		Height:   100,
	})

	ch, err := s.LoadImage(context.Background(), pngBytes(t, 100, 100))
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if o := wait(t, ch); !o.Completed() {
		t.Fatalf("outcome = %+v", o)
	}

	for _, ev := range []Event{
		{Type: EventDown, X: 10, Y: 10, Modifier: true},
		{Type: EventMove, X: 12, Y: 12, Modifier: true},
	} {
		if _, err := s.Dispatch(ev); err != nil {
			t.Fatalf("Dispatch(%v) error = %v", ev, err)
		}
	}
	if st := s.Status(); st.Gesture != "selecting" || st.Selected != 1 || st.Cursor != "crosshair" {
		t.Errorf("status mid-gesture = %+v", st)
	}

	res, err := s.Dispatch(Event{Type: EventUp, X: 12, Y: 12, Modifier: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Emitted || res.Text != "bar" || res.Cursor != "default" {
		t.Errorf("result = %+v", res)
	}
	if host.Text() != "foobar" {
		t.Errorf("host text = %q", host.Text())
	}

	st := s.Status()
	if st.OCR != "ready" || st.Words != 1 || st.Keyword != "foobar" || st.ImageID == "" {
		t.Errorf("status = %+v", st)
	}
}

func TestLoadImageMidGestureCancelsWithoutEmitting(t *testing.T) {
	host := &interaction.Keyword{}
	host.SetText("foo")
	s := NewSession(Options{
		Analyzer: fixedAnalyzer("bar"),
		Mode:     interaction.FixedMode(interaction.Override),
		Host:     host,
		Width:    100,
		Height:   100,
	})
	ch, err := s.LoadImage(context.Background(), pngBytes(t, 100, 100))
	if err != nil {
		t.Fatal(err)
	}
	wait(t, ch)

	if _, err := s.Dispatch(Event{Type: EventDown, X: 10, Y: 10, Modifier: true}); err != nil {
		t.Fatal(err)
	}
	if st := s.Status(); st.Gesture != "selecting" || st.Selected != 1 {
		t.Fatalf("status mid-gesture = %+v", st)
	}

	ch, err = s.LoadImage(context.Background(), pngBytes(t, 50, 50))
	if err != nil {
		t.Fatal(err)
	}
	if st := s.Status(); st.Gesture != "idle" || st.Selected != 0 || st.Cursor != "default" {
		t.Errorf("status after image change = %+v", st)
	}
	wait(t, ch)

	res, err := s.Dispatch(Event{Type: EventUp, X: 10, Y: 10, Modifier: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Emitted {
		t.Errorf("release after image change emitted %q", res.Text)
	}
	if host.Text() != "foo" {
		t.Errorf("host text = %q, want unchanged %q", host.Text(), "foo")
	}
}

// gate lets a test decide when each image's analysis resolves.
type gate struct {
	mu      sync.Mutex
	release map[string]chan *ocr.Result
}

func (g *gate) wait(uri string) chan *ocr.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.release == nil {
		g.release = make(map[string]chan *ocr.Result)
	}
	if g.release[uri] == nil {
		g.release[uri] = make(chan *ocr.Result, 1)
	}
	return g.release[uri]
}

func (g *gate) Analyze(ctx context.Context, _ ocr.Config, uri string) (*ocr.Result, error) {
	select {
	case r := <-g.wait(uri):
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gate) Name() string                    { return "gate" }
func (g *gate) ValidateConfig(ocr.Config) error { return nil }

func TestStaleAnalysisDiscarded(t *testing.T) {
	g := &gate{}
	s := NewSession(Options{Analyzer: g, Width: 100, Height: 100})

	x := pngBytes(t, 10, 10)
	y := pngBytes(t, 20, 20)
	chX, err := s.LoadImage(context.Background(), x)
	if err != nil {
		t.Fatal(err)
	}
	chY, err := s.LoadImage(context.Background(), y)
	if err != nil {
		t.Fatal(err)
	}

	g.wait(ocr.EncodeDataURI("image/png", x)) <- wordResult("X")
	if o := wait(t, chX); !o.Stale {
		t.Errorf("X outcome = %+v, want stale", o)
	}
	if r := s.Result(); r != nil {
		t.Errorf("result after stale X = %q, want none yet", r.Text())
	}

	g.wait(ocr.EncodeDataURI("image/png", y)) <- wordResult("Y")
	if o := wait(t, chY); !o.Completed() {
		t.Errorf("Y outcome = %+v", o)
	}
	if r := s.Result(); r == nil || r.Text() != "Y" {
		t.Errorf("result = %v, want Y", r)
	}
}

func TestAnalysisFailure(t *testing.T) {
	notifier := &ocr.StatusNotifier{}
	s := NewSession(Options{
		Analyzer: ocr.AnalyzerFunc(func(context.Context, ocr.Config, string) (*ocr.Result, error) {
			return nil, errors.New("service unavailable")
		}),
		Notifier: notifier,
	})

	ch, err := s.LoadImage(context.Background(), pngBytes(t, 10, 10))
	if err != nil {
		t.Fatal(err)
	}
	if o := wait(t, ch); o.Err == nil {
		t.Fatal("expected failed outcome")
	}

	st := s.Status()
	if st.OCR != "failed" || st.Error != "service unavailable" || st.Words != 0 {
		t.Errorf("status = %+v", st)
	}
	loading, msg := notifier.Status()
	if loading || msg != "Failed to analyze image: service unavailable" {
		t.Errorf("notifier = %v %q", loading, msg)
	}

	// interaction keeps working without a result
	if _, err := s.Dispatch(Event{Type: EventWheel, X: 5, Y: 5, DeltaY: -1}); err != nil {
		t.Fatal(err)
	}
	if s.Status().Scale <= 1 {
		t.Error("wheel did not zoom after failure")
	}
}

func TestFrameAndResize(t *testing.T) {
	s := NewSession(Options{Analyzer: fixedAnalyzer("w"), Width: 64, Height: 48,
		Render: render.Options{ShowLines: true, ShowWords: true}})

	frame, err := s.Frame()
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("frame bounds = %v", b)
	}

	s.Resize(32, 16)
	frame, _ = s.Frame()
	img, _ = png.Decode(bytes.NewReader(frame))
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Errorf("frame bounds after resize = %v", b)
	}
	if s.Flush() {
		t.Error("Frame() should have drawn the pending frame")
	}
	if s.Status().Frames < 2 {
		t.Errorf("frames = %d", s.Status().Frames)
	}
}

func TestClearAndRefresh(t *testing.T) {
	s := NewSession(Options{Analyzer: fixedAnalyzer("w")})

	if _, err := s.Refresh(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Errorf("Refresh() without image error = %v", err)
	}
	if _, err := s.LoadImage(context.Background(), []byte("not an image")); err == nil {
		t.Error("expected decode error")
	}

	ch, _ := s.LoadImage(context.Background(), pngBytes(t, 10, 10))
	wait(t, ch)
	s.Wheel(interaction.WheelEvent{DeltaY: -1})

	ch, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if o := wait(t, ch); !o.Completed() {
		t.Errorf("refresh outcome = %+v", o)
	}

	s.ClearImage()
	st := s.Status()
	if st.ImageID != "" || st.OCR != "idle" || st.Scale != 1 || s.Result() != nil {
		t.Errorf("status after clear = %+v", st)
	}
}

func TestDispatchUnknownEvent(t *testing.T) {
	s := NewSession(Options{})
	if _, err := s.Dispatch(Event{Type: "tap"}); err == nil {
		t.Error("expected error for unknown event type")
	}
	res, err := s.Dispatch(Event{Type: EventWindowUp})
	if err != nil || res.Emitted {
		t.Errorf("window up while idle = %+v, %v", res, err)
	}
}
