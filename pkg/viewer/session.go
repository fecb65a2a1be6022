// Package viewer owns one image-editing session: the displayed image, its
// OCR result, the pan/zoom transform, the gesture controller and the frames
// drawn from them. All events are serialised through the session.
package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
	"github.com/lehigh-university-libraries/wordlens/pkg/interaction"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
	"github.com/lehigh-university-libraries/wordlens/pkg/render"
	"github.com/lehigh-university-libraries/wordlens/pkg/viewport"
)

var ErrNoImage = errors.New("no image loaded")

const (
	DefaultWidth  = 1024
	DefaultHeight = 768
)

// Options configures a Session.
type Options struct {
	Analyzer ocr.Analyzer
	OCR      ocr.Config
	Notifier ocr.Notifier
	Mode     interaction.ModeSource
	Host     interaction.TextField
	Render   render.Options
	MinScale float64
	MaxScale float64
	Width    int
	Height   int
	// FrameInterval is the scheduler tick used by Run.
	FrameInterval time.Duration
}

// Session is one viewer instance.
type Session struct {
	mu         sync.Mutex
	imageID    string
	img        image.Image
	format     string
	dataURI    string
	client     interaction.ClientRect
	transform  *viewport.Transform
	cache      *ocr.Cache
	controller *interaction.Controller
	renderer   *render.Renderer
	surface    *render.RasterSurface
	scheduler  *render.Scheduler
	host       interaction.TextField
	frame      []byte
	stats      render.Stats
}

// NewSession creates an empty session.
func NewSession(opts Options) *Session {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Host == nil {
		opts.Host = &interaction.Keyword{}
	}
	if opts.Render.Palette == (render.Palette{}) {
		opts.Render.Palette = render.DefaultPalette()
	}

	s := &Session{
		transform: viewport.New(opts.MinScale, opts.MaxScale),
		renderer:  render.NewRenderer(opts.Render),
		surface:   render.NewRasterSurface(opts.Width, opts.Height),
		host:      opts.Host,
	}
	s.client = interaction.ClientRect{
		Width:        float64(opts.Width),
		Height:       float64(opts.Height),
		CanvasWidth:  float64(opts.Width),
		CanvasHeight: float64(opts.Height),
	}
	s.scheduler = render.NewScheduler(s.draw, opts.FrameInterval)

	cacheOpts := []ocr.CacheOption{ocr.WithOnChange(s.scheduler.Request)}
	if opts.Notifier != nil {
		cacheOpts = append(cacheOpts, ocr.WithNotifier(opts.Notifier))
	}
	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = ocr.AnalyzerFunc(func(context.Context, ocr.Config, string) (*ocr.Result, error) {
			return &ocr.Result{}, nil
		})
	}
	s.cache = ocr.NewCache(analyzer, opts.OCR, cacheOpts...)

	s.controller = interaction.NewController(interaction.Options{
		Transform: s.transform,
		Canvas:    sessionCanvas{s},
		Index:     s.cache.Index,
		Host:      opts.Host,
		Mode:      opts.Mode,
		Redraw:    s.scheduler.Request,
	})

	s.scheduler.Request()
	return s
}

// sessionCanvas reads layout fields with the session lock already held.
type sessionCanvas struct{ s *Session }

func (c sessionCanvas) ClientToCanvas(x, y float64) geometry.Point {
	return c.s.client.ClientToCanvas(x, y)
}

func (c sessionCanvas) Fit() geometry.Fit {
	return c.s.client.Fit()
}

// LoadImage decodes a PNG, JPEG or GIF, makes it the displayed image and
// starts its analysis. ctx bounds the analysis, not the call. The returned
// channel receives the analysis outcome.
func (s *Session) LoadImage(ctx context.Context, data []byte) (<-chan ocr.Outcome, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	uri := ocr.EncodeDataURI("image/"+format, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.controller.Cancel()
	s.imageID = uuid.NewString()
	s.img = img
	s.format = format
	s.dataURI = uri
	s.transform.Reset()
	b := img.Bounds()
	s.client.ImageWidth = float64(b.Dx())
	s.client.ImageHeight = float64(b.Dy())

	slog.Info("Image loaded", "image_id", s.imageID, "format", format, "width", b.Dx(), "height", b.Dy())
	ch := s.cache.Load(ctx, s.imageID, uri)
	s.scheduler.Request()
	return ch, nil
}

// Refresh re-runs analysis for the displayed image.
func (s *Session) Refresh(ctx context.Context) (<-chan ocr.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil {
		return nil, ErrNoImage
	}
	return s.cache.Load(ctx, s.imageID, s.dataURI), nil
}

// ClearImage discards the image and its OCR result.
func (s *Session) ClearImage() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.controller.Cancel()
	s.cache.Clear()
	s.imageID = ""
	s.img = nil
	s.format = ""
	s.dataURI = ""
	s.transform.Reset()
	s.client.ImageWidth = 0
	s.client.ImageHeight = 0
	s.scheduler.Request()
}

// Resize changes the surface's pixel size. The on-screen box follows it
// until SetClientRect says otherwise.
func (s *Session) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sameBox := s.client.Width == s.client.CanvasWidth && s.client.Height == s.client.CanvasHeight
	s.surface.Resize(width, height)
	s.client.CanvasWidth = float64(width)
	s.client.CanvasHeight = float64(height)
	if sameBox {
		s.client.Width = float64(width)
		s.client.Height = float64(height)
	}
	s.scheduler.Request()
}

// SetClientRect sets where the surface sits on screen, in client coordinates.
func (s *Session) SetClientRect(left, top, width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.Left, s.client.Top = left, top
	s.client.Width, s.client.Height = width, height
}

func (s *Session) PointerDown(ev interaction.PointerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.PointerDown(ev)
}

func (s *Session) PointerMove(ev interaction.PointerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.PointerMove(ev)
}

// PointerUp ends the gesture and returns any emitted selection.
func (s *Session) PointerUp(ev interaction.PointerEvent) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.PointerUp(ev)
}

// WindowPointerUp ends a gesture released outside the surface.
func (s *Session) WindowPointerUp() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.WindowPointerUp()
}

// Wheel zooms around the pointer.
func (s *Session) Wheel(ev interaction.WheelEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Wheel(ev)
}

// SetRenderOptions changes which overlays are drawn.
func (s *Session) SetRenderOptions(opts render.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.Palette == (render.Palette{}) {
		opts.Palette = s.renderer.Options.Palette
	}
	s.renderer.Options = opts
	s.scheduler.Request()
}

// RenderOptions returns the current overlay options.
func (s *Session) RenderOptions() render.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.Options
}

// Host is the text field selections are emitted to.
func (s *Session) Host() interaction.TextField {
	return s.host
}

// Matrix returns the current pan/zoom matrix.
func (s *Session) Matrix() viewport.Matrix {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform.Matrix()
}

// Result returns the OCR result of the displayed image, or nil.
func (s *Session) Result() *ocr.Result {
	return s.cache.Result()
}

// Run draws requested frames until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	return s.scheduler.Run(ctx)
}

// Flush draws a pending frame now.
func (s *Session) Flush() bool {
	return s.scheduler.Flush()
}

// Frame returns the most recent frame as PNG, drawing one first if a
// frame is pending or none exists yet.
func (s *Session) Frame() ([]byte, error) {
	s.Flush()

	s.mu.Lock()
	frame := s.frame
	s.mu.Unlock()
	if frame != nil {
		return frame, nil
	}

	s.draw()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil, errors.New("failed to encode frame")
	}
	return s.frame, nil
}

// draw renders live state. It runs on the scheduler, never under s.mu.
func (s *Session) draw() {
	s.mu.Lock()
	defer s.mu.Unlock()

	scene := render.Scene{
		Image:    s.img,
		Matrix:   s.transform.Matrix(),
		Index:    s.cache.Index(),
		Selected: s.controller.IsSelected,
	}
	s.stats = s.renderer.DrawFrame(s.surface, scene)

	var buf bytes.Buffer
	if err := s.surface.EncodePNG(&buf); err != nil {
		slog.Error("Failed to encode frame", "err", err)
		return
	}
	s.frame = buf.Bytes()
	slog.Debug("Frame drawn", "image_id", s.imageID, "lines", s.stats.Lines, "words", s.stats.Words, "selected", s.stats.Selected)
}
