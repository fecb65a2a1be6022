package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/wordlens/internal/config"
	"github.com/lehigh-university-libraries/wordlens/internal/utils"
	"github.com/lehigh-university-libraries/wordlens/pkg/interaction"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
	"github.com/lehigh-university-libraries/wordlens/pkg/viewer"
)

var (
	renderImage  string
	renderOutput string
	renderWidth  int
	renderHeight int
	renderZoom   int
	renderZoomX  float64
	renderZoomY  float64
	renderOCR    ocrFlags
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Draw an image with its line and word boxes to a PNG",
	Long: `Render analyzes an image, fits it into a surface of the given size and writes
the frame, with line and word overlays, as PNG. --zoom applies that many
wheel ticks (negative zooms out) around --zoom-x/--zoom-y.`,
	RunE: runRender,
}

func init() {
	RootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&renderImage, "image", "", "Image to render (PNG, JPEG or GIF)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "frame.png", "PNG file to write")
	renderCmd.Flags().IntVar(&renderWidth, "width", viewer.DefaultWidth, "Surface width in pixels")
	renderCmd.Flags().IntVar(&renderHeight, "height", viewer.DefaultHeight, "Surface height in pixels")
	addOverlayFlags(renderCmd)
	renderCmd.Flags().IntVar(&renderZoom, "zoom", 0, "Wheel ticks to apply before drawing")
	renderCmd.Flags().Float64Var(&renderZoomX, "zoom-x", -1, "Zoom pivot x in surface pixels (default centre)")
	renderCmd.Flags().Float64Var(&renderZoomY, "zoom-y", -1, "Zoom pivot y in surface pixels (default centre)")
	addOCRFlags(renderCmd, &renderOCR)
	_ = renderCmd.MarkFlagRequired("image")
}

// sessionParams are the per-command parts of a session.
type sessionParams struct {
	ocr      ocrFlags
	width    int
	height   int
	notifier ocr.Notifier
	host     interaction.TextField
	// mode overrides the persisted WordSelectionMode when set.
	mode interaction.ModeSource
}

// newSession builds a session from settings and the command's flags.
func newSession(cmd *cobra.Command, p sessionParams) (*viewer.Session, *config.Store, error) {
	store, err := openSettings()
	if err != nil {
		return nil, nil, err
	}
	settings := store.Settings()

	analyzer, cfg, err := resolveAnalyzer(p.ocr, settings)
	if err != nil {
		return nil, nil, err
	}
	renderOpts, err := settings.RenderOptions()
	if err != nil {
		return nil, nil, err
	}
	if f := cmd.Flags().Lookup("lines"); f != nil && f.Changed {
		renderOpts.ShowLines, _ = cmd.Flags().GetBool("lines")
	}
	if f := cmd.Flags().Lookup("words"); f != nil && f.Changed {
		renderOpts.ShowWords, _ = cmd.Flags().GetBool("words")
	}

	var mode interaction.ModeSource = store
	if p.mode != nil {
		mode = p.mode
	}

	s := viewer.NewSession(viewer.Options{
		Analyzer: analyzer,
		OCR:      cfg,
		Notifier: p.notifier,
		Mode:     mode,
		Host:     p.host,
		Render:   renderOpts,
		MinScale: settings.MinScale,
		MaxScale: settings.MaxScale,
		Width:    p.width,
		Height:   p.height,
	})
	return s, store, nil
}

// loadAndWait loads an image file into the session and waits for OCR.
// A failed analysis is logged; the image is still usable.
func loadAndWait(cmd *cobra.Command, s *viewer.Session, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	ch, err := s.LoadImage(cmd.Context(), data)
	if err != nil {
		return err
	}
	outcome, err := ocr.Wait(cmd.Context(), ch)
	if err != nil {
		return err
	}
	if outcome.Err != nil {
		slog.Warn("Rendering without OCR boxes", "err", utils.MaskSensitiveError(outcome.Err))
	}
	return nil
}

func addOverlayFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("lines", false, "Draw line boxes (default from settings)")
	cmd.Flags().Bool("words", false, "Draw word boxes (default from settings)")
}

func runRender(cmd *cobra.Command, args []string) error {
	s, _, err := newSession(cmd, sessionParams{
		ocr:      renderOCR,
		width:    renderWidth,
		height:   renderHeight,
		notifier: ocr.LogNotifier{},
	})
	if err != nil {
		return err
	}
	if err := loadAndWait(cmd, s, renderImage); err != nil {
		return err
	}

	x, y := renderZoomX, renderZoomY
	if x < 0 {
		x = float64(renderWidth) / 2
	}
	if y < 0 {
		y = float64(renderHeight) / 2
	}
	ticks, delta := renderZoom, -1.0
	if ticks < 0 {
		ticks, delta = -ticks, 1.0
	}
	for i := 0; i < ticks; i++ {
		s.Wheel(interaction.WheelEvent{ClientX: x, ClientY: y, DeltaY: delta})
	}

	frame, err := s.Frame()
	if err != nil {
		return err
	}
	if err := os.WriteFile(renderOutput, frame, 0644); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	st := s.Status()
	slog.Info("Frame written", "path", renderOutput, "words", st.Words, "scale", st.Scale)
	return nil
}
