package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/wordlens/pkg/interaction"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
	"github.com/lehigh-university-libraries/wordlens/pkg/viewer"
)

var (
	selectScript string
	selectFrame  string
	selectOCR    ocrFlags
)

// GestureScript is a recorded sequence of pointer and wheel events.
type GestureScript struct {
	Image   string         `yaml:"image"`
	HOCR    string         `yaml:"hocr,omitempty"`
	Width   int            `yaml:"width,omitempty"`
	Height  int            `yaml:"height,omitempty"`
	Mode    string         `yaml:"mode,omitempty"`
	Keyword string         `yaml:"keyword,omitempty"`
	Events  []viewer.Event `yaml:"events"`
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Replay a gesture script over an image and print the selected text",
	Long: `Select loads the script's image, waits for OCR, then feeds each pointer or
wheel event through the interaction controller. The host text after the
last event is printed. Paths in the script are relative to the script.

  image: page.png
  mode: add
  keyword: "foo"
  events:
    - {type: down, x: 120, y: 40, modifier: true}
    - {type: move, x: 180, y: 40, modifier: true}
    - {type: up, x: 180, y: 40, modifier: true}`,
	RunE: runSelect,
}

func init() {
	RootCmd.AddCommand(selectCmd)
	selectCmd.Flags().StringVar(&selectScript, "script", "", "Gesture script (YAML)")
	selectCmd.Flags().StringVar(&selectFrame, "frame", "", "Also write the final frame to this PNG")
	addOverlayFlags(selectCmd)
	addOCRFlags(selectCmd, &selectOCR)
	_ = selectCmd.MarkFlagRequired("script")
}

func loadGestureScript(path string) (*GestureScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gesture script: %w", err)
	}
	var script GestureScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse gesture script: %w", err)
	}
	if script.Image == "" {
		return nil, fmt.Errorf("gesture script %s has no image", path)
	}

	dir := filepath.Dir(path)
	if !filepath.IsAbs(script.Image) {
		script.Image = filepath.Join(dir, script.Image)
	}
	if script.HOCR != "" && !filepath.IsAbs(script.HOCR) {
		script.HOCR = filepath.Join(dir, script.HOCR)
	}
	return &script, nil
}

// replayGesture dispatches every event and returns the emitted selections.
func replayGesture(s *viewer.Session, events []viewer.Event) ([]string, error) {
	var emitted []string
	for i, ev := range events {
		res, err := s.Dispatch(ev)
		if err != nil {
			return emitted, fmt.Errorf("event %d: %w", i, err)
		}
		if res.Emitted {
			slog.Info("Selection emitted", "event", i, "text", res.Text)
			emitted = append(emitted, res.Text)
		}
	}
	return emitted, nil
}

func runSelect(cmd *cobra.Command, args []string) error {
	script, err := loadGestureScript(selectScript)
	if err != nil {
		return err
	}

	flags := selectOCR
	if flags.hocrPath == "" {
		flags.hocrPath = script.HOCR
	}
	params := sessionParams{
		ocr:      flags,
		width:    script.Width,
		height:   script.Height,
		notifier: ocr.LogNotifier{},
		host:     &interaction.Keyword{},
	}
	params.host.SetText(script.Keyword)
	if script.Mode != "" {
		mode, err := interaction.ParseSelectionMode(script.Mode)
		if err != nil {
			return err
		}
		params.mode = interaction.FixedMode(mode)
	}

	s, _, err := newSession(cmd, params)
	if err != nil {
		return err
	}
	if err := loadAndWait(cmd, s, script.Image); err != nil {
		return err
	}

	if _, err := replayGesture(s, script.Events); err != nil {
		return err
	}

	if selectFrame != "" {
		frame, err := s.Frame()
		if err != nil {
			return err
		}
		if err := os.WriteFile(selectFrame, frame, 0644); err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), s.Host().Text())
	return nil
}
