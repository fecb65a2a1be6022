package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/wordlens/pkg/hocr"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
)

var (
	analyzeImage  string
	analyzeFormat string
	analyzeOutput string
	analyzeOCR    ocrFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run OCR on an image and print the block/line/word tree",
	Long: `Analyze sends an image to the configured OCR provider and prints the result
as json, yaml, hocr or plain text.`,
	RunE: runAnalyze,
}

func init() {
	RootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeImage, "image", "", "Image to analyze (PNG, JPEG or GIF)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "Output format: json, yaml, hocr or text")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write to this file instead of stdout")
	addOCRFlags(analyzeCmd, &analyzeOCR)
	_ = analyzeCmd.MarkFlagRequired("image")
}

func addOCRFlags(cmd *cobra.Command, f *ocrFlags) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "OCR provider: azure, gvision or hocr (default from settings)")
	cmd.Flags().StringVar(&f.language, "language", "", "Language hint passed to the provider (default from settings)")
	cmd.Flags().StringVar(&f.hocrPath, "hocr", "", "Use this hOCR file as the analysis result")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}
	analyzer, cfg, err := resolveAnalyzer(analyzeOCR, store.Settings())
	if err != nil {
		return err
	}

	result, err := analyzeFile(cmd.Context(), analyzer, cfg, analyzeImage)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := writeResult(&out, result, analyzeFormat, analyzeImage); err != nil {
		return err
	}

	if analyzeOutput == "" {
		_, err = io.Copy(cmd.OutOrStdout(), &out)
		return err
	}
	return os.WriteFile(analyzeOutput, out.Bytes(), 0644)
}

func writeResult(w io.Writer, result *ocr.Result, format, imagePath string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ocr.Response{ReadResult: *result})
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(result)
	case "hocr":
		width, height := imageSize(imagePath)
		_, err := io.WriteString(w, hocr.Encode(result, width, height))
		return err
	case "text":
		_, err := fmt.Fprintln(w, result.Text())
		return err
	default:
		return fmt.Errorf("unknown format %q (want json, yaml, hocr or text)", format)
	}
}

// imageSize returns zero when the header cannot be read; hOCR then omits
// a meaningful page box.
func imageSize(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
