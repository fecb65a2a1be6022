package hocr

import (
	"context"
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
)

// FileAnalyzer serves a previously produced hOCR file as the analysis of
// whatever image is displayed. It lets the viewer run offline.
type FileAnalyzer struct {
	Path string
}

// NewFileAnalyzer creates a new hOCR file analyzer
func NewFileAnalyzer(path string) *FileAnalyzer {
	return &FileAnalyzer{Path: path}
}

// Name returns the provider name
func (a *FileAnalyzer) Name() string {
	return "hocr"
}

// ValidateConfig checks that the hOCR file exists
func (a *FileAnalyzer) ValidateConfig(config ocr.Config) error {
	if a.Path == "" {
		return fmt.Errorf("an hOCR file path must be set")
	}
	if _, err := os.Stat(a.Path); err != nil {
		return fmt.Errorf("hOCR file not readable: %w", err)
	}
	return nil
}

// Analyze ignores the image and decodes the hOCR file.
func (a *FileAnalyzer) Analyze(ctx context.Context, config ocr.Config, imageDataURI string) (*ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hOCR file: %w", err)
	}
	defer f.Close()

	result, _, err := Decode(f)
	if err != nil {
		return nil, err
	}
	return result, nil
}
