package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lehigh-university-libraries/wordlens/internal/config"
	"github.com/lehigh-university-libraries/wordlens/internal/utils"
	"github.com/lehigh-university-libraries/wordlens/pkg/azure"
	"github.com/lehigh-university-libraries/wordlens/pkg/gvision"
	"github.com/lehigh-university-libraries/wordlens/pkg/hocr"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
)

const analysisTimeout = 2 * time.Minute

// ocrFlags are shared by every command that runs analysis.
type ocrFlags struct {
	provider string
	language string
	hocrPath string
}

// newRegistry registers every analyzer; hocrPath backs the hocr provider.
func newRegistry(hocrPath string) *ocr.Registry {
	registry := ocr.NewRegistry()
	registry.Register(azure.New())
	registry.Register(gvision.New())
	registry.Register(hocr.NewFileAnalyzer(hocrPath))
	return registry
}

// resolveAnalyzer picks the analyzer from flags, falling back to settings.
// An --hocr file implies the hocr provider unless one was named.
func resolveAnalyzer(f ocrFlags, settings config.Settings) (ocr.Analyzer, ocr.Config, error) {
	provider := f.provider
	if provider == "" && f.hocrPath != "" {
		provider = "hocr"
	}
	if provider == "" {
		provider = settings.Provider
	}
	language := f.language
	if language == "" {
		language = settings.Language
	}

	cfg := ocr.Config{Provider: provider, Language: language, Timeout: analysisTimeout}
	analyzer, err := newRegistry(f.hocrPath).Get(provider)
	if err != nil {
		return nil, cfg, err
	}
	if err := analyzer.ValidateConfig(cfg); err != nil {
		return nil, cfg, fmt.Errorf("invalid %s configuration: %w", analyzer.Name(), err)
	}
	slog.Debug("Using OCR provider", "provider", analyzer.Name(), "language", language)
	return analyzer, cfg, nil
}

func openSettings() (*config.Store, error) {
	return config.Open(settingsPath)
}

// analyzeFile runs one analysis outside of a session.
func analyzeFile(ctx context.Context, analyzer ocr.Analyzer, cfg ocr.Config, path string) (*ocr.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	cache := ocr.NewCache(analyzer, cfg, ocr.WithNotifier(ocr.LogNotifier{}))
	outcome, err := ocr.Wait(ctx, cache.Load(ctx, path, ocr.EncodeDataURI("", data)))
	if err != nil {
		return nil, err
	}
	if outcome.Err != nil {
		return nil, utils.MaskSensitiveError(outcome.Err)
	}
	return outcome.Result, nil
}
