package ocr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnknownProvider = errors.New("unknown OCR provider")
	ErrInvalidDataURI  = errors.New("invalid image data URI")
)

// Config represents the configuration passed to an analyzer
type Config struct {
	Provider string
	Language string
	Timeout  time.Duration
}

// Analyzer turns an image into a structured Result.
type Analyzer interface {
	// Analyze runs text detection on an image given as a data URI
	Analyze(ctx context.Context, config Config, imageDataURI string) (*Result, error)
	// Name returns the provider's name
	Name() string
	// ValidateConfig checks provider specific settings, usually credentials
	ValidateConfig(config Config) error
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, config Config, imageDataURI string) (*Result, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, config Config, imageDataURI string) (*Result, error) {
	return f(ctx, config, imageDataURI)
}

func (f AnalyzerFunc) Name() string { return "func" }

func (f AnalyzerFunc) ValidateConfig(Config) error { return nil }

// Registry manages all available analyzers
type Registry struct {
	analyzers map[string]Analyzer
}

// NewRegistry creates a new analyzer registry
func NewRegistry() *Registry {
	return &Registry{
		analyzers: make(map[string]Analyzer),
	}
}

// Register adds an analyzer to the registry
func (r *Registry) Register(a Analyzer) {
	r.analyzers[strings.ToLower(a.Name())] = a
}

// Get retrieves an analyzer by name
func (r *Registry) Get(name string) (Analyzer, error) {
	a, exists := r.analyzers[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return a, nil
}

// List returns all registered analyzer names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.analyzers))
	for name := range r.analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TruncateBody truncates a response body to a maximum length for error messages.
// Default maxLen is 500 if not specified.
func TruncateBody(body []byte, maxLen ...int) string {
	limit := 500
	if len(maxLen) > 0 && maxLen[0] > 0 {
		limit = maxLen[0]
	}
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "... (truncated)"
	}
	return s
}
