package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/wordlens/pkg/interaction"
	"github.com/lehigh-university-libraries/wordlens/pkg/render"
	"github.com/lehigh-university-libraries/wordlens/pkg/viewport"
)

var ErrInvalidMode = errors.New("invalid word selection mode")

// Palette holds overlay colours as hex strings.
type Palette struct {
	Line     string `yaml:"line,omitempty"`
	Word     string `yaml:"word,omitempty"`
	Selected string `yaml:"selected,omitempty"`
}

// Settings is the persisted user configuration.
type Settings struct {
	WordSelectionMode string  `yaml:"word_selection_mode"`
	ShowLineBoxes     bool    `yaml:"show_line_boxes"`
	ShowWordBoxes     bool    `yaml:"show_word_boxes"`
	Provider          string  `yaml:"provider"`
	Language          string  `yaml:"language"`
	MinScale          float64 `yaml:"min_scale"`
	MaxScale          float64 `yaml:"max_scale"`
	Palette           Palette `yaml:"palette"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Settings {
	return Settings{
		WordSelectionMode: interaction.Override.String(),
		Provider:          "azure",
		Language:          "en",
		MinScale:          viewport.DefaultMinScale,
		MaxScale:          viewport.DefaultMaxScale,
		Palette: Palette{
			Line:     render.DefaultLineColor,
			Word:     render.DefaultWordColor,
			Selected: render.DefaultSelectedColor,
		},
	}
}

// Mode parses WordSelectionMode.
func (s Settings) Mode() (interaction.SelectionMode, error) {
	m, err := interaction.ParseSelectionMode(s.WordSelectionMode)
	if err != nil {
		return interaction.Override, fmt.Errorf("%w: %q", ErrInvalidMode, s.WordSelectionMode)
	}
	return m, nil
}

// RenderOptions converts the overlay settings for the renderer.
func (s Settings) RenderOptions() (render.Options, error) {
	p, err := render.ParsePalette(s.Palette.Line, s.Palette.Word, s.Palette.Selected)
	if err != nil {
		return render.Options{}, err
	}
	return render.Options{ShowLines: s.ShowLineBoxes, ShowWords: s.ShowWordBoxes, Palette: p}, nil
}

// Validate checks every field that has a restricted range.
func (s Settings) Validate() error {
	if _, err := s.Mode(); err != nil {
		return err
	}
	for _, v := range []float64{s.MinScale, s.MaxScale} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("scale bounds must be finite, got %g", v)
		}
	}
	if s.MinScale < 0 || s.MaxScale < 0 {
		return fmt.Errorf("scale bounds must not be negative")
	}
	if s.MinScale > 0 && s.MaxScale > 0 && s.MinScale > s.MaxScale {
		return fmt.Errorf("min_scale %g exceeds max_scale %g", s.MinScale, s.MaxScale)
	}
	if _, err := s.RenderOptions(); err != nil {
		return err
	}
	return nil
}

// DefaultPath is $WORDLENS_SETTINGS, else settings.yaml under the user
// config directory.
func DefaultPath() string {
	if p := os.Getenv("WORDLENS_SETTINGS"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "wordlens", "settings.yaml")
}

// Store loads and saves Settings. Environment overrides apply to the
// effective settings but are never written back.
type Store struct {
	path string

	mu   sync.RWMutex
	file Settings
}

// Open reads the settings file at path, or DefaultPath when empty.
// A missing file yields Defaults.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	s := &Store{path: path, file: Defaults()}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("No settings file, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, &s.file); err != nil {
			return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
		}
	}

	if err := s.Settings().Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

// Path is the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Settings returns the file settings with environment overrides applied.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	settings := s.file
	s.mu.RUnlock()

	if v := os.Getenv("WORDLENS_MODE"); v != "" {
		settings.WordSelectionMode = v
	}
	if v := os.Getenv("WORDLENS_PROVIDER"); v != "" {
		settings.Provider = v
	}
	if v := os.Getenv("WORDLENS_LANGUAGE"); v != "" {
		settings.Language = v
	}
	return settings
}

// File returns the settings as stored, without environment overrides.
func (s *Store) File() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file
}

// ModePinned reports whether WORDLENS_MODE overrides the stored mode.
func (s *Store) ModePinned() bool {
	return os.Getenv("WORDLENS_MODE") != ""
}

// Update applies fn to the file settings, validates and saves them.
func (s *Store) Update(fn func(*Settings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.file
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if err := write(s.path, next); err != nil {
		return err
	}
	s.file = next
	return nil
}

// Save writes the file settings.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return write(s.path, s.file)
}

func write(path string, settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// WordSelectionMode returns the effective mode, Override when invalid.
func (s *Store) WordSelectionMode() interaction.SelectionMode {
	m, err := s.Settings().Mode()
	if err != nil {
		slog.Warn("Ignoring word selection mode", "err", err)
	}
	return m
}

// SetWordSelectionMode persists the mode.
func (s *Store) SetWordSelectionMode(m interaction.SelectionMode) error {
	return s.Update(func(st *Settings) error {
		st.WordSelectionMode = m.String()
		return nil
	})
}

// Keys lists the names accepted by Get and Set.
var Keys = []string{
	"word_selection_mode", "show_line_boxes", "show_word_boxes", "provider", "language",
	"min_scale", "max_scale", "palette.line", "palette.word", "palette.selected",
}

// Get returns one effective setting as text.
func (s *Store) Get(key string) (string, error) {
	st := s.Settings()
	switch key {
	case "word_selection_mode":
		return st.WordSelectionMode, nil
	case "show_line_boxes":
		return strconv.FormatBool(st.ShowLineBoxes), nil
	case "show_word_boxes":
		return strconv.FormatBool(st.ShowWordBoxes), nil
	case "provider":
		return st.Provider, nil
	case "language":
		return st.Language, nil
	case "min_scale":
		return strconv.FormatFloat(st.MinScale, 'g', -1, 64), nil
	case "max_scale":
		return strconv.FormatFloat(st.MaxScale, 'g', -1, 64), nil
	case "palette.line":
		return st.Palette.Line, nil
	case "palette.word":
		return st.Palette.Word, nil
	case "palette.selected":
		return st.Palette.Selected, nil
	}
	return "", unknownKey(key)
}

// Set parses value into the named setting and saves.
func (s *Store) Set(key, value string) error {
	return s.Update(func(st *Settings) error {
		var err error
		switch key {
		case "word_selection_mode":
			var m interaction.SelectionMode
			if m, err = interaction.ParseSelectionMode(value); err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidMode, value)
			}
			st.WordSelectionMode = m.String()
		case "show_line_boxes":
			st.ShowLineBoxes, err = strconv.ParseBool(value)
		case "show_word_boxes":
			st.ShowWordBoxes, err = strconv.ParseBool(value)
		case "provider":
			st.Provider = strings.ToLower(value)
		case "language":
			st.Language = value
		case "min_scale":
			st.MinScale, err = strconv.ParseFloat(value, 64)
		case "max_scale":
			st.MaxScale, err = strconv.ParseFloat(value, 64)
		case "palette.line":
			st.Palette.Line = value
		case "palette.word":
			st.Palette.Word = value
		case "palette.selected":
			st.Palette.Selected = value
		default:
			return unknownKey(key)
		}
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return nil
	})
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys, ", "))
}
