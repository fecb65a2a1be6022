package interaction

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
)

// SelectionMode decides how emitted text combines with the host field.
type SelectionMode int

const (
	// Override replaces the host text.
	Override SelectionMode = iota
	// Add appends to the host text.
	Add
)

func (m SelectionMode) String() string {
	if m == Add {
		return "add"
	}
	return "override"
}

// ParseSelectionMode accepts "override" or "add", case-insensitively.
func ParseSelectionMode(s string) (SelectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "override":
		return Override, nil
	case "add":
		return Add, nil
	default:
		return Override, fmt.Errorf("unknown word selection mode %q (want override or add)", s)
	}
}

// Merge combines the host's current text with a selection.
func (m SelectionMode) Merge(current, selected string) string {
	if m == Add {
		return current + selected
	}
	return selected
}

// ModeSource supplies the current WordSelectionMode.
type ModeSource interface {
	WordSelectionMode() SelectionMode
}

// ModeFunc adapts a function to ModeSource.
type ModeFunc func() SelectionMode

func (f ModeFunc) WordSelectionMode() SelectionMode { return f() }

// FixedMode is a ModeSource that never changes.
type FixedMode SelectionMode

func (m FixedMode) WordSelectionMode() SelectionMode { return SelectionMode(m) }

// TextField is the host input receiving selections.
type TextField interface {
	Text() string
	SetText(string)
}

// Keyword is a TextField safe for concurrent use.
type Keyword struct {
	mu   sync.Mutex
	text string
}

func (k *Keyword) Text() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.text
}

func (k *Keyword) SetText(s string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.text = s
}

// Selection is the ordered set of words picked during one gesture.
// Words are compared by identity, never by text.
type Selection struct {
	words []*ocr.Word
	seen  map[*ocr.Word]struct{}
}

// Add appends w unless it is already present and reports whether it did.
func (s *Selection) Add(w *ocr.Word) bool {
	if w == nil {
		return false
	}
	if s.seen == nil {
		s.seen = make(map[*ocr.Word]struct{})
	}
	if _, ok := s.seen[w]; ok {
		return false
	}
	s.seen[w] = struct{}{}
	s.words = append(s.words, w)
	return true
}

// Contains reports whether w is selected.
func (s *Selection) Contains(w *ocr.Word) bool {
	_, ok := s.seen[w]
	return ok
}

func (s *Selection) Len() int {
	return len(s.words)
}

// Words returns the selection in the order words were added.
func (s *Selection) Words() []*ocr.Word {
	return append([]*ocr.Word(nil), s.words...)
}

// Text concatenates word text in selection order with no separator.
func (s *Selection) Text() string {
	return ocr.LineText(s.words, "")
}

// Reset empties the selection.
func (s *Selection) Reset() {
	s.words = nil
	s.seen = nil
}
