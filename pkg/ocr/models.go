package ocr

import (
	"strings"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
)

// Word is the leaf unit of a detection. Words are compared by identity:
// two *Word values with the same text are still different words.
type Word struct {
	Text            string           `json:"text" yaml:"text"`
	BoundingPolygon geometry.Polygon `json:"boundingPolygon" yaml:"bounding_polygon"`
	Confidence      float64          `json:"confidence" yaml:"confidence"`
}

// Line owns its words in reading order.
type Line struct {
	Text            string           `json:"text" yaml:"text"`
	BoundingPolygon geometry.Polygon `json:"boundingPolygon" yaml:"bounding_polygon"`
	Words           []*Word          `json:"words" yaml:"words"`
}

// Block is the top-level grouping returned by an analyzer.
type Block struct {
	Lines []*Line `json:"lines" yaml:"lines"`
}

// Result is one analysis of one image. It is replaced, never merged,
// when the image changes.
type Result struct {
	Blocks []*Block `json:"blocks" yaml:"blocks"`
}

// Response mirrors the envelope of the Azure Image Analysis read feature,
// which is also what the JSON output of `wordlens analyze` uses.
type Response struct {
	ReadResult Result `json:"readResult"`
}

// WordCount returns the total number of words.
func (r *Result) WordCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, b := range r.Blocks {
		if b == nil {
			continue
		}
		for _, l := range b.Lines {
			if l == nil {
				continue
			}
			n += len(l.Words)
		}
	}
	return n
}

// Text joins every line's text with newlines.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	var lines []string
	for _, b := range r.Blocks {
		if b == nil {
			continue
		}
		for _, l := range b.Lines {
			if l == nil {
				continue
			}
			lines = append(lines, l.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// LineText builds a line's text from its words when the provider did not
// supply one.
func LineText(words []*Word, sep string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, sep)
}
