package ocr

import (
	"math"
	"sort"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
)

type boxedWord struct {
	word   *Word
	bounds geometry.Rect
}

// GroupWordsIntoLines arranges loose words into lines by vertical overlap,
// top to bottom and left to right. Providers that only report paragraphs or
// bare words use it to recover the line level.
func GroupWordsIntoLines(words []*Word, sep string) []*Line {
	sorted := make([]boxedWord, 0, len(words))
	for _, w := range words {
		if w == nil {
			continue
		}
		sorted = append(sorted, boxedWord{word: w, bounds: w.BoundingPolygon.Bounds()})
	}
	if len(sorted) == 0 {
		return nil
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].bounds, sorted[j].bounds
		if math.Abs(a.Y-b.Y) < a.Height/2 {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	var lines []*Line
	var current []boxedWord
	flush := func() {
		if len(current) == 0 {
			return
		}
		sort.SliceStable(current, func(i, j int) bool { return current[i].bounds.X < current[j].bounds.X })
		line := &Line{}
		var points geometry.Polygon
		for _, b := range current {
			line.Words = append(line.Words, b.word)
			points = append(points, b.word.BoundingPolygon...)
		}
		line.Text = LineText(line.Words, sep)
		line.BoundingPolygon = points.Bounds().Polygon()
		lines = append(lines, line)
		current = nil
	}

	for _, b := range sorted {
		if len(current) > 0 && !onSameLine(current, b.bounds) {
			flush()
		}
		current = append(current, b)
	}
	flush()

	return lines
}

// onSameLine accepts r when it overlaps the current line's vertical extent,
// widened by a third of the average word height.
func onSameLine(current []boxedWord, r geometry.Rect) bool {
	minY, maxY := current[0].bounds.Y, current[0].bounds.Y+current[0].bounds.Height
	avgHeight := 0.0
	for _, b := range current {
		avgHeight += b.bounds.Height
		minY = math.Min(minY, b.bounds.Y)
		maxY = math.Max(maxY, b.bounds.Y+b.bounds.Height)
	}
	avgHeight /= float64(len(current))

	tolerance := avgHeight / 3
	return r.Y+r.Height >= minY-tolerance && r.Y <= maxY+tolerance
}
