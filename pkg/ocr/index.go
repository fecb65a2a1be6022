package ocr

import "github.com/lehigh-university-libraries/wordlens/pkg/geometry"

// IndexedLine pairs a line with its bounding rectangle so hit tests can
// reject it before running the polygon test.
type IndexedLine struct {
	Line   *Line
	Bounds geometry.Rect
}

// Index is a flattened, read-only view of a Result, built once per result.
type Index struct {
	lines []IndexedLine
	words int
}

// NewIndex flattens r. A nil result produces an empty index.
func NewIndex(r *Result) *Index {
	idx := &Index{}
	if r == nil {
		return idx
	}
	for _, b := range r.Blocks {
		if b == nil {
			continue
		}
		for _, l := range b.Lines {
			if l == nil {
				continue
			}
			idx.lines = append(idx.lines, IndexedLine{Line: l, Bounds: l.BoundingPolygon.Bounds()})
			idx.words += len(l.Words)
		}
	}
	return idx
}

// Lines returns every line in document order.
func (idx *Index) Lines() []IndexedLine {
	if idx == nil {
		return nil
	}
	return idx.lines
}

// Len is the number of words in the index.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return idx.words
}

// Each calls fn for every (line, word) pair in document order.
func (idx *Index) Each(fn func(*Line, *Word)) {
	if idx == nil {
		return
	}
	for _, il := range idx.lines {
		for _, w := range il.Line.Words {
			if w != nil {
				fn(il.Line, w)
			}
		}
	}
}

// HitTest returns the words whose polygon contains p, which must be in image
// space. Lines that do not contain p are skipped along with their words.
func (idx *Index) HitTest(p geometry.Point) []*Word {
	if idx == nil {
		return nil
	}
	var hits []*Word
	for _, il := range idx.lines {
		if !il.Bounds.Contains(p) || !geometry.PointInPolygon(il.Line.BoundingPolygon, p) {
			continue
		}
		for _, w := range il.Line.Words {
			if w != nil && geometry.PointInPolygon(w.BoundingPolygon, p) {
				hits = append(hits, w)
			}
		}
	}
	return hits
}
