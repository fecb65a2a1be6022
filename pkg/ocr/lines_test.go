package ocr

import (
	"testing"
)

func TestGroupWordsIntoLines(t *testing.T) {
	tests := []struct {
		name      string
		words     []*Word
		wantLines []string
	}{
		{
			name:      "empty words",
			words:     nil,
			wantLines: nil,
		},
		{
			name:      "single word",
			words:     []*Word{{Text: "solo", BoundingPolygon: box(10, 10, 30, 20)}},
			wantLines: []string{"solo"},
		},
		{
			name: "two words same line out of order",
			words: []*Word{
				{Text: "world", BoundingPolygon: box(50, 12, 30, 20)},
				{Text: "hello", BoundingPolygon: box(10, 10, 30, 20)},
			},
			wantLines: []string{"hello world"},
		},
		{
			name: "two words different lines",
			words: []*Word{
				{Text: "below", BoundingPolygon: box(10, 50, 30, 20)},
				{Text: "above", BoundingPolygon: box(10, 10, 30, 20)},
			},
			wantLines: []string{"above", "below"},
		},
		{
			name: "nil words skipped",
			words: []*Word{
				nil,
				{Text: "kept", BoundingPolygon: box(0, 0, 10, 10)},
			},
			wantLines: []string{"kept"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := GroupWordsIntoLines(tt.words, " ")
			if len(lines) != len(tt.wantLines) {
				t.Fatalf("got %d lines, want %d", len(lines), len(tt.wantLines))
			}
			for i, l := range lines {
				if l.Text != tt.wantLines[i] {
					t.Errorf("line %d = %q, want %q", i, l.Text, tt.wantLines[i])
				}
				if len(l.BoundingPolygon) != 4 {
					t.Errorf("line %d polygon has %d points", i, len(l.BoundingPolygon))
				}
			}
		})
	}
}

func TestGroupedLineEnclosesWords(t *testing.T) {
	a := &Word{Text: "a", BoundingPolygon: box(10, 10, 30, 20)}
	b := &Word{Text: "b", BoundingPolygon: box(50, 14, 30, 20)}
	lines := GroupWordsIntoLines([]*Word{a, b}, "")
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	bounds := lines[0].BoundingPolygon.Bounds()
	if bounds.X != 10 || bounds.Y != 10 || bounds.Width != 70 || bounds.Height != 24 {
		t.Errorf("line bounds = %+v", bounds)
	}
	if lines[0].Words[0] != a || lines[0].Words[1] != b {
		t.Error("line should keep word identity")
	}
}
