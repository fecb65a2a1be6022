package gvision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/genproto/googleapis/rpc/status"

	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
)

func box(x0, y0, x1, y1 int32) *visionpb.BoundingPoly {
	return &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	}}
}

func word(text string, brk visionpb.TextAnnotation_DetectedBreak_BreakType, bp *visionpb.BoundingPoly, conf float32) *visionpb.Word {
	w := &visionpb.Word{BoundingBox: bp, Confidence: conf}
	runes := []rune(text)
	for i, r := range runes {
		s := &visionpb.Symbol{Text: string(r)}
		if i == len(runes)-1 && brk != visionpb.TextAnnotation_DetectedBreak_UNKNOWN {
			s.Property = &visionpb.TextAnnotation_TextProperty{
				DetectedBreak: &visionpb.TextAnnotation_DetectedBreak{Type: brk},
			}
		}
		w.Symbols = append(w.Symbols, s)
	}
	return w
}

func sampleAnnotation() *visionpb.TextAnnotation {
	return &visionpb.TextAnnotation{Pages: []*visionpb.Page{{
		Blocks: []*visionpb.Block{
			{Paragraphs: []*visionpb.Paragraph{{
				BoundingBox: box(0, 0, 200, 20),
				Words: []*visionpb.Word{
					word("hello", visionpb.TextAnnotation_DetectedBreak_SPACE, box(0, 0, 90, 20), 0.9),
					word("world", visionpb.TextAnnotation_DetectedBreak_LINE_BREAK, box(100, 0, 200, 20), 0.8),
				},
			}}},
			{Paragraphs: []*visionpb.Paragraph{{
				Words: []*visionpb.Word{
					word("日本", visionpb.TextAnnotation_DetectedBreak_UNKNOWN, box(0, 50, 40, 70), 0.7),
					word("語", visionpb.TextAnnotation_DetectedBreak_UNKNOWN, box(40, 50, 60, 70), 0.7),
				},
			}}},
			{Paragraphs: []*visionpb.Paragraph{{}}},
		},
	}}}
}

func TestConvert(t *testing.T) {
	result := Convert(sampleAnnotation())

	if len(result.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2 (empty paragraphs dropped)", len(result.Blocks))
	}
	first := result.Blocks[0].Lines[0]
	if first.Text != "hello world" {
		t.Errorf("line text = %q", first.Text)
	}
	if first.Words[0].Text != "hello" || first.Words[1].Confidence < 0.79 {
		t.Errorf("words = %+v", first.Words)
	}
	if len(first.BoundingPolygon) != 4 {
		t.Errorf("paragraph bounding box not kept: %v", first.BoundingPolygon)
	}

	second := result.Blocks[1].Lines[0]
	if second.Text != "日本語" {
		t.Errorf("unspaced line text = %q", second.Text)
	}
	if b := second.BoundingPolygon.Bounds(); b.X != 0 || b.Width != 60 || b.Y != 50 {
		t.Errorf("derived line bounds = %+v", b)
	}
}

func TestConvertNil(t *testing.T) {
	if r := Convert(nil); r == nil || len(r.Blocks) != 0 {
		t.Errorf("Convert(nil) = %+v", r)
	}
}

func TestProvider_Analyze(t *testing.T) {
	tests := []struct {
		name          string
		resp          *visionpb.BatchAnnotateImagesResponse
		err           error
		expectError   bool
		errorContains string
		wantWords     int
	}{
		{
			name: "success",
			resp: &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{
				{FullTextAnnotation: sampleAnnotation()},
			}},
			wantWords: 4,
		},
		{
			name:      "no responses",
			resp:      &visionpb.BatchAnnotateImagesResponse{},
			wantWords: 0,
		},
		{
			name: "per image error",
			resp: &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{
				{Error: &status.Status{Code: 3, Message: "Bad image data"}},
			}},
			expectError:   true,
			errorContains: "Bad image data",
		},
		{
			name:          "transport error",
			err:           errors.New("connection refused"),
			expectError:   true,
			errorContains: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *visionpb.BatchAnnotateImagesRequest
			p := &Provider{Annotate: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
				got = req
				return tt.resp, tt.err
			}}

			result, err := p.Analyze(context.Background(), ocr.Config{Language: "ja"}, "data:image/png;base64,iVBORw0KGgo=")
			if tt.expectError {
				if err == nil || !strings.Contains(err.Error(), tt.errorContains) {
					t.Fatalf("Analyze() error = %v, want %q", err, tt.errorContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if result.WordCount() != tt.wantWords {
				t.Errorf("WordCount() = %d, want %d", result.WordCount(), tt.wantWords)
			}

			r := got.GetRequests()[0]
			if r.GetFeatures()[0].GetType() != visionpb.Feature_DOCUMENT_TEXT_DETECTION {
				t.Errorf("feature = %v", r.GetFeatures()[0].GetType())
			}
			if hints := r.GetImageContext().GetLanguageHints(); len(hints) != 1 || hints[0] != "ja" {
				t.Errorf("language hints = %v", hints)
			}
			if !strings.HasPrefix(string(r.GetImage().GetContent()), "\x89PNG") {
				t.Error("image content not decoded from data URI")
			}
		})
	}
}

func TestProvider_ValidateConfig(t *testing.T) {
	p := &Provider{CredentialsFile: t.TempDir() + "/missing.json"}
	if err := p.ValidateConfig(ocr.Config{}); err == nil {
		t.Error("expected error for missing credentials file")
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if err := New().ValidateConfig(ocr.Config{}); err != nil {
		t.Errorf("default credentials should validate: %v", err)
	}
	if p.Name() != "gvision" {
		t.Errorf("Name() = %q", p.Name())
	}
}
