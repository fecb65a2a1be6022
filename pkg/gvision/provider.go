// Package gvision runs Google Cloud Vision document text detection and maps
// its page/block/paragraph/word tree onto ocr.Result.
package gvision

import (
	"context"
	"fmt"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
)

// AnnotateFunc performs one batch annotate call. Tests replace it.
type AnnotateFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)

// Provider implements the Google Cloud Vision analyzer
type Provider struct {
	CredentialsFile string
	Annotate        AnnotateFunc
}

// New creates a provider using GOOGLE_APPLICATION_CREDENTIALS when set,
// otherwise application default credentials.
func New() *Provider {
	return &Provider{CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "gvision"
}

// ValidateConfig checks that an explicit credentials file, if any, exists
func (p *Provider) ValidateConfig(config ocr.Config) error {
	if p.Annotate != nil || p.CredentialsFile == "" {
		return nil
	}
	if _, err := os.Stat(p.CredentialsFile); err != nil {
		return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS not readable: %w", err)
	}
	return nil
}

// Analyze sends the image to DOCUMENT_TEXT_DETECTION
func (p *Provider) Analyze(ctx context.Context, config ocr.Config, imageDataURI string) (*ocr.Result, error) {
	if err := p.ValidateConfig(config); err != nil {
		return nil, err
	}

	_, imageData, err := ocr.DecodeDataURI(imageDataURI)
	if err != nil {
		return nil, err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: imageData},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	}
	if config.Language != "" {
		req.Requests[0].ImageContext = &visionpb.ImageContext{LanguageHints: []string{config.Language}}
	}

	annotate := p.Annotate
	if annotate == nil {
		var opts []option.ClientOption
		if p.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(p.CredentialsFile))
		}
		client, err := vision.NewImageAnnotatorClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create vision client: %w", err)
		}
		defer client.Close()
		annotate = func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
			return client.BatchAnnotateImages(ctx, req)
		}
	}

	resp, err := annotate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision API error: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return &ocr.Result{}, nil
	}
	first := resp.GetResponses()[0]
	if e := first.GetError(); e != nil && e.GetCode() != 0 {
		return nil, fmt.Errorf("vision API error: %d - %s", e.GetCode(), e.GetMessage())
	}

	return Convert(first.GetFullTextAnnotation()), nil
}

// Convert maps a Vision text annotation onto blocks, lines and words.
// Vision paragraphs become lines. Word text is the concatenation of its
// symbols; line text re-inserts the detected breaks between words, so
// scripts written without spaces stay unspaced.
func Convert(ta *visionpb.TextAnnotation) *ocr.Result {
	result := &ocr.Result{}
	for _, page := range ta.GetPages() {
		for _, b := range page.GetBlocks() {
			block := &ocr.Block{}
			for _, para := range b.GetParagraphs() {
				line := &ocr.Line{BoundingPolygon: polygon(para.GetBoundingBox())}
				var text strings.Builder
				for _, w := range para.GetWords() {
					word := &ocr.Word{
						BoundingPolygon: polygon(w.GetBoundingBox()),
						Confidence:      float64(w.GetConfidence()),
					}
					var sep string
					for _, s := range w.GetSymbols() {
						word.Text += s.GetText()
						sep = breakText(s.GetProperty().GetDetectedBreak())
					}
					if word.Text == "" {
						continue
					}
					text.WriteString(word.Text)
					text.WriteString(sep)
					line.Words = append(line.Words, word)
				}
				if len(line.Words) == 0 {
					continue
				}
				line.Text = strings.TrimSpace(text.String())
				if len(line.BoundingPolygon) < 3 {
					var points geometry.Polygon
					for _, w := range line.Words {
						points = append(points, w.BoundingPolygon...)
					}
					line.BoundingPolygon = points.Bounds().Polygon()
				}
				block.Lines = append(block.Lines, line)
			}
			if len(block.Lines) > 0 {
				result.Blocks = append(result.Blocks, block)
			}
		}
	}
	return result
}

func breakText(b *visionpb.TextAnnotation_DetectedBreak) string {
	switch b.GetType() {
	case visionpb.TextAnnotation_DetectedBreak_SPACE,
		visionpb.TextAnnotation_DetectedBreak_SURE_SPACE,
		visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE,
		visionpb.TextAnnotation_DetectedBreak_LINE_BREAK:
		return " "
	case visionpb.TextAnnotation_DetectedBreak_HYPHEN:
		return "-"
	default:
		return ""
	}
}

func polygon(bp *visionpb.BoundingPoly) geometry.Polygon {
	vertices := bp.GetVertices()
	poly := make(geometry.Polygon, 0, len(vertices))
	for _, v := range vertices {
		poly = append(poly, geometry.Point{X: float64(v.GetX()), Y: float64(v.GetY())})
	}
	return poly
}
