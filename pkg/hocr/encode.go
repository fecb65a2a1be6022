package hocr

import (
	"fmt"
	"math"
	"strings"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
	"golang.org/x/net/html"
)

// Encode converts an OCR result into a complete hOCR document. Blocks become
// ocr_carea, lines ocr_line and words ocrx_word; every element carries bbox
// and poly properties so non-rectangular regions survive a round trip.
func Encode(result *ocr.Result, width, height int) string {
	var b strings.Builder

	if result != nil {
		for bi, block := range result.Blocks {
			if block == nil {
				continue
			}
			var blockPoints geometry.Polygon
			for _, line := range block.Lines {
				if line != nil {
					blockPoints = append(blockPoints, line.BoundingPolygon...)
				}
			}
			fmt.Fprintf(&b, "<div class='ocr_carea' id='block_%d' title='%s'>\n", bi+1, bboxProperty(blockPoints))

			for li, line := range block.Lines {
				if line == nil {
					continue
				}
				fmt.Fprintf(&b, "<span class='ocr_line' id='line_%d_%d' title='%s; %s'>",
					bi+1, li+1, bboxProperty(line.BoundingPolygon), polyProperty(line.BoundingPolygon))

				for wi, word := range line.Words {
					if word == nil {
						continue
					}
					if wi > 0 {
						b.WriteString(" ")
					}
					fmt.Fprintf(&b, "<span class='ocrx_word' id='word_%d_%d_%d' title='%s; %s; x_wconf %d'>%s</span>",
						bi+1, li+1, wi+1,
						bboxProperty(word.BoundingPolygon), polyProperty(word.BoundingPolygon),
						confidencePercent(word.Confidence),
						html.EscapeString(word.Text))
				}
				b.WriteString("</span>\n")
			}
			b.WriteString("</div>\n")
		}
	}

	return WrapInHOCRDocument(strings.TrimSuffix(b.String(), "\n"), width, height)
}

// WrapInHOCRDocument wraps content in a complete hOCR HTML document
func WrapInHOCRDocument(content string, width, height int) string {
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
<head>
<title></title>
<meta http-equiv="Content-Type" content="text/html;charset=utf-8" />
<meta name='ocr-system' content='wordlens' />
<meta name='ocr-capabilities' content='ocr_page ocr_carea ocr_line ocrx_word' />
</head>
<body>
<div class='ocr_page' id='page_1' title='bbox 0 0 %d %d'>
%s
</div>
</body>
</html>`, width, height, content)
}

func bboxProperty(poly geometry.Polygon) string {
	r := poly.Bounds()
	return fmt.Sprintf("bbox %d %d %d %d",
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height)))
}

func polyProperty(poly geometry.Polygon) string {
	parts := make([]string, 0, len(poly)*2+1)
	parts = append(parts, "poly")
	for _, p := range poly {
		parts = append(parts, formatCoord(p.X), formatCoord(p.Y))
	}
	return strings.Join(parts, " ")
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%g", math.Round(v*100)/100)
}

func confidencePercent(c float64) int {
	return int(math.Round(math.Max(0, math.Min(1, c)) * 100))
}
