package hocr

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
	"golang.org/x/net/html"
)

// Page is the ocr_page size found while decoding, zero when absent.
type Page struct {
	Width  int
	Height int
}

// Properties holds the parts of an hOCR title attribute this package uses.
type Properties struct {
	BBox       *geometry.Rect
	Poly       geometry.Polygon
	Confidence float64
	HasConf    bool
}

// Polygon prefers poly over bbox.
func (p Properties) Polygon() geometry.Polygon {
	if len(p.Poly) >= 3 {
		return p.Poly
	}
	if p.BBox != nil {
		return p.BBox.Polygon()
	}
	return nil
}

var lineClasses = []string{"ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat"}

// Decode reads an hOCR document into an OCR result. ocr_carea (or ocr_par
// outside any carea) starts a block, the line classes start a line and
// ocrx_word a word. Words that appear outside a line are grouped into lines
// by position.
func Decode(r io.Reader) (*ocr.Result, Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, Page{}, fmt.Errorf("failed to parse hOCR: %w", err)
	}

	d := &decoder{result: &ocr.Result{}}
	d.walk(doc)
	d.closeBlock()

	return d.result, d.page, nil
}

type decoder struct {
	result *ocr.Result
	page   Page

	block *ocr.Block
	loose []*ocr.Word
	line  *ocr.Line
}

func (d *decoder) walk(n *html.Node) {
	if n.Type != html.ElementNode {
		d.walkChildren(n)
		return
	}

	classes := strings.Fields(attr(n, "class"))
	props := ParseTitle(attr(n, "title"))

	switch {
	case hasClass(classes, "ocr_page"):
		if props.BBox != nil {
			d.page = Page{Width: int(props.BBox.Width), Height: int(props.BBox.Height)}
		}
		d.walkChildren(n)
	case hasClass(classes, "ocr_carea"), hasClass(classes, "ocr_par") && d.block == nil:
		d.closeBlock()
		d.block = &ocr.Block{}
		d.walkChildren(n)
		d.closeBlock()
	case hasClass(classes, lineClasses...):
		if d.line != nil {
			d.walkChildren(n)
			return
		}
		line := &ocr.Line{BoundingPolygon: props.Polygon()}
		d.line = line
		d.walkChildren(n)
		d.line = nil
		d.addLine(line)
	case hasClass(classes, "ocrx_word"):
		word := &ocr.Word{
			Text:            strings.TrimSpace(textContent(n)),
			BoundingPolygon: props.Polygon(),
			Confidence:      1,
		}
		if props.HasConf {
			word.Confidence = props.Confidence / 100
		}
		if d.line != nil {
			d.line.Words = append(d.line.Words, word)
		} else {
			d.loose = append(d.loose, word)
		}
	default:
		d.walkChildren(n)
	}
}

func (d *decoder) walkChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.walk(c)
	}
}

func (d *decoder) addLine(line *ocr.Line) {
	if len(line.Words) == 0 {
		return
	}
	line.Text = ocr.LineText(line.Words, " ")
	if len(line.BoundingPolygon) < 3 {
		var points geometry.Polygon
		for _, w := range line.Words {
			points = append(points, w.BoundingPolygon...)
		}
		line.BoundingPolygon = points.Bounds().Polygon()
	}
	if d.block == nil {
		d.block = &ocr.Block{}
	}
	d.block.Lines = append(d.block.Lines, line)
}

func (d *decoder) closeBlock() {
	if len(d.loose) > 0 {
		loose := d.loose
		d.loose = nil
		for _, line := range ocr.GroupWordsIntoLines(loose, " ") {
			d.addLine(line)
		}
	}
	if d.block != nil && len(d.block.Lines) > 0 {
		d.result.Blocks = append(d.result.Blocks, d.block)
	}
	d.block = nil
}

// ParseTitle parses the semicolon separated properties of an hOCR title.
func ParseTitle(title string) Properties {
	var props Properties
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		values := parseFloats(fields[1:])
		switch fields[0] {
		case "bbox":
			if len(values) == 4 {
				props.BBox = &geometry.Rect{X: values[0], Y: values[1], Width: values[2] - values[0], Height: values[3] - values[1]}
			}
		case "poly":
			if len(values) >= 6 && len(values)%2 == 0 {
				for i := 0; i < len(values); i += 2 {
					props.Poly = append(props.Poly, geometry.Point{X: values[i], Y: values[i+1]})
				}
			}
		case "x_wconf":
			if len(values) == 1 {
				props.Confidence = values[0]
				props.HasConf = true
			}
		}
	}
	return props
}

func parseFloats(fields []string) []float64 {
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classes []string, want ...string) bool {
	for _, c := range classes {
		for _, w := range want {
			if c == w {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
