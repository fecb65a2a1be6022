package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/wordlens/pkg/geometry"
	"github.com/lehigh-university-libraries/wordlens/pkg/ocr"
)

const (
	// APIImageAnalysis is the synchronous Image Analysis 4.0 read feature.
	APIImageAnalysis = "v4"
	// APIRead is the asynchronous Read 3.2 operation.
	APIRead = "v3.2"

	defaultLanguage = "en"
	maxPollAttempts = 30
)

// Provider implements the Azure Computer Vision analyzer
type Provider struct {
	Endpoint     string
	APIKey       string
	APIVersion   string
	Client       *http.Client
	PollInterval time.Duration
}

// New creates a new Azure provider from AZURE_CV_ENDPOINT, AZURE_CV_KEY and
// AZURE_CV_API.
func New() *Provider {
	version := os.Getenv("AZURE_CV_API")
	if version == "" {
		version = APIImageAnalysis
	}
	return &Provider{
		Endpoint:     os.Getenv("AZURE_CV_ENDPOINT"),
		APIKey:       os.Getenv("AZURE_CV_KEY"),
		APIVersion:   version,
		Client:       &http.Client{Timeout: 60 * time.Second},
		PollInterval: time.Second,
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "azure"
}

// ValidateConfig validates the Azure configuration
func (p *Provider) ValidateConfig(config ocr.Config) error {
	if p.Endpoint == "" || p.APIKey == "" {
		return fmt.Errorf("AZURE_CV_ENDPOINT and AZURE_CV_KEY environment variables must be set")
	}
	switch p.APIVersion {
	case APIImageAnalysis, APIRead:
		return nil
	default:
		return fmt.Errorf("unsupported AZURE_CV_API %q (want %s or %s)", p.APIVersion, APIImageAnalysis, APIRead)
	}
}

// Analyze sends the decoded image bytes to Azure and converts the read result
func (p *Provider) Analyze(ctx context.Context, config ocr.Config, imageDataURI string) (*ocr.Result, error) {
	if err := p.ValidateConfig(config); err != nil {
		return nil, err
	}

	_, imageData, err := ocr.DecodeDataURI(imageDataURI)
	if err != nil {
		return nil, err
	}

	language := config.Language
	if language == "" {
		language = defaultLanguage
	}

	if p.APIVersion == APIRead {
		return p.read(ctx, language, imageData)
	}
	return p.imageAnalysis(ctx, language, imageData)
}

func (p *Provider) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

func (p *Provider) post(ctx context.Context, endpoint string, imageData []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(imageData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")
	return p.client().Do(req)
}

func (p *Provider) imageAnalysis(ctx context.Context, language string, imageData []byte) (*ocr.Result, error) {
	q := url.Values{}
	q.Set("features", "read")
	q.Set("model-version", "latest")
	q.Set("language", language)
	q.Set("api-version", "2024-02-01")
	analyzeURL := fmt.Sprintf("%s/computervision/imageanalysis:analyze?%s", strings.TrimSuffix(p.Endpoint, "/"), q.Encode())

	resp, err := p.post(ctx, analyzeURL, imageData)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("azure API error: %d - %s", resp.StatusCode, ocr.TruncateBody(body))
	}

	var out ocr.Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode azure response: %w", err)
	}
	return &out.ReadResult, nil
}

type readOperation struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []readPage `json:"readResults"`
	} `json:"analyzeResult"`
}

type readPage struct {
	Page  int        `json:"page"`
	Lines []readLine `json:"lines"`
}

type readLine struct {
	Text        string     `json:"text"`
	BoundingBox []float64  `json:"boundingBox"`
	Words       []readWord `json:"words"`
}

type readWord struct {
	Text        string    `json:"text"`
	BoundingBox []float64 `json:"boundingBox"`
	Confidence  float64   `json:"confidence"`
}

func (p *Provider) read(ctx context.Context, language string, imageData []byte) (*ocr.Result, error) {
	readURL := fmt.Sprintf("%s/vision/v3.2/read/analyze?language=%s", strings.TrimSuffix(p.Endpoint, "/"), url.QueryEscape(language))

	resp, err := p.post(ctx, readURL, imageData)
	if err != nil {
		return nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("azure OCR API error: %d - %s", resp.StatusCode, ocr.TruncateBody(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return nil, fmt.Errorf("no operation location returned from Azure OCR")
	}

	// Poll for results
	for attempts := 0; attempts < maxPollAttempts; attempts++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.PollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", p.APIKey)

		resp, err := p.client().Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			continue
		}

		var op readOperation
		err = json.NewDecoder(resp.Body).Decode(&op)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("invalid response format from Azure OCR: %w", err)
		}

		switch op.Status {
		case "succeeded":
			return convertRead(op.AnalyzeResult.ReadResults), nil
		case "failed":
			return nil, fmt.Errorf("azure OCR analysis failed")
		}
		// Continue polling if status is "running" or "notStarted"
	}

	return nil, fmt.Errorf("azure OCR operation timed out")
}

// convertRead maps each Read 3.2 page to one block.
func convertRead(pages []readPage) *ocr.Result {
	result := &ocr.Result{}
	for _, page := range pages {
		block := &ocr.Block{}
		for _, l := range page.Lines {
			line := &ocr.Line{Text: l.Text, BoundingPolygon: flatPolygon(l.BoundingBox)}
			for _, w := range l.Words {
				line.Words = append(line.Words, &ocr.Word{
					Text:            w.Text,
					BoundingPolygon: flatPolygon(w.BoundingBox),
					Confidence:      w.Confidence,
				})
			}
			block.Lines = append(block.Lines, line)
		}
		result.Blocks = append(result.Blocks, block)
	}
	return result
}

// flatPolygon converts [x1, y1, x2, y2, ...] into points.
func flatPolygon(values []float64) geometry.Polygon {
	poly := make(geometry.Polygon, 0, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		poly = append(poly, geometry.Point{X: values[i], Y: values[i+1]})
	}
	return poly
}
