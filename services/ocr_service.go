package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// ErrExtractionFailed wraps every failure of the OCR engine. Callers
// treat it as "no OCR evidence available" rather than aborting the
// onboarding pipeline.
var ErrExtractionFailed = errors.New("document text extraction failed")

// TextExtractor turns an identity-document image into raw text.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageLocator string) (string, error)
}

// OCRService calls an external OCR engine over HTTP. The engine is a
// black box: it either returns text or fails.
type OCRService struct {
	apiURL string
	apiKey string
	client *http.Client
}

// NewOCRService creates an OCR service instance configured from
// environment variables.
func NewOCRService() *OCRService {
	apiURL := os.Getenv("OCR_API_URL")
	if apiURL == "" {
		apiURL = "https://api.ocr.space/parse/image"
	}

	apiKey := os.Getenv("OCR_API_KEY")
	if apiKey == "" {
		log.Printf("WARNING: OCR_API_KEY is not set; document text extraction will be unavailable")
	}

	return &OCRService{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ocrResponse is the engine's JSON envelope.
type ocrResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool        `json:"IsErroredOnProcessing"`
	ErrorMessage          interface{} `json:"ErrorMessage"`
}

// ExtractText runs OCR on an image locator. Remote URLs are passed to
// the engine directly; local paths are read and inlined as base64.
func (s *OCRService) ExtractText(ctx context.Context, imageLocator string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("%w: OCR_API_KEY is not configured", ErrExtractionFailed)
	}

	params := url.Values{}
	params.Set("language", "eng")
	params.Set("scale", "true")

	if strings.HasPrefix(imageLocator, "http://") || strings.HasPrefix(imageLocator, "https://") {
		params.Set("url", imageLocator)
	} else {
		data, err := os.ReadFile(imageLocator)
		if err != nil {
			return "", fmt.Errorf("%w: failed to read image file: %v", ErrExtractionFailed, err)
		}
		params.Set("base64Image", "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(data))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrExtractionFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrExtractionFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: OCR engine returned status %d: %s", ErrExtractionFailed, resp.StatusCode, string(body))
	}

	var ocrResp ocrResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse OCR response: %v", ErrExtractionFailed, err)
	}

	if ocrResp.IsErroredOnProcessing || len(ocrResp.ParsedResults) == 0 {
		return "", fmt.Errorf("%w: engine error: %v", ErrExtractionFailed, ocrResp.ErrorMessage)
	}

	var text strings.Builder
	for _, result := range ocrResp.ParsedResults {
		text.WriteString(result.ParsedText)
		text.WriteString("\n")
	}
	return text.String(), nil
}
