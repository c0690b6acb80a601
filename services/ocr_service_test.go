package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOCRService(serverURL string) *OCRService {
	return &OCRService{
		apiURL: serverURL,
		apiKey: "test-key",
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestExtractText_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		assert.Equal(t, "https://cdn.example.com/id-front.jpg", r.FormValue("url"))
		w.Write([]byte(`{"ParsedResults": [{"ParsedText": "id no: 12345678"}], "IsErroredOnProcessing": false}`))
	}))
	defer server.Close()

	s := newTestOCRService(server.URL)
	text, err := s.ExtractText(context.Background(), "https://cdn.example.com/id-front.jpg")
	require.NoError(t, err)
	assert.Contains(t, text, "12345678")
}

func TestExtractText_EngineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ParsedResults": [], "IsErroredOnProcessing": true, "ErrorMessage": "unsupported file"}`))
	}))
	defer server.Close()

	s := newTestOCRService(server.URL)
	_, err := s.ExtractText(context.Background(), "https://cdn.example.com/id-front.jpg")
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtractText_HTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := newTestOCRService(server.URL)
	_, err := s.ExtractText(context.Background(), "https://cdn.example.com/id-front.jpg")
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtractText_MissingAPIKey(t *testing.T) {
	s := &OCRService{client: &http.Client{}}
	_, err := s.ExtractText(context.Background(), "https://cdn.example.com/id-front.jpg")
	assert.ErrorIs(t, err, ErrExtractionFailed)
}
