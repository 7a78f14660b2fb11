package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TranscriptFetcher returns raw caption text for a video URL.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoURL string) (string, error)
}

// TranscriptService calls a third-party caption scraping API keyed by video
// URL. One client instance is constructed per process and injected into the
// transcript stage.
type TranscriptService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewTranscriptService creates a transcript client.
func NewTranscriptService(baseURL, apiKey string) *TranscriptService {
	return &TranscriptService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// transcriptResponse is the service's JSON envelope when plain text is
// requested.
type transcriptResponse struct {
	Content string `json:"content"`
	Lang    string `json:"lang"`
}

// Fetch retrieves the caption text for one video. An empty transcript is an
// error; callers treat the video as failed for this run.
func (t *TranscriptService) Fetch(ctx context.Context, videoURL string) (string, error) {
	if t.apiKey == "" {
		return "", fmt.Errorf("transcript API key is required - set the TRANSCRIPT_API_KEY environment variable")
	}

	endpoint := fmt.Sprintf("%s/youtube/transcript?url=%s&text=true",
		t.baseURL, url.QueryEscape(videoURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building transcript request: %w", err)
	}
	req.Header.Set("x-api-key", t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling transcript service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading transcript response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed transcriptResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parsing transcript response: %w", err)
	}
	if strings.TrimSpace(parsed.Content) == "" {
		return "", fmt.Errorf("transcript service returned no captions")
	}

	return parsed.Content, nil
}
