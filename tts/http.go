package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpSynthesizer posts text to an OpenAI-style speech endpoint and reads
// the raw audio body back.
type httpSynthesizer struct {
	endpoint string
	apiKey   string
	format   string
	client   *http.Client
}

func newHTTPSynthesizer(cfg Config) *httpSynthesizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	format := cfg.Format
	if format == "" {
		format = "mp3"
	}
	return &httpSynthesizer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		format:   format,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *httpSynthesizer) Name() string { return "http" }

type speechRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format"`
}

func (s *httpSynthesizer) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	body, err := json.Marshal(speechRequest{Text: text, Voice: voice, Format: s.format})
	if err != nil {
		return nil, fmt.Errorf("tts http: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts http: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts http: status %d: %s", resp.StatusCode, snippet)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts http: read body: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}
	return &Audio{Data: data, Format: s.format}, nil
}
