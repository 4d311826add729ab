package narrate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// ChatClient is the text-generation capability behind narration and
// scoring.
type ChatClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const neutralPreamble = "You are a news briefing writer. You report in a " +
	"strictly neutral, factual tone without opinion, speculation, or " +
	"sensational wording."

// CohereChat implements ChatClient over the Cohere Chat API.
type CohereChat struct {
	client      *cohereclient.Client
	model       string
	temperature float64
}

// NewCohereChat builds a chat client for the given model. Returns nil when
// no API key is configured so callers can degrade explicitly.
func NewCohereChat(apiKey, model string, timeout time.Duration) *CohereChat {
	if apiKey == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return &CohereChat{client: client, model: model, temperature: 0.3}
}

func (c *CohereChat) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message:     prompt,
		Model:       &c.model,
		Preamble:    stringPtr(neutralPreamble),
		Temperature: &c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	if resp == nil || resp.Text == "" {
		return "", errors.New("cohere chat returned empty response")
	}
	return resp.Text, nil
}

func stringPtr(s string) *string { return &s }
