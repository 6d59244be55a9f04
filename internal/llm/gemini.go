package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"google.golang.org/genai"
)

// GeminiOptions configures a Gemini API client authenticated by API key
type GeminiOptions struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
}

// GeminiClient calls the Gemini API directly with an API key
type GeminiClient struct {
	client  *genai.Client
	model   string
	config  *genai.GenerateContentConfig
	apiKey  string
	timeout time.Duration
}

// NewGeminiClient creates a Gemini API client
func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("GOOGLE_API_KEY is required for the gemini backend")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", newRequestError(err, opts.APIKey))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(opts.Temperature),
	}
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = opts.MaxOutputTokens
	}

	return &GeminiClient{
		client:  client,
		model:   opts.Model,
		config:  cfg,
		apiKey:  opts.APIKey,
		timeout: opts.Timeout,
	}, nil
}

// GenerateContent sends a prompt and returns the concatenated text of the first candidate
func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", newRequestError(err, g.apiKey)
	}
	if len(resp.Candidates) == 0 {
		return "", &RequestError{Category: CategoryUnknown, Message: "no response candidates returned"}
	}

	text := resp.Text()
	log.Printf("llm response backend=gemini model=%s elapsed=%s chars=%d", g.model, time.Since(start).Round(time.Millisecond), len(text))
	return text, nil
}

var _ Client = (*GeminiClient)(nil)
