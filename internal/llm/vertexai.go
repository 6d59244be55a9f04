package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured
const DefaultModel = "gemini-2.5-flash"

// VertexOptions configures a Vertex AI client
type VertexOptions struct {
	ProjectID       string
	Location        string
	CredentialsFile string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
}

// VertexAIClient wraps the Vertex AI Gemini API
type VertexAIClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	timeout   time.Duration
}

// NewVertexAIClient creates a new Vertex AI client
func NewVertexAIClient(ctx context.Context, opts VertexOptions) (*VertexAIClient, error) {
	if opts.ProjectID == "" {
		return nil, errors.New("google_cloud_project is required for the vertex backend")
	}
	if opts.Location == "" {
		opts.Location = "us-central1"
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, opts.ProjectID, opts.Location, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", newRequestError(err))
	}

	model := client.GenerativeModel(opts.Model)

	// Low temperature keeps the answer close to the requested grammar
	model.SetTemperature(opts.Temperature)
	model.SetTopK(40)
	model.SetTopP(0.95)
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxOutputTokens)
	}

	return &VertexAIClient{
		client:    client,
		model:     model,
		modelName: opts.Model,
		timeout:   opts.Timeout,
	}, nil
}

// GenerateContent sends a prompt to the model and returns the response
func (v *VertexAIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	resp, err := v.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", newRequestError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != 0 {
			return "", &RequestError{Category: CategoryUnknown, Message: fmt.Sprintf("prompt blocked: %v", resp.PromptFeedback.BlockReason)}
		}
		return "", &RequestError{Category: CategoryUnknown, Message: "no response candidates returned"}
	}

	// Extract text from response
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	log.Printf("llm response backend=vertex model=%s elapsed=%s chars=%d", v.modelName, time.Since(start).Round(time.Millisecond), sb.Len())
	return sb.String(), nil
}

// Close closes the Vertex AI client
func (v *VertexAIClient) Close() error {
	return v.client.Close()
}

var _ Client = (*VertexAIClient)(nil)
