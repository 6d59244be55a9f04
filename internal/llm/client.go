package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fmuoria/resumepro-agent/internal/config"
)

// Client sends one prompt to a generative model and returns its full answer
type Client interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Closer is implemented by clients that hold network resources
type Closer interface {
	Close() error
}

// Backend names accepted by New
const (
	BackendVertex = "vertex"
	BackendGemini = "gemini"
	BackendStub   = "stub"
)

const defaultRequestTimeout = 120 * time.Second

// New creates the client selected by cfg.Backend
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendVertex, "":
		return NewVertexAIClient(ctx, VertexOptions{
			ProjectID:       cfg.GoogleCloudProject,
			Location:        cfg.GoogleCloudLocation,
			CredentialsFile: cfg.GoogleCredentialsPath,
			Model:           cfg.Model,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Timeout:         cfg.RequestTimeout(),
		})
	case BackendGemini:
		return NewGeminiClient(ctx, GeminiOptions{
			APIKey:          cfg.GoogleAPIKey,
			Model:           cfg.Model,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Timeout:         cfg.RequestTimeout(),
		})
	case BackendStub:
		return NewStubClient(SampleResponse), nil
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", cfg.Backend)
	}
}

// Close releases the client if it holds resources
func Close(c Client) error {
	if closer, ok := c.(Closer); ok {
		return closer.Close()
	}
	return nil
}

// withTimeout bounds one model call; the caller's deadline wins if it is shorter
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
