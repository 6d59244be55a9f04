package scoring

import (
	"context"
	"fmt"
	"log"

	"github.com/fmuoria/resumepro-agent/internal/llm"
	"github.com/fmuoria/resumepro-agent/internal/models"
)

// Scorer evaluates a resume against a job description using an LLM
type Scorer struct {
	llmClient llm.Client
	version   string
}

// NewScorer creates a new scorer instance. An empty version selects the
// current template.
func NewScorer(llmClient llm.Client, version string) *Scorer {
	if version == "" {
		version = CurrentTemplateVersion
	}
	return &Scorer{
		llmClient: llmClient,
		version:   version,
	}
}

// Version returns the template version this scorer prompts with
func (s *Scorer) Version() string {
	return s.version
}

// Analyze builds the prompt, calls the model once and parses the answer.
// Parsing never fails; a malformed answer comes back with ParseDegraded set.
func (s *Scorer) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	if req.TemplateVersion == "" {
		req.TemplateVersion = s.version
	}

	prompt, err := BuildRequestPrompt(req)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("failed to build prompt: %w", err)
	}

	response, err := s.llmClient.GenerateContent(ctx, prompt)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	result := ParseResponse(response, req.TemplateVersion)
	if result.ParseDegraded {
		log.Printf("analysis response parsed in degraded mode: %v", result.Warnings)
	}
	return result, nil
}
