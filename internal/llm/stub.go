package llm

import (
	"context"
	"errors"
	"sync"
)

// SampleResponse is the canned answer of the stub backend
const SampleResponse = `MATCH_SCORE: 72
TOP_SKILLS: Go, REST APIs, PostgreSQL
MISSING_SKILLS: Kubernetes, Terraform
### Summary
Solid backend profile that covers most of the core requirements.
### Strengths
- Several years of production Go services
- Clear ownership of API design
### Gaps
- No container orchestration experience listed
### Improvements
- Quantify the impact of the payment service migration (Situation, Task, Action, Result)
### Keywords
- Kubernetes
- Terraform
- Observability`

// StubClient is a deterministic Client for tests and offline runs
type StubClient struct {
	Response string
	Err      error

	mu      sync.Mutex
	prompts []string
}

// NewStubClient returns a stub that always answers with response
func NewStubClient(response string) *StubClient {
	return &StubClient{Response: response}
}

// NewFailingStubClient returns a stub whose every call fails with err
func NewFailingStubClient(err error) *StubClient {
	return &StubClient{Err: err}
}

// GenerateContent records the prompt and returns the canned answer
func (s *StubClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", newRequestError(err)
	}
	if s.Err != nil {
		var reqErr *RequestError
		if errors.As(s.Err, &reqErr) {
			return "", reqErr
		}
		return "", newRequestError(s.Err)
	}
	return s.Response, nil
}

// Prompts returns every prompt received so far
func (s *StubClient) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

var _ Client = (*StubClient)(nil)
