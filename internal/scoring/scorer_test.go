package scoring

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/fmuoria/resumepro-agent/internal/llm"
	"github.com/fmuoria/resumepro-agent/internal/models"
)

func TestScorerAnalyze(t *testing.T) {
	stub := llm.NewStubClient("MATCH_SCORE: 82\n### Summary\nGood fit")
	scorer := NewScorer(stub, "")

	result, err := scorer.Analyze(context.Background(), models.AnalysisRequest{
		ResumeText: "Experienced Python developer",
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if result.Score != 82 {
		t.Errorf("Score = %d, want 82", result.Score)
	}
	want := map[models.SectionName]string{SectionSummary: "Good fit"}
	if !reflect.DeepEqual(result.Sections, want) {
		t.Errorf("Sections = %#v, want %#v", result.Sections, want)
	}
	if result.ParseDegraded {
		t.Errorf("result should not be degraded, warnings: %v", result.Warnings)
	}
	if result.TemplateVersion != TemplateV1 {
		t.Errorf("TemplateVersion = %q, want %q", result.TemplateVersion, TemplateV1)
	}

	prompts := stub.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("expected one model call, got %d", len(prompts))
	}
	if !strings.Contains(prompts[0], "Experienced Python developer") {
		t.Error("prompt should carry the resume text")
	}
	if !strings.Contains(prompts[0], DefaultJobClause) {
		t.Error("empty job description should use the default clause")
	}
}

func TestScorerAnalyzeSampleResponse(t *testing.T) {
	scorer := NewScorer(llm.NewStubClient(llm.SampleResponse), TemplateV1)

	result, err := scorer.Analyze(context.Background(), models.AnalysisRequest{ResumeText: "r", JobDescription: "j"})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if result.ParseDegraded {
		t.Errorf("the stub sample answer should parse cleanly, warnings: %v", result.Warnings)
	}
	g, _ := GrammarFor(TemplateV1)
	for _, h := range g.Headings {
		if _, ok := result.Sections[h]; !ok {
			t.Errorf("sample answer is missing section %q", h)
		}
	}
}

func TestScorerAnalyzeDegradedAnswer(t *testing.T) {
	scorer := NewScorer(llm.NewStubClient("I cannot score this resume."), "")

	result, err := scorer.Analyze(context.Background(), models.AnalysisRequest{ResumeText: "r"})
	if err != nil {
		t.Fatalf("a malformed answer should not be an error: %v", err)
	}
	if !result.ParseDegraded || result.Score != 0 {
		t.Errorf("got score %d degraded %v, want 0 and degraded", result.Score, result.ParseDegraded)
	}
	if result.Sections[SectionFeedback] != "I cannot score this resume." {
		t.Errorf("Feedback = %q", result.Sections[SectionFeedback])
	}
}

func TestScorerAnalyzeRequestError(t *testing.T) {
	scorer := NewScorer(llm.NewFailingStubClient(&llm.RequestError{Category: llm.CategoryTransient, Message: "busy"}), "")

	_, err := scorer.Analyze(context.Background(), models.AnalysisRequest{ResumeText: "r"})
	if err == nil {
		t.Fatal("expected an error")
	}
	var reqErr *llm.RequestError
	if !errors.As(err, &reqErr) || reqErr.Category != llm.CategoryTransient {
		t.Errorf("expected a transient RequestError in the chain, got %v", err)
	}
}

func TestScorerAnalyzeUnknownVersion(t *testing.T) {
	stub := llm.NewStubClient("MATCH_SCORE: 1")
	scorer := NewScorer(stub, "v42")

	_, err := scorer.Analyze(context.Background(), models.AnalysisRequest{ResumeText: "r"})
	if !errors.Is(err, ErrUnknownTemplateVersion) {
		t.Errorf("expected ErrUnknownTemplateVersion, got %v", err)
	}
	if len(stub.Prompts()) != 0 {
		t.Error("model should not be called when the prompt cannot be built")
	}
}
