package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fmuoria/resumepro-agent/internal/models"
)

// DefaultJobClause replaces an empty job description in the prompt
const DefaultJobClause = "General optimization: no target job description was provided. " +
	"Evaluate the resume against common ATS expectations for the role it describes."

const (
	resumePlaceholder = "{{RESUME}}"
	jobPlaceholder    = "{{JOB_DESCRIPTION}}"
)

// ErrUnknownTemplateVersion is returned for a version without a registered grammar
var ErrUnknownTemplateVersion = errors.New("unknown template version")

// BuildPrompt substitutes the resume text and job description into the template of
// the given version. Inputs are inserted whole, in a single pass, so placeholder text
// inside a resume is never expanded again.
func BuildPrompt(resumeText, jobDescription, version string) (string, error) {
	g, ok := GrammarFor(version)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplateVersion, version)
	}

	job := jobDescription
	if strings.TrimSpace(job) == "" {
		job = DefaultJobClause
	}

	r := strings.NewReplacer(
		resumePlaceholder, sanitizeUTF8(resumeText),
		jobPlaceholder, sanitizeUTF8(job),
	)
	return r.Replace(g.Template), nil
}

// BuildRequestPrompt builds the prompt for a request, defaulting the template version
func BuildRequestPrompt(req models.AnalysisRequest) (string, error) {
	version := req.TemplateVersion
	if version == "" {
		version = CurrentTemplateVersion
	}
	return BuildPrompt(req.ResumeText, req.JobDescription, version)
}

// sanitizeUTF8 replaces invalid byte sequences left behind by PDF extraction;
// the model API rejects request strings that are not valid UTF-8.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}
