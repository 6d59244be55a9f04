package scoring

import (
	"embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/fmuoria/resumepro-agent/internal/models"
)

// Template versions. Bump the version whenever the label or heading set changes.
const (
	TemplateV1             = "v1"
	CurrentTemplateVersion = TemplateV1
)

// Labels of the structured fields in a model answer
const (
	ScoreLabel         = "MATCH_SCORE"
	TopSkillsLabel     = "TOP_SKILLS"
	MissingSkillsLabel = "MISSING_SKILLS"
)

// Section vocabulary of grammar v1
const (
	SectionSummary      models.SectionName = "Summary"
	SectionStrengths    models.SectionName = "Strengths"
	SectionGaps         models.SectionName = "Gaps"
	SectionImprovements models.SectionName = "Improvements"
	SectionKeywords     models.SectionName = "Keywords"
	// SectionFeedback holds the whole narrative when no heading is recognized
	SectionFeedback models.SectionName = "Feedback"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// Grammar is the response contract shared by the prompt builder and the parser
type Grammar struct {
	Version  string
	Template string
	Headings []models.SectionName
	CatchAll models.SectionName

	headingPattern *regexp.Regexp
}

var grammars = map[string]*Grammar{
	TemplateV1: mustGrammar(TemplateV1, []models.SectionName{
		SectionSummary,
		SectionStrengths,
		SectionGaps,
		SectionImprovements,
		SectionKeywords,
	}, SectionFeedback),
}

func mustGrammar(version string, headings []models.SectionName, catchAll models.SectionName) *Grammar {
	tmpl, err := promptFS.ReadFile("prompts/" + version + ".txt")
	if err != nil {
		panic(fmt.Sprintf("missing prompt template %s: %v", version, err))
	}

	names := make([]string, 0, len(headings))
	for _, h := range headings {
		names = append(names, regexp.QuoteMeta(string(h)))
	}
	// "### Summary" on its own line; the hash count and a trailing colon are tolerated
	pattern := `(?im)^[ \t]*#{1,6}[ \t]*(` + strings.Join(names, "|") + `)[ \t]*:?[ \t]*$`

	return &Grammar{
		Version:        version,
		Template:       string(tmpl),
		Headings:       headings,
		CatchAll:       catchAll,
		headingPattern: regexp.MustCompile(pattern),
	}
}

// GrammarFor returns the grammar registered for a template version
func GrammarFor(version string) (*Grammar, bool) {
	g, ok := grammars[version]
	return g, ok
}

// Marker returns the heading line the template asks the model to write
func (g *Grammar) Marker(section models.SectionName) string {
	return "### " + string(section)
}

// Vocabulary returns every section name a result of this grammar may carry
func (g *Grammar) Vocabulary() []models.SectionName {
	out := make([]models.SectionName, 0, len(g.Headings)+1)
	out = append(out, g.Headings...)
	return append(out, g.CatchAll)
}

// HasSection reports whether name belongs to the grammar vocabulary
func (g *Grammar) HasSection(name models.SectionName) bool {
	for _, s := range g.Vocabulary() {
		if s == name {
			return true
		}
	}
	return false
}

// sectionFor maps a matched heading back to its canonical name
func (g *Grammar) sectionFor(matched string) models.SectionName {
	for _, h := range g.Headings {
		if strings.EqualFold(string(h), matched) {
			return h
		}
	}
	return g.CatchAll
}
