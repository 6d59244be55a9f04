package scoring

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fmuoria/resumepro-agent/internal/models"
)

var (
	scoreValuePattern  = regexp.MustCompile(`(?im)^[ \t]*` + ScoreLabel + `[ \t]*:[ \t]*([^\n]*)$`)
	scoreLinePattern   = regexp.MustCompile(`(?im)^[ \t]*` + ScoreLabel + `[ \t]*:[^\n]*(?:\n|$)`)
	scoreNumberPattern = regexp.MustCompile(`^([+-]?\d+)(.*)$`)
	scaleSuffixPattern = regexp.MustCompile(`^/[ \t]*(\d+)`)

	topSkillsPattern     = listFieldPattern(TopSkillsLabel)
	missingSkillsPattern = listFieldPattern(MissingSkillsLabel)
)

func listFieldPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t]*` + label + `[ \t]*:[ \t]*([^\n]*)$`)
}

// ParseResponse decomposes a raw model answer into an AnalysisResult.
// Missing or malformed fields never fail the parse; they set ParseDegraded
// and add a warning instead.
func ParseResponse(raw, version string) models.AnalysisResult {
	g, ok := GrammarFor(version)
	result := models.AnalysisResult{
		RawText:  raw,
		Sections: make(map[models.SectionName]string),
	}
	if !ok {
		g, _ = GrammarFor(CurrentTemplateVersion)
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("unknown template version %q, parsed with %s", version, g.Version))
	}
	result.TemplateVersion = g.Version

	text := strings.ReplaceAll(raw, "\r\n", "\n")

	score, warning := parseScore(text)
	result.Score = score
	if warning != "" {
		result.ParseDegraded = true
		result.Warnings = append(result.Warnings, warning)
	}

	result.TopSkills = parseList(topSkillsPattern, text)
	result.MissingSkills = parseList(missingSkillsPattern, text)

	result.Narrative = stripScore(text)

	if !splitSections(g, result.Narrative, result.Sections) {
		result.ParseDegraded = true
		result.Warnings = append(result.Warnings, "no recognized section headings")
	}

	return result
}

// parseScore reads the leading integer of the first score label. Trailing
// prose is ignored. A non-empty warning means the returned score is a
// fallback, was clamped, or came from an unexpected scale.
func parseScore(text string) (int, string) {
	m := scoreValuePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, ScoreLabel + " label not found"
	}

	raw := strings.TrimSpace(m[1])
	nm := scoreNumberPattern.FindStringSubmatch(raw)
	if nm == nil {
		return 0, fmt.Sprintf("%s value %q is not an integer", ScoreLabel, raw)
	}

	value, err := strconv.Atoi(nm[1])
	if err != nil {
		// only a range error is possible for a digit run
		if strings.HasPrefix(nm[1], "-") {
			return 0, fmt.Sprintf("%s %s clamped to 0", ScoreLabel, nm[1])
		}
		return 100, fmt.Sprintf("%s %s clamped to 100", ScoreLabel, nm[1])
	}

	switch {
	case value < 0:
		return 0, fmt.Sprintf("%s %d clamped to 0", ScoreLabel, value)
	case value > 100:
		return 100, fmt.Sprintf("%s %d clamped to 100", ScoreLabel, value)
	}
	return value, scoreSuffixWarning(raw, strings.TrimSpace(nm[2]))
}

// scoreSuffixWarning flags suffixes that change the meaning of the integer:
// a scale other than /100 or a fractional part. "%", "/100" and prose are fine.
func scoreSuffixWarning(raw, rest string) string {
	if sm := scaleSuffixPattern.FindStringSubmatch(rest); sm != nil && sm[1] != "100" {
		return fmt.Sprintf("%s value %q is not out of 100", ScoreLabel, raw)
	}
	if len(rest) > 1 && rest[0] == '.' && rest[1] >= '0' && rest[1] <= '9' {
		return fmt.Sprintf("%s value %q truncated to an integer", ScoreLabel, raw)
	}
	return ""
}

// stripScore removes every score line, then any stray inline label, so the
// narrative never carries the label text.
func stripScore(text string) string {
	out := scoreLinePattern.ReplaceAllString(text, "")
	literal := ScoreLabel + ":"
	for strings.Contains(out, literal) {
		out = strings.ReplaceAll(out, literal, "")
	}
	return strings.TrimSpace(out)
}

// splitSections fills sections from the narrative and reports whether any
// recognized heading was found. Without one, the narrative goes to the
// catch-all section.
func splitSections(g *Grammar, narrative string, sections map[models.SectionName]string) bool {
	matches := g.headingPattern.FindAllStringSubmatchIndex(narrative, -1)
	if len(matches) == 0 {
		if narrative != "" {
			sections[g.CatchAll] = narrative
		}
		return false
	}

	for i, m := range matches {
		name := g.sectionFor(narrative[m[2]:m[3]])
		end := len(narrative)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(narrative[m[1]:end])

		if prev, ok := sections[name]; ok && prev != "" {
			if body != "" {
				sections[name] = prev + "\n\n" + body
			}
			continue
		}
		sections[name] = body
	}
	return true
}

// parseList reads a comma or semicolon separated field. A missing field is an
// empty list, not an error.
func parseList(pattern *regexp.Regexp, text string) []string {
	out := []string{}
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return out
	}

	seen := make(map[string]bool)
	items := strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ';' })
	for _, item := range items {
		item = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(item), "-*•"))
		item = strings.TrimSpace(strings.TrimSuffix(item, "."))
		if item == "" || isNoneMarker(item) {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func isNoneMarker(s string) bool {
	switch strings.ToLower(s) {
	case "none", "n/a", "na", "-":
		return true
	}
	return false
}
