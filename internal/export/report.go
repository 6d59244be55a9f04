package export

import (
	"fmt"
	"strings"

	"github.com/fmuoria/resumepro-agent/internal/models"
)

// Report formats accepted by Render
const (
	FormatText     = "txt"
	FormatMarkdown = "md"
)

// RenderText returns the cleaned narrative exactly as parsed
func RenderText(result models.AnalysisResult) string {
	return result.Narrative
}

// RenderMarkdown returns a report for one history entry: a score heading with
// its band, the skill lists, then the narrative unchanged.
func RenderMarkdown(entry models.HistoryEntry) string {
	band := entry.Band()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s: %d/100 (%s match)\n\n", entry.Label, entry.Score, band.Label)
	if !entry.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "_Analysed %s_\n\n", entry.Timestamp.Format("2006-01-02 15:04"))
	}
	if len(entry.Result.TopSkills) > 0 {
		fmt.Fprintf(&sb, "**Top skills:** %s\n\n", strings.Join(entry.Result.TopSkills, ", "))
	}
	if len(entry.Result.MissingSkills) > 0 {
		fmt.Fprintf(&sb, "**Missing skills:** %s\n\n", strings.Join(entry.Result.MissingSkills, ", "))
	}
	if entry.Result.ParseDegraded {
		sb.WriteString("> The model answer did not follow the expected format; the score may be unreliable.\n\n")
	}
	sb.WriteString("---\n\n")
	sb.WriteString(entry.Result.Narrative)
	if !strings.HasSuffix(entry.Result.Narrative, "\n") {
		sb.WriteString("\n")
	}
	return sb.String()
}

// Render formats an entry as FormatText or FormatMarkdown
func Render(entry models.HistoryEntry, format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatText, "text":
		return RenderText(entry.Result), nil
	case FormatMarkdown, "markdown", "":
		return RenderMarkdown(entry), nil
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}
