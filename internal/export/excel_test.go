package export

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/resumepro-agent/internal/models"
	"github.com/fmuoria/resumepro-agent/internal/scoring"
)

func sampleEntries() []models.HistoryEntry {
	ts := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	return []models.HistoryEntry{
		{
			Ordinal:   2,
			Label:     "Globex",
			Timestamp: ts.Add(time.Hour),
			Score:     45,
			Result: models.AnalysisResult{
				Score:           45,
				Sections:        map[models.SectionName]string{scoring.SectionFeedback: "Free text"},
				ParseDegraded:   true,
				Warnings:        []string{"no recognized section headings"},
				TemplateVersion: scoring.TemplateV1,
			},
		},
		{
			Ordinal:   1,
			Label:     "Acme",
			Timestamp: ts,
			Score:     82,
			Result: models.AnalysisResult{
				Score: 82,
				Sections: map[models.SectionName]string{
					scoring.SectionGaps:    "- Kafka",
					scoring.SectionSummary: "Strong fit",
				},
				TopSkills:       []string{"Go", "SQL"},
				MissingSkills:   []string{"Kafka"},
				TemplateVersion: scoring.TemplateV1,
			},
		},
	}
}

func TestExportHistoryToExcel_EnsuresXlsxExtension(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "history")

	written, err := ExportHistoryToExcel(sampleEntries(), outputPath)
	if err != nil {
		t.Fatalf("ExportHistoryToExcel() failed: %v", err)
	}

	expectedPath := outputPath + ".xlsx"
	if written != expectedPath {
		t.Errorf("written path = %s, want %s", written, expectedPath)
	}
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Errorf("Expected file at %s but it doesn't exist", expectedPath)
	}
}

func TestExportHistoryToExcel_HandlesExistingXlsxExtension(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "history.XLSX")

	written, err := ExportHistoryToExcel(sampleEntries(), outputPath)
	if err != nil {
		t.Fatalf("ExportHistoryToExcel() failed: %v", err)
	}
	if strings.HasSuffix(written, ".xlsx.xlsx") || strings.HasSuffix(written, ".XLSX.xlsx") {
		t.Errorf("extension added twice: %s", written)
	}
}

func TestExportHistoryToExcel_BadDirectory(t *testing.T) {
	_, err := ExportHistoryToExcel(sampleEntries(), filepath.Join(t.TempDir(), "missing", "history.xlsx"))
	if err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestWriteHistoryWorkbook_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistoryWorkbook(sampleEntries(), &buf); err != nil {
		t.Fatalf("WriteHistoryWorkbook() failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("workbook cannot be reopened: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{SummarySheet, HistorySheet, SectionsSheet}) {
		t.Errorf("sheets = %v", got)
	}

	rows, err := f.GetRows(HistorySheet)
	if err != nil {
		t.Fatalf("GetRows(History) failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("History rows = %d, want header plus 2", len(rows))
	}
	if rows[1][1] != "Globex" || rows[1][3] != "45" || rows[1][4] != "Low" || rows[1][7] != "Yes" {
		t.Errorf("unexpected first history row %v", rows[1])
	}
	if rows[2][1] != "Acme" || rows[2][4] != "Excellent" || rows[2][5] != "Go, SQL" {
		t.Errorf("unexpected second history row %v", rows[2])
	}

	sections, err := f.GetRows(SectionsSheet)
	if err != nil {
		t.Fatalf("GetRows(Sections) failed: %v", err)
	}
	// header + Feedback for Globex + Summary and Gaps for Acme, in vocabulary order
	if len(sections) != 4 {
		t.Fatalf("Sections rows = %d, want 4", len(sections))
	}
	if sections[2][2] != "Summary" || sections[3][2] != "Gaps" {
		t.Errorf("sections out of order: %v, %v", sections[2], sections[3])
	}

	avg, err := f.GetCellValue(SummarySheet, "B11")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if avg != "63.50" {
		t.Errorf("average score = %q, want 63.50", avg)
	}
}

func TestWriteHistoryWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistoryWorkbook(nil, &buf); err != nil {
		t.Fatalf("WriteHistoryWorkbook() failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty history should still produce a workbook")
	}
}

func TestSectionOrder(t *testing.T) {
	result := models.AnalysisResult{
		TemplateVersion: scoring.TemplateV1,
		Sections: map[models.SectionName]string{
			"Zeta":                      "x",
			scoring.SectionKeywords:     "k",
			scoring.SectionSummary:      "s",
			scoring.SectionImprovements: "i",
		},
	}
	want := []models.SectionName{scoring.SectionSummary, scoring.SectionImprovements, scoring.SectionKeywords, "Zeta"}
	if got := SectionOrder(result); !reflect.DeepEqual(got, want) {
		t.Errorf("SectionOrder() = %v, want %v", got, want)
	}
}
