package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/resumepro-agent/internal/models"
	"github.com/fmuoria/resumepro-agent/internal/scoring"
)

// Sheet names of the history workbook
const (
	SummarySheet  = "Summary"
	HistorySheet  = "History"
	SectionsSheet = "Sections"
)

// Cell fills per band, the light variants of the band colours
var bandFills = map[string]string{
	models.BandExcellent.Label: "C6EFCE",
	models.BandModerate.Label:  "FFEB9C",
	models.BandLow.Label:       "FFC7CE",
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// ExportHistoryToExcel writes the history workbook to outputPath and returns
// the path actually written (".xlsx" is appended when missing).
func ExportHistoryToExcel(entries []models.HistoryEntry, outputPath string) (string, error) {
	// Ensure output path has .xlsx extension
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}

	// Clean the path for cross-platform compatibility (Windows paths)
	outputPath = filepath.Clean(outputPath)

	var buf bytes.Buffer
	if err := WriteHistoryWorkbook(entries, &buf); err != nil {
		return "", err
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}
	return outputPath, nil
}

// WriteHistoryWorkbook streams the history workbook to w. Entries are written
// in the order given.
func WriteHistoryWorkbook(entries []models.HistoryEntry, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SummarySheet)
	if _, err := f.NewSheet(HistorySheet); err != nil {
		return fmt.Errorf("failed to create history sheet: %w", err)
	}
	if _, err := f.NewSheet(SectionsSheet); err != nil {
		return fmt.Errorf("failed to create sections sheet: %w", err)
	}

	if err := createSummarySheet(f, SummarySheet, entries); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := createHistorySheet(f, HistorySheet, entries); err != nil {
		return fmt.Errorf("failed to create history sheet: %w", err)
	}
	if err := createSectionsSheet(f, SectionsSheet, entries); err != nil {
		return fmt.Errorf("failed to create sections sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel workbook: %w", err)
	}
	return nil
}

// createSummarySheet writes counts and score statistics
func createSummarySheet(f *excelize.File, sheetName string, entries []models.HistoryEntry) error {
	f.SetColWidth(sheetName, "A", "A", 25)
	f.SetColWidth(sheetName, "B", "B", 30)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}

	row := 1
	heading := func(text string) {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), text)
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), headerStyle)
		f.MergeCell(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
		row++
	}
	pair := func(label string, value interface{}) {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), label)
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), value)
		row++
	}

	heading("ResumePro Analysis History")
	row++
	pair("Generated:", time.Now().Format("2006-01-02 15:04:05"))
	pair("Total Analyses:", len(entries))
	row++

	if len(entries) == 0 {
		return nil
	}

	heading("Statistics:")
	counts := make(map[string]int)
	total, highest, lowest, degraded := 0, entries[0].Score, entries[0].Score, 0
	for _, e := range entries {
		counts[e.Band().Label]++
		total += e.Score
		if e.Score > highest {
			highest = e.Score
		}
		if e.Score < lowest {
			lowest = e.Score
		}
		if e.Result.ParseDegraded {
			degraded++
		}
	}

	pair("Excellent (76-100):", counts[models.BandExcellent.Label])
	pair("Moderate (51-75):", counts[models.BandModerate.Label])
	pair("Low (0-50):", counts[models.BandLow.Label])
	row++
	pair("Average Score:", fmt.Sprintf("%.2f", float64(total)/float64(len(entries))))
	pair("Highest Score:", highest)
	pair("Lowest Score:", lowest)
	pair("Degraded Parses:", degraded)

	return nil
}

// createHistorySheet writes one colour-coded row per entry
func createHistorySheet(f *excelize.File, sheetName string, entries []models.HistoryEntry) error {
	widths := map[string]float64{"A": 8, "B": 25, "C": 20, "D": 10, "E": 12, "F": 40, "G": 40, "H": 10, "I": 50}
	for col, width := range widths {
		f.SetColWidth(sheetName, col, col, width)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}

	bandStyles := make(map[string]int, len(bandFills))
	for label, fill := range bandFills {
		style, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
			Border:    thinBorder,
		})
		if err != nil {
			return err
		}
		bandStyles[label] = style
	}

	headers := []string{"#", "Label", "Timestamp", "Score", "Band", "Top Skills", "Missing Skills", "Degraded", "Warnings"}
	for col, header := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+col)))
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, e := range entries {
		row := i + 2
		band := e.Band()
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), e.Ordinal)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), e.Label)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), e.Timestamp.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), e.Score)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), band.Label)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), strings.Join(e.Result.TopSkills, ", "))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), strings.Join(e.Result.MissingSkills, ", "))
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), yesNo(e.Result.ParseDegraded))
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), strings.Join(e.Result.Warnings, "; "))
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("I%d", row), bandStyles[band.Label])
	}

	if len(entries) > 0 {
		f.AutoFilter(sheetName, fmt.Sprintf("A1:I%d", len(entries)+1), []excelize.AutoFilterOptions{})
	}
	freezeHeader(f, sheetName)
	return nil
}

// createSectionsSheet writes one row per narrative section of every entry
func createSectionsSheet(f *excelize.File, sheetName string, entries []models.HistoryEntry) error {
	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 25)
	f.SetColWidth(sheetName, "C", "C", 16)
	f.SetColWidth(sheetName, "D", "D", 80)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}

	headers := []string{"#", "Label", "Section", "Content"}
	for col, header := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+col)))
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	row := 2
	for _, e := range entries {
		for _, name := range SectionOrder(e.Result) {
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), e.Ordinal)
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), e.Label)
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), string(name))
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), e.Result.Sections[name])
			f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), wrapStyle)
			f.SetRowHeight(sheetName, row, 60)
			row++
		}
	}

	freezeHeader(f, sheetName)
	return nil
}

// SectionOrder lists the sections present in result, in the order of its
// grammar vocabulary. Names outside the vocabulary follow alphabetically.
func SectionOrder(result models.AnalysisResult) []models.SectionName {
	var order []models.SectionName
	seen := make(map[models.SectionName]bool)
	if g, ok := scoring.GrammarFor(result.TemplateVersion); ok {
		for _, name := range g.Vocabulary() {
			if _, present := result.Sections[name]; present {
				order = append(order, name)
				seen[name] = true
			}
		}
	}

	var rest []models.SectionName
	for name := range result.Sections {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(order, rest...)
}

func freezeHeader(f *excelize.File, sheetName string) {
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
