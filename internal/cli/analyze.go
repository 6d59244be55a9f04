package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fmuoria/resumepro-agent/internal/agent"
	"github.com/fmuoria/resumepro-agent/internal/export"
	"github.com/fmuoria/resumepro-agent/internal/history"
	"github.com/fmuoria/resumepro-agent/internal/ingestion"
	"github.com/fmuoria/resumepro-agent/internal/models"
)

//nolint:gochecknoglobals // Cobra boilerplate
var resumePath string

//nolint:gochecknoglobals // Cobra boilerplate
var resumeDir string

//nolint:gochecknoglobals // Cobra boilerplate
var jobInput string

//nolint:gochecknoglobals // Cobra boilerplate
var label string

//nolint:gochecknoglobals // Cobra boilerplate
var format string

//nolint:gochecknoglobals // Cobra boilerplate
var excelPath string

//nolint:gochecknoglobals // Cobra boilerplate
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one resume, or every resume in a directory",
	Long: `Analyze a resume against an optional job description and print the report.

The job description can be a file path or the text itself.

Example:
  resumepro analyze --resume cv.pdf --job jd.txt --label "Acme"
  resumepro analyze --resume cv.docx --format txt
  resumepro analyze --dir ./applicants --job jd.txt --excel results.xlsx`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&resumePath, "resume", "", "Resume file (.pdf, .docx or .txt)")
	analyzeCmd.Flags().StringVar(&resumeDir, "dir", "", "Directory of resumes to analyze one after another")
	analyzeCmd.Flags().StringVar(&jobInput, "job", "", "Job description file or text")
	analyzeCmd.Flags().StringVar(&label, "label", "", "Company or target label (default \"General\")")
	analyzeCmd.Flags().StringVar(&format, "format", export.FormatMarkdown, "Report format: md or txt")
	analyzeCmd.Flags().StringVar(&excelPath, "excel", "", "Also export the session history to this Excel file")
	analyzeCmd.MarkFlagsMutuallyExclusive("resume", "dir")
	analyzeCmd.MarkFlagsOneRequired("resume", "dir")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, err := readJobDescription(jobInput)
	if err != nil {
		return err
	}

	_, analyzer, err := setup(ctx)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	ledger := history.NewLedger()
	var entries []models.HistoryEntry

	if resumeDir != "" {
		docs, err := ingestion.NewFileHandler(resumeDir).LoadDocuments()
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return fmt.Errorf("no resumes found in %s", resumeDir)
		}
		entries, err = analyzer.AnalyzeAll(ctx, ledger, docs, job)
		if err != nil && len(entries) == 0 {
			return err
		}
	} else {
		doc, err := ingestion.LoadDocument(resumePath)
		if err != nil {
			return err
		}
		entry, err := analyzer.Analyze(ctx, ledger, agent.Input{
			Document:       doc,
			JobDescription: job,
			Label:          label,
		})
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	if err := writeReports(cmd.OutOrStdout(), entries, format); err != nil {
		return err
	}
	return exportIfRequested(cmd, ledger.List())
}

func exportIfRequested(cmd *cobra.Command, entries []models.HistoryEntry) error {
	if excelPath == "" {
		return nil
	}
	if len(entries) == 0 {
		return errors.New("nothing to export")
	}
	written, err := export.ExportHistoryToExcel(entries, excelPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "History exported to %s\n", written)
	return nil
}
