package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fmuoria/resumepro-agent/internal/export"
	"github.com/fmuoria/resumepro-agent/internal/history"
	"github.com/fmuoria/resumepro-agent/internal/ingestion"
)

//nolint:gochecknoglobals // Cobra boilerplate
var subject string

//nolint:gochecknoglobals // Cobra boilerplate
var gmailCmd = &cobra.Command{
	Use:   "gmail",
	Short: "Analyze resumes attached to Gmail messages",
	Long: `Fetch PDF and DOCX attachments of messages whose subject matches and
analyze each one against the job description.

The first run opens an OAuth flow; paste the authorization code when asked.

Example:
  resumepro gmail --subject "Job Application" --job jd.txt`,
	Args: cobra.NoArgs,
	RunE: runGmail,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(gmailCmd)
	gmailCmd.Flags().StringVar(&subject, "subject", "", "Email subject filter")
	gmailCmd.Flags().StringVar(&jobInput, "job", "", "Job description file or text")
	gmailCmd.Flags().StringVar(&format, "format", export.FormatMarkdown, "Report format: md or txt")
	gmailCmd.Flags().StringVar(&excelPath, "excel", "", "Also export the results to this Excel file")
	_ = gmailCmd.MarkFlagRequired("subject")
}

func runGmail(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, err := readJobDescription(jobInput)
	if err != nil {
		return err
	}

	cfg, analyzer, err := setup(ctx)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	source, err := ingestion.NewGmailSource(ctx, ingestion.GmailOptions{
		CredentialsPath: cfg.GmailCredentialsPath,
		TokenPath:       cfg.GmailTokenPath,
		In:              cmd.InOrStdin(),
		Out:             cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	docs, err := source.FetchResumes(ctx, subject)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no resume attachments found for subject %q", subject)
	}

	ledger := history.NewLedger()
	entries, err := analyzer.AnalyzeAll(ctx, ledger, docs, job)
	if err != nil && len(entries) == 0 {
		return err
	}

	if err := writeReports(cmd.OutOrStdout(), entries, format); err != nil {
		return err
	}
	return exportIfRequested(cmd, ledger.List())
}
