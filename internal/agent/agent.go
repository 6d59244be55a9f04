package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/fmuoria/resumepro-agent/internal/history"
	"github.com/fmuoria/resumepro-agent/internal/ingestion"
	"github.com/fmuoria/resumepro-agent/internal/llm"
	"github.com/fmuoria/resumepro-agent/internal/models"
	"github.com/fmuoria/resumepro-agent/internal/scoring"
)

// ProgressCallback is called to report progress during processing
type ProgressCallback func(current, total int, message string)

// ErrNoLedger is returned when neither an explicit nor a context ledger is available
var ErrNoLedger = errors.New("no history ledger for this session")

// Options configures a ResumeAnalyzer
type Options struct {
	// TemplateVersion selects the prompt grammar; empty means current
	TemplateVersion string
	// UploadsDir archives every analysed upload when set
	UploadsDir string
}

// Input is one resume to analyse. When Document.Text is empty the text is
// extracted from Document.Data.
type Input struct {
	Document       models.Document
	JobDescription string
	Label          string
}

// ResumeAnalyzer runs extract, prompt, model call, parse and record for one resume
type ResumeAnalyzer struct {
	client      llm.Client
	scorer      *scoring.Scorer
	fileHandler *ingestion.FileHandler
	mu          sync.RWMutex
	progressCb  ProgressCallback
}

// NewResumeAnalyzer creates an analyzer that calls client
func NewResumeAnalyzer(client llm.Client, opts Options) *ResumeAnalyzer {
	return &ResumeAnalyzer{
		client:      client,
		scorer:      scoring.NewScorer(client, opts.TemplateVersion),
		fileHandler: ingestion.NewFileHandler(opts.UploadsDir),
	}
}

// SetProgressCallback sets the progress callback function
func (a *ResumeAnalyzer) SetProgressCallback(cb ProgressCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progressCb = cb
}

// reportProgress calls the progress callback if set
func (a *ResumeAnalyzer) reportProgress(current, total int, message string) {
	a.mu.RLock()
	cb := a.progressCb
	a.mu.RUnlock()

	if cb != nil {
		cb(current, total, message)
	}
}

// Analyze processes one resume and appends the result to ledger. A nil
// ledger is looked up in ctx. Nothing is recorded when any step fails.
func (a *ResumeAnalyzer) Analyze(ctx context.Context, ledger *history.Ledger, in Input) (models.HistoryEntry, error) {
	if ledger == nil {
		var ok bool
		if ledger, ok = history.LedgerFromContext(ctx); !ok {
			return models.HistoryEntry{}, ErrNoLedger
		}
	}

	a.reportProgress(0, 100, "Extracting resume text...")

	text := in.Document.Text
	if strings.TrimSpace(text) == "" {
		extracted, err := ingestion.ExtractText(in.Document.Data, in.Document.Name)
		if err != nil {
			return models.HistoryEntry{}, err
		}
		text = extracted
	}
	a.archive(in.Document)

	if err := ctx.Err(); err != nil {
		return models.HistoryEntry{}, err
	}

	a.reportProgress(30, 100, "Analyzing resume with the model...")

	result, err := a.scorer.Analyze(ctx, models.AnalysisRequest{
		ResumeText:     text,
		JobDescription: in.JobDescription,
	})
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("failed to analyze %s: %w", displayName(in.Document), err)
	}

	a.reportProgress(90, 100, "Recording result...")

	entry := ledger.Append(models.HistoryEntry{
		Label:  strings.TrimSpace(in.Label),
		Score:  result.Score,
		Result: result,
	})

	log.Printf("Analysis #%d complete: label=%q score=%d band=%s degraded=%v template=%s",
		entry.Ordinal, entry.Label, entry.Score, entry.Band().Label, result.ParseDegraded, a.scorer.Version())
	a.reportProgress(100, 100, "Analysis complete!")

	return entry, nil
}

// AnalyzeAll analyses documents one after another against the same job
// description, labelling each entry with the document name. Failures are
// logged and skipped; an error is returned only when ctx is cancelled or
// no document succeeded.
func (a *ResumeAnalyzer) AnalyzeAll(ctx context.Context, ledger *history.Ledger, docs []models.Document, jobDescription string) ([]models.HistoryEntry, error) {
	if len(docs) == 0 {
		return nil, errors.New("no documents to analyze")
	}

	entries := make([]models.HistoryEntry, 0, len(docs))
	var failures []error
	for i, doc := range docs {
		// Check for cancellation
		select {
		case <-ctx.Done():
			return entries, ctx.Err()
		default:
		}

		log.Printf("Evaluating resume %d/%d: %s", i+1, len(docs), displayName(doc))

		entry, err := a.Analyze(ctx, ledger, Input{
			Document:       doc,
			JobDescription: jobDescription,
			Label:          doc.Name,
		})
		if err != nil {
			log.Printf("Failed to analyze %s: %v", displayName(doc), err)
			failures = append(failures, err)
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("all %d analyses failed: %w", len(docs), errors.Join(failures...))
	}
	return entries, nil
}

// archive keeps a copy of the upload when an uploads directory is configured
func (a *ResumeAnalyzer) archive(doc models.Document) {
	if !a.fileHandler.Enabled() || len(doc.Data) == 0 || doc.Name == "" {
		return
	}
	if _, err := a.fileHandler.SaveUploadedFile(doc.Name, bytes.NewReader(doc.Data)); err != nil {
		log.Printf("Failed to archive upload %s: %v", doc.Name, err)
	}
}

// Close cleans up resources
func (a *ResumeAnalyzer) Close() error {
	return llm.Close(a.client)
}

func displayName(doc models.Document) string {
	if doc.Name == "" {
		return "resume"
	}
	return doc.Name
}
