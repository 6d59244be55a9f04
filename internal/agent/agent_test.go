package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fmuoria/resumepro-agent/internal/history"
	"github.com/fmuoria/resumepro-agent/internal/ingestion"
	"github.com/fmuoria/resumepro-agent/internal/llm"
	"github.com/fmuoria/resumepro-agent/internal/models"
)

func txtDoc(name, text string) models.Document {
	return models.Document{Name: name, Data: []byte(text)}
}

func TestAnalyze(t *testing.T) {
	stub := llm.NewStubClient("MATCH_SCORE: 82\n### Summary\nGood fit")
	a := NewResumeAnalyzer(stub, Options{})
	ledger := history.NewLedger()

	var mu sync.Mutex
	var progress []int
	a.SetProgressCallback(func(current, total int, message string) {
		mu.Lock()
		defer mu.Unlock()
		progress = append(progress, current)
	})

	entry, err := a.Analyze(context.Background(), ledger, Input{
		Document:       txtDoc("resume.txt", "Experienced Python developer"),
		JobDescription: "Python backend role",
		Label:          "  Acme  ",
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if entry.Ordinal != 1 || entry.Label != "Acme" || entry.Score != 82 {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.Result.Sections["Summary"] != "Good fit" {
		t.Errorf("Sections = %v", entry.Result.Sections)
	}
	if ledger.Len() != 1 {
		t.Errorf("ledger length = %d, want 1", ledger.Len())
	}

	prompts := stub.Prompts()
	if len(prompts) != 1 || !strings.Contains(prompts[0], "Experienced Python developer") || !strings.Contains(prompts[0], "Python backend role") {
		t.Error("prompt should carry the extracted resume and the job description")
	}

	if len(progress) == 0 || progress[0] != 0 || progress[len(progress)-1] != 100 {
		t.Errorf("progress = %v, want it to run from 0 to 100", progress)
	}
}

func TestAnalyzeDefaultLabel(t *testing.T) {
	a := NewResumeAnalyzer(llm.NewStubClient(llm.SampleResponse), Options{})
	entry, err := a.Analyze(context.Background(), history.NewLedger(), Input{Document: txtDoc("cv.txt", "text")})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if entry.Label != models.DefaultLabel {
		t.Errorf("Label = %q, want %q", entry.Label, models.DefaultLabel)
	}
}

func TestAnalyzeUsesPreExtractedText(t *testing.T) {
	stub := llm.NewStubClient(llm.SampleResponse)
	a := NewResumeAnalyzer(stub, Options{})

	doc := models.Document{Name: "scan.pdf", Text: "Text from an earlier extraction"}
	if _, err := a.Analyze(context.Background(), history.NewLedger(), Input{Document: doc}); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !strings.Contains(stub.Prompts()[0], "Text from an earlier extraction") {
		t.Error("existing document text should be used without re-extraction")
	}
}

func TestAnalyzeExtractionFailureRecordsNothing(t *testing.T) {
	stub := llm.NewStubClient(llm.SampleResponse)
	a := NewResumeAnalyzer(stub, Options{})
	ledger := history.NewLedger()

	_, err := a.Analyze(context.Background(), ledger, Input{Document: txtDoc("broken.pdf", "%PDF-1.4 not really")})

	var extractErr *ingestion.DocumentExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected DocumentExtractionError, got %v", err)
	}
	if ledger.Len() != 0 {
		t.Error("failed extraction must not record an entry")
	}
	if len(stub.Prompts()) != 0 {
		t.Error("model must not be called when extraction fails")
	}
}

func TestAnalyzeRequestFailureRecordsNothing(t *testing.T) {
	a := NewResumeAnalyzer(llm.NewFailingStubClient(&llm.RequestError{Category: llm.CategoryAuth, Message: "denied"}), Options{})
	ledger := history.NewLedger()

	_, err := a.Analyze(context.Background(), ledger, Input{Document: txtDoc("cv.txt", "text")})

	var reqErr *llm.RequestError
	if !errors.As(err, &reqErr) || reqErr.Category != llm.CategoryAuth {
		t.Fatalf("expected auth RequestError, got %v", err)
	}
	if ledger.Len() != 0 {
		t.Error("failed request must not record an entry")
	}
}

func TestAnalyzeDegradedIsStillRecorded(t *testing.T) {
	a := NewResumeAnalyzer(llm.NewStubClient("no structure here"), Options{})
	ledger := history.NewLedger()

	entry, err := a.Analyze(context.Background(), ledger, Input{Document: txtDoc("cv.txt", "text")})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !entry.Result.ParseDegraded || entry.Score != 0 || ledger.Len() != 1 {
		t.Errorf("unexpected degraded entry %+v", entry)
	}
}

func TestAnalyzeLedgerFromContext(t *testing.T) {
	a := NewResumeAnalyzer(llm.NewStubClient(llm.SampleResponse), Options{})
	ledger := history.NewLedger()
	ctx := history.WithLedger(context.Background(), ledger)

	if _, err := a.Analyze(ctx, nil, Input{Document: txtDoc("cv.txt", "text")}); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if ledger.Len() != 1 {
		t.Error("entry should be recorded in the context ledger")
	}

	if _, err := a.Analyze(context.Background(), nil, Input{Document: txtDoc("cv.txt", "text")}); !errors.Is(err, ErrNoLedger) {
		t.Errorf("expected ErrNoLedger, got %v", err)
	}
}

func TestAnalyzeCancelledContext(t *testing.T) {
	stub := llm.NewStubClient(llm.SampleResponse)
	a := NewResumeAnalyzer(stub, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, history.NewLedger(), Input{Document: txtDoc("cv.txt", "text")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAnalyzeArchivesUploads(t *testing.T) {
	dir := t.TempDir()
	a := NewResumeAnalyzer(llm.NewStubClient(llm.SampleResponse), Options{UploadsDir: dir})

	if _, err := a.Analyze(context.Background(), history.NewLedger(), Input{Document: txtDoc("cv.txt", "archived text")}); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "cv.txt"))
	if err != nil || string(data) != "archived text" {
		t.Errorf("upload not archived: %q, %v", data, err)
	}
}

func TestAnalyzeAll(t *testing.T) {
	a := NewResumeAnalyzer(llm.NewStubClient(llm.SampleResponse), Options{})
	ledger := history.NewLedger()

	docs := []models.Document{
		txtDoc("Jane Doe - cv.txt", "Jane"),
		txtDoc("broken.pdf", "%PDF-1.4 garbage"),
		txtDoc("John Roe - cv.txt", "John"),
	}
	entries, err := a.AnalyzeAll(context.Background(), ledger, docs, "job")
	if err != nil {
		t.Fatalf("AnalyzeAll returned error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Label != "Jane Doe - cv.txt" || entries[1].Label != "John Roe - cv.txt" {
		t.Errorf("labels = %q, %q", entries[0].Label, entries[1].Label)
	}
	if ledger.Len() != 2 {
		t.Errorf("ledger length = %d, want 2", ledger.Len())
	}
}

func TestAnalyzeAllEveryFailure(t *testing.T) {
	a := NewResumeAnalyzer(llm.NewFailingStubClient(errors.New("HTTP 429: Too Many Requests")), Options{})

	_, err := a.AnalyzeAll(context.Background(), history.NewLedger(), []models.Document{txtDoc("a.txt", "a")}, "")
	if err == nil || !llm.IsTransient(err) {
		t.Errorf("expected the transient failure to be reported, got %v", err)
	}

	if _, err := a.AnalyzeAll(context.Background(), history.NewLedger(), nil, ""); err == nil {
		t.Error("expected an error for no documents")
	}
}
