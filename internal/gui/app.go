package gui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/fmuoria/resumepro-agent/internal/agent"
	"github.com/fmuoria/resumepro-agent/internal/config"
	"github.com/fmuoria/resumepro-agent/internal/export"
	"github.com/fmuoria/resumepro-agent/internal/history"
	"github.com/fmuoria/resumepro-agent/internal/ingestion"
	"github.com/fmuoria/resumepro-agent/internal/llm"
	"github.com/fmuoria/resumepro-agent/internal/models"
)

const backendRestartNote = "Backend changes take effect after a restart"

var historyHeaders = []string{"#", "Label", "Score", "Band", "Analysed"}

// App represents the main GUI application. The window is a single session.
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window
	config     *config.Config
	analyzer   *agent.ResumeAnalyzer
	sessions   *history.Store
	sessionID  string
	cancelFunc context.CancelFunc

	resume   *models.Document
	entries  []models.HistoryEntry
	selected int

	// Analyze tab
	fileLabel     *widget.Label
	labelEntry    *widget.Entry
	jobDescText   *widget.Entry
	subjectEntry  *widget.Entry
	analyzeBtn    *widget.Button
	gmailBtn      *widget.Button
	cancelBtn     *widget.Button
	progressBar   *widget.ProgressBar
	progressLabel *widget.Label
	scoreText     *canvas.Text
	bandText      *canvas.Text
	narrative     *widget.RichText

	// History tab
	historyTable *widget.Table
	reportView   *widget.RichText
	exportBtn    *widget.Button
	clearBtn     *widget.Button
}

// NewApp creates the desktop application around client
func NewApp(cfg *config.Config, client llm.Client) *App {
	return newApp(app.NewWithID("com.fmuoria.resumepro"), cfg, client)
}

func newApp(fyneApp fyne.App, cfg *config.Config, client llm.Client) *App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	w := fyneApp.NewWindow("ResumePro Agent")
	w.Resize(fyne.NewSize(1000, 720))

	a := &App{
		fyneApp:    fyneApp,
		mainWindow: w,
		config:     cfg,
		analyzer: agent.NewResumeAnalyzer(client, agent.Options{
			TemplateVersion: cfg.TemplateVersion,
			UploadsDir:      cfg.UploadsDir,
		}),
		sessions:  history.NewStore(),
		sessionID: history.NewSessionID(),
		selected:  -1,
	}

	a.analyzer.SetProgressCallback(func(current, total int, message string) {
		fyne.Do(func() {
			a.progressBar.SetValue(float64(current) / float64(total))
			a.progressLabel.SetText(message)
		})
	})

	a.setupUI()
	return a
}

// Run starts the GUI application
func (a *App) Run() {
	a.mainWindow.SetOnClosed(func() {
		if a.cancelFunc != nil {
			a.cancelFunc()
		}
		if err := a.analyzer.Close(); err != nil {
			log.Printf("Failed to close model client: %v", err)
		}
	})
	a.mainWindow.ShowAndRun()
}

// setupUI initializes all UI components
func (a *App) setupUI() {
	tabs := container.NewAppTabs(
		container.NewTabItem("Analyze", a.createAnalyzeTab()),
		container.NewTabItem("History", a.createHistoryTab()),
		container.NewTabItem("Settings", a.createSettingsTab()),
	)
	a.mainWindow.SetContent(tabs)
}

func (a *App) createAnalyzeTab() fyne.CanvasObject {
	a.fileLabel = widget.NewLabel("No resume selected")
	chooseBtn := widget.NewButton("Choose Resume...", a.handleChooseFile)

	a.labelEntry = widget.NewEntry()
	a.labelEntry.SetPlaceHolder("Company or target role (optional)")

	a.jobDescText = widget.NewMultiLineEntry()
	a.jobDescText.SetPlaceHolder("Paste the job description (optional)")
	a.jobDescText.SetMinRowsVisible(6)
	a.jobDescText.Wrapping = fyne.TextWrapWord

	a.subjectEntry = widget.NewEntry()
	a.subjectEntry.SetPlaceHolder("e.g., Job Application")

	a.analyzeBtn = widget.NewButton("Analyze", a.handleAnalyze)
	a.gmailBtn = widget.NewButton("Analyze Gmail Attachments", a.handleGmail)
	a.cancelBtn = widget.NewButton("Cancel", a.handleCancel)
	a.cancelBtn.Disable()

	a.progressBar = widget.NewProgressBar()
	a.progressLabel = widget.NewLabel("Ready")

	a.scoreText = canvas.NewText("--/100", color.Gray{Y: 0x80})
	a.scoreText.TextSize = 32
	a.scoreText.TextStyle = fyne.TextStyle{Bold: true}
	a.bandText = canvas.NewText("", color.Gray{Y: 0x80})
	a.bandText.TextSize = 18

	a.narrative = widget.NewRichTextFromMarkdown("")
	a.narrative.Wrapping = fyne.TextWrapWord

	form := widget.NewForm(
		widget.NewFormItem("Resume", container.NewBorder(nil, nil, nil, chooseBtn, a.fileLabel)),
		widget.NewFormItem("Label", a.labelEntry),
		widget.NewFormItem("Job Description", a.jobDescText),
		widget.NewFormItem("Gmail Subject", a.subjectEntry),
	)

	controls := container.NewVBox(
		form,
		container.NewHBox(a.analyzeBtn, a.gmailBtn, a.cancelBtn),
		a.progressLabel,
		a.progressBar,
		widget.NewSeparator(),
		container.NewHBox(a.scoreText, a.bandText),
	)

	return container.NewBorder(controls, nil, nil, nil, container.NewVScroll(a.narrative))
}

func (a *App) createHistoryTab() fyne.CanvasObject {
	a.historyTable = widget.NewTable(
		func() (int, int) {
			return len(a.entries) + 1, len(historyHeaders)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("Template")
		},
		func(id widget.TableCellID, cell fyne.CanvasObject) {
			label := cell.(*widget.Label)
			label.TextStyle = fyne.TextStyle{Bold: id.Row == 0}
			if id.Row == 0 {
				label.SetText(historyHeaders[id.Col])
				return
			}
			if id.Row-1 < len(a.entries) {
				label.SetText(historyCell(a.entries[id.Row-1], id.Col))
			}
		},
	)
	a.historyTable.SetColumnWidth(0, 50)
	a.historyTable.SetColumnWidth(1, 260)
	a.historyTable.SetColumnWidth(2, 80)
	a.historyTable.SetColumnWidth(3, 110)
	a.historyTable.SetColumnWidth(4, 160)
	a.historyTable.OnSelected = func(id widget.TableCellID) {
		if id.Row == 0 || id.Row-1 >= len(a.entries) {
			return
		}
		a.selected = id.Row - 1
		a.reportView.ParseMarkdown(export.RenderMarkdown(a.entries[a.selected]))
	}

	a.reportView = widget.NewRichTextFromMarkdown("_Select an analysis to see its report_")
	a.reportView.Wrapping = fyne.TextWrapWord

	a.exportBtn = widget.NewButton("Export to Excel", a.handleExport)
	a.clearBtn = widget.NewButton("Clear History", a.handleClear)
	a.exportBtn.Disable()
	a.clearBtn.Disable()

	split := container.NewVSplit(a.historyTable, container.NewVScroll(a.reportView))
	split.Offset = 0.4

	return container.NewBorder(nil, container.NewHBox(a.exportBtn, a.clearBtn), nil, nil, split)
}

// createSettingsTab creates the settings tab
func (a *App) createSettingsTab() fyne.CanvasObject {
	backendSelect := widget.NewSelect([]string{"vertex", "gemini", "stub"}, nil)
	backendSelect.SetSelected(a.config.Backend)

	projectEntry := widget.NewEntry()
	projectEntry.SetText(a.config.GoogleCloudProject)

	locationEntry := widget.NewEntry()
	locationEntry.SetText(a.config.GoogleCloudLocation)

	modelEntry := widget.NewEntry()
	modelEntry.SetText(a.config.Model)

	googleCredsEntry := widget.NewEntry()
	googleCredsEntry.SetText(a.config.GoogleCredentialsPath)

	gmailCredsEntry := widget.NewEntry()
	gmailCredsEntry.SetText(a.config.GmailCredentialsPath)

	form := widget.NewForm(
		widget.NewFormItem("Backend", backendSelect),
		widget.NewFormItem("Google Cloud Project", projectEntry),
		widget.NewFormItem("Google Cloud Location", locationEntry),
		widget.NewFormItem("Model", modelEntry),
		widget.NewFormItem("Google Credentials", a.browseField(googleCredsEntry)),
		widget.NewFormItem("Gmail Credentials", a.browseField(gmailCredsEntry)),
	)

	saveBtn := widget.NewButton("Save Settings", func() {
		a.config.Backend = backendSelect.Selected
		a.config.GoogleCloudProject = strings.TrimSpace(projectEntry.Text)
		a.config.GoogleCloudLocation = strings.TrimSpace(locationEntry.Text)
		a.config.Model = strings.TrimSpace(modelEntry.Text)
		a.config.GoogleCredentialsPath = strings.TrimSpace(googleCredsEntry.Text)
		a.config.GmailCredentialsPath = strings.TrimSpace(gmailCredsEntry.Text)

		if err := a.config.Save(); err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		dialog.ShowInformation("Success", "Settings saved successfully.\n"+backendRestartNote, a.mainWindow)
	})

	testBtn := widget.NewButton("Validate", func() {
		if err := a.config.Validate(); err != nil {
			dialog.ShowError(fmt.Errorf("validation failed: %w", err), a.mainWindow)
			return
		}
		dialog.ShowInformation("Success", "Configuration is valid", a.mainWindow)
	})

	return container.NewVBox(
		form,
		container.NewHBox(saveBtn, testBtn),
		widget.NewLabel(backendRestartNote),
	)
}

func (a *App) browseField(entry *widget.Entry) fyne.CanvasObject {
	btn := widget.NewButton("Browse...", func() {
		dialog.ShowFileOpen(func(uc fyne.URIReadCloser, err error) {
			if err == nil && uc != nil {
				entry.SetText(uc.URI().Path())
				uc.Close()
			}
		}, a.mainWindow)
	})
	return container.NewBorder(nil, nil, nil, btn, entry)
}

func (a *App) handleChooseFile() {
	dialog.ShowFileOpen(func(uc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if uc == nil {
			return
		}
		defer uc.Close()

		doc, err := ingestion.LoadDocument(uc.URI().Path())
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		a.resume = &doc
		a.fileLabel.SetText(doc.Name)
	}, a.mainWindow)
}

func (a *App) handleAnalyze() {
	if a.resume == nil {
		dialog.ShowError(errors.New("please choose a resume first"), a.mainWindow)
		return
	}

	in := agent.Input{
		Document:       *a.resume,
		JobDescription: a.jobDescText.Text,
		Label:          a.labelEntry.Text,
	}
	ctx := a.startWork()

	go func() {
		ledger, unlock := a.sessions.Lock(a.sessionID)
		entry, err := a.analyzer.Analyze(ctx, ledger, in)
		unlock()

		fyne.Do(func() {
			a.finishWork()
			if err != nil {
				a.showFailure(err)
				return
			}
			a.showEntry(entry)
			a.refreshHistory()
		})
	}()
}

func (a *App) handleGmail() {
	subject := strings.TrimSpace(a.subjectEntry.Text)
	if subject == "" {
		dialog.ShowError(errors.New("please enter an email subject filter"), a.mainWindow)
		return
	}

	credsPath := a.config.GmailCredentialsPath
	if _, err := os.Stat(credsPath); err != nil {
		dialog.ShowError(fmt.Errorf("%s not found. Please configure Gmail credentials in Settings", credsPath), a.mainWindow)
		return
	}

	job := a.jobDescText.Text
	ctx := a.startWork()
	a.progressLabel.SetText("Connecting to Gmail... check the console if authorization is needed")

	go func() {
		entries, err := a.analyzeGmail(ctx, subject, job)

		fyne.Do(func() {
			a.finishWork()
			if err != nil {
				a.showFailure(err)
				return
			}
			a.refreshHistory()
			if len(entries) > 0 {
				a.showEntry(entries[len(entries)-1])
			}
			a.progressLabel.SetText(fmt.Sprintf("Complete! Analysed %d resumes", len(entries)))
			a.fyneApp.SendNotification(&fyne.Notification{
				Title:   "Analysis Complete",
				Content: fmt.Sprintf("Analysed %d resumes from Gmail", len(entries)),
			})
		})
	}()
}

func (a *App) analyzeGmail(ctx context.Context, subject, job string) ([]models.HistoryEntry, error) {
	source, err := ingestion.NewGmailSource(ctx, ingestion.GmailOptions{
		CredentialsPath: a.config.GmailCredentialsPath,
		TokenPath:       a.config.GmailTokenPath,
		In:              os.Stdin,
		Out:             os.Stdout,
	})
	if err != nil {
		return nil, fmt.Errorf("gmail authentication failed: %w", err)
	}

	docs, err := source.FetchResumes(ctx, subject)
	if err != nil {
		return nil, err
	}

	ledger, unlock := a.sessions.Lock(a.sessionID)
	defer unlock()
	return a.analyzer.AnalyzeAll(ctx, ledger, docs, job)
}

// handleCancel handles cancellation of processing
func (a *App) handleCancel() {
	if a.cancelFunc != nil {
		a.cancelFunc()
		a.progressLabel.SetText("Canceling...")
	}
}

func (a *App) handleExport() {
	if len(a.entries) == 0 {
		dialog.ShowError(errors.New("no analyses to export"), a.mainWindow)
		return
	}

	dialog.ShowFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if uc == nil {
			return
		}
		outputPath := uc.URI().Path()
		uc.Close()

		written, err := export.ExportHistoryToExcel(a.entries, outputPath)
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to export: %w", err), a.mainWindow)
			return
		}
		dialog.ShowInformation("Success", "History exported to "+filepath.Base(written), a.mainWindow)
	}, a.mainWindow)
}

func (a *App) handleClear() {
	dialog.ShowConfirm("Clear History", "Remove every analysis from this session?", func(ok bool) {
		if !ok {
			return
		}
		ledger, unlock := a.sessions.Lock(a.sessionID)
		ledger.Clear()
		unlock()
		a.refreshHistory()
	}, a.mainWindow)
}

// startWork disables the inputs and returns the context of the new run
func (a *App) startWork() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	a.cancelFunc = cancel
	a.analyzeBtn.Disable()
	a.gmailBtn.Disable()
	a.cancelBtn.Enable()
	a.progressBar.SetValue(0)
	return ctx
}

func (a *App) finishWork() {
	if a.cancelFunc != nil {
		a.cancelFunc()
		a.cancelFunc = nil
	}
	a.analyzeBtn.Enable()
	a.gmailBtn.Enable()
	a.cancelBtn.Disable()
}

func (a *App) showFailure(err error) {
	if errors.Is(err, context.Canceled) {
		a.progressLabel.SetText("Analysis canceled")
		return
	}
	a.progressLabel.SetText("Analysis failed")
	dialog.ShowError(err, a.mainWindow)
}

func (a *App) showEntry(entry models.HistoryEntry) {
	band := entry.Band()
	c := bandColor(band)

	a.scoreText.Text = fmt.Sprintf("%d/100", entry.Score)
	a.scoreText.Color = c
	a.scoreText.Refresh()
	a.bandText.Text = band.Label + " match"
	if entry.Result.ParseDegraded {
		a.bandText.Text += " (unstructured answer)"
	}
	a.bandText.Color = c
	a.bandText.Refresh()

	a.narrative.ParseMarkdown(export.RenderText(entry.Result))
}

func (a *App) refreshHistory() {
	ledger, unlock := a.sessions.Lock(a.sessionID)
	a.entries = ledger.List()
	unlock()

	a.selected = -1
	a.historyTable.UnselectAll()
	a.historyTable.Refresh()
	a.reportView.ParseMarkdown("_Select an analysis to see its report_")

	if len(a.entries) == 0 {
		a.exportBtn.Disable()
		a.clearBtn.Disable()
		return
	}
	a.exportBtn.Enable()
	a.clearBtn.Enable()
}

func historyCell(e models.HistoryEntry, col int) string {
	switch col {
	case 0:
		return fmt.Sprintf("%d", e.Ordinal)
	case 1:
		return e.Label
	case 2:
		return fmt.Sprintf("%d", e.Score)
	case 3:
		return e.Band().Label
	case 4:
		return e.Timestamp.Local().Format("2006-01-02 15:04")
	}
	return ""
}

// bandColor parses the band's #rrggbb colour
func bandColor(b models.Band) color.Color {
	var r, g, bl uint8
	if _, err := fmt.Sscanf(b.Hex, "#%02x%02x%02x", &r, &g, &bl); err != nil {
		return color.Gray{Y: 0x80}
	}
	return color.NRGBA{R: r, G: g, B: bl, A: 0xff}
}
