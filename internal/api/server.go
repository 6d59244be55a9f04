package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fmuoria/resumepro-agent/internal/agent"
	"github.com/fmuoria/resumepro-agent/internal/export"
	"github.com/fmuoria/resumepro-agent/internal/history"
	"github.com/fmuoria/resumepro-agent/internal/ingestion"
	"github.com/fmuoria/resumepro-agent/internal/llm"
	"github.com/fmuoria/resumepro-agent/internal/models"
)

// SessionHeader carries the session id in requests and responses
const SessionHeader = "X-Session-ID"

// maxUploadSize bounds the multipart form of POST /analyze
const maxUploadSize = 32 << 20

// Server handles HTTP requests
type Server struct {
	analyzer *agent.ResumeAnalyzer
	sessions *history.Store
}

// NewServer creates a new API server
func NewServer(analyzer *agent.ResumeAnalyzer, sessions *history.Store) *Server {
	if sessions == nil {
		sessions = history.NewStore()
	}
	return &Server{
		analyzer: analyzer,
		sessions: sessions,
	}
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /analyze", s.withSession(s.handleAnalyze))
	mux.HandleFunc("GET /history", s.withExistingSession(s.handleHistory))
	mux.HandleFunc("DELETE /history", s.withExistingSession(s.handleClearHistory))
	mux.HandleFunc("GET /history/export", s.withExistingSession(s.handleExport))
	mux.HandleFunc("GET /history/{ordinal}/report", s.withExistingSession(s.handleReport))
	mux.HandleFunc("DELETE /session", s.handleEndSession)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	return s.loggingMiddleware(mux)
}

// handleRoot provides API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "ResumePro Agent",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"POST /analyze":                 "Analyze a resume (multipart: resume, job_description, label)",
			"GET /history":                  "List this session's analyses, newest first",
			"DELETE /history":               "Clear this session's history",
			"GET /history/export":           "Download this session's history as an Excel workbook",
			"GET /history/{ordinal}/report": "Download one report (?format=md|txt)",
			"DELETE /session":               "Forget this session and its history",
			"GET /health":                   "Health check",
		},
		"session_header": SessionHeader,
	})
}

// handleHealth provides a health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

type entryResponse struct {
	models.HistoryEntry
	Band models.Band `json:"band"`
}

func newEntryResponse(e models.HistoryEntry) entryResponse {
	return entryResponse{HistoryEntry: e, Band: e.Band()}
}

// handleAnalyze runs one analysis for the uploaded resume
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse form: %v", err))
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "resume file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read upload: %v", err))
		return
	}

	entry, err := s.analyzer.Analyze(r.Context(), nil, agent.Input{
		Document:       models.Document{Name: header.Filename, Data: data},
		JobDescription: r.FormValue("job_description"),
		Label:          r.FormValue("label"),
	})
	if err != nil {
		status, message := statusForError(err)
		log.Printf("Analysis of %s failed: %v", header.Filename, err)
		s.respondError(w, status, message)
		return
	}

	s.respondJSON(w, http.StatusOK, newEntryResponse(entry))
}

// handleHistory lists the session's entries, newest first
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ledger, _ := history.LedgerFromContext(r.Context())
	list := ledger.List()

	out := make([]entryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, newEntryResponse(e))
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(out),
		"entries": out,
	})
}

// handleClearHistory empties the session's ledger
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	ledger, _ := history.LedgerFromContext(r.Context())
	ledger.Clear()
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "cleared",
	})
}

// handleEndSession forgets the session named by the header
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	if !history.ValidSessionID(id) {
		s.respondError(w, http.StatusBadRequest, SessionHeader+" header is required")
		return
	}
	s.sessions.Delete(id)
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ended",
	})
}

// handleExport streams the session's history as an Excel workbook
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ledger, _ := history.LedgerFromContext(r.Context())

	var buf bytes.Buffer
	if err := export.WriteHistoryWorkbook(ledger.List(), &buf); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := fmt.Sprintf("resumepro_history_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Failed to write export: %v", err)
	}
}

// handleReport renders one entry as Markdown or plain text
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ordinal, err := strconv.Atoi(r.PathValue("ordinal"))
	if err != nil || ordinal < 1 {
		s.respondError(w, http.StatusBadRequest, "ordinal must be a positive integer")
		return
	}

	ledger, _ := history.LedgerFromContext(r.Context())
	entry, ok := ledger.Get(ordinal)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("no analysis #%d in this session", ordinal))
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	body, err := export.Render(entry, format)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType, ext := "text/markdown; charset=utf-8", "md"
	if format == export.FormatText || format == "text" {
		contentType, ext = "text/plain; charset=utf-8", "txt"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"resume_report_%d.%s\"", ordinal, ext))
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, body); err != nil {
		log.Printf("Failed to write report: %v", err)
	}
}

// statusForError maps a failed analysis to an HTTP status and a safe message
func statusForError(err error) (int, string) {
	var extractErr *ingestion.DocumentExtractionError
	if errors.As(err, &extractErr) {
		return http.StatusUnprocessableEntity, extractErr.Error()
	}

	var reqErr *llm.RequestError
	if errors.As(err, &reqErr) {
		if llm.IsTransient(err) {
			return http.StatusServiceUnavailable, reqErr.Error()
		}
		return http.StatusBadGateway, reqErr.Error()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "analysis timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "request cancelled"
	}
	return http.StatusInternalServerError, "analysis failed"
}

// withSession resolves the session of the request, serializes requests that
// share it and passes its ledger through the request context.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if !history.ValidSessionID(id) {
			id = history.NewSessionID()
		}
		w.Header().Set(SessionHeader, id)

		ledger, unlock := s.sessions.Lock(id)
		defer unlock()

		next(w, r.WithContext(history.WithLedger(r.Context(), ledger)))
	}
}

// withExistingSession is withSession for routes that only read or reset
// history. An unknown or missing id gets an empty throwaway ledger and no
// session is stored for it.
func (s *Server) withExistingSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if history.ValidSessionID(id) {
			w.Header().Set(SessionHeader, id)
			if ledger, unlock, ok := s.sessions.LockExisting(id); ok {
				defer unlock()
				next(w, r.WithContext(history.WithLedger(r.Context(), ledger)))
				return
			}
		}
		next(w, r.WithContext(history.WithLedger(r.Context(), history.NewLedger())))
	}
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// respondError sends an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %s %d %s", r.Method, r.URL.Path, r.RemoteAddr, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
