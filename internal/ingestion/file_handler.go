package ingestion

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fmuoria/resumepro-agent/internal/models"
)

// FileHandler reads resume files from disk and archives uploads
type FileHandler struct {
	uploadsDir string
}

// NewFileHandler creates a new file handler
func NewFileHandler(uploadsDir string) *FileHandler {
	return &FileHandler{
		uploadsDir: uploadsDir,
	}
}

// Enabled reports whether an uploads directory is configured
func (fh *FileHandler) Enabled() bool {
	return fh.uploadsDir != ""
}

// SaveUploadedFile saves an uploaded file to the uploads directory.
// Only the base name of filename is used.
func (fh *FileHandler) SaveUploadedFile(filename string, content io.Reader) (string, error) {
	if !fh.Enabled() {
		return "", errors.New("no uploads directory configured")
	}
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", filename)
	}

	// Ensure uploads directory exists
	if err := os.MkdirAll(fh.uploadsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	filePath := filepath.Join(fh.uploadsDir, name)
	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filePath, nil
}

// LoadDocument reads one resume file and extracts its text
func LoadDocument(path string) (models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	doc := models.Document{Name: filepath.Base(path), Data: data}
	text, err := ExtractText(data, doc.Name)
	if err != nil {
		return doc, err
	}
	doc.Text = text
	return doc, nil
}

// LoadDocuments loads every resume file of the uploads directory in name order.
// Files whose text cannot be extracted are returned with empty Text.
func (fh *FileHandler) LoadDocuments() ([]models.Document, error) {
	files, err := os.ReadDir(fh.uploadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Document{}, nil
		}
		return nil, fmt.Errorf("failed to read uploads directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !IsResumeFile(file.Name()) {
			continue
		}
		names = append(names, file.Name())
	}
	sort.Strings(names)

	documents := make([]models.Document, 0, len(names))
	for _, name := range names {
		doc, err := LoadDocument(filepath.Join(fh.uploadsDir, name))
		var extractErr *DocumentExtractionError
		if err != nil && !errors.As(err, &extractErr) {
			return nil, err
		}
		documents = append(documents, doc)
	}
	return documents, nil
}

// IsResumeFile reports whether name has an extension ExtractText supports
func IsResumeFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx", ".txt":
		return true
	}
	return false
}
