package ingestion

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	// BinarySampleSize is the number of bytes to sample for binary detection
	BinarySampleSize = 1000
	// BinaryThreshold is the proportion of non-printable characters that indicates binary data
	BinaryThreshold = 0.3
)

// Document kinds understood by ExtractText
const (
	KindPDF  = "pdf"
	KindDOCX = "docx"
	KindText = "txt"
)

// DocumentExtractionError reports that no text could be read from a document
type DocumentExtractionError struct {
	Source string
	Reason string
	Err    error
}

func (e *DocumentExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot extract text from %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot extract text from %s: %s", e.Source, e.Reason)
}

func (e *DocumentExtractionError) Unwrap() error {
	return e.Err
}

// ErrUnsupportedType is wrapped by extraction errors for unknown document kinds
var ErrUnsupportedType = errors.New("unsupported file type")

// ExtractText returns the plain text of a PDF, DOCX or TXT document.
// The kind is taken from the file extension and falls back to the content's
// magic bytes. An empty result is an error.
func ExtractText(data []byte, fileName string) (string, error) {
	source := fileName
	if source == "" {
		source = "document"
	}
	if len(data) == 0 {
		return "", &DocumentExtractionError{Source: source, Reason: "file is empty"}
	}

	kind := DetectKind(data, fileName)

	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		text, err = extractPDF(data)
	case KindDOCX:
		text, err = extractDOCX(data)
	case KindText:
		text, err = extractPlain(data)
	default:
		return "", &DocumentExtractionError{
			Source: source,
			Reason: fmt.Sprintf("extension %q", filepath.Ext(fileName)),
			Err:    ErrUnsupportedType,
		}
	}
	if err != nil {
		return "", &DocumentExtractionError{Source: source, Reason: "failed to read " + kind, Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &DocumentExtractionError{Source: source, Reason: "no extractable text (scanned or image-only document?)"}
	}
	return text, nil
}

// DetectKind picks the document kind from the extension, then from magic bytes
func DetectKind(data []byte, fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	case ".txt", ".text", ".md":
		return KindText
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return KindPDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return KindDOCX
	case utf8.Valid(data) && !IsBinaryData(string(data)):
		return KindText
	}
	return ""
}

// extractPDF reads every page in order. The PDF library panics on some
// malformed files, so a panic is turned into an error.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return stripDocxXML(doc.Editable().GetContent()), nil
}

// stripDocxXML keeps the character data of document.xml, one line per paragraph
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var sb strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sb.String()
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				sb.WriteString("\t")
			}
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && sb.Len() > 0 {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

func extractPlain(data []byte) (string, error) {
	text := string(data)
	if IsBinaryData(text) {
		return "", errors.New("content is binary, not text")
	}
	return strings.ToValidUTF8(text, "�"), nil
}

// IsBinaryData checks if content appears to be binary (PDF/ZIP markers)
func IsBinaryData(content string) bool {
	if len(content) == 0 {
		return false
	}

	// Check for PDF magic number
	if strings.HasPrefix(content, "%PDF-") {
		return true
	}

	// Check for ZIP magic number (DOCX files)
	if strings.HasPrefix(content, "PK\x03\x04") {
		return true
	}

	sampleSize := min(BinarySampleSize, len(content))
	nonPrintable := 0
	for i := 0; i < sampleSize; i++ {
		ch := content[i]
		if ch < 32 && ch != '\n' && ch != '\r' && ch != '\t' {
			nonPrintable++
		}
	}

	return float64(nonPrintable)/float64(sampleSize) > BinaryThreshold
}
