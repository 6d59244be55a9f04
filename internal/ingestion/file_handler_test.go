package ingestion

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/api/gmail/v1"
)

func TestNewFileHandler(t *testing.T) {
	fh := NewFileHandler("test_uploads")
	if fh == nil {
		t.Fatal("Expected non-nil FileHandler")
	}

	if fh.uploadsDir != "test_uploads" {
		t.Errorf("Expected uploadsDir 'test_uploads', got '%s'", fh.uploadsDir)
	}
	if NewFileHandler("").Enabled() {
		t.Error("handler without a directory should be disabled")
	}
}

func TestSaveUploadedFile(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "uploads")
	fh := NewFileHandler(tmpDir)

	path, err := fh.SaveUploadedFile("test_cv.txt", strings.NewReader("Test CV content"))
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "test_cv.txt")
	if path != expectedPath {
		t.Errorf("Expected path %s, got %s", expectedPath, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "Test CV content" {
		t.Errorf("Expected content 'Test CV content', got '%s'", string(data))
	}
}

func TestSaveUploadedFileStripsDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	fh := NewFileHandler(tmpDir)

	path, err := fh.SaveUploadedFile("../../etc/evil.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}
	if path != filepath.Join(tmpDir, "evil.txt") {
		t.Errorf("file escaped the uploads directory: %s", path)
	}
}

func TestSaveUploadedFileDisabled(t *testing.T) {
	if _, err := NewFileHandler("").SaveUploadedFile("a.txt", strings.NewReader("x")); err == nil {
		t.Error("expected an error without an uploads directory")
	}
}

func TestLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "JaneDoe_CV.txt")
	if err := os.WriteFile(path, []byte("Jane Doe\nGo developer"), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument returned error: %v", err)
	}
	if doc.Name != "JaneDoe_CV.txt" {
		t.Errorf("Name = %q", doc.Name)
	}
	if doc.Text != "Jane Doe\nGo developer" {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestLoadDocumentMissing(t *testing.T) {
	_, err := LoadDocument(filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	var extractErr *DocumentExtractionError
	if errors.As(err, &extractErr) {
		t.Error("a missing file is an I/O error, not an extraction error")
	}
}

func TestLoadDocuments(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "b_resume.txt"), []byte("Second resume"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "a_resume.txt"), []byte("First resume"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "c_empty.txt"), []byte("   "), 0644)
	os.WriteFile(filepath.Join(tmpDir, "notes.jpg"), []byte("ignored"), 0644)
	os.Mkdir(filepath.Join(tmpDir, "sub.txt"), 0755)

	docs, err := NewFileHandler(tmpDir).LoadDocuments()
	if err != nil {
		t.Fatalf("Failed to load documents: %v", err)
	}

	if len(docs) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(docs))
	}
	if docs[0].Name != "a_resume.txt" || docs[0].Text != "First resume" {
		t.Errorf("unexpected first document %+v", docs[0])
	}
	if docs[1].Text != "Second resume" {
		t.Errorf("unexpected second document %+v", docs[1])
	}
	if docs[2].Text != "" {
		t.Errorf("unreadable document should have empty text, got %q", docs[2].Text)
	}
}

func TestLoadDocumentsMissingDir(t *testing.T) {
	docs, err := NewFileHandler(filepath.Join(t.TempDir(), "none")).LoadDocuments()
	if err != nil || len(docs) != 0 {
		t.Errorf("expected no documents and no error, got %d, %v", len(docs), err)
	}
}

func TestExtractSenderName(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{"Name and address", "Jane Doe <jane@example.com>", "Jane Doe"},
		{"Quoted name", `"Doe, Jane" <jane@example.com>`, "Doe, Jane"},
		{"Bare address", "jane@example.com", "jane"},
		{"Angle address only", "<jane@example.com>", "jane"},
		{"Garbage", "nobody", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &gmail.Message{Payload: &gmail.MessagePart{
				Headers: []*gmail.MessagePartHeader{{Name: "From", Value: tt.from}},
			}}
			if got := extractSenderName(msg); got != tt.want {
				t.Errorf("extractSenderName() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := extractSenderName(&gmail.Message{}); got != "Unknown" {
		t.Errorf("message without payload: got %q", got)
	}
}

func TestAttachmentParts(t *testing.T) {
	payload := &gmail.MessagePart{
		Parts: []*gmail.MessagePart{
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: "hello"}},
			{Filename: "cv.pdf", Body: &gmail.MessagePartBody{AttachmentId: "a1"}},
			{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{Filename: "resume.docx", Body: &gmail.MessagePartBody{AttachmentId: "a2"}},
					{Filename: "photo.png", Body: &gmail.MessagePartBody{AttachmentId: "a3"}},
				},
			},
			{Filename: "inline.txt", Body: &gmail.MessagePartBody{}},
		},
	}

	parts := attachmentParts(payload)
	if len(parts) != 2 {
		t.Fatalf("expected 2 resume attachments, got %d", len(parts))
	}
	if parts[0].Filename != "cv.pdf" || parts[1].Filename != "resume.docx" {
		t.Errorf("unexpected attachments %q, %q", parts[0].Filename, parts[1].Filename)
	}
}

func TestDecodeAttachment(t *testing.T) {
	for _, in := range []string{"SmFuZQ==", "SmFuZQ"} {
		got, err := decodeAttachment(in)
		if err != nil || string(got) != "Jane" {
			t.Errorf("decodeAttachment(%q) = %q, %v", in, got, err)
		}
	}
}

func TestGmailQuery(t *testing.T) {
	if got := GmailQuery("Backend Engineer"); got != "subject:Backend Engineer has:attachment" {
		t.Errorf("GmailQuery() = %q", got)
	}
}
