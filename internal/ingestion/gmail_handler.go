package ingestion

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/fmuoria/resumepro-agent/internal/models"
)

// GmailSource fetches resume attachments from a Gmail mailbox
type GmailSource struct {
	service *gmail.Service
}

// GmailOptions locates the OAuth client secret and the cached token.
// In and Out are used for the one-time authorization prompt.
type GmailOptions struct {
	CredentialsPath string
	TokenPath       string
	In              io.Reader
	Out             io.Writer
}

// NewGmailSource creates a read-only Gmail client. Without a cached token the
// user is asked to authorize in the browser and paste the code back.
func NewGmailSource(ctx context.Context, opts GmailOptions) (*GmailSource, error) {
	if opts.CredentialsPath == "" {
		opts.CredentialsPath = "credentials.json"
	}
	if opts.TokenPath == "" {
		opts.TokenPath = "token.json"
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	b, err := os.ReadFile(opts.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	tok, err := tokenFromFile(opts.TokenPath)
	if err != nil {
		tok, err = tokenFromWeb(ctx, config, opts.In, opts.Out)
		if err != nil {
			return nil, err
		}
		if err := saveToken(opts.TokenPath, tok); err != nil {
			return nil, err
		}
		fmt.Fprintf(opts.Out, "Saved Gmail token to %s\n", opts.TokenPath)
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail client: %w", err)
	}

	return &GmailSource{service: srv}, nil
}

// tokenFromWeb runs the copy-paste authorization code flow
func tokenFromWeb(ctx context.Context, config *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("unable to read authorization code: %w", err)
		}
		return nil, errors.New("unable to read authorization code: no input")
	}
	authCode := strings.TrimSpace(scanner.Text())

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

// tokenFromFile retrieves a token from a local file
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// saveToken saves a token to a file path
func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	return nil
}

// FetchResumes returns the resume attachments of every message whose subject
// matches. Each document is named "<Sender> - <file name>" and carries its
// extracted text; attachments that cannot be read are logged and skipped.
func (gs *GmailSource) FetchResumes(ctx context.Context, subject string) ([]models.Document, error) {
	user := "me"
	query := GmailQuery(subject)

	r, err := gs.service.Users.Messages.List(user).Q(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve messages: %w", err)
	}

	if len(r.Messages) == 0 {
		return nil, fmt.Errorf("no messages found with subject: %s", subject)
	}

	var docs []models.Document
	for _, msg := range r.Messages {
		message, err := gs.service.Users.Messages.Get(user, msg.Id).Context(ctx).Do()
		if err != nil {
			log.Printf("Unable to retrieve message %s: %v", msg.Id, err)
			continue
		}

		senderName := extractSenderName(message)

		for _, part := range attachmentParts(message.Payload) {
			attachment, err := gs.service.Users.Messages.Attachments.Get(user, msg.Id, part.Body.AttachmentId).Context(ctx).Do()
			if err != nil {
				log.Printf("Unable to retrieve attachment %s: %v", part.Filename, err)
				continue
			}

			data, err := decodeAttachment(attachment.Data)
			if err != nil {
				log.Printf("Unable to decode attachment %s: %v", part.Filename, err)
				continue
			}

			text, err := ExtractText(data, part.Filename)
			if err != nil {
				log.Printf("Skipping attachment %s from %s: %v", part.Filename, senderName, err)
				continue
			}

			docs = append(docs, models.Document{
				Name: senderName + " - " + part.Filename,
				Data: data,
				Text: text,
			})
		}
	}

	return docs, nil
}

// GmailQuery is the search used to find application emails
func GmailQuery(subject string) string {
	return fmt.Sprintf("subject:%s has:attachment", subject)
}

// attachmentParts walks the MIME tree and returns resume attachments
func attachmentParts(part *gmail.MessagePart) []*gmail.MessagePart {
	if part == nil {
		return nil
	}
	var out []*gmail.MessagePart
	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" && IsResumeFile(part.Filename) {
		out = append(out, part)
	}
	for _, child := range part.Parts {
		out = append(out, attachmentParts(child)...)
	}
	return out
}

// decodeAttachment accepts padded and unpadded base64url
func decodeAttachment(data string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}

// extractSenderName extracts the sender's name from email headers
func extractSenderName(message *gmail.Message) string {
	if message == nil || message.Payload == nil {
		return "Unknown"
	}
	for _, header := range message.Payload.Headers {
		if !strings.EqualFold(header.Name, "From") {
			continue
		}
		// Parse "Name <email@example.com>" format
		from := header.Value
		if idx := strings.Index(from, "<"); idx > 0 {
			name := strings.Trim(strings.TrimSpace(from[:idx]), `"`)
			if name != "" {
				return name
			}
		}
		// If no name, use email prefix
		from = strings.TrimLeft(from, "<")
		if idx := strings.Index(from, "@"); idx > 0 {
			return from[:idx]
		}
		return "Unknown"
	}
	return "Unknown"
}
