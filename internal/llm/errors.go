package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Category classifies a failed model call
type Category string

const (
	CategoryTransient Category = "transient"
	CategoryAuth      Category = "auth"
	CategoryUnknown   Category = "unknown"
)

// RequestError is returned when a model call fails. Its message is sanitized
// and the provider error is not kept, so nothing downstream can print a secret.
type RequestError struct {
	Category Category
	Message  string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("analysis request failed (%s)", e.Category)
	}
	return fmt.Sprintf("analysis request failed (%s): %s", e.Category, e.Message)
}

// IsTransient reports whether err is a transient RequestError
func IsTransient(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Category == CategoryTransient
}

var keyParamPattern = regexp.MustCompile(`(?i)(key|api_key|access_token|token)=[^&\s"']+`)

// newRequestError classifies err and strips secrets from its text
func newRequestError(err error, secrets ...string) *RequestError {
	return &RequestError{
		Category: classify(err),
		Message:  sanitize(err.Error(), secrets...),
	}
}

func sanitize(msg string, secrets ...string) string {
	for _, s := range secrets {
		if s != "" {
			msg = strings.ReplaceAll(msg, s, "[REDACTED]")
		}
	}
	return keyParamPattern.ReplaceAllString(msg, "$1=[REDACTED]")
}

func classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTransient
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyHTTP(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyHTTP(apiErrPtr.Code)
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return classifyHTTP(gErr.Code)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return classifyGRPC(st.Code())
	}

	return classifyMessage(err.Error())
}

func classifyHTTP(code int) Category {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return CategoryAuth
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500:
		return CategoryTransient
	default:
		return CategoryUnknown
	}
}

func classifyGRPC(code codes.Code) Category {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return CategoryAuth
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
		return CategoryTransient
	default:
		return CategoryUnknown
	}
}

// classifyMessage is the fallback for errors that carry no status
func classifyMessage(msg string) Category {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "resourceexhausted"),
		strings.Contains(m, "resource exhausted"),
		strings.Contains(m, "429"),
		strings.Contains(m, "rate limit"),
		strings.Contains(m, "quota"),
		strings.Contains(m, "unavailable"),
		strings.Contains(m, "timeout"):
		return CategoryTransient
	case strings.Contains(m, "api key not valid"),
		strings.Contains(m, "permission_denied"),
		strings.Contains(m, "permission denied"),
		strings.Contains(m, "unauthenticated"),
		strings.Contains(m, "401"),
		strings.Contains(m, "403"):
		return CategoryAuth
	default:
		return CategoryUnknown
	}
}
