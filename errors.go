package visitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAborted is returned when the caller cancelled a visit or download
	ErrAborted = fmt.Errorf("aborted: %w", context.Canceled)

	// ErrEmptyImage is returned for an image response without a payload
	ErrEmptyImage = errors.New("image payload is empty")

	// ErrInvalidURL is returned for URLs that are not absolute http(s)
	ErrInvalidURL = errors.New("invalid URL")
)

// StatusError reports a non-success HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.Code, e.Text())
}

// Text returns the reason phrase without the numeric code
func (e *StatusError) Text() string {
	if text := strings.TrimSpace(strings.TrimPrefix(e.Status, fmt.Sprint(e.Code))); text != "" {
		return text
	}
	return http.StatusText(e.Code)
}

// IsAborted reports whether err stems from caller cancellation
func IsAborted(err error) bool {
	return errors.Is(err, context.Canceled)
}

// canceled reports whether a transport error was caused by the caller cancelling ctx.
// Deadlines are failures, not aborts.
func canceled(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled)
}
