package phasr

import (
	"errors"
	"fmt"
)

// ErrEmptyPrompt is returned when a request carries no user prompt.
var ErrEmptyPrompt = errors.New("user prompt is empty")

// HTTPError is returned by adapters for any non-2xx reply. Its message is the
// response body verbatim so it can be shown to the user unchanged.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	}
	return e.Body
}
