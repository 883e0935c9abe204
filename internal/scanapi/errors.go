package scanapi

import (
	"errors"
	"fmt"
)

var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// APIError is returned for any response that is not a success.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	kind := "server"
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		kind = "client"
	}

	return fmt.Sprintf("%s error: status=%q body=%s", kind, e.Status, e.Body)
}

// Retryable reports whether the request might succeed if sent again.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
