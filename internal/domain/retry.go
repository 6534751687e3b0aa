package domain

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorClass splits send failures into the two retry policies.
type ErrorClass string

const (
	ErrorClassTransient ErrorClass = "TRANSIENT"
	ErrorClassPermanent ErrorClass = "PERMANENT"
)

func (c ErrorClass) String() string { return string(c) }

func (c ErrorClass) IsValid() bool {
	return c == ErrorClassTransient || c == ErrorClassPermanent
}

func ParseErrorClassFromString(s string) (ErrorClass, error) {
	ec := ErrorClass(strings.ToUpper(strings.TrimSpace(s)))
	if !ec.IsValid() {
		return "", fmt.Errorf("%w: invalid error class %q", ErrValidation, s)
	}
	return ec, nil
}

// ClassifyStatusCode maps a provider HTTP status to an error class.
// Rate limits and server errors resolve on retry; everything else in the
// 4xx range will fail the same way every time.
func ClassifyStatusCode(statusCode int) ErrorClass {
	if statusCode == http.StatusTooManyRequests {
		return ErrorClassTransient
	}
	if statusCode >= http.StatusInternalServerError && statusCode <= 599 {
		return ErrorClassTransient
	}
	return ErrorClassPermanent
}

// MaxRetries is the total number of re-sends before an entry is terminal.
const MaxRetries = 3

// retryBackoff is the fixed wait table between attempts. There is no growth
// beyond the table because entries are removed at MaxRetries.
var retryBackoff = [MaxRetries]time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
}

// RetryBackoff returns the wait before the next re-send given the number of
// retries already recorded.
func RetryBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount >= MaxRetries {
		retryCount = MaxRetries - 1
	}
	return retryBackoff[retryCount]
}

// RetryEntry wraps a transiently-failed attempt awaiting re-send. Entries are
// deleted, never flagged, once terminal: either the re-send succeeded or
// RetryCount reached MaxRetries.
type RetryEntry struct {
	ID          string
	AttemptID   string
	RetryCount  int
	NextRetryAt time.Time
	StatusCode  *int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Exhausted reports whether the entry has no re-sends left.
func (e *RetryEntry) Exhausted() bool {
	return e.RetryCount >= MaxRetries
}
