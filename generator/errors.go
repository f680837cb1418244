package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/sony/gobreaker"
)

// User-facing messages. Raw error detail only goes to the logs.
const (
	msgNetwork   = "Network error connecting to AI service. Please check your connection and try again."
	msgRateLimit = "Too many requests. Please wait a moment."
	msgGeneric   = "Failed to generate chart. Please try again."
	msgExhausted = "Unable to generate chart after multiple attempts."
)

// GenerationError is the only error Agent.Generate returns. Message is safe to
// show to end users.
type GenerationError struct {
	Kind     ErrorKind
	Message  string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string { return e.Message }

func (e *GenerationError) Unwrap() error { return e.Err }

// StatusError is a non-2xx answer from the text-generation endpoint.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm endpoint status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm endpoint status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Err }

// ResponseError reports a response that could not be turned into a
// DiagramResult. Truncated responses are worth another attempt, the rest are not.
type ResponseError struct {
	Truncated bool
	Err       error
}

func (e *ResponseError) Error() string {
	if e.Truncated {
		return fmt.Sprintf("truncated llm response: %v", e.Err)
	}
	return fmt.Sprintf("malformed llm response: %v", e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// ErrEmptyResponse is returned when the endpoint answered without any text.
var ErrEmptyResponse = errors.New("no response text generated")

// Classify maps an attempt failure onto the error taxonomy.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return KindRateLimit
		case statusErr.StatusCode >= 500:
			return KindTransient
		default:
			return KindUnknown
		}
	}

	var respErr *ResponseError
	if errors.As(err, &respErr) {
		if respErr.Truncated {
			return KindTransient
		}
		return KindMalformed
	}

	if errors.Is(err, ErrEmptyResponse) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) {
		return KindTransient
	}

	// The caller gave up; retrying would only fail again.
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}

	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindUnknown
}

// retryable reports whether a failure of this kind earns another attempt.
func retryable(kind ErrorKind) bool {
	return kind == KindTransient
}

// userMessage translates a terminal failure kind into the text shown to users.
func userMessage(kind ErrorKind) string {
	switch kind {
	case KindTransient:
		return msgNetwork
	case KindRateLimit:
		return msgRateLimit
	default:
		return msgGeneric
	}
}
