package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/sony/gobreaker"
)

func TestClassify(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"500", &StatusError{StatusCode: 500}, KindTransient},
		{"503 wrapped", fmt.Errorf("call: %w", &StatusError{StatusCode: 503}), KindTransient},
		{"429", &StatusError{StatusCode: 429}, KindRateLimit},
		{"400", &StatusError{StatusCode: 400}, KindUnknown},
		{"dial failure", &url.Error{Op: "Post", URL: "http://x", Err: dialErr}, KindTransient},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), KindTransient},
		{"unexpected eof", io.ErrUnexpectedEOF, KindTransient},
		{"empty response", ErrEmptyResponse, KindTransient},
		{"breaker open", gobreaker.ErrOpenState, KindTransient},
		{"truncated", &ResponseError{Truncated: true, Err: errors.New("x")}, KindTransient},
		{"malformed", &ResponseError{Err: errors.New("x")}, KindMalformed},
		{"cancelled", context.Canceled, KindUnknown},
		{"other", errors.New("overloaded"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestUserMessageNeverEmpty(t *testing.T) {
	for _, k := range []ErrorKind{KindUnknown, KindTransient, KindRateLimit, KindMalformed} {
		if userMessage(k) == "" {
			t.Fatalf("empty message for %v", k)
		}
	}
}

func TestGenerationErrorUnwraps(t *testing.T) {
	cause := &StatusError{StatusCode: 502}
	err := error(&GenerationError{Kind: KindTransient, Message: msgExhausted, Err: cause})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 502 {
		t.Fatalf("errors.As did not reach the cause: %v", err)
	}
	if err.Error() != msgExhausted {
		t.Fatalf("Error() = %q", err.Error())
	}
}
