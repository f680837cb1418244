package generator

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
)

func TestBreakerOpensOnTransientFailures(t *testing.T) {
	down := &StatusError{StatusCode: http.StatusServiceUnavailable}
	replies := make([]scriptedReply, 5)
	for i := range replies {
		replies[i] = scriptedReply{err: down}
	}
	inner := &scriptedLLM{replies: replies}
	logger, _ := logtest.NewNullLogger()

	b, err := NewBreakerLLM(inner, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, logger)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := b.Complete(context.Background(), Prompt{}); !errors.Is(err, down) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	_, err = b.Complete(context.Background(), Prompt{})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if Classify(err) != KindTransient {
		t.Fatal("open breaker should classify as transient")
	}
	if inner.calls() != 3 {
		t.Fatalf("inner calls = %d, want 3", inner.calls())
	}
	if b.State() != gobreaker.StateOpen.String() {
		t.Fatalf("state = %s", b.State())
	}
}

func TestBreakerIgnoresRateLimits(t *testing.T) {
	limited := &StatusError{StatusCode: http.StatusTooManyRequests}
	inner := &scriptedLLM{replies: []scriptedReply{
		{err: limited}, {err: limited}, {err: limited}, {text: validAnswer},
	}}
	b, err := NewBreakerLLM(inner, BreakerSettings{ConsecutiveFailures: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		_, _ = b.Complete(context.Background(), Prompt{})
	}
	out, err := b.Complete(context.Background(), Prompt{})
	if err != nil || out != validAnswer {
		t.Fatalf("got %q, %v", out, err)
	}
}
