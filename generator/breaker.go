package generator

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerSettings tunes BreakerLLM.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker once exceeded.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a probe.
	OpenTimeout time.Duration
}

// BreakerLLM stops calling a failing endpoint for a while. Only transient
// failures count against it; rate limits and bad answers do not.
type BreakerLLM struct {
	next LLMClient
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerLLM(next LLMClient, s BreakerSettings, log logrus.FieldLogger) (*BreakerLLM, error) {
	if next == nil {
		return nil, errors.New("llm client is required")
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-endpoint",
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || Classify(err) != KindTransient
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithField("component", "breaker").
				Infof("circuit breaker %q changed from %s to %s", name, from.String(), to.String())
		},
	})
	return &BreakerLLM{next: next, cb: cb}, nil
}

func (b *BreakerLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State exposes the breaker state for health reporting.
func (b *BreakerLLM) State() string {
	return b.cb.State().String()
}
