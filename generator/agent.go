package generator

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Agent turns a free-text description into a DiagramResult, retrying
// transient endpoint failures with exponential backoff. An Agent holds no
// per-call state, so concurrent Generate calls are independent.
type Agent struct {
	llm         LLMClient
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	log         logrus.FieldLogger
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxAttempts caps the number of endpoint calls per Generate.
func WithMaxAttempts(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the backoff unit: attempt k waits base*2^(k-1) first.
func WithBaseDelay(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.baseDelay = d
		}
	}
}

// WithLogger routes attempt diagnostics to log.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Agent) {
		if log != nil {
			a.log = log
		}
	}
}

// WithSleep replaces the backoff wait; tests use it to skip real delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Agent) {
		if sleep != nil {
			a.sleep = sleep
		}
	}
}

func NewAgent(llm LLMClient, opts ...Option) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	a := &Agent{
		llm:         llm,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		sleep:       sleepContext,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Generate asks the model for a diagram of description. It returns either a
// result with non-empty Markup or a *GenerationError, never both.
func (a *Agent) Generate(ctx context.Context, description string) (DiagramResult, error) {
	prompt := BuildDiagramPrompt(description)
	log := a.log.WithField("component", "generator")

	var lastErr error
	var lastKind ErrorKind
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := a.backoff(attempt)
			log.Debugf("waiting %s before attempt %d", delay, attempt)
			if err := a.sleep(ctx, delay); err != nil {
				log.WithError(lastErr).Warnf("gave up during backoff: %v", err)
				return DiagramResult{}, &GenerationError{
					Kind:     lastKind,
					Message:  userMessage(lastKind),
					Attempts: attempt - 1,
					Err:      lastErr,
				}
			}
		}

		res, err := a.attempt(ctx, prompt)
		if err == nil {
			if attempt > 1 {
				log.Infof("generation succeeded on attempt %d", attempt)
			}
			return res, nil
		}

		kind := Classify(err)
		lastErr, lastKind = err, kind
		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"kind":    kind.String(),
		}).WithError(err).Warn("generation attempt failed")

		if !retryable(kind) || ctx.Err() != nil {
			return DiagramResult{}, &GenerationError{
				Kind:     kind,
				Message:  userMessage(kind),
				Attempts: attempt,
				Err:      err,
			}
		}
	}

	log.WithError(lastErr).Errorf("generation failed after %d attempts", a.maxAttempts)
	return DiagramResult{}, &GenerationError{
		Kind:     lastKind,
		Message:  msgExhausted,
		Attempts: a.maxAttempts,
		Err:      lastErr,
	}
}

func (a *Agent) attempt(ctx context.Context, prompt Prompt) (DiagramResult, error) {
	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return DiagramResult{}, err
	}
	return ParseResult(raw)
}

// backoff is the wait before the given 1-based attempt: base*2^(attempt-1).
func (a *Agent) backoff(attempt int) time.Duration {
	return a.baseDelay << uint(attempt-1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
