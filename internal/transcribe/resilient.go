package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type Policy struct {
	// Timeout bounds a single attempt. Zero means no per-attempt deadline.
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	// BreakerFailures consecutive failures open the circuit. Zero disables it.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Resilient wraps a provider with per-attempt timeouts, bounded retries
// of transient failures and a circuit breaker.
type Resilient struct {
	next    Transcriber
	policy  Policy
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewResilient(name string, next Transcriber, policy Policy, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	r := &Resilient{next: next, policy: policy, logger: logger}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: policy.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return policy.BreakerFailures > 0 && counts.ConsecutiveFailures >= policy.BreakerFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Resilient(): circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: countsAsHealthy,
	})
	return r
}

func (r *Resilient) Transcribe(ctx context.Context, audio Audio, opts Options) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, r.policy.Backoff); err != nil {
				return nil, lastErr
			}
			r.logger.Warn("Resilient.Transcribe(): retrying transcription",
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))
		}

		result, err := r.attempt(ctx, audio, opts)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil || !isTransient(err) {
			break
		}
	}
	return nil, lastErr
}

func (r *Resilient) attempt(ctx context.Context, audio Audio, opts Options) (*Result, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		attemptCtx := ctx
		if r.policy.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
			defer cancel()
		}
		return r.next.Transcribe(attemptCtx, audio, opts)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	result, _ := out.(*Result)
	return result, nil
}

// State exposes the breaker state for health reporting.
func (r *Resilient) State() string {
	return r.breaker.State().String()
}

func isTransient(err error) bool {
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func countsAsHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.badInput()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
