package evidence

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/common/metrics"
	"citizenship-adjudicator/internal/models"
)

// GuardConfig tunes the Guarded decorator.
type GuardConfig struct {
	Timeout       time.Duration // per attempt
	RatePerSecond float64       // <= 0 disables throttling
	Burst         int
	MaxAttempts   int
	RetryDelay    time.Duration // doubled after each failed attempt
}

// Guarded wraps a Provider with a per-call timeout, a shared token bucket and
// retries with exponential backoff on retryable errors. One Guarded is meant
// to be shared by every job so the limiter throttles the remote system as a
// whole.
type Guarded struct {
	next    Provider
	name    string
	cfg     GuardConfig
	limiter *rate.Limiter
	log     logger.Logger
}

func NewGuarded(next Provider, name string, cfg GuardConfig, log logger.Logger) *Guarded {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	}
	return &Guarded{
		next:    next,
		name:    name,
		cfg:     cfg,
		limiter: limiter,
		log:     log.WithFields(map[string]interface{}{"component": "evidence", "provider": name}),
	}
}

func (g *Guarded) Navigate(ctx context.Context, caseID string) (models.CaseFacts, error) {
	var facts models.CaseFacts
	err := g.call(ctx, "navigate", caseID, func(ctx context.Context) error {
		var err error
		facts, err = g.next.Navigate(ctx, caseID)
		return err
	})
	return facts, err
}

func (g *Guarded) CheckDocument(ctx context.Context, caseID, documentName string) (bool, string, error) {
	var (
		valid bool
		text  string
	)
	err := g.call(ctx, "check_document", caseID, func(ctx context.Context) error {
		var err error
		valid, text, err = g.next.CheckDocument(ctx, caseID, documentName)
		return err
	})
	if err != nil {
		return false, "", err
	}
	return valid, text, nil
}

func (g *Guarded) ReadFields(ctx context.Context, caseID string) (map[string]string, error) {
	var fields map[string]string
	err := g.call(ctx, "read_fields", caseID, func(ctx context.Context) error {
		var err error
		fields, err = g.next.ReadFields(ctx, caseID)
		return err
	})
	return fields, err
}

func (g *Guarded) call(ctx context.Context, op, caseID string, fn func(ctx context.Context) error) error {
	delay := g.cfg.RetryDelay
	var err error

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if g.limiter != nil {
			if werr := g.limiter.Wait(ctx); werr != nil {
				return NewProviderError(ErrorRateLimited, g.name, op, "rate limiter wait aborted", werr)
			}
		}

		err = g.attempt(ctx, op, fn)
		if err == nil {
			return nil
		}
		metrics.EvidenceCallFailures.WithLabelValues(op, string(CategoryOf(err))).Inc()

		if !IsRetryable(err) || attempt == g.cfg.MaxAttempts || ctx.Err() != nil {
			break
		}

		g.log.Warn("evidence call failed, retrying", map[string]interface{}{
			"operation":   op,
			"caseId":      caseID,
			"attempt":     attempt,
			"maxAttempts": g.cfg.MaxAttempts,
			"nextRetryIn": delay.String(),
			"error":       err.Error(),
		})

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

func (g *Guarded) attempt(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	callCtx := ctx
	cancel := func() {}
	if g.cfg.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
	}
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	metrics.EvidenceCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return NewProviderError(ErrorTimeout, g.name, op, "call exceeded "+g.cfg.Timeout.String(), err)
	}
	if ctx.Err() != nil {
		return NewProviderError(ErrorInternal, g.name, op, "call cancelled", err)
	}
	return NewProviderError(ErrorUnavailable, g.name, op, "call failed", err)
}
