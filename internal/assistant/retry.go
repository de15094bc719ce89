package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Retry policy for the completion call.
const (
	maxAttempts       = 3
	initialRetryDelay = 2000 * time.Millisecond
)

// Retry reason classifications passed to RetryNotify.
const (
	ReasonRateLimited = "rate_limited"
	ReasonOverloaded  = "overloaded"
)

// completeWithRetry calls the generator, retrying transient provider
// failures with a doubling delay. Non-transient errors fail immediately.
func (a *Assistant) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	delay := initialRetryDelay
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}

		reply, err := a.generator.Generate(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		reason := transientReason(err)
		if reason == "" {
			return "", fmt.Errorf("generating completion: %w", err)
		}
		if attempt == maxAttempts {
			break
		}

		a.logger.Warn("completion failed, retrying",
			"attempt", attempt,
			"reason", reason,
			"delay", delay,
			"error", err)
		if a.onRetry != nil {
			a.onRetry(attempt, delay, reason)
		}
		if err := a.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}

	return "", fmt.Errorf("generating completion after %d attempts: %w", maxAttempts, lastErr)
}

// transientReason classifies err as a retryable provider failure. It
// returns the classification, or "" when the error is not transient.
func transientReason(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"):
		return ReasonRateLimited
	case strings.Contains(msg, "503"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "unavailable"):
		return ReasonOverloaded
	}
	return ""
}
