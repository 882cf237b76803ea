package utils

import (
	"fmt"
	"time"
)

// ErrorClass tells the retry loop how to treat a failed attempt.
type ErrorClass int

const (
	// Retryable errors consume an attempt and are retried after the delay.
	Retryable ErrorClass = iota
	// Terminal errors stop the loop immediately; the operation is given up
	// but the enclosing batch keeps running.
	Terminal
	// Fatal errors stop the loop immediately and abort the enclosing run.
	Fatal
)

// RetryResult is the tri-state outcome of a retried operation.
type RetryResult int

const (
	RetryOK RetryResult = iota
	RetryGaveUp
	RetryFatal
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	// Classify decides how an attempt's error is treated.
	// Nil classifies every error as Retryable.
	Classify func(error) ErrorClass
	Logger   *Logger
}

// Do executes fn with fixed-delay retry logic. It returns RetryOK on the
// first success, RetryGaveUp when a Terminal error is seen or the attempt
// budget is exhausted, and RetryFatal when a Fatal error is seen. The last
// attempt's error accompanies any non-OK result.
func (r *RetryConfig) Do(operationName string, fn func() error) (RetryResult, error) {
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return RetryOK, nil
		}

		class := Retryable
		if r.Classify != nil {
			class = r.Classify(lastErr)
		}

		switch class {
		case Terminal:
			r.Logger.Warn("[retry] %s stopped, not retryable: %v", operationName, lastErr)
			return RetryGaveUp, lastErr
		case Fatal:
			r.Logger.Error("[retry] %s hit fatal condition: %v", operationName, lastErr)
			return RetryFatal, lastErr
		}

		if attempt < r.MaxAttempts {
			r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v — retrying in %v",
				operationName, attempt, r.MaxAttempts, lastErr, r.Delay)
			time.Sleep(r.Delay)
		}
	}

	return RetryGaveUp, fmt.Errorf("%s failed after %d attempts: %w",
		operationName, r.MaxAttempts, lastErr)
}
