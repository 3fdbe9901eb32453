/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package retry reruns a whole provisioning run with exponential backoff.
// Individual remote calls are never retried; a run either completes or is
// started again from the top, which is safe because runs converge.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/go-logr/logr"

	"github.com/hpcsc/vault-setup/pkg/logger"
)

const (
	// InitialRetryDelay is the initial delay before the first retry
	InitialRetryDelay = 2 * time.Second

	// MaxRetryDelay is the maximum delay between retries
	MaxRetryDelay = time.Minute

	// BackoffMultiplier is the factor by which the delay increases
	BackoffMultiplier = 2.0

	// JitterFactor is the maximum random jitter as a fraction of the delay
	JitterFactor = 0.1
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	// InitialDelay is the initial delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Multiplier is the factor by which the delay increases
	Multiplier float64

	// JitterFactor is the maximum random jitter as a fraction of the delay
	JitterFactor float64

	// MaxRetries is the number of reruns after the first attempt. Zero
	// means a single attempt.
	MaxRetries int
}

// DefaultRetryConfig returns the default retry configuration with the given
// number of retries.
func DefaultRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		InitialDelay: InitialRetryDelay,
		MaxDelay:     MaxRetryDelay,
		Multiplier:   BackoffMultiplier,
		JitterFactor: JitterFactor,
		MaxRetries:   maxRetries,
	}
}

// CalculateBackoff calculates the backoff duration for a given retry count
func (c RetryConfig) CalculateBackoff(retryCount int) time.Duration {
	if retryCount <= 0 {
		return c.InitialDelay
	}

	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(retryCount))

	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	if c.JitterFactor > 0 {
		jitter := delay * c.JitterFactor * (2*rand.Float64() - 1) //nolint:gosec
		delay += jitter
	}

	if delay < float64(c.InitialDelay) {
		delay = float64(c.InitialDelay)
	}

	return time.Duration(delay)
}

// RetryResult represents the result of a retry decision
type RetryResult struct {
	// Retry indicates whether the run should be started again
	Retry bool

	// After is the duration to wait before the next attempt
	After time.Duration

	// RetryCount is the updated retry count
	RetryCount int

	// GiveUp indicates whether to stop retrying
	GiveUp bool
}

// ShouldRetry determines whether and when to retry based on the error
func ShouldRetry(err error, currentRetryCount int, config RetryConfig) RetryResult {
	if err == nil {
		return RetryResult{RetryCount: 0}
	}

	if !IsRetryableError(err) {
		return RetryResult{
			RetryCount: currentRetryCount,
			GiveUp:     true,
		}
	}

	newRetryCount := currentRetryCount + 1
	if newRetryCount > config.MaxRetries {
		return RetryResult{
			RetryCount: newRetryCount,
			GiveUp:     true,
		}
	}

	return RetryResult{
		Retry:      true,
		After:      config.CalculateBackoff(currentRetryCount),
		RetryCount: newRetryCount,
	}
}

// Do calls fn until it succeeds, fails with a non-retryable error, runs out
// of retries, or ctx is done. The last error is returned.
func Do(ctx context.Context, config RetryConfig, log logr.Logger, fn func(ctx context.Context) error) error {
	return do(ctx, config, log, fn, sleep)
}

func do(
	ctx context.Context,
	config RetryConfig,
	log logr.Logger,
	fn func(ctx context.Context) error,
	wait func(ctx context.Context, d time.Duration) error,
) error {
	log = logger.WithOperation(log, logger.OpSetup)
	retryCount := 0
	for {
		err := fn(ctx)
		result := ShouldRetry(err, retryCount, config)
		if !result.Retry {
			return err
		}

		log.Info("run failed, retrying",
			logger.KeyError, err.Error(),
			logger.KeyRetryCount, result.RetryCount,
			"after", result.After.String(),
		)
		if waitErr := wait(ctx, result.After); waitErr != nil {
			return err
		}
		retryCount = result.RetryCount
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
