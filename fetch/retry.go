// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/gleaner/core"
)

// RetryPolicy is the uniform retry wrapper applied to each tier.
// Only transient network errors are retried; any other error ends the
// loop at once so the caller can escalate.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Budget is the longest the policy can take when every attempt runs for
// perAttempt and fails.
func (p RetryPolicy) Budget(perAttempt time.Duration) time.Duration {
	if p.MaxAttempts <= 0 {
		return 0
	}
	n := time.Duration(p.MaxAttempts)
	return n*perAttempt + (n-1)*p.Delay
}

// Retry runs operation until it succeeds, returns a non-transient error,
// or the policy's attempts are spent. The wait between attempts is a fixed
// delay and ends early with ctx.Err() if ctx is done.
// Returns the error from the last attempt if all attempts fail.
// A nil logger logs to slog.Default().
func Retry(ctx context.Context, logger *slog.Logger, policy RetryPolicy, operation func() error) error {
	if policy.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if !errors.Is(lastErr, core.ErrTransientNetwork) {
			return lastErr
		}

		logger.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", policy.MaxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == policy.MaxAttempts {
			break
		}

		timer := time.NewTimer(policy.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
