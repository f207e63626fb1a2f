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

package core

import "errors"

// Error taxonomy. Concrete errors wrap one of these so callers can
// branch with errors.Is.
var (
	// ErrTransientNetwork indicates a timeout, connection reset or a
	// recoverable non-2xx status. Retried within a tier's budget.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrAccessDenied indicates an explicit blocking status.
	// Skips the remaining retries and escalates to the next tier.
	ErrAccessDenied = errors.New("access denied")

	// ErrBackendUnavailable indicates a discovery backend cannot serve the
	// request (missing credential, quota, malformed response).
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrValidation indicates malformed input rejected before any work.
	ErrValidation = errors.New("validation error")

	// ErrInternal indicates an unexpected failure inside a capability.
	ErrInternal = errors.New("internal error")
)

// Validation errors
var (
	// ErrEmptyTopic indicates the discovery topic is blank.
	ErrEmptyTopic = errors.New("topic cannot be empty")

	// ErrInvalidCount indicates a non-positive desired source count.
	ErrInvalidCount = errors.New("desired count must be positive")

	// ErrInvalidURL indicates a URL that is not absolute http(s).
	ErrInvalidURL = errors.New("url must be absolute http or https")

	// ErrEmptyURLList indicates a batch fetch without URLs.
	ErrEmptyURLList = errors.New("url list cannot be empty")

	// ErrEmptyQuery indicates a blank semantic filter query.
	ErrEmptyQuery = errors.New("query cannot be empty")
)

// Classify returns the taxonomy name for err, or "internal" when err does
// not wrap a known kind.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrTransientNetwork):
		return "transient_network"
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_unavailable"
	default:
		return "internal"
	}
}
