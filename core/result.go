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

import "fmt"

// Result type discriminators.
const (
	ResultTypeObject = "object"
	ResultTypeList   = "list"
)

// Result is the envelope every capability returns. A logical failure is
// Success=false with a human-readable Error, never a Go error or panic.
type Result struct {
	Success    bool     `json:"success"`
	Result     any      `json:"result,omitempty"`
	Error      string   `json:"error,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	ResultType string   `json:"resultType"`
}

// DiscoveryPayload is the result payload of source discovery.
type DiscoveryPayload struct {
	DiscoveredURLs []string `json:"discovered_urls"`
}

// Success wraps a payload in a successful result.
func Success(payload any, resultType string) Result {
	return Result{
		Success:    true,
		Result:     payload,
		ResultType: resultType,
	}
}

// Failure converts err into a failed result of the given type.
func Failure(err error, resultType string) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result{
		Success:    false,
		Error:      msg,
		ResultType: resultType,
	}
}

// Recovered converts a recovered panic value into a failed result.
func Recovered(v any, resultType string) Result {
	return Failure(fmt.Errorf("%w: %v", ErrInternal, v), resultType)
}
