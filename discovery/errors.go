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

package discovery

import (
	"fmt"

	"github.com/poiesic/gleaner/core"
)

var (
	// ErrMissingAPIKey indicates the credentialed backend has no key configured.
	ErrMissingAPIKey = fmt.Errorf("%w: search api key not configured", core.ErrBackendUnavailable)

	// ErrNoResults indicates a backend answered but yielded no usable links.
	ErrNoResults = fmt.Errorf("%w: no results", core.ErrBackendUnavailable)

	// ErrNoBackends indicates a discoverer was built without backends.
	ErrNoBackends = fmt.Errorf("%w: no discovery backends configured", core.ErrInternal)
)
