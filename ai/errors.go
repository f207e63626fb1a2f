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

package ai

import (
	"fmt"

	"github.com/poiesic/gleaner/core"
)

var (
	// ErrEmbeddingFailed indicates the embedding backend returned an error
	// or a malformed response.
	ErrEmbeddingFailed = fmt.Errorf("embedding failed: %w", core.ErrInternal)

	// ErrSummarizationFailed indicates the summarization backend failed.
	ErrSummarizationFailed = fmt.Errorf("summarization failed: %w", core.ErrInternal)
)
