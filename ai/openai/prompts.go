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

package openai

import "fmt"

// buildSystemPrompt returns the summarization instructions for the given
// word bounds.
func buildSystemPrompt(minWords, maxWords int) string {
	return fmt.Sprintf(`You are a news summarization assistant.

Summarize the text supplied by the user in plain prose.

RULES:
1. Use between %d and %d words.
2. Keep only facts stated in the text. Do not add outside knowledge.
3. Prefer concrete names, numbers and dates over general statements.
4. Do not mention the text itself ("the article says", "this passage").
5. Output the summary only. No headings, lists or markdown.`, minWords, maxWords)
}
