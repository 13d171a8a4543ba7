// Copyright 2025 walteh LLC
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

package text

import (
	"context"
	"io"

	"gitlab.com/tozd/go/errors"
)

var _ Replacer = (*FlexibleTextReplacer)(nil)

// FlexibleTextReplacer implements Replacer on top of Apply
type FlexibleTextReplacer struct{}

// NewFlexibleTextReplacer creates a new FlexibleTextReplacer
func NewFlexibleTextReplacer() *FlexibleTextReplacer {
	return &FlexibleTextReplacer{}
}

// ReplaceText implements Replacer.ReplaceText
func (r *FlexibleTextReplacer) ReplaceText(ctx context.Context, content io.Reader, rules []Rule) (*ReplacementResult, error) {
	originalContent, err := io.ReadAll(content)
	if err != nil {
		return nil, errors.Errorf("reading content: %w", err)
	}

	result := &ReplacementResult{
		OriginalContent: originalContent,
		ModifiedContent: originalContent,
		Results:         make([]Result, 0, len(rules)),
	}

	current := string(originalContent)
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("replacing text: %w", err)
		}

		res := Apply(current, rule)
		result.Results = append(result.Results, res)
		if res.Occurrences > 0 {
			result.WasModified = true
			result.ReplacementCount += res.Occurrences
			current = res.Content
		}
	}

	result.ModifiedContent = []byte(current)
	return result, nil
}

// ValidateRules implements Replacer.ValidateRules
func (r *FlexibleTextReplacer) ValidateRules(rules []Rule) error {
	for i, rule := range rules {
		if rule.IsNoOp() {
			return errors.Errorf("rule %d: %w", i, ErrNoOp)
		}
		if rule.ExpectedReplacements < 0 {
			return errors.Errorf("rule %d: expected_replacements must be at least 1, got %d", i, rule.ExpectedReplacements)
		}
	}
	return nil
}
