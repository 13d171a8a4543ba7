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

// ErrNoOp is returned when a rule would not change anything once line endings are normalized.
var ErrNoOp = errors.Base("old_string and new_string are identical")

// 🎯 Tier records which matching pass produced a result
type Tier int

const (
	TierNone     Tier = iota // nothing matched
	TierExact                // literal substring match
	TierFlexible             // trimmed line-window match
)

// String returns a string representation of Tier
func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierFlexible:
		return "flexible"
	default:
		return "none"
	}
}

// 🔄 Rule is a single requested replacement
type Rule struct {
	// OldString is the text to find
	OldString string `json:"old_string" yaml:"old_string"`

	// NewString is the replacement text
	NewString string `json:"new_string" yaml:"new_string"`

	// ExpectedReplacements is how many occurrences the caller expects, zero means one
	ExpectedReplacements int `json:"expected_replacements,omitempty" yaml:"expected_replacements,omitempty"`

	// DisableFlexible turns off the whitespace tolerant second pass
	DisableFlexible bool `json:"disable_flexible,omitempty" yaml:"disable_flexible,omitempty"`
}

// Expected returns the expected occurrence count, defaulting to one
func (r Rule) Expected() int {
	if r.ExpectedReplacements <= 0 {
		return 1
	}
	return r.ExpectedReplacements
}

// IsNoOp reports whether the rule is a no-op after line ending normalization
func (r Rule) IsNoOp() bool {
	return IsNoOp(r.OldString, r.NewString)
}

// 📊 Result is the outcome of applying one rule
type Result struct {
	// Content is the new content, or the input unchanged when Occurrences is zero
	Content string

	// Occurrences is the number of replacements applied to Content
	Occurrences int

	// Tier is the pass that matched
	Tier Tier
}

// ReplacementResult contains the results of applying a sequence of rules to a blob
type ReplacementResult struct {
	// WasModified indicates if any replacements were made
	WasModified bool

	// ReplacementCount is the total number of replacements made
	ReplacementCount int

	// OriginalContent is the content before replacements
	OriginalContent []byte

	// ModifiedContent is the content after replacements
	ModifiedContent []byte

	// Results holds one entry per rule, in order
	Results []Result
}

// Replacer defines the interface for text replacement operations
type Replacer interface {
	// ReplaceText applies the rules in order, each against the output of the previous one.
	// Occurrence counts are reported, never enforced.
	ReplaceText(ctx context.Context, content io.Reader, rules []Rule) (*ReplacementResult, error)

	// ValidateRules checks that all rules are well formed
	ValidateRules(rules []Rule) error
}
