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
	"strings"
)

// 📄 Normalized is a blob with line endings unified to \n
type Normalized struct {
	Content         string
	TrailingNewline bool
}

// Normalize converts \r\n to \n and records whether the blob ends with a newline
func Normalize(content string) Normalized {
	c := normalizeLineEndings(content)
	return Normalized{
		Content:         c,
		TrailingNewline: strings.HasSuffix(c, "\n"),
	}
}

// Restore forces the trailing newline state of s to match the original blob
func (n Normalized) Restore(s string) string {
	has := strings.HasSuffix(s, "\n")
	switch {
	case n.TrailingNewline && !has:
		return s + "\n"
	case !n.TrailingNewline && has:
		return strings.TrimSuffix(s, "\n")
	}
	return s
}

// IsNoOp reports whether old and new are identical once line endings are normalized
func IsNoOp(oldString, newString string) bool {
	return normalizeLineEndings(oldString) == normalizeLineEndings(newString)
}

func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// 🔧 Apply locates rule.OldString in content and replaces it.
//
// The exact pass runs first and replaces every literal occurrence, whatever the
// expected count. Only when it finds nothing, and flexible matching is enabled,
// the line-window pass runs. Zero occurrences is a normal result; deciding
// whether that (or any count other than the expected one) is a failure is left
// to the caller.
func Apply(content string, rule Rule) Result {
	src := Normalize(content)
	oldString := normalizeLineEndings(rule.OldString)
	newString := normalizeLineEndings(rule.NewString)

	// an empty search string only addresses an empty blob
	if oldString == "" {
		if src.Content == "" {
			return Result{Content: src.Restore(newString), Occurrences: 1, Tier: TierExact}
		}
		return Result{Content: content, Tier: TierNone}
	}

	if count := strings.Count(src.Content, oldString); count > 0 {
		out := strings.ReplaceAll(src.Content, oldString, newString)
		return Result{Content: src.Restore(out), Occurrences: count, Tier: TierExact}
	}

	if rule.DisableFlexible {
		return Result{Content: content, Tier: TierNone}
	}

	out, count := replaceFlexible(src.Content, oldString, newString)
	if count == 0 {
		return Result{Content: content, Tier: TierNone}
	}

	return Result{Content: src.Restore(out), Occurrences: count, Tier: TierFlexible}
}
