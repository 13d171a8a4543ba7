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
	"unicode"
)

// replaceFlexible slides a window over the lines of content and replaces every
// run whose trimmed lines equal the trimmed lines of oldString. The replacement
// is re-indented with the leading whitespace of the first line of the window.
//
// A match is spliced back in as one combined element and the scan index then
// moves forward by the number of replacement lines. Inserted text is never
// rescanned, and a multi-line replacement also skips the source lines that
// follow it, one fewer than it has lines.
func replaceFlexible(content, oldString, newString string) (string, int) {
	lines := strings.Split(content, "\n")
	search := strings.Split(oldString, "\n")
	for i, line := range search {
		search[i] = strings.TrimSpace(line)
	}
	replacement := strings.Split(newString, "\n")

	count := 0
	for i := 0; i+len(search) <= len(lines); {
		if !windowMatches(lines[i:i+len(search)], search) {
			i++
			continue
		}

		indent := LeadingWhitespace(lines[i])
		block := make([]string, len(replacement))
		for j, line := range replacement {
			block[j] = indent + line
		}

		lines = splice(lines, i, len(search), strings.Join(block, "\n"))
		i += len(block)
		count++
	}

	return strings.Join(lines, "\n"), count
}

// windowMatches compares trimmed window lines to already trimmed search lines
func windowMatches(window, search []string) bool {
	for i := range search {
		if strings.TrimSpace(window[i]) != search[i] {
			return false
		}
	}
	return true
}

// splice replaces lines[at:at+n] with the single element joined
func splice(lines []string, at, n int, joined string) []string {
	out := make([]string, 0, len(lines)-n+1)
	out = append(out, lines[:at]...)
	out = append(out, joined)
	return append(out, lines[at+n:]...)
}

// LeadingWhitespace returns the exact whitespace prefix of line
func LeadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeftFunc(line, unicode.IsSpace))]
}
