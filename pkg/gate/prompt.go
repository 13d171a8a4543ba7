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

package gate

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"
)

// 🙋 Prompt asks a human on the terminal
type Prompt struct {
	// Out receives the description, risks and diff
	Out io.Writer
	// Ask shows the question and returns the answer
	Ask func(question string) (bool, error)
}

// NewPrompt returns a prompt using pterm's interactive confirm
func NewPrompt() *Prompt {
	return &Prompt{
		Out: os.Stderr,
		Ask: func(question string) (bool, error) {
			return pterm.DefaultInteractiveConfirm.
				WithDefaultValue(false).
				Show(question)
		},
	}
}

// Confirm implements Gate
func (p *Prompt) Confirm(ctx context.Context, req Request) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.Errorf("waiting for confirmation: %w", err)
	}

	out := p.Out
	if out == nil {
		out = io.Discard
	}

	fmt.Fprintln(out, pterm.Bold.Sprint(req.Title))
	if req.Description != "" {
		fmt.Fprintln(out, req.Description)
	}
	for _, r := range req.Risks {
		fmt.Fprintln(out, pterm.FgYellow.Sprint("⚠️  "+r))
	}
	if req.Diff != "" {
		fmt.Fprintln(out, ColorDiff(req.Diff))
	}

	ok, err := p.Ask("Apply this change?")
	if err != nil {
		return false, errors.Errorf("reading confirmation: %w", err)
	}
	return ok, nil
}

// ColorDiff colors the added and removed lines of a Diff for the terminal
func ColorDiff(diff string) string {
	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+"):
			lines[i] = pterm.FgGreen.Sprint(l)
		case strings.HasPrefix(l, "-"):
			lines[i] = pterm.FgRed.Sprint(l)
		case l == "...":
			lines[i] = pterm.FgGray.Sprint(l)
		}
	}
	return strings.Join(lines, "\n")
}
