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

// Package gate decides whether a pending mutation may go ahead.
package gate

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrUnknownMode is returned by FromMode for unsupported mode names
var ErrUnknownMode = errors.Base("unknown gate mode")

// 📝 Request describes the mutation awaiting approval
type Request struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Diff        string   `json:"diff,omitempty"`
	Risks       []string `json:"risks,omitempty"`
}

// 🚦 Gate approves or refuses a mutation before it is computed
type Gate interface {
	Confirm(ctx context.Context, req Request) (bool, error)
}

// Func adapts a function to the Gate interface
type Func func(ctx context.Context, req Request) (bool, error)

// Confirm implements Gate
func (f Func) Confirm(ctx context.Context, req Request) (bool, error) {
	return f(ctx, req)
}

// AutoApprove approves every request
var AutoApprove Gate = Func(func(ctx context.Context, req Request) (bool, error) {
	zerolog.Ctx(ctx).Debug().Str("title", req.Title).Msg("auto-approved")
	return true, nil
})

// Deny refuses every request
var Deny Gate = Func(func(ctx context.Context, req Request) (bool, error) {
	zerolog.Ctx(ctx).Debug().Str("title", req.Title).Msg("denied by policy")
	return false, nil
})

// Modes lists the names accepted by FromMode
var Modes = []string{"auto", "prompt", "deny"}

// FromMode returns the gate for a mode name. An empty mode means auto.
func FromMode(mode string) (Gate, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return AutoApprove, nil
	case "prompt":
		return NewPrompt(), nil
	case "deny":
		return Deny, nil
	}
	return nil, errors.Errorf("%q (expected one of %s): %w", mode, strings.Join(Modes, ", "), ErrUnknownMode)
}
