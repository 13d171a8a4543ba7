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

package edit

import (
	"context"
	"fmt"
	"strings"

	"github.com/walteh/partialedit/pkg/store"
	"github.com/walteh/partialedit/pkg/text"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrInvalidRequest     = errors.Base("invalid request")
	ErrNoMatch            = errors.Base("string not found")
	ErrOccurrenceMismatch = errors.Base("wrong occurrence count")
	ErrNoOp               = text.ErrNoOp
	ErrResourceNotFound   = errors.Base("resource not found")
	ErrRejected           = errors.Base("change rejected")
	ErrConflict           = store.ErrConflict
)

// 🔢 MismatchError reports a match count other than the expected one
type MismatchError struct {
	Resource string
	Expected int
	Actual   int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %d occurrence(s) in %s but found %d: %s", e.Expected, e.Resource, e.Actual, ErrOccurrenceMismatch)
}

func (e *MismatchError) Unwrap() error {
	return ErrOccurrenceMismatch
}

// 🔍 NotFoundError reports a missing resource together with its siblings
type NotFoundError struct {
	Key       store.Key
	Available []string
	// Containers is set instead of Available when the container itself is unknown
	Containers []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrResourceNotFound, e.Key)
	switch {
	case len(e.Available) > 0:
		return msg + " (available: " + strings.Join(e.Available, ", ") + ")"
	case len(e.Containers) > 0:
		return msg + " (known containers: " + strings.Join(e.Containers, ", ") + ")"
	}
	return msg
}

func (e *NotFoundError) Unwrap() error {
	return ErrResourceNotFound
}

// Kind names used by KindOf
const (
	KindInvalidRequest     = "invalid_request"
	KindNoMatch            = "no_match"
	KindOccurrenceMismatch = "occurrence_mismatch"
	KindNoOp               = "no_op"
	KindResourceNotFound   = "resource_not_found"
	KindRejected           = "rejected"
	KindConflict           = "conflict"
	KindCanceled           = "canceled"
	KindInternal           = "internal"
)

// KindOf classifies err, returning an empty string for nil
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrNoOp):
		return KindNoOp
	case errors.Is(err, ErrNoMatch):
		return KindNoMatch
	case errors.Is(err, ErrOccurrenceMismatch):
		return KindOccurrenceMismatch
	case errors.Is(err, ErrResourceNotFound), errors.Is(err, store.ErrNotFound):
		return KindResourceNotFound
	case errors.Is(err, ErrRejected):
		return KindRejected
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindInternal
}
