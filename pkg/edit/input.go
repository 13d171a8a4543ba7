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
	"encoding/json"
	"io"

	"github.com/walteh/partialedit/pkg/store"
	"gitlab.com/tozd/go/errors"
)

// KeyResolver maps a file path to a store key
type KeyResolver func(path string) (store.Key, error)

// 🧰 ToolInput is the argument object of a partial edit tool call.
//
// Fields are pointers so that a missing field can be told apart from an empty
// string, which is a valid old or new value.
type ToolInput struct {
	FilePath             *string `json:"file_path,omitempty"`
	ScriptID             *string `json:"script_id,omitempty"`
	FileName             *string `json:"file_name,omitempty"`
	OldString            *string `json:"old_string"`
	NewString            *string `json:"new_string"`
	ExpectedReplacements *int    `json:"expected_replacements,omitempty"`
	Flexible             *bool   `json:"flexible,omitempty"`
	Session              *string `json:"session,omitempty"`
}

// DecodeToolInput reads a ToolInput from JSON, rejecting unknown fields
func DecodeToolInput(r io.Reader) (*ToolInput, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var in ToolInput
	if err := dec.Decode(&in); err != nil {
		return nil, errors.Errorf("decoding tool input: %s: %w", err.Error(), ErrInvalidRequest)
	}
	return &in, nil
}

// Validate checks required fields and builds a Request.
// resolve turns file_path into a key and may be nil when only script ids are used.
func (in *ToolInput) Validate(resolve KeyResolver) (Request, error) {
	var req Request

	switch {
	case in.FilePath != nil && (in.ScriptID != nil || in.FileName != nil):
		return req, errors.Errorf("file_path cannot be combined with script_id or file_name: %w", ErrInvalidRequest)
	case in.FilePath != nil:
		if *in.FilePath == "" {
			return req, errors.Errorf("file_path is empty: %w", ErrInvalidRequest)
		}
		if resolve == nil {
			return req, errors.Errorf("file_path is not supported here: %w", ErrInvalidRequest)
		}
		key, err := resolve(*in.FilePath)
		if err != nil {
			return req, errors.Errorf("resolving file_path: %s: %w", err.Error(), ErrInvalidRequest)
		}
		req.Key = key
	case in.ScriptID != nil && in.FileName != nil:
		if *in.ScriptID == "" || *in.FileName == "" {
			return req, errors.Errorf("script_id and file_name must not be empty: %w", ErrInvalidRequest)
		}
		req.Key = store.Key{Container: *in.ScriptID, Resource: *in.FileName}
	default:
		return req, errors.Errorf("either file_path or script_id and file_name are required: %w", ErrInvalidRequest)
	}

	if in.OldString == nil {
		return req, errors.Errorf("old_string is required: %w", ErrInvalidRequest)
	}
	if in.NewString == nil {
		return req, errors.Errorf("new_string is required: %w", ErrInvalidRequest)
	}
	req.OldString = *in.OldString
	req.NewString = *in.NewString

	if in.ExpectedReplacements != nil {
		if *in.ExpectedReplacements < 1 {
			return req, errors.Errorf("expected_replacements must be at least 1, got %d: %w", *in.ExpectedReplacements, ErrInvalidRequest)
		}
		req.ExpectedReplacements = *in.ExpectedReplacements
	}
	if in.Flexible != nil {
		req.DisableFlexible = !*in.Flexible
	}
	if in.Session != nil {
		req.Session = *in.Session
	}

	return req, nil
}
