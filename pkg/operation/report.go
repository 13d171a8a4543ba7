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
package operation

import (
	"fmt"
	"strings"

	"github.com/walteh/partialedit/pkg/edit"
	"github.com/walteh/partialedit/pkg/store"
	"gitlab.com/tozd/go/errors"
)

// 📄 FileResult is the result of applying edits to one file
type FileResult struct {
	Key     store.Key     `json:"key"`
	Outcome *edit.Outcome `json:"outcome,omitempty"`
	Err     error         `json:"-"`
	Kind    string        `json:"error_kind,omitempty"`
}

// 📊 Report collects the results of a batch run
type Report struct {
	Session string       `json:"session"`
	Results []FileResult `json:"results"`
}

// Failed returns the results that did not apply
func (r *Report) Failed() []FileResult {
	var failed []FileResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Occurrences returns the total number of replacements written
func (r *Report) Occurrences() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome != nil {
			n += res.Outcome.Occurrences
		}
	}
	return n
}

// Err summarizes the failed files, or returns nil when every file applied
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	lines := make([]string, 0, len(failed))
	for _, f := range failed {
		lines = append(lines, fmt.Sprintf("%s: %s", f.Key, f.Err))
	}
	return errors.Errorf("%d of %d files failed:\n%s", len(failed), len(r.Results), strings.Join(lines, "\n"))
}
