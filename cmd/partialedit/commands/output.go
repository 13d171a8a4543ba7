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
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/partialedit/cmd/partialedit/opts"
	"github.com/walteh/partialedit/pkg/edit"
	"github.com/walteh/partialedit/pkg/gate"
	"github.com/walteh/partialedit/pkg/log"
	"github.com/walteh/partialedit/pkg/store"
	"gitlab.com/tozd/go/errors"
)

// 📤 result is what --json prints for a single edit or write
type result struct {
	OK        bool          `json:"ok"`
	Key       string        `json:"key,omitempty"`
	Outcome   *edit.Outcome `json:"outcome,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Errorf("encoding output: %w", err)
	}
	return nil
}

// printOutcome reports an edit or write and passes err through
func printOutcome(cmd *cobra.Command, o *opts.RootOpts, storeName string, key store.Key, out *edit.Outcome, err error) error {
	if o.JSON {
		res := result{OK: err == nil, Key: key.String(), Outcome: out}
		if err != nil {
			res.ErrorKind = edit.KindOf(err)
			res.Error = err.Error()
		}
		if encErr := writeJSON(cmd, res); encErr != nil {
			return encErr
		}
		return err
	}

	op := log.EditOperation{Path: key.String(), Store: storeName}
	switch {
	case err != nil:
		op.Status = edit.KindOf(err)
		op.Kind = op.Status
		op.IsFailed = true
	case out.Created:
		op.Status = "CREATED"
		op.IsNew = true
	case out.Tier != "":
		op.Status = "EDITED " + out.Tier
		op.Tier = out.Tier
		op.Occurrences = out.Occurrences
		op.IsModified = true
	default:
		op.Status = "WRITTEN"
		op.Occurrences = out.Occurrences
		op.IsModified = true
	}
	log.FromContext(cmd.Context()).LogEditOperation(cmd.Context(), op)

	if err == nil && o.ShowDiff && out.Diff != "" {
		fmt.Fprintln(cmd.OutOrStdout(), gate.ColorDiff(out.Diff))
		fmt.Fprintf(cmd.OutOrStdout(), "%d line(s) added, %d removed\n", out.Added, out.Removed)
	}
	return err
}
