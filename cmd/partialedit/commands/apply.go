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
	"github.com/spf13/cobra"
	"github.com/walteh/partialedit/cmd/partialedit/opts"
	"github.com/walteh/partialedit/pkg/log"
	"github.com/walteh/partialedit/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// NewApplyCmd creates the apply command
func NewApplyCmd(o *opts.RootOpts) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the edits listed in the config file",
		Long: `Apply runs every edit in the config file against the files matching its
file_glob. Edits of the same file are applied together: either all of them
succeed or the file is left alone.
It will:
1. Expand each file_glob in the workspace
2. Apply each file's edits in config order
3. Back up every changed file under one session
4. Report the files that failed and why`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := o.Config

			if len(cfg.Edits) == 0 {
				return errors.New("no edits configured")
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Concurrency = concurrency
			}

			fs, err := o.FileStore()
			if err != nil {
				return err
			}
			ed, err := o.Editor(fs, opts.FileBackups)
			if err != nil {
				return err
			}

			app, err := operation.New(operation.Options{
				Config:  cfg,
				Editor:  ed,
				Matcher: fs,
			})
			if err != nil {
				return errors.Errorf("creating applier: %w", err)
			}

			console := log.FromContext(ctx)
			console.Header("applying " + cfg.Location())

			report, err := app.Apply(ctx)
			if err != nil {
				return err
			}

			if o.JSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
				return report.Err()
			}

			if err := report.Err(); err != nil {
				return err
			}
			console.Successf("%d file(s) edited, %d replacement(s), session %s", len(report.Results), report.Occurrences(), report.Session)
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "files to edit at once, overrides the config")

	return cmd
}
