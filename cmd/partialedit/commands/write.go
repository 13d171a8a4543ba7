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
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/walteh/partialedit/cmd/partialedit/opts"
	"github.com/walteh/partialedit/pkg/edit"
	"gitlab.com/tozd/go/errors"
)

// contentFlag reads the content of a write from --content or stdin
type contentFlag struct {
	content string
}

func (f *contentFlag) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.content, "content", "", "content to write, read from stdin when not set")
}

func (f *contentFlag) read(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("content") {
		return f.content, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", errors.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// NewWriteCmd creates the write command
func NewWriteCmd(o *opts.RootOpts) *cobra.Command {
	var content contentFlag

	cmd := &cobra.Command{
		Use:   "write <file>",
		Short: "Create or overwrite a workspace file",
		Long: `Write replaces the whole content of a file, creating it when missing.
The prior content, or a note that the file did not exist, is backed up once
per session so rollback can undo the write.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fs, err := o.FileStore()
			if err != nil {
				return err
			}
			p, err := filepath.Abs(args[0])
			if err != nil {
				return errors.Errorf("resolving %s: %w", args[0], err)
			}
			key, err := fs.KeyFor(p)
			if err != nil {
				return printOutcome(cmd, o, "file", key, nil, errors.Errorf("%s: %w", err.Error(), edit.ErrInvalidRequest))
			}

			body, err := content.read(cmd)
			if err != nil {
				return err
			}

			ed, err := o.Editor(fs, opts.FileBackups)
			if err != nil {
				return err
			}
			out, err := ed.WriteFile(ctx, edit.WriteRequest{Key: key, Content: body})
			return printOutcome(cmd, o, "file", key, out, err)
		},
	}

	content.bind(cmd)

	return cmd
}
