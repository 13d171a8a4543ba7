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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/walteh/partialedit/cmd/partialedit/opts"
	"github.com/walteh/partialedit/pkg/edit"
	"github.com/walteh/partialedit/pkg/store"
	"gitlab.com/tozd/go/errors"
)

// editFlags are the flags shared by edit and script edit
type editFlags struct {
	old        string
	new        string
	expected   int
	noFlexible bool
}

func (f *editFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.old, "old", "", "exact text to replace")
	cmd.Flags().StringVar(&f.new, "new", "", "replacement text")
	cmd.Flags().IntVarP(&f.expected, "expected", "n", 1, "number of occurrences that must be replaced")
	cmd.Flags().BoolVar(&f.noFlexible, "no-flexible", false, "only accept exact matches")
}

// toolInput builds the same input a tool call would send, leaving unset flags
// undefined so validation can report them
func (f *editFlags) toolInput(cmd *cobra.Command) *edit.ToolInput {
	in := &edit.ToolInput{}
	if cmd.Flags().Changed("old") {
		in.OldString = &f.old
	}
	if cmd.Flags().Changed("new") {
		in.NewString = &f.new
	}
	if cmd.Flags().Changed("expected") {
		in.ExpectedReplacements = &f.expected
	}
	if f.noFlexible {
		flexible := false
		in.Flexible = &flexible
	}
	return in
}

// NewEditCmd creates the edit command
func NewEditCmd(o *opts.RootOpts) *cobra.Command {
	var (
		flags editFlags
		input string
	)

	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Replace an exact snippet in a workspace file",
		Long: `Edit replaces old text with new text in a single file.
It will:
1. Reject edits whose old and new text are the same
2. Look for exact matches, then for the same lines with any indentation
3. Check the number of matches against --expected
4. Back up the file once per session and write the result

With --input the arguments are read from a JSON tool call instead, which may
target a file_path or a script_id and file_name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in *edit.ToolInput
			switch {
			case input != "":
				if len(args) > 0 {
					return errors.Errorf("--input cannot be combined with a file argument: %w", edit.ErrInvalidRequest)
				}
				decoded, err := readToolInput(cmd, input)
				if err != nil {
					return printOutcome(cmd, o, "file", store.Key{}, nil, err)
				}
				in = decoded
			case len(args) == 1:
				// shell arguments are relative to the working directory, tool calls to the workspace
				p, err := filepath.Abs(args[0])
				if err != nil {
					return errors.Errorf("resolving %s: %w", args[0], err)
				}
				in = flags.toolInput(cmd)
				in.FilePath = &p
			default:
				return errors.Errorf("a file or --input is required: %w", edit.ErrInvalidRequest)
			}

			return runToolInput(cmd, o, in)
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "read a JSON tool call from a file, - for stdin")

	return cmd
}

func readToolInput(cmd *cobra.Command, path string) (*edit.ToolInput, error) {
	if path == "-" {
		return edit.DecodeToolInput(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return edit.DecodeToolInput(f)
}

// runToolInput validates in against the store it targets and runs the edit
func runToolInput(cmd *cobra.Command, o *opts.RootOpts, in *edit.ToolInput) error {
	ctx := cmd.Context()

	if in.ScriptID != nil {
		ss, err := o.ScriptStore(ctx)
		if err != nil {
			return err
		}
		defer ss.Close()

		req, err := in.Validate(nil)
		if err != nil {
			return printOutcome(cmd, o, "script", req.Key, nil, err)
		}
		ed, err := o.Editor(ss, opts.ScriptBackups)
		if err != nil {
			return err
		}
		out, err := ed.PartialEdit(ctx, req)
		return printOutcome(cmd, o, "script", req.Key, out, err)
	}

	fs, err := o.FileStore()
	if err != nil {
		return err
	}
	req, err := in.Validate(fs.KeyFor)
	if err != nil {
		return printOutcome(cmd, o, "file", req.Key, nil, err)
	}
	ed, err := o.Editor(fs, opts.FileBackups)
	if err != nil {
		return err
	}
	out, err := ed.PartialEdit(ctx, req)
	return printOutcome(cmd, o, "file", req.Key, out, err)
}
