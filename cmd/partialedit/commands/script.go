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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/partialedit/cmd/partialedit/opts"
	"github.com/walteh/partialedit/pkg/edit"
	"github.com/walteh/partialedit/pkg/store"
	"github.com/walteh/partialedit/pkg/store/scriptstore"
	"gitlab.com/tozd/go/errors"
)

// NewScriptCmd creates the script command and its subcommands
func NewScriptCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Work with script projects kept in the local database",
		Long: `Script projects are named sets of files stored in a SQLite database.
They are edited with the same rules as workspace files.`,
	}

	cmd.AddCommand(
		newScriptLsCmd(o),
		newScriptCreateCmd(o),
		newScriptCatCmd(o),
		newScriptEditCmd(o),
		newScriptWriteCmd(o),
	)

	return cmd
}

func newScriptLsCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [script-id]",
		Short: "List projects, or the files of one project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ss, err := o.ScriptStore(ctx)
			if err != nil {
				return err
			}
			defer ss.Close()

			if len(args) == 0 {
				ids, err := ss.ListProjects(ctx)
				if err != nil {
					return err
				}
				if o.JSON {
					return writeJSON(cmd, ids)
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}

			p, err := ss.GetProject(ctx, args[0])
			if err != nil {
				return err
			}
			if o.JSON {
				return writeJSON(cmd, p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", p.ScriptID, p.Title)
			for _, f := range p.Content.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-30s %s\n", f.Name, f.Type)
			}
			return nil
		},
	}
}

// scriptFileName names a local file the way projects do: .gs and .js are dropped
func scriptFileName(p string) string {
	name := filepath.Base(p)
	for _, ext := range []string{".gs", ".js"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

func newScriptCreateCmd(o *opts.RootOpts) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "create <script-id> [local-file...]",
		Short: "Create a project from local files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			files := make([]scriptstore.File, 0, len(args)-1)
			for _, p := range args[1:] {
				data, err := os.ReadFile(p)
				if err != nil {
					return errors.Errorf("reading %s: %w", p, err)
				}
				name := scriptFileName(p)
				files = append(files, scriptstore.File{
					Name:   name,
					Type:   scriptstore.FileType(name),
					Source: string(data),
				})
			}

			ss, err := o.ScriptStore(ctx)
			if err != nil {
				return err
			}
			defer ss.Close()

			if title == "" {
				title = args[0]
			}
			if err := ss.CreateProject(ctx, args[0], title, files); err != nil {
				return err
			}

			if o.JSON {
				return writeJSON(cmd, map[string]any{"script_id": args[0], "files": len(files)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s with %d file(s)\n", args[0], len(files))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "project title, defaults to the id")

	return cmd
}

func newScriptCatCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <script-id> <file-name>",
		Short: "Print one file of a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ss, err := o.ScriptStore(ctx)
			if err != nil {
				return err
			}
			defer ss.Close()

			blob, err := ss.Read(ctx, store.Key{Container: args[0], Resource: args[1]})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), blob.Content)
			return nil
		},
	}
}

func newScriptEditCmd(o *opts.RootOpts) *cobra.Command {
	var flags editFlags

	cmd := &cobra.Command{
		Use:   "edit <script-id> <file-name>",
		Short: "Replace an exact snippet in a project file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := flags.toolInput(cmd)
			in.ScriptID = &args[0]
			in.FileName = &args[1]
			return runToolInput(cmd, o, in)
		},
	}

	flags.bind(cmd)

	return cmd
}

func newScriptWriteCmd(o *opts.RootOpts) *cobra.Command {
	var content contentFlag

	cmd := &cobra.Command{
		Use:   "write <script-id> <file-name>",
		Short: "Create or overwrite a project file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := store.Key{Container: args[0], Resource: args[1]}

			body, err := content.read(cmd)
			if err != nil {
				return err
			}

			ss, err := o.ScriptStore(ctx)
			if err != nil {
				return err
			}
			defer ss.Close()

			ed, err := o.Editor(ss, opts.ScriptBackups)
			if err != nil {
				return err
			}
			out, err := ed.WriteFile(ctx, edit.WriteRequest{Key: key, Content: body})
			return printOutcome(cmd, o, "script", key, out, err)
		},
	}

	content.bind(cmd)

	return cmd
}
