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
package main

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/partialedit/cmd/partialedit/commands"
	"github.com/walteh/partialedit/cmd/partialedit/opts"
	"github.com/walteh/partialedit/pkg/log"
)

// newRootCmd builds the command tree around a fresh set of options
func newRootCmd() *cobra.Command {
	o := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "partialedit",
		Short: "Apply exact, indentation tolerant text edits with backups",
		Long: `partialedit replaces exact snippets in workspace files and in script
projects kept in a local database. When a snippet only differs from the file by
indentation it is still found, and the replacement is re-indented to match.
Every change is backed up once per session and can be rolled back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := setupLogging(cmd, o)
			cmd.SetContext(ctx)
			return o.Load(ctx)
		},
	}

	addRootFlags(rootCmd, o)

	rootCmd.AddCommand(
		commands.NewEditCmd(o),
		commands.NewWriteCmd(o),
		commands.NewScriptCmd(o),
		commands.NewApplyCmd(o),
		commands.NewBackupsCmd(o),
		commands.NewRollbackCmd(o),
		newVersionCmd(o),
	)

	return rootCmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "", "config file path, searched for in the workspace when empty")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().StringVarP(&o.Session, "session", "s", "", "backup session id, a new one per run when empty")
	cmd.PersistentFlags().StringVarP(&o.Gate, "gate", "g", "", "confirmation mode: auto, prompt or deny")
	cmd.PersistentFlags().StringVarP(&o.Workspace, "workspace", "w", "", "workspace root, defaults to the config file's directory")
	cmd.PersistentFlags().BoolVar(&o.JSON, "json", false, "print machine readable results")
	cmd.PersistentFlags().BoolVar(&o.ShowDiff, "diff", false, "print the diff of every change")
}

// setupLogging puts a zerolog logger and a console logger into the command context
func setupLogging(cmd *cobra.Command, o *opts.RootOpts) context.Context {
	level := zerolog.WarnLevel
	if o.Debug {
		level = zerolog.DebugLevel
	}

	zlog := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = cmd.ErrOrStderr()
	})).With().Timestamp().Logger().Level(level)

	// json output owns stdout
	var console io.Writer = cmd.OutOrStdout()
	if o.JSON {
		console = cmd.ErrOrStderr()
	}

	ctx := zlog.WithContext(cmd.Context())
	return log.NewContext(ctx, log.NewWithZerolog(console, zlog))
}
