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
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/partialedit/cmd/partialedit/opts"
	"github.com/walteh/partialedit/pkg/backup"
	"github.com/walteh/partialedit/pkg/log"
	"github.com/walteh/partialedit/pkg/store"
	"gitlab.com/tozd/go/errors"
)

var backupKinds = []string{opts.FileBackups, opts.ScriptBackups}

// 🗃️ sessionBackups is one store's records of a session
type sessionBackups struct {
	Store   string          `json:"store"`
	Records []backup.Record `json:"records"`
}

// NewBackupsCmd creates the backups command
func NewBackupsCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "backups [session]",
		Short: "List backup sessions, or the backups of one session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				sessions := map[string][]string{}
				for _, kind := range backupKinds {
					sink, err := o.Backups(kind)
					if err != nil {
						return err
					}
					ids, err := sink.Sessions(ctx)
					if err != nil {
						return err
					}
					sessions[kind] = ids
				}
				if o.JSON {
					return writeJSON(cmd, sessions)
				}
				for _, kind := range backupKinds {
					for _, id := range sessions[kind] {
						fmt.Fprintf(out, "%-8s %s\n", kind, id)
					}
				}
				return nil
			}

			found, err := listSession(ctx, o, args[0])
			if err != nil {
				return err
			}
			if o.JSON {
				return writeJSON(cmd, found)
			}
			for _, sb := range found {
				for _, rec := range sb.Records {
					what := "modified"
					if rec.IsCreation {
						what = "created"
					}
					fmt.Fprintf(out, "%-8s %-40s %-9s %s\n", sb.Store, rec.Location, what, rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				}
			}
			return nil
		},
	}
}

// listSession collects the session's records from every store kind
func listSession(ctx context.Context, o *opts.RootOpts, session string) ([]sessionBackups, error) {
	var found []sessionBackups
	for _, kind := range backupKinds {
		sink, err := o.Backups(kind)
		if err != nil {
			return nil, err
		}
		records, err := sink.List(ctx, session)
		if errors.Is(err, backup.ErrNoSession) {
			continue
		}
		if err != nil {
			return nil, err
		}
		found = append(found, sessionBackups{Store: kind, Records: records})
	}
	if len(found) == 0 {
		return nil, errors.Errorf("%s: %w", session, backup.ErrNoSession)
	}
	return found, nil
}

// NewRollbackCmd creates the rollback command
func NewRollbackCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <session>",
		Short: "Restore everything a session changed",
		Long: `Rollback puts every file touched in a session back to the content it had
before the session's first change. Files the session created are removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session := args[0]

			found, err := listSession(ctx, o, session)
			if err != nil {
				return err
			}

			console := log.FromContext(ctx)
			console.Header("rolling back session " + session)

			total := 0
			var restored []sessionBackups
			for _, sb := range found {
				records, err := rollbackKind(ctx, o, sb.Store, session)
				if err != nil {
					return err
				}
				restored = append(restored, sessionBackups{Store: sb.Store, Records: records})
				total += len(records)

				storeName := "file"
				if sb.Store == opts.ScriptBackups {
					storeName = "script"
				}
				for _, rec := range records {
					status := "RESTORED"
					if rec.IsCreation {
						status = "REMOVED"
					}
					console.LogEditOperation(ctx, log.EditOperation{
						Path:       rec.Location.String(),
						Store:      storeName,
						Status:     status,
						IsRestored: true,
					})
				}
			}
			console.Infof("%d resource(s) restored from session %s", total, session)

			if o.JSON {
				return writeJSON(cmd, restored)
			}
			return nil
		},
	}
}

func rollbackKind(ctx context.Context, o *opts.RootOpts, kind, session string) ([]backup.Record, error) {
	var st store.Store
	switch kind {
	case opts.ScriptBackups:
		ss, err := o.ScriptStore(ctx)
		if err != nil {
			return nil, err
		}
		defer ss.Close()
		st = ss
	default:
		fs, err := o.FileStore()
		if err != nil {
			return nil, err
		}
		st = fs
	}

	ed, err := o.Editor(st, kind)
	if err != nil {
		return nil, err
	}
	return ed.Rollback(ctx, session)
}
