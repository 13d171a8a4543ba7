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
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/walteh/partialedit/pkg/config"
	"github.com/walteh/partialedit/pkg/edit"
	"github.com/walteh/partialedit/pkg/log"
	"github.com/walteh/partialedit/pkg/store"
	"github.com/walteh/partialedit/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// 🔍 Matcher expands a glob into store keys
type Matcher interface {
	Match(ctx context.Context, pattern string) ([]store.Key, error)
}

// 🔧 Options contains configuration for the applier
type Options struct {
	// Config holds the edits to apply
	Config *config.Config
	// Editor applies each file's edits
	Editor *edit.Editor
	// Matcher expands file globs, usually the filesystem store
	Matcher Matcher
	// Session groups the backups of this run, defaults to the editor session
	Session string
}

// 🎮 Applier runs the batch edits of a config
type Applier struct {
	config  *config.Config
	editor  *edit.Editor
	matcher Matcher
	session string
}

// 🏭 New creates a new applier with the given options
func New(opts Options) (*Applier, error) {
	if opts.Config == nil {
		return nil, errors.Errorf("config is required")
	}
	if opts.Editor == nil {
		return nil, errors.Errorf("editor is required")
	}
	if opts.Matcher == nil {
		return nil, errors.Errorf("matcher is required")
	}
	session := opts.Session
	if session == "" {
		session = opts.Editor.Session()
	}
	return &Applier{
		config:  opts.Config,
		editor:  opts.Editor,
		matcher: opts.Matcher,
		session: session,
	}, nil
}

// 📋 Plan expands every edit glob and groups the rules per file, keeping
// config order inside each file. Files are returned sorted by key.
func (a *Applier) Plan(ctx context.Context) ([]edit.MultiRequest, error) {
	logger := zerolog.Ctx(ctx)

	byKey := map[store.Key][]text.Rule{}
	for i, e := range a.config.Edits {
		keys, err := a.matcher.Match(ctx, e.FileGlob)
		if err != nil {
			return nil, errors.Errorf("expanding edits[%d] %s: %w", i, e.FileGlob, err)
		}
		if len(keys) == 0 {
			logger.Debug().Int("edit", i).Str("file_glob", e.FileGlob).Msg("no files matched")
			log.FromContext(ctx).Warningf("edits[%d]: no files matched %s", i, e.FileGlob)
			continue
		}
		rule := e.Rule(a.config.FlexibleEnabled())
		for _, k := range keys {
			byKey[k] = append(byKey[k], rule)
		}
	}

	keys := make([]store.Key, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	plan := make([]edit.MultiRequest, 0, len(keys))
	for _, k := range keys {
		plan = append(plan, edit.MultiRequest{Key: k, Session: a.session, Edits: byKey[k]})
	}
	return plan, nil
}

// fileEdit applies the planned edits of one file and records the result
type fileEdit struct {
	editor *edit.Editor
	req    edit.MultiRequest
	result *FileResult
}

func (f *fileEdit) Execute(ctx context.Context) error {
	out, err := f.editor.MultiEdit(ctx, f.req)
	f.result.Outcome = out
	f.result.Err = err
	f.result.Kind = edit.KindOf(err)

	op := log.EditOperation{
		Path:  f.req.Key.String(),
		Store: "file",
	}
	switch {
	case err != nil:
		op.Status = f.result.Kind
		op.Kind = f.result.Kind
		op.IsFailed = true
	default:
		op.Status = "EDITED"
		op.Occurrences = out.Occurrences
		op.IsModified = true
	}
	log.FromContext(ctx).LogEditOperation(ctx, op)

	// a cancelled context stops the run, any other failure only fails this file
	if f.result.Kind == edit.KindCanceled {
		return err
	}
	return nil
}

// 🚀 Apply runs the plan. Each file either gets all of its edits or none.
// Failures are collected in the report; only cancellation aborts the run.
func (a *Applier) Apply(ctx context.Context) (*Report, error) {
	plan, err := a.Plan(ctx)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	console := log.FromContext(ctx)
	console.StartBatch(ctx, log.BatchOperation{
		Name:      a.config.Location(),
		Workspace: a.config.Workspace,
		Session:   a.session,
	})

	report := &Report{Session: a.session, Results: make([]FileResult, len(plan))}
	ops := make([]Operation, len(plan))
	for i, req := range plan {
		report.Results[i].Key = req.Key
		ops[i] = &fileEdit{editor: a.editor, req: req, result: &report.Results[i]}
	}

	runner := NewRunner(logger, a.config.Concurrency)
	err = runner.Run(ctx, ops)
	failed := console.EndBatch(ctx)
	if err != nil {
		return report, errors.Errorf("applying edits: %w", err)
	}
	if failed > 0 {
		console.Errorf("%d of %d file(s) failed, session %s", failed, len(plan), a.session)
	}

	return report, nil
}
