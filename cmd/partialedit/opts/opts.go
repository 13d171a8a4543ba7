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
package opts

import (
	"context"
	"path/filepath"

	"github.com/walteh/partialedit/pkg/backup"
	"github.com/walteh/partialedit/pkg/config"
	"github.com/walteh/partialedit/pkg/edit"
	"github.com/walteh/partialedit/pkg/gate"
	"github.com/walteh/partialedit/pkg/store"
	"github.com/walteh/partialedit/pkg/store/fsstore"
	"github.com/walteh/partialedit/pkg/store/scriptstore"
	"gitlab.com/tozd/go/errors"
)

// Backup directories below the configured backup dir, one per store
const (
	FileBackups   = "files"
	ScriptBackups = "scripts"
)

// StateExclude hides the tool's own state directory from globs
const StateExclude = ".partialedit/**"

// RootOpts contains shared options used by all commands
type RootOpts struct {
	// Flags
	ConfigFile string
	Debug      bool
	Session    string
	Gate       string
	Workspace  string
	JSON       bool
	ShowDiff   bool

	// Config is set by Load
	Config *config.Config
}

// Load reads the config file and applies flag overrides on top of it
func (o *RootOpts) Load(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(ctx, o.ConfigFile, o.Workspace)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	if o.Workspace != "" {
		cfg.SetWorkspace(o.Workspace)
	}
	if o.Session != "" {
		cfg.Session = o.Session
	}
	if o.Gate != "" {
		cfg.Gate = o.Gate
	}
	if err := cfg.Validate(); err != nil {
		return errors.Errorf("validating config: %w", err)
	}

	o.Config = cfg
	return nil
}

func (o *RootOpts) config() (*config.Config, error) {
	if o.Config == nil {
		return nil, errors.New("config not loaded")
	}
	return o.Config, nil
}

// FileStore opens the workspace as a store
func (o *RootOpts) FileStore() (*fsstore.Store, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	return fsstore.New(cfg.Workspace, fsstore.WithExclude(StateExclude))
}

// ScriptStore opens the script project database, the caller closes it
func (o *RootOpts) ScriptStore(ctx context.Context) (*scriptstore.Store, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	return scriptstore.Open(ctx, cfg.Database)
}

// Backups returns the backup sink of one store kind
func (o *RootOpts) Backups(kind string) (*backup.DirSink, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	return backup.NewDirSink(filepath.Join(cfg.BackupDir, kind))
}

// Editor builds an editor over st with the configured gate, backups and session
func (o *RootOpts) Editor(st store.Store, kind string) (*edit.Editor, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}

	g, err := gate.FromMode(cfg.Gate)
	if err != nil {
		return nil, errors.Errorf("creating gate: %w", err)
	}

	sink, err := o.Backups(kind)
	if err != nil {
		return nil, err
	}

	return edit.New(edit.Options{
		Store:   st,
		Backups: sink,
		Gate:    g,
		Session: cfg.Session,
	})
}
