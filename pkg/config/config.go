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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/partialedit/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// FileNames are the config file names Find looks for, in order
var FileNames = []string{
	".partialedit.yaml",
	".partialedit.yml",
	".partialedit.hcl",
	".partialedit.json",
}

var gateModes = map[string]bool{"auto": true, "prompt": true, "deny": true}

// 🔄 Edit is one batch edit applied to every file matching FileGlob
type Edit struct {
	FileGlob             string `json:"file_glob" yaml:"file_glob"`
	Old                  string `json:"old" yaml:"old"`
	New                  string `json:"new" yaml:"new"`
	ExpectedReplacements int    `json:"expected_replacements,omitempty" yaml:"expected_replacements,omitempty"`
	Flexible             *bool  `json:"flexible,omitempty" yaml:"flexible,omitempty"`
}

// Rule converts the edit into an engine rule. defaultFlexible applies when the
// edit does not set flexible itself.
func (e Edit) Rule(defaultFlexible bool) text.Rule {
	flexible := defaultFlexible
	if e.Flexible != nil {
		flexible = *e.Flexible
	}
	return text.Rule{
		OldString:            e.Old,
		NewString:            e.New,
		ExpectedReplacements: e.ExpectedReplacements,
		DisableFlexible:      !flexible,
	}
}

// 📚 Config represents the complete configuration
type Config struct {
	Workspace   string `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	Database    string `json:"database,omitempty" yaml:"database,omitempty"`
	BackupDir   string `json:"backup_dir,omitempty" yaml:"backup_dir,omitempty"`
	Session     string `json:"session,omitempty" yaml:"session,omitempty"`
	Gate        string `json:"gate,omitempty" yaml:"gate,omitempty"`
	Flexible    *bool  `json:"flexible,omitempty" yaml:"flexible,omitempty"`
	Concurrency int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Edits       []Edit `json:"edits,omitempty" yaml:"edits,omitempty"`

	location string
}

// Default returns a validated config with every default filled in
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Validate()
	return cfg
}

// Location returns the file the config was loaded from, if any
func (cfg *Config) Location() string {
	return cfg.location
}

// FlexibleEnabled reports whether flexible matching is on by default
func (cfg *Config) FlexibleEnabled() bool {
	return cfg.Flexible == nil || *cfg.Flexible
}

// 🔍 Find returns the first config file present in dir, or "" when there is none
func Find(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	// relative paths in the file are relative to the file
	if cfg.Workspace == "" || !filepath.IsAbs(cfg.Workspace) {
		cfg.Workspace = filepath.Join(filepath.Dir(path), cfg.Workspace)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	cfg.location = path

	return cfg, nil
}

// LoadOrDefault loads path, or the config found in dir when path is empty.
// Without any config file the defaults are returned.
func LoadOrDefault(ctx context.Context, path, dir string) (*Config, error) {
	if path == "" {
		if dir == "" {
			dir = "."
		}
		path = Find(dir)
	}
	if path == "" {
		zerolog.Ctx(ctx).Debug().Str("dir", dir).Msg("no config file found, using defaults")
		return Default(), nil
	}
	return Load(ctx, path)
}

// SetWorkspace moves the config to ws. Backup and database paths that were
// derived from the previous workspace are derived again, explicit ones stay.
func (cfg *Config) SetWorkspace(ws string) {
	prev := filepath.Clean(cfg.Workspace)
	if cfg.BackupDir == defaultBackupDir(prev) {
		cfg.BackupDir = ""
	}
	if cfg.Database == defaultDatabase(prev) {
		cfg.Database = ""
	}
	cfg.Workspace = ws
}

func defaultBackupDir(workspace string) string {
	return filepath.Join(workspace, ".partialedit", "backups")
}

func defaultDatabase(workspace string) string {
	return filepath.Join(workspace, ".partialedit", "scripts.db")
}

// 🔍 Validate checks if the configuration is valid and sets defaults
func (cfg *Config) Validate() error {
	if cfg.Workspace == "" {
		cfg.Workspace = "."
	}
	cfg.Workspace = filepath.Clean(cfg.Workspace)

	if cfg.BackupDir == "" {
		cfg.BackupDir = defaultBackupDir(cfg.Workspace)
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase(cfg.Workspace)
	}
	if cfg.Gate == "" {
		cfg.Gate = "auto"
	}
	if !gateModes[cfg.Gate] {
		return errors.Errorf("gate must be one of auto, prompt, deny, got %q", cfg.Gate)
	}
	if cfg.Concurrency < 0 {
		return errors.Errorf("concurrency must not be negative, got %d", cfg.Concurrency)
	}

	for i, e := range cfg.Edits {
		if e.FileGlob == "" {
			return errors.Errorf("edits[%d]: file_glob is required", i)
		}
		if !doublestar.ValidatePattern(e.FileGlob) {
			return errors.Errorf("edits[%d]: invalid file_glob %q", i, e.FileGlob)
		}
		if e.ExpectedReplacements < 0 {
			return errors.Errorf("edits[%d]: expected_replacements must be at least 1", i)
		}
		if text.IsNoOp(e.Old, e.New) {
			return errors.Errorf("edits[%d]: %w", i, text.ErrNoOp)
		}
	}

	return nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("workspace=%s backups=%s gate=%s edits=%d", cfg.Workspace, cfg.BackupDir, cfg.Gate, len(cfg.Edits))
}
