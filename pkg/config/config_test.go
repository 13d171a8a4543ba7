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
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/partialedit/pkg/text"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func boolPtr(b bool) *bool { return &b }

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, dir string, cfg *Config)
	}{
		{
			name: "defaults_relative_to_file",
			file: ".partialedit.yaml",
			config: `
edits:
  - file_glob: "*.go"
    old: foo
    new: bar
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, dir, cfg.Workspace)
				assert.Equal(t, filepath.Join(dir, ".partialedit", "backups"), cfg.BackupDir)
				assert.Equal(t, filepath.Join(dir, ".partialedit", "scripts.db"), cfg.Database)
				assert.Equal(t, "auto", cfg.Gate)
				assert.True(t, cfg.FlexibleEnabled())
				assert.Equal(t, filepath.Join(dir, ".partialedit.yaml"), cfg.Location())
			},
		},
		{
			name:   "relative_workspace",
			file:   ".partialedit.json",
			config: `{"workspace": "site", "backup_dir": "/var/backups/pe"}`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, filepath.Join(dir, "site"), cfg.Workspace)
				assert.Equal(t, "/var/backups/pe", cfg.BackupDir)
			},
		},
		{
			name:   "absolute_workspace",
			file:   ".partialedit.hcl",
			config: "workspace = \"/srv/site\"\n",
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, "/srv/site", cfg.Workspace)
			},
		},
		{
			name:        "bad_gate",
			file:        ".partialedit.yaml",
			config:      "gate: sometimes\n",
			wantErr:     true,
			errContains: "gate must be one of",
		},
		{
			name:        "unsupported_extension",
			file:        "partialedit.toml",
			config:      "gate = 'auto'\n",
			wantErr:     true,
			errContains: "no parser found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			p := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(p, []byte(tt.config), 0644))

			cfg, err := Load(testContext(t), p)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			tt.check(t, dir, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(testContext(t), filepath.Join(t.TempDir(), ".partialedit.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Find(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".partialedit.json"), []byte("{}"), 0644))
	assert.Equal(t, filepath.Join(dir, ".partialedit.json"), Find(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".partialedit.yaml"), []byte(""), 0644))
	assert.Equal(t, filepath.Join(dir, ".partialedit.yaml"), Find(dir), "yaml wins")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ".", cfg.Workspace)
	assert.Equal(t, filepath.Join(".partialedit", "backups"), cfg.BackupDir)
	assert.Equal(t, "auto", cfg.Gate)
	assert.Empty(t, cfg.Location())
}

func TestLoadOrDefault(t *testing.T) {
	ctx := testContext(t)

	t.Run("defaults_without_file", func(t *testing.T) {
		cfg, err := LoadOrDefault(ctx, "", t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, cfg.Location())
		assert.Equal(t, "auto", cfg.Gate)
	})

	t.Run("found_in_dir", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".partialedit.yaml"), []byte("gate: deny\n"), 0644))

		cfg, err := LoadOrDefault(ctx, "", dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, ".partialedit.yaml"), cfg.Location())
		assert.Equal(t, "deny", cfg.Gate)
		assert.Equal(t, dir, cfg.Workspace)
	})

	t.Run("explicit_path_must_exist", func(t *testing.T) {
		_, err := LoadOrDefault(ctx, filepath.Join(t.TempDir(), "missing.yaml"), "")
		assert.Error(t, err)
	})
}

func TestSetWorkspace(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		wantBackupDir string
		wantDatabase  string
	}{
		{
			name:          "derived_paths_follow",
			cfg:           Config{Workspace: "/old"},
			wantBackupDir: filepath.Join("/new", ".partialedit", "backups"),
			wantDatabase:  filepath.Join("/new", ".partialedit", "scripts.db"),
		},
		{
			name:          "explicit_paths_stay",
			cfg:           Config{Workspace: "/old", BackupDir: "/var/backups", Database: "/var/scripts.db"},
			wantBackupDir: "/var/backups",
			wantDatabase:  "/var/scripts.db",
		},
		{
			name:          "mixed",
			cfg:           Config{Workspace: "/old", Database: "/var/scripts.db"},
			wantBackupDir: filepath.Join("/new", ".partialedit", "backups"),
			wantDatabase:  "/var/scripts.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			require.NoError(t, cfg.Validate())

			cfg.SetWorkspace("/new")
			require.NoError(t, cfg.Validate())

			assert.Equal(t, "/new", cfg.Workspace)
			assert.Equal(t, tt.wantBackupDir, cfg.BackupDir)
			assert.Equal(t, tt.wantDatabase, cfg.Database)
		})
	}
}

func TestValidateEdits(t *testing.T) {
	tests := []struct {
		name        string
		edit        Edit
		errContains string
		noOp        bool
	}{
		{name: "ok", edit: Edit{FileGlob: "**/*.go", Old: "a", New: "b"}},
		{name: "missing_glob", edit: Edit{Old: "a", New: "b"}, errContains: "file_glob is required"},
		{name: "bad_glob", edit: Edit{FileGlob: "[a-", Old: "a", New: "b"}, errContains: "invalid file_glob"},
		{name: "negative_expected", edit: Edit{FileGlob: "*", Old: "a", New: "b", ExpectedReplacements: -2}, errContains: "expected_replacements"},
		{name: "no_op", edit: Edit{FileGlob: "*", Old: "a\r\n", New: "a\n"}, noOp: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Edits: []Edit{tt.edit}}
			err := cfg.Validate()
			switch {
			case tt.noOp:
				require.Error(t, err)
				assert.True(t, errors.Is(err, text.ErrNoOp))
			case tt.errContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestEditRule(t *testing.T) {
	e := Edit{FileGlob: "*", Old: "a", New: "b", ExpectedReplacements: 3}
	assert.Equal(t, text.Rule{OldString: "a", NewString: "b", ExpectedReplacements: 3}, e.Rule(true))
	assert.True(t, e.Rule(false).DisableFlexible)

	e.Flexible = boolPtr(true)
	assert.False(t, e.Rule(false).DisableFlexible, "edit setting wins")

	cfg := &Config{Flexible: boolPtr(false)}
	assert.False(t, cfg.FlexibleEnabled())
}
