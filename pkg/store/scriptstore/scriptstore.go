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

// Package scriptstore keeps Apps Script projects in SQLite. Each project is one
// row whose content column holds the project files as a JSON document.
package scriptstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/partialedit/pkg/store"
	"gitlab.com/tozd/go/errors"

	_ "modernc.org/sqlite"
)

var (
	_ store.Store           = (*Store)(nil)
	_ store.Deleter         = (*Store)(nil)
	_ store.ContainerLister = (*Store)(nil)
)

// 📜 File is one source file of a project
type File struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Source string `json:"source"`
}

// 📦 Content is the JSON document stored per project
type Content struct {
	Files []File `json:"files"`
}

func (c *Content) find(name string) int {
	for i, f := range c.Files {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// 🗂️ Project is a stored script project
type Project struct {
	ScriptID  string    `json:"script_id"`
	Title     string    `json:"title"`
	Content   Content   `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// 🗄️ Store implements store.Store over a SQLite database
type Store struct {
	db *sql.DB
}

// 🏭 Open opens (and migrates) the database at path
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, errors.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Errorf("opening database %s: %w", dbPath, err)
	}
	// one writer at a time keeps transactions from tripping over SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Errorf("migrating database: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", dbPath).Msg("opened script database")
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS projects (
			script_id  TEXT PRIMARY KEY,
			title      TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL DEFAULT '{"files":[]}',
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Errorf("executing %q: %w", stmt, err)
		}
	}
	return nil
}

// CreateProject inserts a new project
func (s *Store) CreateProject(ctx context.Context, scriptID, title string, files []File) error {
	if scriptID == "" {
		return errors.New("script id is required")
	}
	if files == nil {
		files = []File{}
	}
	data, err := json.Marshal(Content{Files: files})
	if err != nil {
		return errors.Errorf("encoding project content: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (script_id, title, content, updated_at) VALUES (?, ?, ?, ?)`,
		scriptID, title, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Errorf("inserting project %s: %w", scriptID, err)
	}
	return nil
}

// GetProject loads a project by id
func (s *Store) GetProject(ctx context.Context, scriptID string) (*Project, error) {
	return getProject(ctx, s.db, scriptID)
}

// ListProjects returns the ids of all stored projects
func (s *Store) ListProjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT script_id FROM projects ORDER BY script_id`)
	if err != nil {
		return nil, errors.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Errorf("scanning project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListContainers implements store.ContainerLister, containers are script ids
func (s *Store) ListContainers(ctx context.Context) ([]string, error) {
	return s.ListProjects(ctx)
}

// Read implements store.Store.Read
func (s *Store) Read(ctx context.Context, key store.Key) (*store.Blob, error) {
	p, err := getProject(ctx, s.db, key.Container)
	if err != nil {
		return nil, err
	}

	i := p.Content.find(key.Resource)
	if i < 0 {
		return nil, errors.Errorf("file %s in script %s: %w", key.Resource, key.Container, store.ErrNotFound)
	}

	src := p.Content.Files[i].Source
	return &store.Blob{Content: src, Version: store.Hash(src)}, nil
}

// Write implements store.Store.Write. The project row is rewritten inside a
// transaction so the version check and the update see the same document.
func (s *Store) Write(ctx context.Context, key store.Key, content string, expect store.Version) (store.Version, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := getProject(ctx, tx, key.Container)
	if err != nil {
		return "", err
	}

	i := p.Content.find(key.Resource)
	current := store.Version("")
	if i >= 0 {
		current = store.Hash(p.Content.Files[i].Source)
	}
	if err := store.CheckVersion(key, i >= 0, current, expect); err != nil {
		return "", err
	}

	if i >= 0 {
		p.Content.Files[i].Source = content
	} else {
		p.Content.Files = append(p.Content.Files, File{
			Name:   key.Resource,
			Type:   FileType(key.Resource),
			Source: content,
		})
	}

	if err := putContent(ctx, tx, key.Container, p.Content); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", errors.Errorf("committing %s: %w", key, err)
	}

	zerolog.Ctx(ctx).Debug().Str("script_id", key.Container).Str("file", key.Resource).Bool("created", i < 0).Msg("wrote script file")
	return store.Hash(content), nil
}

// ListKeys implements store.Store.ListKeys
func (s *Store) ListKeys(ctx context.Context, container string) ([]store.Key, error) {
	p, err := getProject(ctx, s.db, container)
	if err != nil {
		return nil, err
	}

	keys := make([]store.Key, 0, len(p.Content.Files))
	for _, f := range p.Content.Files {
		keys = append(keys, store.Key{Container: container, Resource: f.Name})
	}
	return keys, nil
}

// Delete implements store.Deleter
func (s *Store) Delete(ctx context.Context, key store.Key) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := getProject(ctx, tx, key.Container)
	if err != nil {
		return err
	}

	i := p.Content.find(key.Resource)
	if i < 0 {
		return errors.Errorf("file %s in script %s: %w", key.Resource, key.Container, store.ErrNotFound)
	}
	p.Content.Files = append(p.Content.Files[:i], p.Content.Files[i+1:]...)

	if err := putContent(ctx, tx, key.Container, p.Content); err != nil {
		return err
	}
	return tx.Commit()
}

// FileType guesses the Apps Script file type from a file name
func FileType(name string) string {
	switch path.Ext(name) {
	case ".html":
		return "html"
	case ".json":
		return "json"
	default:
		if name == "appsscript" {
			return "json"
		}
		return "server_js"
	}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getProject(ctx context.Context, q querier, scriptID string) (*Project, error) {
	var (
		p         = &Project{ScriptID: scriptID}
		raw       string
		updatedAt string
	)
	err := q.QueryRowContext(ctx,
		`SELECT title, content, updated_at FROM projects WHERE script_id = ?`, scriptID,
	).Scan(&p.Title, &raw, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("script %s: %w", scriptID, store.ErrNotFound)
		}
		return nil, errors.Errorf("loading script %s: %w", scriptID, err)
	}

	if err := json.Unmarshal([]byte(raw), &p.Content); err != nil {
		return nil, errors.Errorf("decoding content of script %s: %w", scriptID, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p, nil
}

func putContent(ctx context.Context, e execer, scriptID string, c Content) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Errorf("encoding content of script %s: %w", scriptID, err)
	}
	_, err = e.ExecContext(ctx,
		`UPDATE projects SET content = ?, updated_at = ? WHERE script_id = ?`,
		string(data), time.Now().UTC().Format(time.RFC3339Nano), scriptID)
	if err != nil {
		return errors.Errorf("updating script %s: %w", scriptID, err)
	}
	return nil
}
