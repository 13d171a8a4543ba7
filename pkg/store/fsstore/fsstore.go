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

// Package fsstore keeps patchable text as files below a workspace root.
package fsstore

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/partialedit/pkg/store"
	"gitlab.com/tozd/go/errors"
)

var (
	_ store.Store   = (*Store)(nil)
	_ store.Deleter = (*Store)(nil)
)

// 📁 Store implements store.Store on the local filesystem
type Store struct {
	root    string
	exclude []string
	mu      sync.Mutex // makes version check and rename one step
}

// Option configures a Store
type Option func(*Store)

// WithExclude hides files matching any of the doublestar patterns from Match
func WithExclude(patterns ...string) Option {
	return func(s *Store) {
		s.exclude = append(s.exclude, patterns...)
	}
}

// 🏭 New creates a store rooted at root
func New(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving root %s: %w", root, err)
	}
	s := &Store{root: abs}
	for _, opt := range opts {
		opt(s)
	}
	for _, p := range s.exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid exclude pattern %q", p)
		}
	}
	return s, nil
}

func (s *Store) excluded(name string) bool {
	for _, p := range s.exclude {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Root returns the absolute workspace root
func (s *Store) Root() string {
	return s.root
}

// KeyFor converts a file path, absolute or relative to the root, into a key
func (s *Store) KeyFor(p string) (store.Key, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return store.Key{}, errors.Errorf("relativizing %s: %w", p, err)
		}
		p = rel
	}
	p = filepath.ToSlash(filepath.Clean(p))
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return store.Key{}, errors.Errorf("path %s is outside of %s", p, s.root)
	}

	dir := path.Dir(p)
	if dir == "." {
		dir = ""
	}
	return store.Key{Container: dir, Resource: path.Base(p)}, nil
}

// 🔒 abs returns the absolute path for key, refusing anything outside the root
func (s *Store) abs(key store.Key) (string, error) {
	if key.Resource == "" {
		return "", errors.Errorf("key %q has no resource name", key.String())
	}
	p := filepath.Join(s.root, filepath.FromSlash(key.Container), filepath.FromSlash(key.Resource))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("path %s is outside of %s", key, s.root)
	}
	return p, nil
}

// Read implements store.Store.Read
func (s *Store) Read(ctx context.Context, key store.Key) (*store.Blob, error) {
	p, err := s.abs(key)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Errorf("%s: %w", key, store.ErrNotFound)
		}
		return nil, errors.Errorf("reading file %s: %w", key, err)
	}

	zerolog.Ctx(ctx).Trace().Str("path", p).Int("bytes", len(content)).Msg("read file")

	c := string(content)
	return &store.Blob{Content: c, Version: store.Hash(c)}, nil
}

// Write implements store.Store.Write
func (s *Store) Write(ctx context.Context, key store.Key, content string, expect store.Version) (store.Version, error) {
	p, err := s.abs(key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mode := fs.FileMode(0644)
	existing, err := os.ReadFile(p)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", errors.Errorf("reading file %s: %w", key, err)
	}
	if exists {
		if info, err := os.Stat(p); err == nil {
			mode = info.Mode().Perm()
		}
	}

	if err := store.CheckVersion(key, exists, store.Hash(string(existing)), expect); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", errors.Errorf("creating parent directories: %w", err)
	}

	if err := WriteFileAtomic(p, []byte(content), mode); err != nil {
		return "", errors.Errorf("writing file %s: %w", key, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", p).Int("bytes", len(content)).Bool("created", !exists).Msg("wrote file")

	return store.Hash(content), nil
}

// ListKeys implements store.Store.ListKeys
func (s *Store) ListKeys(ctx context.Context, container string) ([]store.Key, error) {
	dir, err := s.abs(store.Key{Container: container, Resource: "."})
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), "*")
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", dir, err)
	}

	keys := make([]store.Key, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(filepath.Join(dir, m))
		if err != nil || info.IsDir() {
			continue
		}
		keys = append(keys, store.Key{Container: container, Resource: m})
	}
	return keys, nil
}

// Match returns the keys of every file below the root matching a doublestar pattern
func (s *Store) Match(ctx context.Context, pattern string) ([]store.Key, error) {
	fsys := os.DirFS(s.root)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, errors.Errorf("matching %s: %w", pattern, err)
	}
	sort.Strings(matches)

	keys := make([]store.Key, 0, len(matches))
	for _, m := range matches {
		if s.excluded(m) {
			continue
		}
		info, err := fs.Stat(fsys, m)
		if err != nil || info.IsDir() {
			continue
		}
		key, err := s.KeyFor(m)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	zerolog.Ctx(ctx).Debug().Str("pattern", pattern).Int("matches", len(keys)).Msg("matched files")
	return keys, nil
}

// Delete implements store.Deleter
func (s *Store) Delete(ctx context.Context, key store.Key) error {
	p, err := s.abs(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Errorf("%s: %w", key, store.ErrNotFound)
		}
		return errors.Errorf("deleting file %s: %w", key, err)
	}
	return nil
}

// WriteFileAtomic writes content to a temp file next to p and renames it into place
func WriteFileAtomic(p string, content []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("setting file mode: %w", err)
	}

	// rename is atomic on the same filesystem
	if err := os.Rename(tmpPath, p); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}
