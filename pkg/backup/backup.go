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

package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/partialedit/pkg/store"
	"github.com/walteh/partialedit/pkg/store/fsstore"
	"gitlab.com/tozd/go/errors"
)

// ErrNoSession is returned when a session has no recorded backups
var ErrNoSession = errors.Base("no backups for session")

// 🧾 Record describes one snapshot taken before a resource was mutated
type Record struct {
	Session    string            `json:"session"`
	Location   store.Key         `json:"location"`
	IsCreation bool              `json:"is_creation"`
	CreatedAt  time.Time         `json:"created_at"`
	Path       string            `json:"path,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// 💼 Sink captures prior content before a write.
//
// prior is nil when the resource did not exist, in which case the sink records
// that the write created it.
//
// taken reports whether this call recorded a new snapshot. Only then may the
// caller Forget it, which it does when the write the snapshot guarded failed.
type Sink interface {
	Snapshot(ctx context.Context, session string, loc store.Key, prior *string, meta map[string]string) (taken bool, err error)
	Forget(ctx context.Context, session string, loc store.Key) error
}

// Discard is a Sink that keeps nothing
var Discard Sink = discard{}

type discard struct{}

func (discard) Snapshot(context.Context, string, store.Key, *string, map[string]string) (bool, error) {
	return false, nil
}

func (discard) Forget(context.Context, string, store.Key) error {
	return nil
}

var _ Sink = (*DirSink)(nil)

// 📂 DirSink stores snapshots as files, one directory per session.
//
// Only the first snapshot of a location within a session is kept, so the
// session can always be rolled back to what existed before it started.
type DirSink struct {
	root string
}

// 🏭 NewDirSink creates a sink rooted at dir
func NewDirSink(dir string) (*DirSink, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Errorf("resolving backup dir %s: %w", dir, err)
	}
	return &DirSink{root: abs}, nil
}

// Root returns the directory backups are kept in
func (d *DirSink) Root() string {
	return d.root
}

func (d *DirSink) sessionDir(session string) (string, error) {
	if session == "" || strings.ContainsAny(session, `/\`) || session == "." || session == ".." {
		return "", errors.Errorf("invalid session id %q", session)
	}
	return filepath.Join(d.root, session), nil
}

// maxNameLen keeps escaped names, plus the .json/.bak suffix, under NAME_MAX
const maxNameLen = 200

// escapeKey turns a key into a file name. Both parts are escaped on their own
// and joined with a comma, which PathEscape always escapes inside a part, so
// distinct keys never share a name. Names that would be too long are hashed.
func escapeKey(key store.Key) string {
	name := url.PathEscape(key.Container) + "," + url.PathEscape(key.Resource)
	if len(name) <= maxNameLen {
		return name
	}
	sum := sha256.Sum256([]byte(key.Container + "\x00" + key.Resource))
	return "sha256-" + hex.EncodeToString(sum[:])
}

// Snapshot implements Sink
func (d *DirSink) Snapshot(ctx context.Context, session string, loc store.Key, prior *string, meta map[string]string) (bool, error) {
	dir, err := d.sessionDir(session)
	if err != nil {
		return false, err
	}

	name := escapeKey(loc)
	recordPath := filepath.Join(dir, name+".json")

	if _, err := os.Stat(recordPath); err == nil {
		zerolog.Ctx(ctx).Debug().Str("session", session).Str("location", loc.String()).Msg("backup already taken in this session")
		return false, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, errors.Errorf("creating session dir: %w", err)
	}

	rec := Record{
		Session:    session,
		Location:   loc,
		IsCreation: prior == nil,
		CreatedAt:  time.Now().UTC(),
		Metadata:   meta,
	}

	if prior != nil {
		rec.Path = filepath.Join(dir, name+".bak")
		if err := fsstore.WriteFileAtomic(rec.Path, []byte(*prior), 0644); err != nil {
			return false, errors.Errorf("writing snapshot of %s: %w", loc, err)
		}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return false, errors.Errorf("encoding backup record: %w", err)
	}
	// the record goes last, it marks the snapshot as complete
	if err := fsstore.WriteFileAtomic(recordPath, data, 0644); err != nil {
		return false, errors.Errorf("writing backup record of %s: %w", loc, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("session", session).
		Str("location", loc.String()).
		Bool("creation", rec.IsCreation).
		Msg("backup taken")

	return true, nil
}

// Forget removes the snapshot of loc from session. A session left empty is
// removed too.
func (d *DirSink) Forget(ctx context.Context, session string, loc store.Key) error {
	dir, err := d.sessionDir(session)
	if err != nil {
		return err
	}

	name := escapeKey(loc)
	// the record goes first so a half forgotten snapshot is never listed
	for _, p := range []string{filepath.Join(dir, name+".json"), filepath.Join(dir, name+".bak")} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Errorf("forgetting backup of %s: %w", loc, err)
		}
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}

	zerolog.Ctx(ctx).Debug().Str("session", session).Str("location", loc.String()).Msg("backup forgotten")
	return nil
}

// Sessions returns every session id with backups, sorted
func (d *DirSink) Sessions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Errorf("reading backup dir: %w", err)
	}

	var sessions []string
	for _, e := range entries {
		if e.IsDir() {
			sessions = append(sessions, e.Name())
		}
	}
	sort.Strings(sessions)
	return sessions, nil
}

// List returns the records of a session, oldest first
func (d *DirSink) List(ctx context.Context, session string) ([]Record, error) {
	dir, err := d.sessionDir(session)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Errorf("%s: %w", session, ErrNoSession)
		}
		return nil, errors.Errorf("reading session dir: %w", err)
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.Errorf("reading backup record %s: %w", e.Name(), err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errors.Errorf("decoding backup record %s: %w", e.Name(), err)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].Location.String() < records[j].Location.String()
	})
	return records, nil
}

// ⏪ Restore puts every resource touched in session back to its snapshot.
// Resources created during the session are deleted when target supports it.
func (d *DirSink) Restore(ctx context.Context, session string, target store.Store) ([]Record, error) {
	records, err := d.List(ctx, session)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)

	for _, rec := range records {
		if rec.IsCreation {
			del, ok := target.(store.Deleter)
			if !ok {
				return nil, errors.Errorf("cannot remove created %s: store does not support deletes", rec.Location)
			}
			if err := del.Delete(ctx, rec.Location); err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, errors.Errorf("removing created %s: %w", rec.Location, err)
			}
			logger.Info().Str("location", rec.Location.String()).Msg("removed resource created in session")
			continue
		}

		prior, err := os.ReadFile(rec.Path)
		if err != nil {
			return nil, errors.Errorf("reading snapshot of %s: %w", rec.Location, err)
		}
		if _, err := target.Write(ctx, rec.Location, string(prior), store.AnyVersion); err != nil {
			return nil, errors.Errorf("restoring %s: %w", rec.Location, err)
		}
		logger.Info().Str("location", rec.Location.String()).Msg("restored resource")
	}

	return records, nil
}
