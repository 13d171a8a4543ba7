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

package edit

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/partialedit/pkg/backup"
	"github.com/walteh/partialedit/pkg/gate"
	"github.com/walteh/partialedit/pkg/log"
	"github.com/walteh/partialedit/pkg/store"
	"github.com/walteh/partialedit/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// Restorer is implemented by backup sinks that can roll a session back
type Restorer interface {
	Restore(ctx context.Context, session string, target store.Store) ([]backup.Record, error)
}

// ⚙️ Options configures an Editor
type Options struct {
	// Store holds the content being edited, required
	Store store.Store
	// Backups receives prior content, defaults to backup.Discard
	Backups backup.Sink
	// Gate approves changes, defaults to gate.AutoApprove
	Gate gate.Gate
	// Session groups backups when a request names none, defaults to a new id
	Session string
}

// ✏️ Editor applies partial edits and full writes against a store
type Editor struct {
	store    store.Store
	backups  backup.Sink
	gate     gate.Gate
	session  string
	replacer text.Replacer
	locks    *keyLocks
}

// NewSession returns a fresh session id
func NewSession() string {
	return uuid.NewString()
}

// 🏭 New creates an Editor
func New(opts Options) (*Editor, error) {
	if opts.Store == nil {
		return nil, errors.Errorf("store is required: %w", ErrInvalidRequest)
	}
	e := &Editor{
		store:    opts.Store,
		backups:  opts.Backups,
		gate:     opts.Gate,
		session:  opts.Session,
		replacer: text.NewFlexibleTextReplacer(),
		locks:    newKeyLocks(),
	}
	if e.backups == nil {
		e.backups = backup.Discard
	}
	if e.gate == nil {
		e.gate = gate.AutoApprove
	}
	if e.session == "" {
		e.session = NewSession()
	}
	return e, nil
}

// Session returns the default session id
func (e *Editor) Session() string {
	return e.session
}

// Store returns the underlying store
func (e *Editor) Store() store.Store {
	return e.store
}

// 📝 Request is a single partial edit
type Request struct {
	Key                  store.Key
	Session              string
	OldString            string
	NewString            string
	ExpectedReplacements int
	DisableFlexible      bool
}

// Rule returns the engine rule for the request
func (r Request) Rule() text.Rule {
	return text.Rule{
		OldString:            r.OldString,
		NewString:            r.NewString,
		ExpectedReplacements: r.ExpectedReplacements,
		DisableFlexible:      r.DisableFlexible,
	}
}

// 📊 Outcome describes a persisted change
type Outcome struct {
	Key         store.Key `json:"key"`
	Session     string    `json:"session"`
	Occurrences int       `json:"occurrences"`
	Tier        string    `json:"tier,omitempty"`
	Version     string    `json:"version"`
	Created     bool      `json:"created,omitempty"`
	Diff        string    `json:"diff,omitempty"`
	Added       int       `json:"lines_added"`
	Removed     int       `json:"lines_removed"`
}

func (o *Outcome) withDiff(diff string) *Outcome {
	o.Diff = diff
	o.Added, o.Removed = gate.Stats(diff)
	return o
}

func (e *Editor) sessionFor(s string) string {
	if s == "" {
		return e.session
	}
	return s
}

func validateKey(key store.Key) error {
	if key.Resource == "" {
		return errors.Errorf("resource name is required: %w", ErrInvalidRequest)
	}
	return nil
}

// read loads key, turning a missing resource into a NotFoundError listing its
// siblings, or the known containers when the container is missing too
func (e *Editor) read(ctx context.Context, key store.Key) (*store.Blob, error) {
	blob, err := e.store.Read(ctx, key)
	if err == nil {
		return blob, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, errors.Errorf("reading %s: %w", key, err)
	}

	logger := zerolog.Ctx(ctx).With().Str("container", key.Container).Logger()
	nf := &NotFoundError{Key: key}

	keys, lerr := e.store.ListKeys(ctx, key.Container)
	switch {
	case lerr == nil:
		nf.Available = store.ResourceNames(keys)
	case errors.Is(lerr, store.ErrNotFound):
		if cl, ok := e.store.(store.ContainerLister); ok {
			ids, cerr := cl.ListContainers(ctx)
			if cerr != nil {
				logger.Debug().Err(cerr).Msg("listing containers failed")
			}
			nf.Containers = ids
		}
	default:
		logger.Debug().Err(lerr).Msg("listing siblings failed")
	}
	return nil, errors.WithStack(nf)
}

func (e *Editor) confirm(ctx context.Context, req gate.Request) error {
	ok, err := e.gate.Confirm(ctx, req)
	if err != nil {
		return errors.Errorf("confirming change: %w", err)
	}
	if !ok {
		return errors.Errorf("%s: %w", req.Title, ErrRejected)
	}
	return nil
}

// snapshot hands prior content to the backup sink and reports whether this call
// took a new snapshot. Failures are logged only.
func (e *Editor) snapshot(ctx context.Context, session string, key store.Key, prior *string, meta map[string]string) bool {
	taken, err := e.backups.Snapshot(ctx, session, key, prior, meta)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session", session).Str("location", key.String()).Msg("backup failed, continuing without it")
		log.FromContext(ctx).Warningf("backup of %s failed, continuing without it", key)
		return false
	}
	return taken
}

// write persists content and drops a snapshot taken for it when the write fails.
// The prior content of a failed write was never the session baseline, restoring
// it would clobber whatever the store holds now.
func (e *Editor) write(ctx context.Context, session string, key store.Key, content string, expect store.Version, taken bool) (store.Version, error) {
	version, err := e.store.Write(ctx, key, content, expect)
	if err == nil {
		return version, nil
	}
	if taken {
		if ferr := e.backups.Forget(ctx, session, key); ferr != nil {
			zerolog.Ctx(ctx).Warn().Err(ferr).Str("session", session).Str("location", key.String()).Msg("dropping backup of failed write")
		}
	}
	return "", errors.Errorf("writing %s: %w", key, err)
}

// 🔧 PartialEdit replaces OldString with NewString inside one resource.
//
// Nothing is written unless the number of occurrences found equals the expected
// count. The write is conditional on the version read, so a concurrent change
// made outside this editor surfaces as ErrConflict.
func (e *Editor) PartialEdit(ctx context.Context, req Request) (*Outcome, error) {
	if err := validateKey(req.Key); err != nil {
		return nil, err
	}
	if req.ExpectedReplacements < 0 {
		return nil, errors.Errorf("expected_replacements must be at least 1, got %d: %w", req.ExpectedReplacements, ErrInvalidRequest)
	}
	if text.IsNoOp(req.OldString, req.NewString) {
		return nil, errors.Errorf("%s: %w", req.Key, ErrNoOp)
	}

	logger := zerolog.Ctx(ctx).With().Str("key", req.Key.String()).Logger()
	session := e.sessionFor(req.Session)
	rule := req.Rule()

	release, err := e.locks.acquire(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	defer release()

	blob, err := e.read(ctx, req.Key)
	if err != nil {
		return nil, err
	}

	risks := []string{"will modify existing content"}
	if rule.Expected() > 1 {
		risks = append(risks, fmt.Sprintf("replaces %d occurrences", rule.Expected()))
	}
	if err := e.confirm(ctx, gate.Request{
		Title:       "Edit " + req.Key.String(),
		Description: fmt.Sprintf("Replace %d occurrence(s) of %s", rule.Expected(), excerpt(req.OldString)),
		Diff:        gate.Diff(req.OldString, req.NewString),
		Risks:       risks,
	}); err != nil {
		return nil, err
	}

	res := text.Apply(blob.Content, rule)
	logger.Debug().Int("occurrences", res.Occurrences).Str("tier", res.Tier.String()).Msg("applied rule")

	if err := checkOccurrences(req.Key, res, rule); err != nil {
		return nil, err
	}

	taken := e.snapshot(ctx, session, req.Key, &blob.Content, map[string]string{
		"tool":        "partial_edit",
		"occurrences": strconv.Itoa(res.Occurrences),
		"tier":        res.Tier.String(),
	})

	version, err := e.write(ctx, session, req.Key, res.Content, blob.Version, taken)
	if err != nil {
		return nil, err
	}

	logger.Info().Int("occurrences", res.Occurrences).Msg("partial edit applied")

	out := &Outcome{
		Key:         req.Key,
		Session:     session,
		Occurrences: res.Occurrences,
		Tier:        res.Tier.String(),
		Version:     string(version),
	}
	return out.withDiff(gate.Diff(blob.Content, res.Content)), nil
}

func checkOccurrences(key store.Key, res text.Result, rule text.Rule) error {
	if res.Occurrences == 0 {
		return errors.Errorf("%s not found in %s: %w", excerpt(rule.OldString), key, ErrNoMatch)
	}
	if res.Occurrences != rule.Expected() {
		return errors.WithStack(&MismatchError{Resource: key.String(), Expected: rule.Expected(), Actual: res.Occurrences})
	}
	return nil
}

// 📚 MultiRequest applies several rules to one resource as a unit
type MultiRequest struct {
	Key     store.Key
	Session string
	Edits   []text.Rule
}

// MultiEdit applies every rule in order, each against the output of the previous
// one. Either all rules match their expected counts and the result is written, or
// nothing is.
func (e *Editor) MultiEdit(ctx context.Context, req MultiRequest) (*Outcome, error) {
	if err := validateKey(req.Key); err != nil {
		return nil, err
	}
	if len(req.Edits) == 0 {
		return nil, errors.Errorf("at least one edit is required: %w", ErrInvalidRequest)
	}
	if err := e.replacer.ValidateRules(req.Edits); err != nil {
		if errors.Is(err, ErrNoOp) {
			return nil, errors.Errorf("%s: %w", req.Key, err)
		}
		return nil, errors.Errorf("%s: %s: %w", req.Key, err.Error(), ErrInvalidRequest)
	}

	session := e.sessionFor(req.Session)

	release, err := e.locks.acquire(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	defer release()

	blob, err := e.read(ctx, req.Key)
	if err != nil {
		return nil, err
	}

	var diffs []string
	for _, r := range req.Edits {
		diffs = append(diffs, gate.Diff(r.OldString, r.NewString))
	}
	if err := e.confirm(ctx, gate.Request{
		Title:       "Edit " + req.Key.String(),
		Description: fmt.Sprintf("Apply %d edits", len(req.Edits)),
		Diff:        strings.Join(diffs, "...\n"),
		Risks:       []string{"will modify existing content"},
	}); err != nil {
		return nil, err
	}

	out, err := e.replacer.ReplaceText(ctx, strings.NewReader(blob.Content), req.Edits)
	if err != nil {
		return nil, errors.Errorf("applying edits to %s: %w", req.Key, err)
	}
	for i, res := range out.Results {
		if err := checkOccurrences(req.Key, res, req.Edits[i]); err != nil {
			return nil, errors.Errorf("edit %d: %w", i, err)
		}
	}

	taken := e.snapshot(ctx, session, req.Key, &blob.Content, map[string]string{
		"tool":  "multi_edit",
		"edits": strconv.Itoa(len(req.Edits)),
	})

	newContent := string(out.ModifiedContent)
	version, err := e.write(ctx, session, req.Key, newContent, blob.Version, taken)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("key", req.Key.String()).Int("occurrences", out.ReplacementCount).Msg("multi edit applied")

	res := &Outcome{
		Key:         req.Key,
		Session:     session,
		Occurrences: out.ReplacementCount,
		Version:     string(version),
	}
	return res.withDiff(gate.Diff(blob.Content, newContent)), nil
}

// 💾 WriteRequest replaces (or creates) a whole resource
type WriteRequest struct {
	Key     store.Key
	Session string
	Content string
}

// WriteFile writes the full content of a resource, creating it when missing
func (e *Editor) WriteFile(ctx context.Context, req WriteRequest) (*Outcome, error) {
	if err := validateKey(req.Key); err != nil {
		return nil, err
	}

	session := e.sessionFor(req.Session)

	release, err := e.locks.acquire(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		prior  *string
		expect = store.NoVersion
		before string
	)
	blob, err := e.store.Read(ctx, req.Key)
	switch {
	case err == nil:
		prior = &blob.Content
		expect = blob.Version
		before = blob.Content
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, errors.Errorf("reading %s: %w", req.Key, err)
	}

	diff := gate.Diff(before, req.Content)

	gr := gate.Request{
		Title:       "Create " + req.Key.String(),
		Description: fmt.Sprintf("Write %d bytes", len(req.Content)),
		Diff:        diff,
	}
	if prior != nil {
		gr.Title = "Overwrite " + req.Key.String()
		gr.Risks = []string{"will overwrite existing content"}
	}
	if err := e.confirm(ctx, gr); err != nil {
		return nil, err
	}

	taken := e.snapshot(ctx, session, req.Key, prior, map[string]string{"tool": "write_file"})

	version, err := e.write(ctx, session, req.Key, req.Content, expect, taken)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("key", req.Key.String()).Bool("created", prior == nil).Msg("file written")

	out := &Outcome{
		Key:     req.Key,
		Session: session,
		Version: string(version),
		Created: prior == nil,
	}
	return out.withDiff(diff), nil
}

// ⏪ Rollback restores every resource touched in session
func (e *Editor) Rollback(ctx context.Context, session string) ([]backup.Record, error) {
	r, ok := e.backups.(Restorer)
	if !ok {
		return nil, errors.New("backup sink does not support rollback")
	}
	records, err := r.Restore(ctx, e.sessionFor(session), e.store)
	if err != nil {
		return nil, errors.Errorf("rolling back session: %w", err)
	}
	return records, nil
}

func excerpt(s string) string {
	const limit = 60
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return strconv.Quote(s)
}
