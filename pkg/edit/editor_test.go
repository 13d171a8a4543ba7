package edit

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/partialedit/pkg/backup"
	"github.com/walteh/partialedit/pkg/gate"
	"github.com/walteh/partialedit/pkg/store"
	"github.com/walteh/partialedit/pkg/store/fsstore"
	"github.com/walteh/partialedit/pkg/store/scriptstore"
	"github.com/walteh/partialedit/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// 🔧 MockStore is a spy implementation of store.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Read(ctx context.Context, key store.Key) (*store.Blob, error) {
	result := m.Called(ctx, key)
	blob, _ := result.Get(0).(*store.Blob)
	return blob, result.Error(1)
}

func (m *MockStore) Write(ctx context.Context, key store.Key, content string, expect store.Version) (store.Version, error) {
	result := m.Called(ctx, key, content, expect)
	return result.Get(0).(store.Version), result.Error(1)
}

func (m *MockStore) ListKeys(ctx context.Context, container string) ([]store.Key, error) {
	result := m.Called(ctx, container)
	keys, _ := result.Get(0).([]store.Key)
	return keys, result.Error(1)
}

// 🎞️ recordingSink remembers every snapshot it is given
type recordingSink struct {
	mu        sync.Mutex
	calls     []string
	forgotten []string
	err       error
}

func (r *recordingSink) Snapshot(ctx context.Context, session string, loc store.Key, prior *string, meta map[string]string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := "<created>"
	if prior != nil {
		p = *prior
	}
	r.calls = append(r.calls, fmt.Sprintf("%s|%s|%s", session, loc, p))
	return r.err == nil, r.err
}

func (r *recordingSink) Forget(ctx context.Context, session string, loc store.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgotten = append(r.forgotten, fmt.Sprintf("%s|%s", session, loc))
	return nil
}

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

var testKey = store.Key{Container: "script-1", Resource: "Code"}

func blobOf(content string) *store.Blob {
	return &store.Blob{Content: content, Version: store.Hash(content)}
}

func TestPartialEdit(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		req         Request
		wantContent string
		wantCount   int
		wantTier    string
		wantKind    string
		errContains []string
	}{
		{
			name:        "scenario_exact_single",
			content:     "a\nb\nc",
			req:         Request{OldString: "b", NewString: "X", ExpectedReplacements: 1},
			wantContent: "a\nX\nc",
			wantCount:   1,
			wantTier:    "exact",
		},
		{
			name:        "scenario_mismatch_not_persisted",
			content:     "a\na\na",
			req:         Request{OldString: "a", NewString: "z"},
			wantKind:    KindOccurrenceMismatch,
			errContains: []string{"expected 1", "found 3", "script-1/Code"},
		},
		{
			name:        "scenario_flexible_indent",
			content:     "  if (x) {\n    doStuff();\n  }",
			req:         Request{OldString: "doStuff();", NewString: "doOtherStuff();"},
			wantContent: "  if (x) {\n    doOtherStuff();\n  }",
			wantCount:   1,
		},
		{
			name:        "scenario_no_match",
			content:     "hello",
			req:         Request{OldString: "goodbye", NewString: "bye"},
			wantKind:    KindNoMatch,
			errContains: []string{"goodbye", "script-1/Code"},
		},
		{
			name:        "multiple_expected",
			content:     "x = 1\nx = 1\n",
			req:         Request{OldString: "x = 1", NewString: "x = 2", ExpectedReplacements: 2},
			wantContent: "x = 2\nx = 2\n",
			wantCount:   2,
			wantTier:    "exact",
		},
		{
			name:        "flexible_block",
			content:     "func f() {\n\tif ok {\n\t\treturn\n\t}\n}\n",
			req:         Request{OldString: "if ok {\n  return\n}", NewString: "if !ok {\npanic(1)\n}"},
			wantContent: "func f() {\n\tif !ok {\n\tpanic(1)\n\t}\n}\n",
			wantCount:   1,
			wantTier:    "flexible",
		},
		{
			name:     "flexible_disabled",
			content:  "\tfoo()\n",
			req:      Request{OldString: "foo()  ", NewString: "bar()", DisableFlexible: true},
			wantKind: KindNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			s := &MockStore{}
			sink := &recordingSink{}

			s.On("Read", mock.Anything, testKey).Return(blobOf(tt.content), nil)
			if tt.wantKind == "" {
				s.On("Write", mock.Anything, testKey, tt.wantContent, store.Hash(tt.content)).Return(store.Hash(tt.wantContent), nil)
			}

			e, err := New(Options{Store: s, Backups: sink, Session: "s1"})
			require.NoError(t, err)

			req := tt.req
			req.Key = testKey
			out, err := e.PartialEdit(ctx, req)

			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				for _, c := range tt.errContains {
					assert.Contains(t, err.Error(), c)
				}
				s.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				assert.Empty(t, sink.calls, "no backup without a write")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, out.Occurrences)
			if tt.wantTier != "" {
				assert.Equal(t, tt.wantTier, out.Tier)
			}
			assert.Equal(t, string(store.Hash(tt.wantContent)), out.Version)
			assert.Equal(t, "s1", out.Session)
			assert.NotEmpty(t, out.Diff)
			assert.Equal(t, []string{"s1|script-1/Code|" + tt.content}, sink.calls)
			s.AssertExpectations(t)
		})
	}
}

func TestMismatchErrorCarriesCounts(t *testing.T) {
	ctx := testContext(t)
	s := &MockStore{}
	s.On("Read", mock.Anything, testKey).Return(blobOf("a\na\na"), nil)

	e, err := New(Options{Store: s})
	require.NoError(t, err)

	_, err = e.PartialEdit(ctx, Request{Key: testKey, OldString: "a", NewString: "z"})
	require.Error(t, err)

	var mm *MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, 1, mm.Expected)
	assert.Equal(t, 3, mm.Actual)
	assert.Equal(t, "script-1/Code", mm.Resource)
	assert.True(t, errors.Is(err, ErrOccurrenceMismatch))
}

func TestPartialEditRejectsBeforeIO(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		wantKind string
	}{
		{
			name:     "no_op",
			req:      Request{Key: testKey, OldString: "same", NewString: "same"},
			wantKind: KindNoOp,
		},
		{
			name:     "no_op_after_line_ending_normalization",
			req:      Request{Key: testKey, OldString: "a\r\nb", NewString: "a\nb"},
			wantKind: KindNoOp,
		},
		{
			name:     "missing_resource",
			req:      Request{Key: store.Key{Container: "script-1"}, OldString: "a", NewString: "b"},
			wantKind: KindInvalidRequest,
		},
		{
			name:     "negative_expected",
			req:      Request{Key: testKey, OldString: "a", NewString: "b", ExpectedReplacements: -1},
			wantKind: KindInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &MockStore{}
			e, err := New(Options{Store: s})
			require.NoError(t, err)

			_, err = e.PartialEdit(testContext(t), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			s.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)
			s.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPartialEditNotFoundListsSiblings(t *testing.T) {
	ctx := testContext(t)
	s := &MockStore{}
	missing := store.Key{Container: "script-1", Resource: "Cod"}
	s.On("Read", mock.Anything, missing).Return(nil, errors.Errorf("x: %w", store.ErrNotFound))
	s.On("ListKeys", mock.Anything, "script-1").Return([]store.Key{
		{Container: "script-1", Resource: "Code"},
		{Container: "script-1", Resource: "index.html"},
	}, nil)

	e, err := New(Options{Store: s})
	require.NoError(t, err)

	_, err = e.PartialEdit(ctx, Request{Key: missing, OldString: "a", NewString: "b"})
	require.Error(t, err)
	assert.Equal(t, KindResourceNotFound, KindOf(err))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"Code", "index.html"}, nf.Available)
	assert.Contains(t, err.Error(), "available: Code, index.html")
	s.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotFoundListsContainers(t *testing.T) {
	ctx := testContext(t)
	ss, err := scriptstore.Open(ctx, filepath.Join(t.TempDir(), "scripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	require.NoError(t, ss.CreateProject(ctx, "script-a", "", []scriptstore.File{{Name: "Code", Source: "a()\n"}}))
	require.NoError(t, ss.CreateProject(ctx, "script-b", "", nil))

	e, err := New(Options{Store: ss})
	require.NoError(t, err)

	tests := []struct {
		name           string
		key            store.Key
		wantAvailable  []string
		wantContainers []string
		wantMessage    string
	}{
		{
			name:           "unknown_script",
			key:            store.Key{Container: "script-z", Resource: "Code"},
			wantContainers: []string{"script-a", "script-b"},
			wantMessage:    "known containers: script-a, script-b",
		},
		{
			name:          "unknown_file",
			key:           store.Key{Container: "script-a", Resource: "Cod"},
			wantAvailable: []string{"Code"},
			wantMessage:   "available: Code",
		},
		{
			name: "empty_script",
			key:  store.Key{Container: "script-b", Resource: "Code"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.PartialEdit(ctx, Request{Key: tt.key, OldString: "a()", NewString: "b()"})
			require.Error(t, err)
			assert.Equal(t, KindResourceNotFound, KindOf(err))

			var nf *NotFoundError
			require.True(t, errors.As(err, &nf))
			assert.Equal(t, tt.wantContainers, nf.Containers)
			if tt.wantAvailable == nil {
				assert.Empty(t, nf.Available)
			} else {
				assert.Equal(t, tt.wantAvailable, nf.Available)
			}
			if tt.wantMessage != "" {
				assert.Contains(t, err.Error(), tt.wantMessage)
			}
		})
	}
}

func TestPartialEditGateRefusal(t *testing.T) {
	ctx := testContext(t)
	s := &MockStore{}
	s.On("Read", mock.Anything, testKey).Return(blobOf("a\nb\nc"), nil)

	var seen gate.Request
	refuse := gate.Func(func(ctx context.Context, req gate.Request) (bool, error) {
		seen = req
		return false, nil
	})

	sink := &recordingSink{}
	e, err := New(Options{Store: s, Gate: refuse, Backups: sink})
	require.NoError(t, err)

	_, err = e.PartialEdit(ctx, Request{Key: testKey, OldString: "b", NewString: "X"})
	require.Error(t, err)
	assert.Equal(t, KindRejected, KindOf(err))
	assert.Equal(t, "Edit script-1/Code", seen.Title)
	assert.Contains(t, seen.Diff, "-b")
	assert.Contains(t, seen.Diff, "+X")
	assert.Contains(t, seen.Risks, "will modify existing content")
	assert.Empty(t, sink.calls)
	s.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPartialEditBackupFailureIsNotFatal(t *testing.T) {
	ctx := testContext(t)
	s := &MockStore{}
	s.On("Read", mock.Anything, testKey).Return(blobOf("a\nb\nc"), nil)
	s.On("Write", mock.Anything, testKey, "a\nX\nc", store.Hash("a\nb\nc")).Return(store.Hash("a\nX\nc"), nil)

	sink := &recordingSink{err: errors.New("disk full")}
	e, err := New(Options{Store: s, Backups: sink})
	require.NoError(t, err)

	out, err := e.PartialEdit(ctx, Request{Key: testKey, OldString: "b", NewString: "X"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Occurrences)
	assert.Len(t, sink.calls, 1)
	s.AssertExpectations(t)
}

func TestPartialEditConflict(t *testing.T) {
	ctx := testContext(t)
	s := &MockStore{}
	s.On("Read", mock.Anything, testKey).Return(blobOf("a\nb\nc"), nil)
	s.On("Write", mock.Anything, testKey, "a\nX\nc", store.Hash("a\nb\nc")).Return(store.Version(""), errors.Errorf("x: %w", store.ErrConflict))

	sink := &recordingSink{}
	e, err := New(Options{Store: s, Backups: sink, Session: "s1"})
	require.NoError(t, err)

	_, err = e.PartialEdit(ctx, Request{Key: testKey, OldString: "b", NewString: "X"})
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, []string{"s1|script-1/Code"}, sink.forgotten, "the snapshot of a failed write is dropped")
}

func TestPartialEditBackupFailureForgetsNothing(t *testing.T) {
	ctx := testContext(t)
	s := &MockStore{}
	s.On("Read", mock.Anything, testKey).Return(blobOf("a\nb\nc"), nil)
	s.On("Write", mock.Anything, testKey, "a\nX\nc", store.Hash("a\nb\nc")).Return(store.Version(""), errors.Errorf("x: %w", store.ErrConflict))

	sink := &recordingSink{err: errors.New("disk full")}
	e, err := New(Options{Store: s, Backups: sink})
	require.NoError(t, err)

	_, err = e.PartialEdit(ctx, Request{Key: testKey, OldString: "b", NewString: "X"})
	require.Error(t, err)
	assert.Empty(t, sink.forgotten)
}

// externalWriter is a gate that changes the resource behind the editor's back
// before approving, the way another process would between read and write.
func externalWriter(t *testing.T, fs *fsstore.Store, key store.Key, content string) gate.Gate {
	return gate.Func(func(ctx context.Context, req gate.Request) (bool, error) {
		_, err := fs.Write(ctx, key, content, store.AnyVersion)
		require.NoError(t, err)
		return true, nil
	})
}

func TestFailedWriteLeavesNoBackup(t *testing.T) {
	const external = "package main\n\n// edited elsewhere\nfunc main() {}\n"

	tests := []struct {
		name     string
		existing bool
		run      func(ctx context.Context, e *Editor, key store.Key) error
	}{
		{
			name:     "partial_edit",
			existing: true,
			run: func(ctx context.Context, e *Editor, key store.Key) error {
				_, err := e.PartialEdit(ctx, Request{Key: key, OldString: "func main() {}", NewString: "func main() { run() }"})
				return err
			},
		},
		{
			name:     "multi_edit",
			existing: true,
			run: func(ctx context.Context, e *Editor, key store.Key) error {
				_, err := e.MultiEdit(ctx, MultiRequest{Key: key, Edits: []text.Rule{{OldString: "package main", NewString: "package app"}}})
				return err
			},
		},
		{
			name:     "overwrite",
			existing: true,
			run: func(ctx context.Context, e *Editor, key store.Key) error {
				_, err := e.WriteFile(ctx, WriteRequest{Key: key, Content: "package other\n"})
				return err
			},
		},
		{
			name: "create",
			run: func(ctx context.Context, e *Editor, key store.Key) error {
				_, err := e.WriteFile(ctx, WriteRequest{Key: key, Content: "package other\n"})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _, fs, sink := setupFSEditor(t)
			key := store.Key{Container: "src", Resource: "main.go"}
			if tt.existing {
				_, err := fs.Write(ctx, key, "package main\n\nfunc main() {}\n", store.NoVersion)
				require.NoError(t, err)
			}

			e, err := New(Options{Store: fs, Backups: sink, Session: "s1", Gate: externalWriter(t, fs, key, external)})
			require.NoError(t, err)

			err = tt.run(ctx, e, key)
			require.Error(t, err)
			assert.Equal(t, KindConflict, KindOf(err))

			_, err = sink.List(ctx, "s1")
			assert.True(t, errors.Is(err, backup.ErrNoSession), "no backup is kept for a write that never happened")

			_, err = e.Rollback(ctx, "s1")
			require.Error(t, err)

			blob, err := fs.Read(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, external, blob.Content, "the external change survives")
		})
	}
}

func TestFailedWriteKeepsEarlierBackup(t *testing.T) {
	ctx, e, fs, sink := setupFSEditor(t)
	key := store.Key{Container: "src", Resource: "main.go"}
	_, err := fs.Write(ctx, key, "v0\n", store.NoVersion)
	require.NoError(t, err)

	_, err = e.PartialEdit(ctx, Request{Key: key, OldString: "v0", NewString: "v1"})
	require.NoError(t, err)

	racer, err := New(Options{Store: fs, Backups: sink, Session: "s1", Gate: externalWriter(t, fs, key, "v2\n")})
	require.NoError(t, err)
	_, err = racer.PartialEdit(ctx, Request{Key: key, OldString: "v1", NewString: "v3"})
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))

	records, err := sink.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, records, 1, "the baseline from the first edit is not dropped")

	_, err = e.Rollback(ctx, "s1")
	require.NoError(t, err)
	blob, err := fs.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v0\n", blob.Content)
}

func TestPartialEditCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	s := &MockStore{}
	e, err := New(Options{Store: s})
	require.NoError(t, err)

	// hold the key so the edit has to wait for it
	release, err := e.locks.acquire(context.Background(), testKey)
	require.NoError(t, err)
	defer release()

	cancel()
	_, err = e.PartialEdit(ctx, Request{Key: testKey, OldString: "a", NewString: "b"})
	require.Error(t, err)
	assert.Equal(t, KindCanceled, KindOf(err))
	s.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)
}

func setupFSEditor(t *testing.T) (context.Context, *Editor, *fsstore.Store, *backup.DirSink) {
	ctx := testContext(t)
	fs, err := fsstore.New(t.TempDir())
	require.NoError(t, err)
	sink, err := backup.NewDirSink(filepath.Join(t.TempDir(), "backups"))
	require.NoError(t, err)
	e, err := New(Options{Store: fs, Backups: sink, Session: "s1"})
	require.NoError(t, err)
	return ctx, e, fs, sink
}

func TestWriteFileAndRollback(t *testing.T) {
	ctx, e, fs, sink := setupFSEditor(t)
	existing := store.Key{Container: "src", Resource: "main.go"}
	created := store.Key{Container: "src", Resource: "util.go"}

	_, err := fs.Write(ctx, existing, "package main\n\nfunc main() {}\n", store.NoVersion)
	require.NoError(t, err)

	out, err := e.PartialEdit(ctx, Request{Key: existing, OldString: "func main() {}", NewString: "func main() {\n\trun()\n}"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Occurrences)

	out, err = e.PartialEdit(ctx, Request{Key: existing, OldString: "run()", NewString: "runAll()"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Occurrences)

	out, err = e.WriteFile(ctx, WriteRequest{Key: created, Content: "package main\n"})
	require.NoError(t, err)
	assert.True(t, out.Created)

	records, err := sink.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, records, 2, "one record per location")

	records, err = e.Rollback(ctx, "")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	blob, err := fs.Read(ctx, existing)
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc main() {}\n", blob.Content, "rolled back to the pre-session content")

	_, err = fs.Read(ctx, created)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestWriteFileOverwriteRisk(t *testing.T) {
	ctx, _, fs, sink := setupFSEditor(t)
	key := store.Key{Resource: "notes.txt"}
	_, err := fs.Write(ctx, key, "old\n", store.NoVersion)
	require.NoError(t, err)

	var seen gate.Request
	e, err := New(Options{Store: fs, Backups: sink, Gate: gate.Func(func(ctx context.Context, req gate.Request) (bool, error) {
		seen = req
		return true, nil
	})})
	require.NoError(t, err)

	out, err := e.WriteFile(ctx, WriteRequest{Key: key, Content: "new\n"})
	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.Equal(t, "Overwrite notes.txt", seen.Title)
	assert.Equal(t, []string{"will overwrite existing content"}, seen.Risks)
	assert.Equal(t, "-old\n+new\n", out.Diff)
	assert.Equal(t, 1, out.Added)
	assert.Equal(t, 1, out.Removed)
}

func TestMultiEdit(t *testing.T) {
	tests := []struct {
		name        string
		edits       []text.Rule
		wantContent string
		wantKind    string
	}{
		{
			name: "all_match",
			edits: []text.Rule{
				{OldString: "alpha", NewString: "one"},
				{OldString: "beta", NewString: "two"},
			},
			wantContent: "one\ntwo\ngamma\n",
		},
		{
			name: "later_rule_sees_earlier_output",
			edits: []text.Rule{
				{OldString: "alpha", NewString: "beta"},
				{OldString: "beta", NewString: "delta", ExpectedReplacements: 2},
			},
			wantContent: "delta\ndelta\ngamma\n",
		},
		{
			name: "one_miss_writes_nothing",
			edits: []text.Rule{
				{OldString: "alpha", NewString: "one"},
				{OldString: "omega", NewString: "two"},
			},
			wantKind: KindNoMatch,
		},
		{
			name:     "no_op_rule",
			edits:    []text.Rule{{OldString: "alpha", NewString: "alpha"}},
			wantKind: KindNoOp,
		},
		{
			name:     "empty",
			wantKind: KindInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, e, fs, _ := setupFSEditor(t)
			key := store.Key{Resource: "greek.txt"}
			const original = "alpha\nbeta\ngamma\n"
			_, err := fs.Write(ctx, key, original, store.NoVersion)
			require.NoError(t, err)

			_, err = e.MultiEdit(ctx, MultiRequest{Key: key, Edits: tt.edits})

			blob, rerr := fs.Read(ctx, key)
			require.NoError(t, rerr)

			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				assert.Equal(t, original, blob.Content)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantContent, blob.Content)
		})
	}
}

func TestConcurrentEditsSerialize(t *testing.T) {
	ctx, e, fs, _ := setupFSEditor(t)
	key := store.Key{Resource: "counter.txt"}
	_, err := fs.Write(ctx, key, "v0\n", store.NoVersion)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.PartialEdit(ctx, Request{Key: key, OldString: "\n", NewString: fmt.Sprintf("+%d\n", i)})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	blob, err := fs.Read(ctx, key)
	require.NoError(t, err)
	assert.Len(t, blob.Content, len("v0")+n*len("+0")+1, "every edit landed")
	assert.Zero(t, e.locks.size(), "locks are released")
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	e, err := New(Options{Store: &MockStore{}})
	require.NoError(t, err)
	assert.NotEmpty(t, e.Session())
}
