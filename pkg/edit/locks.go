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
	"sync"

	"github.com/walteh/partialedit/pkg/store"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/semaphore"
)

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

// 🔒 keyLocks serializes work per store key. Entries are dropped once unused.
type keyLocks struct {
	mu    sync.Mutex
	locks map[store.Key]*keyLock
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[store.Key]*keyLock)}
}

func (l *keyLocks) acquire(ctx context.Context, key store.Key) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: semaphore.NewWeighted(1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	if err := kl.sem.Acquire(ctx, 1); err != nil {
		l.drop(key, kl)
		return nil, errors.Errorf("waiting for lock on %s: %w", key, err)
	}

	return func() {
		kl.sem.Release(1)
		l.drop(key, kl)
	}, nil
}

func (l *keyLocks) drop(key store.Key, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *keyLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
