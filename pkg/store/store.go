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

package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNotFound is returned by Read when a key has no content
	ErrNotFound = errors.Base("resource not found")

	// ErrConflict is returned by Write when the stored version no longer matches
	ErrConflict = errors.Base("resource changed since it was read")
)

// 🔑 Key addresses one text blob inside a container
type Key struct {
	// Container groups resources, a directory or a script id
	Container string `json:"container"`
	// Resource names the blob inside the container, a file name
	Resource string `json:"resource"`
}

// String returns a string representation of the key
func (k Key) String() string {
	if k.Container == "" {
		return k.Resource
	}
	return path.Join(k.Container, k.Resource)
}

// 🏷️ Version is an opaque token identifying stored content
type Version string

const (
	// NoVersion asks Write to succeed only if the key does not exist yet
	NoVersion Version = ""
	// AnyVersion disables the compare-and-swap check
	AnyVersion Version = "*"
)

// Hash computes the version of content
func Hash(content string) Version {
	sum := sha256.Sum256([]byte(content))
	return Version(hex.EncodeToString(sum[:]))
}

// 📄 Blob is content read from a store together with its version
type Blob struct {
	Content string
	Version Version
}

// 💾 Store is the persistence boundary for text being patched
type Store interface {
	// Read returns the content at key, or an error wrapping ErrNotFound
	Read(ctx context.Context, key Key) (*Blob, error)

	// Write upserts content at key if the current version equals expect,
	// and returns the new version. A mismatch returns an error wrapping ErrConflict.
	Write(ctx context.Context, key Key, content string, expect Version) (Version, error)

	// ListKeys returns every key inside container
	ListKeys(ctx context.Context, container string) ([]Key, error)
}

// 🗑️ Deleter is implemented by stores that can remove a resource
type Deleter interface {
	Delete(ctx context.Context, key Key) error
}

// ContainerLister is implemented by stores that can name their containers
type ContainerLister interface {
	ListContainers(ctx context.Context) ([]string, error)
}

// CheckVersion compares the current version of a key with the expected one.
// exists reports whether the key currently has content.
func CheckVersion(key Key, exists bool, current, expect Version) error {
	switch {
	case expect == AnyVersion:
		return nil
	case expect == NoVersion && exists:
		return errors.Errorf("%s already exists: %w", key, ErrConflict)
	case expect != NoVersion && !exists:
		return errors.Errorf("%s was removed: %w", key, ErrConflict)
	case expect != NoVersion && current != expect:
		return errors.Errorf("%s: %w", key, ErrConflict)
	}
	return nil
}

// ResourceNames returns the resource part of each key
func ResourceNames(keys []Key) []string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.Resource)
	}
	return names
}
