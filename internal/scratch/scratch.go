// Copyright 2026 The pvcheck Authors
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

// Package scratch manages the per-source-package scratch directory: the
// extracted source, the rebuilt source tree, and temporary clones and
// archive extractions used while matching. Exactly one Workspace is owned
// per source-package instance and released when that instance is done,
// mirroring the Python original's tempfile.TemporaryDirectory-backed
// _storage_dir__ field.
package scratch

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Workspace is a scratch directory tree with named subdirectories created
// on demand.
type Workspace struct {
	root string

	mu       sync.Mutex
	released bool
}

// New creates a fresh scratch directory under the OS temp dir (or under
// baseDir if non-empty), prefixed with prefix.
func New(baseDir, prefix string) (*Workspace, error) {
	root, err := os.MkdirTemp(baseDir, prefix+"-")
	if err != nil {
		return nil, errors.Wrap(err, "creating scratch directory")
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace's root path. Panics if called after Release.
func (w *Workspace) Root() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		panic("scratch: Root called on released workspace")
	}
	return w.root
}

// Sub returns (creating if necessary) a named subdirectory of the
// workspace, e.g. "rpm_home", "srpm_content", "specs".
func (w *Workspace) Sub(name string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return "", errors.New("scratch: Sub called on released workspace")
	}
	dir := filepath.Join(w.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating subdirectory %s", name)
	}
	return dir, nil
}

// TempSub returns a fresh, uniquely-named subdirectory under the
// workspace, for use by suggestion matching loops that need one scratch
// area per candidate.
func (w *Workspace) TempSub(prefix string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return "", errors.New("scratch: TempSub called on released workspace")
	}
	return os.MkdirTemp(w.root, prefix+"-")
}

// Release removes the entire scratch directory tree. Idempotent: calling
// Release more than once is a no-op after the first call.
func (w *Workspace) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return nil
	}
	w.released = true
	return os.RemoveAll(w.root)
}
