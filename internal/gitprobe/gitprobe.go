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

// Package gitprobe decides whether a candidate URL names a reachable git
// repository, the way the repository-suggestion engine filters candidates
// before trusting them. It pre-filters obviously-non-repo URLs by path
// component and extension, then falls back to `git ls-remote` with a short
// timeout, memoizing results for the process lifetime the same way the
// Python original's functools.lru_cache did for _is_git_repo.
package gitprobe

import (
	"context"
	"net/url"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// blacklistedPathComponents names URL path segments that never appear in a
// git remote but commonly appear in direct archive/release download links.
var blacklistedPathComponents = map[string]bool{
	"archive":  true,
	"blob":     true,
	"tree":     true,
	"releases": true,
	"raw":      true,
	"download": true,
}

// blacklistedExtensions names file extensions that indicate an archive or
// package file rather than a repository.
var blacklistedExtensions = []string{
	".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tbz2", ".tar.xz", ".txz",
	".zip", ".rpm", ".deb", ".whl", ".gem", ".jar",
}

// Timeout bounds how long a single `git ls-remote` probe may run.
const Timeout = 1 * time.Second

// LooksLikeRepo reports whether uri passes the cheap path/extension
// prefilter, without making any network call.
func LooksLikeRepo(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if blacklistedPathComponents[strings.ToLower(seg)] {
			return false
		}
	}
	lower := strings.ToLower(u.Path)
	for _, ext := range blacklistedExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}

// Prober probes candidate URLs for git reachability, caching results for
// its own lifetime (construct one Prober per process, as the original's
// lru_cache was itself process-lifetime).
type Prober struct {
	// Runner executes `git ls-remote <url>` and reports whether it
	// succeeded with non-empty output. Overridable for tests.
	Runner func(ctx context.Context, url string) (bool, error)

	mu    sync.Mutex
	cache map[string]bool
}

// NewProber returns a Prober that shells out to the real git binary.
func NewProber() *Prober {
	return &Prober{Runner: runLsRemote, cache: map[string]bool{}}
}

// IsGitRepo returns whether url is a reachable git repository: first the
// cheap prefilter, then (memoized) an actual `git ls-remote` probe.
func (p *Prober) IsGitRepo(ctx context.Context, rawURL string) bool {
	if !LooksLikeRepo(rawURL) {
		return false
	}
	p.mu.Lock()
	if v, ok := p.cache[rawURL]; ok {
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()

	ok, _ := p.Runner(ctx, rawURL)

	p.mu.Lock()
	p.cache[rawURL] = ok
	p.mu.Unlock()
	return ok
}

func runLsRemote(ctx context.Context, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "ls-remote", url)
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.Output()
	if err != nil {
		return false, err
	}
	return len(strings.TrimSpace(string(out))) > 0, nil
}
