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

// Package archives implements the archive matcher: for one local archive
// and a list of candidate remote archive URLs (from the suggestion
// engine), download each reachable candidate, extract it alongside the
// local archive, and run the file matcher over the resulting trees.
//
// Grounded on the original package-validation-tool's matching_archives
// module: download-then-extract-then-diff, skip duplicate URLs and
// duplicate content hashes, and always record a placeholder result (not
// accessible, not matched) for a suggestion before attempting it so a
// later failure still shows up in the report.
package archives

import (
	"context"
	"crypto"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/pvcheck/pvcheck/internal/extract"
	"github.com/pvcheck/pvcheck/internal/hashx"
	"github.com/pvcheck/pvcheck/internal/httpx"
	"github.com/pvcheck/pvcheck/internal/opcache"
	"github.com/pvcheck/pvcheck/pkg/filematch"
	"github.com/pvcheck/pvcheck/pkg/provresult"
)

// Matcher downloads and compares candidate remote archives against one
// local archive. Not safe for concurrent use: the fleet worker pool gives
// each goroutine its own Matcher (see pkg/fleet).
type Matcher struct {
	Client    httpx.BasicClient
	WorkDir   string
	Cache     *opcache.Cache
	CacheMode opcache.Mode
	lastStats provresult.FileMatchStats
}

// NewMatcher returns a Matcher rooted at workDir for scratch extraction.
func NewMatcher(client httpx.BasicClient, workDir string) *Matcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Matcher{Client: client, WorkDir: workDir}
}

// matchArgs fingerprints one matchOne call: which local archive against
// which remote URL, the only two inputs that determine its result.
type matchArgs struct {
	LocalArchivePath string
	RemoteURL        string
}

func (a matchArgs) FingerprintParts() []opcache.FingerprintPart {
	return []opcache.FingerprintPart{
		{Name: "LocalArchivePath", Value: a.LocalArchivePath},
		{Name: "RemoteURL", Value: a.RemoteURL},
	}
}

// matchResult is matchOne's cacheable outcome: the download's content hash,
// the match verdict, and the stats that go with it.
type matchResult struct {
	ContentHash string
	Matched     bool
	Stats       provresult.FileMatchStats
}

// MatchAll compares localArchive against every suggestion, in the order
// given (callers should pass suggestions sorted by descending
// confidence), skipping duplicate URLs and duplicate downloaded-content
// hashes. Every suggestion produces a result even when the download or
// extraction fails.
func (m *Matcher) MatchAll(ctx context.Context, localArchivePath string, suggestions []provresult.ArchiveSuggestion) []provresult.ArchiveMatch {
	seenURLs := map[string]bool{}
	seenHashes := map[string]bool{}

	var results []provresult.ArchiveMatch
	for _, s := range suggestions {
		if seenURLs[s.RemoteArchiveURL] {
			continue
		}
		seenURLs[s.RemoteArchiveURL] = true

		result := provresult.ArchiveMatch{RemoteArchiveURL: s.RemoteArchiveURL}
		hash, matched, err := m.matchOneCached(ctx, localArchivePath, s.RemoteArchiveURL)
		if err == nil {
			result.Accessible = true
			if hash != "" {
				if seenHashes[hash] {
					continue
				}
				seenHashes[hash] = true
			}
			result.Matched = matched
			result.FileMatchStats = m.lastStats
		}
		results = append(results, result)
	}
	return results
}

// matchOneCached wraps matchOne in m.Cache when one is configured, mirroring
// the original's @disk_cached_operation on match_remote_archives: the
// download-extract-compare pipeline is the expensive step worth memoizing
// across repeated runs over the same package.
func (m *Matcher) matchOneCached(ctx context.Context, localArchivePath, remoteURL string) (string, bool, error) {
	if m.Cache == nil {
		return m.matchOne(ctx, localArchivePath, remoteURL)
	}
	var cached matchResult
	err := m.Cache.Call("match_remote_archive", matchArgs{LocalArchivePath: localArchivePath, RemoteURL: remoteURL}, m.CacheMode, &cached, func() error {
		hash, matched, err := m.matchOne(ctx, localArchivePath, remoteURL)
		if err != nil {
			return err
		}
		cached = matchResult{ContentHash: hash, Matched: matched, Stats: m.lastStats}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	m.lastStats = cached.Stats
	return cached.ContentHash, cached.Matched, nil
}

func (m *Matcher) matchOne(ctx context.Context, localArchivePath, remoteURL string) (contentHash string, matched bool, err error) {
	tmp, err := os.MkdirTemp(m.WorkDir, "pvcheck-remote-*")
	if err != nil {
		return "", false, errors.Wrap(err, "creating scratch dir")
	}
	defer os.RemoveAll(tmp)

	remotePath := filepath.Join(tmp, filepath.Base(remoteURL))
	hash, err := m.download(ctx, remoteURL, remotePath)
	if err != nil {
		return "", false, err
	}

	remoteDir := filepath.Join(tmp, "remote-extracted")
	if err := extract.ToDir(remotePath, remoteDir); err != nil {
		return hash, false, errors.Wrap(err, "extracting remote archive")
	}

	localDir := filepath.Join(tmp, "local-extracted")
	if err := extract.ToDir(localArchivePath, localDir); err != nil {
		return hash, false, errors.Wrap(err, "extracting local archive")
	}

	matcher := filematch.NewRandom()
	if err := matcher.MatchTrees(localDir, remoteDir); err != nil {
		return hash, false, errors.Wrap(err, "matching trees")
	}
	m.lastStats = matcher.Stats()
	return hash, matcher.AllMatching(), nil
}

func (m *Matcher) download(ctx context.Context, rawURL, destPath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}
	resp, err := m.Client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "fetching %s", rawURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("%s: unexpected HTTP status %d", rawURL, resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return "", errors.Wrap(err, "creating destination file")
	}
	defer f.Close()

	h := hashx.NewTypedHash(crypto.SHA256)
	if _, err := io.Copy(io.MultiWriter(f, h), resp.Body); err != nil {
		return "", errors.Wrap(err, "writing downloaded archive")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
