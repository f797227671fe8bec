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

// Package validate composes the suggestion engines and matchers for one
// source package into a single package validation result, per spec.md
// §4.8: suggest archives, suggest repos, match both, then pick the
// highest-confidence accessible-and-matched upstream per local archive.
package validate

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/pvcheck/pvcheck/internal/hashx"
	"github.com/pvcheck/pvcheck/internal/opcache"
	matcharchives "github.com/pvcheck/pvcheck/pkg/match/archives"
	matchrepos "github.com/pvcheck/pvcheck/pkg/match/repos"
	"github.com/pvcheck/pvcheck/pkg/provresult"
	"github.com/pvcheck/pvcheck/pkg/srcpkg"
	suggestarchives "github.com/pvcheck/pvcheck/pkg/suggest/archives"
	suggestrepos "github.com/pvcheck/pvcheck/pkg/suggest/repos"
)

// Validator runs the full per-package pipeline.
type Validator struct {
	ArchiveSuggester *suggestarchives.Engine
	RepoSuggester    *suggestrepos.Engine
	ArchiveMatcher   *matcharchives.Matcher
	RepoMatcher      *matchrepos.Matcher
}

// NewValidator wires the four pipeline stages together, rooting scratch work
// under workDir. cache may be nil, in which case the matchers never consult
// the operation cache; when non-nil it's threaded into both matchers so
// match_remote_archives/match_remote_repos (the pipeline's most expensive
// steps) are memoized per spec.md §4.7, matching the original's
// @disk_cached_operation on those two methods.
func NewValidator(archiveSuggester *suggestarchives.Engine, repoSuggester *suggestrepos.Engine, workDir string, cache *opcache.Cache, cacheMode opcache.Mode) *Validator {
	archiveMatcher := matcharchives.NewMatcher(nil, workDir)
	archiveMatcher.Cache = cache
	archiveMatcher.CacheMode = cacheMode
	repoMatcher := matchrepos.NewMatcher(workDir)
	repoMatcher.Cache = cache
	repoMatcher.CacheMode = cacheMode
	return &Validator{
		ArchiveSuggester: archiveSuggester,
		RepoSuggester:    repoSuggester,
		ArchiveMatcher:   archiveMatcher,
		RepoMatcher:      repoMatcher,
	}
}

// Validate runs the pipeline for one package adapter that has already
// been Initialize()d, returning the aggregated package result.
func (v *Validator) Validate(ctx context.Context, pkg *srcpkg.Package) (provresult.PackageResult, error) {
	localArchives, declaredSources := pkg.LocalAndDeclaredArchives()
	declaredURLs := pkg.RepositoryURLs()

	archiveHashes := map[string]string{}
	archiveResults := map[string][]provresult.ArchiveMatch{}
	repoResults := map[string][]provresult.RepoMatch{}

	var unusedArchiveSources, unusedRepoSources []string
	usedArchiveSources := map[string]bool{}
	usedRepoSources := map[string]bool{}

	for _, localPath := range localArchives {
		basename := filepath.Base(localPath)

		hash, err := hashx.SHA256File(localPath)
		if err != nil {
			return provresult.PackageResult{}, errors.Wrapf(err, "hashing %s", localPath)
		}
		archiveHashes[basename] = hash

		archiveSuggestions, err := v.ArchiveSuggester.Suggest(ctx, localPath, declaredSources)
		if err != nil {
			return provresult.PackageResult{}, errors.Wrapf(err, "suggesting archives for %s", basename)
		}
		sortArchivesByConfidence(archiveSuggestions.Suggestions)
		matchedArchives := v.ArchiveMatcher.MatchAll(ctx, localPath, archiveSuggestions.Suggestions)
		archiveResults[basename] = matchedArchives
		accessibleArchiveURLs := accessibleURLs(matchedArchives)
		for _, s := range archiveSuggestions.Suggestions {
			if s.OriginatingSpecSource != "" && accessibleArchiveURLs[s.RemoteArchiveURL] {
				usedArchiveSources[s.OriginatingSpecSource] = true
			}
		}

		repoSuggestions := v.RepoSuggester.SuggestCandidates(ctx, basename, declaredURLs)
		sortReposByConfidence(repoSuggestions)
		matchedRepos, err := v.RepoMatcher.MatchAll(ctx, localPath, repoSuggestions)
		if err != nil {
			return provresult.PackageResult{}, errors.Wrapf(err, "matching repos for %s", basename)
		}
		repoResults[basename] = matchedRepos
		accessibleRepoURLs := accessibleRepoSet(matchedRepos)
		for _, s := range repoSuggestions {
			if s.OriginatingSpecSource != "" && accessibleRepoURLs[s.RepoURL] {
				usedRepoSources[s.OriginatingSpecSource] = true
			}
		}
	}

	for _, s := range declaredSources {
		if !usedArchiveSources[s] {
			unusedArchiveSources = append(unusedArchiveSources, s)
		}
	}
	for _, s := range declaredURLs {
		if !usedRepoSources[s] {
			unusedRepoSources = append(unusedRepoSources, s)
		}
	}

	archiveMatches := pkg.MatchRemoteArchives(archiveResults, archiveHashes, unusedArchiveSources)
	repoMatches := pkg.MatchRemoteRepos(repoResults, archiveHashes, unusedRepoSources)

	best := map[string]provresult.BestUpstream{}
	for basename := range archiveHashes {
		best[basename] = provresult.BestUpstream{
			Archive: bestArchiveMatch(archiveResults[basename]),
			Repo:    bestRepoMatch(repoResults[basename]),
		}
	}

	return provresult.PackageResult{
		ArchiveMatches: archiveMatches,
		RepoMatches:    repoMatches,
		BestUpstream:   best,
	}, nil
}

// Valid reports whether a package result represents a valid package: both
// archive- and repo-matches are matching.
func Valid(result provresult.PackageResult) bool {
	return result.ArchiveMatches.Matching && result.RepoMatches.Matching
}

func accessibleURLs(results []provresult.ArchiveMatch) map[string]bool {
	out := map[string]bool{}
	for _, r := range results {
		if r.Accessible {
			out[r.RemoteArchiveURL] = true
		}
	}
	return out
}

func accessibleRepoSet(results []provresult.RepoMatch) map[string]bool {
	out := map[string]bool{}
	for _, r := range results {
		if r.Accessible {
			out[r.RemoteRepo] = true
		}
	}
	return out
}

func sortArchivesByConfidence(s []provresult.ArchiveSuggestion) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Confidence > s[j].Confidence })
}

func sortReposByConfidence(s []provresult.RepoSuggestion) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Confidence > s[j].Confidence })
}

// bestArchiveMatch returns the highest-confidence matched entry in
// results, or nil. Results are already in descending-confidence order
// (the order the matcher iterated suggestions in), so the first matched
// entry wins.
func bestArchiveMatch(results []provresult.ArchiveMatch) *provresult.ArchiveMatch {
	for i := range results {
		if results[i].Matched {
			m := results[i]
			return &m
		}
	}
	return nil
}

func bestRepoMatch(results []provresult.RepoMatch) *provresult.RepoMatch {
	for i := range results {
		if results[i].Matched {
			m := results[i]
			return &m
		}
	}
	return nil
}
