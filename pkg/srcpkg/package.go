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

package srcpkg

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/pvcheck/pvcheck/pkg/provresult"
)

// BuildDepsPolicy controls whether a failed build-dependency install is
// fatal.
type BuildDepsPolicy int

const (
	BuildDepsNo BuildDepsPolicy = iota
	BuildDepsTry
	BuildDepsAlways
)

// ProviderResult is what the external source-package provider returns:
// the downloaded source archive and a directory it was extracted into.
type ProviderResult struct {
	SourceArchivePath string
	ExtractedDir      string
}

// Provider is the narrow contract spec.md treats as an external
// collaborator: obtaining a source package, optionally installing its
// build dependencies, and regenerating a prepared source tree with
// patches applied.
type Provider interface {
	Fetch(ctx context.Context, packageName, localSourceArchivePath string) (ProviderResult, error)
	InstallBuildDeps(ctx context.Context, packageName string) error
	RegeneratePreparedTree(ctx context.Context, extractedDir string) (preparedDir string, err error)
}

// Package lazily drives one source package's lifecycle: fetch, optional
// build-dep install, prepared-tree regeneration, spec parse.
type Package struct {
	Name                   string
	LocalSourceArchivePath string
	BuildDeps              BuildDepsPolicy
	Provider               Provider

	initialized bool

	srpmAvailable     bool
	specValid         bool
	sourceExtractable bool

	sourceArchivePath string
	preparedDir       string
	extractedDir      string
	spec              *Spec
}

// NewPackage constructs a Package; call Initialize before using any other
// method.
func NewPackage(name, localSourceArchivePath string, buildDeps BuildDepsPolicy, provider Provider) *Package {
	return &Package{Name: name, LocalSourceArchivePath: localSourceArchivePath, BuildDeps: buildDeps, Provider: provider}
}

// Initialize runs the package's one-time lifecycle. It never returns an
// error: every failure mode degrades to a flag (srpm_available,
// spec_valid, source_extractable) that later result construction reads,
// per spec.md §4.1's failure-modes rule that the adapter always returns a
// result object.
func (p *Package) Initialize(ctx context.Context) {
	if p.initialized {
		return
	}
	p.initialized = true

	result, err := p.Provider.Fetch(ctx, p.Name, p.LocalSourceArchivePath)
	if err != nil {
		return
	}
	p.srpmAvailable = true
	p.sourceArchivePath = result.SourceArchivePath
	p.extractedDir = result.ExtractedDir

	if p.BuildDeps != BuildDepsNo {
		if err := p.Provider.InstallBuildDeps(ctx, p.Name); err != nil && p.BuildDeps == BuildDepsAlways {
			return
		}
	}

	prepared, err := p.Provider.RegeneratePreparedTree(ctx, p.extractedDir)
	if err != nil {
		p.preparedDir = p.extractedDir // fall back to raw extracted content
	} else {
		p.sourceExtractable = true
		p.preparedDir = prepared
	}

	specPath, err := findSpecFile(p.preparedDir)
	if err != nil {
		return
	}
	f, err := os.Open(specPath)
	if err != nil {
		return
	}
	defer f.Close()
	spec, err := ParseSpec(f)
	if err != nil {
		return
	}
	p.spec = spec
	p.specValid = true
}

func findSpecFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrap(err, "reading prepared source dir")
	}
	var found string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filepath.Ext(e.Name()) == ".spec" {
			if found != "" {
				return "", errors.Errorf("multiple .spec files in %s", dir)
			}
			found = filepath.Join(dir, e.Name())
		}
	}
	if found == "" {
		return "", errors.Errorf("no .spec file found in %s", dir)
	}
	return found, nil
}

// SourcePackageName returns the package name passed at construction.
func (p *Package) SourcePackageName() string { return p.Name }

// SRPMAvailable reports whether the provider fetch succeeded.
func (p *Package) SRPMAvailable() bool { return p.srpmAvailable }

// SpecValid reports whether the package specification parsed.
func (p *Package) SpecValid() bool { return p.specValid }

// SourceExtractable reports whether the build-system regenerator produced
// a prepared source tree.
func (p *Package) SourceExtractable() bool { return p.sourceExtractable }

// LocalAndDeclaredArchives returns every local-archive path discovered
// under the prepared source directory that matches one of the
// specification's Source* basenames, plus the raw declared-source
// strings.
func (p *Package) LocalAndDeclaredArchives() ([]string, []string) {
	if p.spec == nil {
		return nil, nil
	}
	var archives []string
	for _, src := range p.spec.Sources {
		base := filepath.Base(src)
		candidate := filepath.Join(p.preparedDir, base)
		if _, err := os.Stat(candidate); err == nil {
			archives = append(archives, candidate)
		}
	}
	return archives, p.spec.Sources
}

// RepositoryURLs returns every declared URL found anywhere in the
// specification text.
func (p *Package) RepositoryURLs() []string {
	if p.spec == nil {
		return nil
	}
	return p.spec.DeclaredURLs
}

// MatchRemoteArchives assembles a package-level archive-matches result
// from per-local-archive match results already computed by the caller
// (via the archive-suggestion engine and archive matcher), stamping the
// adapter's own lifecycle flags and the current timestamp.
func (p *Package) MatchRemoteArchives(results map[string][]provresult.ArchiveMatch, archiveHashes map[string]string, unusedDeclaredSources []string) provresult.PackageArchiveMatches {
	return provresult.PackageArchiveMatches{
		SourcePackageName:     p.Name,
		Matching:              matchingArchives(results),
		Results:               results,
		UnusedDeclaredSources: unusedDeclaredSources,
		ArchiveHashes:         archiveHashes,
		SRPMAvailable:         p.srpmAvailable,
		SpecValid:             p.specValid,
		SourceExtractable:     p.sourceExtractable,
		Timestamp:             provresult.NowTimestamp(),
	}
}

// MatchRemoteRepos is the repo-matches analogue of MatchRemoteArchives.
func (p *Package) MatchRemoteRepos(results map[string][]provresult.RepoMatch, archiveHashes map[string]string, unusedDeclaredSources []string) provresult.PackageRepoMatches {
	return provresult.PackageRepoMatches{
		SourcePackageName:     p.Name,
		Matching:              matchingRepos(results),
		Results:               results,
		UnusedDeclaredSources: unusedDeclaredSources,
		ArchiveHashes:         archiveHashes,
		SRPMAvailable:         p.srpmAvailable,
		SpecValid:             p.specValid,
		SourceExtractable:     p.sourceExtractable,
		Timestamp:             provresult.NowTimestamp(),
	}
}

func matchingArchives(results map[string][]provresult.ArchiveMatch) bool {
	for _, matches := range results {
		found := false
		for _, m := range matches {
			if m.Matched {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func matchingRepos(results map[string][]provresult.RepoMatch) bool {
	for _, matches := range results {
		found := false
		for _, m := range matches {
			if m.Matched {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// StoreContent copies the SPEC file, prepared source, and raw source
// content into SPECS/, SOURCE/, and SRPM_CONTENT/ under outputDir.
func (p *Package) StoreContent(outputDir string) error {
	if p.preparedDir != "" {
		if err := copyTree(p.preparedDir, filepath.Join(outputDir, "SOURCE")); err != nil {
			return errors.Wrap(err, "storing prepared source")
		}
	}
	if p.extractedDir != "" {
		if err := copyTree(p.extractedDir, filepath.Join(outputDir, "SRPM_CONTENT")); err != nil {
			return errors.Wrap(err, "storing raw source")
		}
	}
	if specPath, err := findSpecFile(p.preparedDir); err == nil {
		if err := copyFile(specPath, filepath.Join(outputDir, "SPECS", filepath.Base(specPath))); err != nil {
			return errors.Wrap(err, "storing spec file")
		}
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
