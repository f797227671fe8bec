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

// Package provresult defines the data model shared by the suggestion
// engines, matchers, validator, and fleet validator: the result records
// that flow from a single local archive through to a system-wide report.
package provresult

import "time"

// SchemaVersion is the version string stamped into SystemResult.Version.
const SchemaVersion = "2026-07-31"

// LocalArchive is an archive file extracted from a source package.
type LocalArchive struct {
	Path     string `json:"path"`
	Basename string `json:"basename"`
	SHA256   string `json:"sha256"`
}

// ConflictState describes the disposition of a single relative path within
// a file-matcher comparison.
type ConflictState string

const (
	ConflictDifferent     ConflictState = "DIFFERENT"
	ConflictNoCounterpart ConflictState = "NO_COUNTERPART"
)

// FileMatchStats holds the aggregate counts and ratios produced by a file
// matcher run, along with the per-path conflict map. Ratios are 0.0 when
// FilesTotal is 0.
type FileMatchStats struct {
	FilesTotal             int                      `json:"files_total"`
	FilesMatched           int                       `json:"files_matched"`
	FilesDifferent         int                       `json:"files_different"`
	FilesNoCounterpart     int                       `json:"files_no_counterpart"`
	MatchedRatio           float64                   `json:"matched_ratio"`
	DifferentRatio         float64                   `json:"different_ratio"`
	NoCounterpartRatio     float64                   `json:"no_counterpart_ratio"`
	Conflicts              map[string]ConflictState `json:"conflicts"`
}

// SetRatios derives the three ratio fields from the counts, leaving them at
// 0.0 when FilesTotal is 0.
func (s *FileMatchStats) SetRatios() {
	if s.FilesTotal == 0 {
		s.MatchedRatio, s.DifferentRatio, s.NoCounterpartRatio = 0, 0, 0
		return
	}
	total := float64(s.FilesTotal)
	s.MatchedRatio = float64(s.FilesMatched) / total
	s.DifferentRatio = float64(s.FilesDifferent) / total
	s.NoCounterpartRatio = float64(s.FilesNoCounterpart) / total
}

// ArchiveSuggestion is a candidate remote archive URL proposed by the
// archive-suggestion engine.
type ArchiveSuggestion struct {
	RemoteArchiveURL     string  `json:"remote_archive_url"`
	OriginatingSpecSource string `json:"originating_spec_source,omitempty"`
	MethodName           string  `json:"method_name"`
	Notes                string  `json:"notes,omitempty"`
	Confidence           float64 `json:"confidence"`
}

// RepoSuggestion is a candidate upstream repository proposed by the
// repository-suggestion engine. Tag may be empty when the matching version
// was identified by commit hash alone.
type RepoSuggestion struct {
	RepoURL               string  `json:"repo_url"`
	OriginatingSpecSource string  `json:"originating_spec_source,omitempty"`
	MethodName            string  `json:"method_name"`
	Notes                 string  `json:"notes,omitempty"`
	Confidence            float64 `json:"confidence"`
	CommitHash            string  `json:"commit_hash,omitempty"`
	Tag                   string  `json:"tag,omitempty"`
}

// Transformation records a rewrite applied to local archives or declared
// sources before suggestion.
type Transformation struct {
	Name    string   `json:"name"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
	Notes   string   `json:"notes,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ArchiveMatch is the outcome of comparing a local archive against one
// candidate remote archive.
type ArchiveMatch struct {
	FileMatchStats
	RemoteArchiveURL string `json:"remote_archive_url"`
	Accessible       bool   `json:"accessible"`
	Matched          bool   `json:"matched"`
}

// RepoMatch is the outcome of comparing a local archive against one
// candidate repository checked out at a resolved ref.
type RepoMatch struct {
	FileMatchStats
	RemoteRepo              string            `json:"remote_repo"`
	Accessible              bool              `json:"accessible"`
	Matched                 bool              `json:"matched"`
	CommitHash              string            `json:"commit_hash,omitempty"`
	Tag                     string            `json:"tag,omitempty"`
	BuildSystemRegenerated  bool              `json:"build_system_regenerated"`
	DetectedToolVersions    map[string]string `json:"detected_tool_versions,omitempty"`
}

// PackageArchiveMatches is the full set of archive match results for one
// source package.
type PackageArchiveMatches struct {
	SourcePackageName    string                     `json:"source_package_name"`
	Matching             bool                       `json:"matching"`
	Results              map[string][]ArchiveMatch  `json:"results"`
	UnusedDeclaredSources []string                  `json:"unused_declared_sources"`
	ArchiveHashes        map[string]string           `json:"archive_hashes"`
	SRPMAvailable        bool                        `json:"srpm_available"`
	SpecValid            bool                        `json:"spec_valid"`
	SourceExtractable    bool                        `json:"source_extractable"`
	Timestamp            string                      `json:"timestamp"`
}

// PackageRepoMatches is the analogous result set for repository matches.
type PackageRepoMatches struct {
	SourcePackageName    string                 `json:"source_package_name"`
	Matching             bool                   `json:"matching"`
	Results              map[string][]RepoMatch `json:"results"`
	UnusedDeclaredSources []string              `json:"unused_declared_sources"`
	ArchiveHashes        map[string]string       `json:"archive_hashes"`
	SRPMAvailable        bool                    `json:"srpm_available"`
	SpecValid            bool                    `json:"spec_valid"`
	SourceExtractable    bool                    `json:"source_extractable"`
	Timestamp            string                  `json:"timestamp"`
}

// BestUpstream names, for one local archive, the single highest-confidence
// accessible-and-matched remote archive and/or repo. Either side may be nil
// when no suggestion for that archive both was accessible and matched.
type BestUpstream struct {
	Archive *ArchiveMatch `json:"archive,omitempty"`
	Repo    *RepoMatch    `json:"repo,omitempty"`
}

// PackageResult aggregates archive and repo matching for one package plus
// the best upstream selection per local archive.
type PackageResult struct {
	ArchiveMatches PackageArchiveMatches    `json:"archive_matches"`
	RepoMatches    PackageRepoMatches       `json:"repo_matches"`
	BestUpstream   map[string]BestUpstream  `json:"best_upstream"`
}

// SystemResult is a fleet-wide provenance report.
type SystemResult struct {
	Report  map[string]PackageResult `json:"report"`
	Version string                   `json:"version"`
}

// NewSystemResult constructs an empty system result stamped with the
// current schema version.
func NewSystemResult() *SystemResult {
	return &SystemResult{Report: map[string]PackageResult{}, Version: SchemaVersion}
}

// NowTimestamp returns the current time formatted the way package result
// timestamps are stamped: RFC3339 in UTC.
func NowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
