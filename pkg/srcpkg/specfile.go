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

// Package srcpkg drives the lifecycle of an RPM source package: obtaining
// it through the source-package provider, installing build dependencies,
// regenerating a prepared source tree, and parsing the .spec file. Its
// field-extraction approach is adapted from the teacher's debian
// control-file stanza parser (Name/Version/Source-style fields with
// continuation lines), generalized here to RPM spec syntax, which has no
// stanza separators but the same "Field: value" line shape.
package srcpkg

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Spec holds the fields extracted from an RPM .spec file.
type Spec struct {
	Name         string
	Version      string
	Sources      []string // Source0/Source1/... in insertion order, trimmed, non-empty
	DeclaredURLs []string // every git|http|https URL substring found anywhere in the text

	// MultipleVersions is true when more than one Version: line was found;
	// Version was resolved to the lexicographically smallest of them.
	MultipleVersions bool
}

var (
	fieldLineRE = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*?)(\d*)\s*:\s*(.*)$`)
	urlRE       = regexp.MustCompile(`(?i)(git|https?)://[^\s<>?"'()]+`)
)

// ParseSpec extracts Name, Version, Source* and declared URLs from an RPM
// spec file, following spec.md's field rules: exactly one Name (error
// otherwise); when several Versions appear, the lexicographically smallest
// wins (callers should warn); Source[0-9]* entries keep insertion order
// with whitespace trimmed and empty values dropped.
func ParseSpec(r io.Reader) (*Spec, error) {
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading spec file")
	}
	var names []string
	var versions []string
	var sources []string

	sc := bufio.NewScanner(strings.NewReader(string(text)))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		m := fieldLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		field, numSuffix, value := m[1], m[2], strings.TrimSpace(m[3])
		switch {
		case strings.EqualFold(field, "Name") && numSuffix == "":
			names = append(names, value)
		case strings.EqualFold(field, "Version") && numSuffix == "":
			versions = append(versions, value)
		case strings.EqualFold(field, "Source"):
			if numSuffix != "" {
				if _, err := strconv.Atoi(numSuffix); err != nil {
					continue
				}
			}
			if value != "" {
				sources = append(sources, value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning spec file")
	}

	if len(names) != 1 {
		return nil, errors.Errorf("expected exactly 1 Name field, got %d", len(names))
	}

	version := ""
	if len(versions) > 0 {
		sorted := append([]string(nil), versions...)
		sort.Strings(sorted)
		version = sorted[0]
	}

	urls := urlRE.FindAllString(string(text), -1)

	return &Spec{
		Name:             names[0],
		Version:          version,
		Sources:          sources,
		DeclaredURLs:     urls,
		MultipleVersions: len(versions) > 1,
	}, nil
}

// NormalizePreparedPath replaces any prefix of path matching the transient
// source-preparation directory with a fixed placeholder, so that parsed
// results (and their cache fingerprints) stay reproducible across runs
// that use a different temporary directory each time.
func NormalizePreparedPath(path, preparedDirPrefix string) string {
	if preparedDirPrefix == "" || !strings.HasPrefix(path, preparedDirPrefix) {
		return path
	}
	return "<prepared-source>" + strings.TrimPrefix(path, preparedDirPrefix)
}
