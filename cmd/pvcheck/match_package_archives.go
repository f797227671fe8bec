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

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pvcheck/pvcheck/internal/hashx"
	matcharchives "github.com/pvcheck/pvcheck/pkg/match/archives"
	"github.com/pvcheck/pvcheck/pkg/provresult"
	"github.com/pvcheck/pvcheck/pkg/srcpkg"
)

var (
	matchArchivesPackageName   string
	matchArchivesInputJSONPath string
	matchArchivesOutputPath    string
)

var matchPackageArchivesCmd = &cobra.Command{
	Use:   "match-package-archives",
	Short: "Match a source package's local archives against suggested remote archives",
	Run: func(cmd *cobra.Command, args []string) {
		if matchArchivesPackageName == "" {
			fatalf("match-package-archives: --package-name is required")
		}
		if matchArchivesInputJSONPath == "" {
			fatalf("match-package-archives: --input-archives-json-path is required")
		}
		ctx := cmd.Context()

		var input packageRemoteArchivesSuggestions
		b, err := os.ReadFile(matchArchivesInputJSONPath)
		if err != nil {
			fatalf("reading %s: %v", matchArchivesInputJSONPath, err)
		}
		if err := json.Unmarshal(b, &input); err != nil {
			fatalf("parsing %s: %v", matchArchivesInputJSONPath, err)
		}
		if input.Suggestions == nil {
			fatalf("match-package-archives: input JSON missing 'suggestions' key")
		}

		pkg, ws := newPackage(ctx, matchArchivesPackageName, "", srcpkg.BuildDepsNo)
		defer ws.Release()

		localArchives, declaredSources := pkg.LocalAndDeclaredArchives()
		matcher := matcharchives.NewMatcher(nil, ws.Root())
		matcher.Cache = sharedOpCache()
		matcher.CacheMode = cacheMode()

		archiveHashes := map[string]string{}
		results := map[string][]provresult.ArchiveMatch{}
		for _, local := range localArchives {
			basename := filepath.Base(local)
			hash, err := hashx.SHA256File(local)
			if err != nil {
				fatalf("hashing %s: %v", local, err)
			}
			archiveHashes[basename] = hash

			suggestions := append([]provresult.ArchiveSuggestion(nil), input.Suggestions[basename]...)
			sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].Confidence > suggestions[j].Confidence })
			results[basename] = matcher.MatchAll(ctx, local, suggestions)
		}

		accessibleURL := map[string]bool{}
		for _, matches := range results {
			for _, m := range matches {
				if m.Accessible {
					accessibleURL[m.RemoteArchiveURL] = true
				}
			}
		}
		used := map[string]bool{}
		for _, suggestions := range input.Suggestions {
			for _, s := range suggestions {
				if s.OriginatingSpecSource != "" && accessibleURL[s.RemoteArchiveURL] {
					used[s.OriginatingSpecSource] = true
				}
			}
		}
		var unused []string
		for _, s := range declaredSources {
			if !used[s] {
				unused = append(unused, s)
			}
		}

		out := pkg.MatchRemoteArchives(results, archiveHashes, unused)
		writeJSONOutput(matchArchivesOutputPath, out)
		exitBool(out.Matching)
	},
}

func init() {
	matchPackageArchivesCmd.Flags().StringVar(&matchArchivesPackageName, "package-name", "", "name of the package to validate")
	matchPackageArchivesCmd.Flags().StringVar(&matchArchivesInputJSONPath, "input-archives-json-path", "", "JSON produced by suggest-package-archives")
	matchPackageArchivesCmd.Flags().StringVar(&matchArchivesOutputPath, "output-json-path", "", "write JSON output here instead of stdout")
	rootCmd.AddCommand(matchPackageArchivesCmd)
}
