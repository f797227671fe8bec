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
	matchrepos "github.com/pvcheck/pvcheck/pkg/match/repos"
	"github.com/pvcheck/pvcheck/pkg/provresult"
	"github.com/pvcheck/pvcheck/pkg/srcpkg"
)

var (
	matchReposPackageName   string
	matchReposInputJSONPath string
	matchReposAutotoolsDir  string
	matchReposApplyAutotools bool
	matchReposOutputPath    string
)

var matchPackageReposCmd = &cobra.Command{
	Use:   "match-package-repos",
	Short: "Match a source package's local archives against suggested upstream repositories",
	Run: func(cmd *cobra.Command, args []string) {
		if matchReposPackageName == "" {
			fatalf("match-package-repos: --package-name is required")
		}
		if matchReposInputJSONPath == "" {
			fatalf("match-package-repos: --input-repos-json-path is required")
		}
		ctx := cmd.Context()

		var input packageRemoteReposSuggestions
		b, err := os.ReadFile(matchReposInputJSONPath)
		if err != nil {
			fatalf("reading %s: %v", matchReposInputJSONPath, err)
		}
		if err := json.Unmarshal(b, &input); err != nil {
			fatalf("parsing %s: %v", matchReposInputJSONPath, err)
		}
		if input.Suggestions == nil {
			fatalf("match-package-repos: input JSON missing 'suggestions' key")
		}

		pkg, ws := newPackage(ctx, matchReposPackageName, "", srcpkg.BuildDepsNo)
		defer ws.Release()

		localArchives, declaredURLs := func() ([]string, []string) {
			a, _ := pkg.LocalAndDeclaredArchives()
			return a, pkg.RepositoryURLs()
		}()

		matcher := matchrepos.NewMatcher(ws.Root())
		matcher.Cache = sharedOpCache()
		matcher.CacheMode = cacheMode()
		if matchReposApplyAutotools {
			matcher.AutotoolsCacheDir = matchReposAutotoolsDir
		}

		archiveHashes := map[string]string{}
		results := map[string][]provresult.RepoMatch{}
		for _, local := range localArchives {
			basename := filepath.Base(local)
			hash, err := hashx.SHA256File(local)
			if err != nil {
				fatalf("hashing %s: %v", local, err)
			}
			archiveHashes[basename] = hash

			suggestions := append([]provresult.RepoSuggestion(nil), input.Suggestions[basename]...)
			sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].Confidence > suggestions[j].Confidence })
			matched, err := matcher.MatchAll(ctx, local, suggestions)
			if err != nil {
				fatalf("matching repos for %s: %v", basename, err)
			}
			results[basename] = matched
		}

		accessibleRepo := map[string]bool{}
		for _, matches := range results {
			for _, m := range matches {
				if m.Accessible {
					accessibleRepo[m.RemoteRepo] = true
				}
			}
		}
		used := map[string]bool{}
		for _, suggestions := range input.Suggestions {
			for _, s := range suggestions {
				if s.OriginatingSpecSource != "" && accessibleRepo[s.RepoURL] {
					used[s.OriginatingSpecSource] = true
				}
			}
		}
		var unused []string
		for _, u := range declaredURLs {
			if !used[u] {
				unused = append(unused, u)
			}
		}

		out := pkg.MatchRemoteRepos(results, archiveHashes, unused)
		writeJSONOutput(matchReposOutputPath, out)
		exitBool(out.Matching)
	},
}

func init() {
	matchPackageReposCmd.Flags().StringVar(&matchReposPackageName, "package-name", "", "name of the package to validate")
	matchPackageReposCmd.Flags().StringVar(&matchReposInputJSONPath, "input-repos-json-path", "", "JSON produced by suggest-package-repos")
	matchPackageReposCmd.Flags().StringVar(&matchReposAutotoolsDir, "autotools-dir", "", "cache directory for the autotools build-system regenerator")
	matchPackageReposCmd.Flags().BoolVar(&matchReposApplyAutotools, "apply-autotools", false, "regenerate configure scripts via the autotools build system before matching")
	matchPackageReposCmd.Flags().StringVar(&matchReposOutputPath, "output-json-path", "", "write JSON output here instead of stdout")
	rootCmd.AddCommand(matchPackageReposCmd)
}
