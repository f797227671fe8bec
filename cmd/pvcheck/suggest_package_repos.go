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
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pvcheck/pvcheck/internal/opcache"
	"github.com/pvcheck/pvcheck/pkg/provresult"
	"github.com/pvcheck/pvcheck/pkg/srcpkg"
	suggestrepos "github.com/pvcheck/pvcheck/pkg/suggest/repos"
)

var (
	suggestReposPackageName string
	suggestReposSRPMFile    string
	suggestReposOutputPath  string
)

type packageRemoteReposSuggestions struct {
	SourcePackageName     string                                `json:"source_package_name"`
	Suggestions           map[string][]provresult.RepoSuggestion `json:"suggestions"`
	UnusedDeclaredSources []string                              `json:"unused_declared_sources"`
	SRPMAvailable         bool                                  `json:"srpm_available"`
	SpecValid             bool                                  `json:"spec_valid"`
	SourceExtractable     bool                                  `json:"source_extractable"`
}

var suggestPackageReposCmd = &cobra.Command{
	Use:   "suggest-package-repos",
	Short: "Suggest candidate upstream repositories for a source package's local archives",
	Run: func(cmd *cobra.Command, args []string) {
		if suggestReposPackageName == "" {
			fatalf("suggest-package-repos: --package-name is required")
		}
		ctx := cmd.Context()
		pkg, ws := newPackage(ctx, suggestReposPackageName, suggestReposSRPMFile, srcpkg.BuildDepsNo)
		defer ws.Release()

		localArchives, _ := pkg.LocalAndDeclaredArchives()
		declaredURLs := pkg.RepositoryURLs()
		engine := newRepoEngine()

		out := packageRemoteReposSuggestions{
			SourcePackageName: pkg.SourcePackageName(),
			Suggestions:       map[string][]provresult.RepoSuggestion{},
			SRPMAvailable:     pkg.SRPMAvailable(),
			SpecValid:         pkg.SpecValid(),
			SourceExtractable: pkg.SourceExtractable(),
		}

		everyArchiveSuggested := len(localArchives) > 0
		used := map[string]bool{}
		for _, local := range localArchives {
			basename := filepath.Base(local)
			suggestions := suggestReposCached(ctx, engine, basename, declaredURLs)
			out.Suggestions[basename] = suggestions
			if len(suggestions) == 0 {
				everyArchiveSuggested = false
			}
			for _, s := range suggestions {
				if s.OriginatingSpecSource != "" {
					used[s.OriginatingSpecSource] = true
				}
			}
		}
		for _, u := range declaredURLs {
			if !used[u] {
				out.UnusedDeclaredSources = append(out.UnusedDeclaredSources, u)
			}
		}

		writeJSONOutput(suggestReposOutputPath, out)
		exitBool(everyArchiveSuggested)
	},
}

// repoSuggestArgs is the cache-key fingerprint for one suggest-repos call.
type repoSuggestArgs struct {
	ArchiveBasename string
	DeclaredURLs    []string
}

func (a repoSuggestArgs) FingerprintParts() []opcache.FingerprintPart {
	return []opcache.FingerprintPart{
		{Name: "ArchiveBasename", Value: a.ArchiveBasename},
		{Name: "DeclaredURLs", Value: strings.Join(a.DeclaredURLs, ",")},
	}
}

// suggestReposCached runs engine.SuggestCandidates through the shared
// operation cache when one is configured, avoiding redundant GitHub/Repology
// API calls and repo probes across repeated runs over the same package.
func suggestReposCached(ctx context.Context, engine *suggestrepos.Engine, basename string, declaredURLs []string) []provresult.RepoSuggestion {
	cache := sharedOpCache()
	if cache == nil {
		return engine.SuggestCandidates(ctx, basename, declaredURLs)
	}
	var result []provresult.RepoSuggestion
	err := cache.Call("suggest_package_repos", repoSuggestArgs{ArchiveBasename: basename, DeclaredURLs: declaredURLs}, cacheMode(), &result, func() error {
		result = engine.SuggestCandidates(ctx, basename, declaredURLs)
		return nil
	})
	if err != nil {
		fatalf("suggesting repos for %s: %v", basename, err)
	}
	return result
}

func init() {
	suggestPackageReposCmd.Flags().StringVar(&suggestReposPackageName, "package-name", "", "name of the package to validate")
	suggestPackageReposCmd.Flags().StringVar(&suggestReposSRPMFile, "srpm-file", "", "use this local source RPM instead of downloading one")
	suggestPackageReposCmd.Flags().StringVar(&suggestReposOutputPath, "output-json-path", "", "write JSON output here instead of stdout")
	rootCmd.AddCommand(suggestPackageReposCmd)
}
