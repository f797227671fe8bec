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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pvcheck/pvcheck/internal/opcache"
	"github.com/pvcheck/pvcheck/pkg/provresult"
	"github.com/pvcheck/pvcheck/pkg/srcpkg"
	suggestarchives "github.com/pvcheck/pvcheck/pkg/suggest/archives"
)

var (
	suggestArchivesPackageName string
	suggestArchivesSRPMFile    string
	suggestArchivesTransform   bool
	suggestArchivesOutputPath  string
)

// packageRemoteArchivesSuggestions is the JSON schema §6 names for
// suggest-package-archives output: per-local-archive candidate lists plus
// the declared sources no method ever referenced.
type packageRemoteArchivesSuggestions struct {
	SourcePackageName     string                                `json:"source_package_name"`
	Suggestions           map[string][]provresult.ArchiveSuggestion `json:"suggestions"`
	Transformations       map[string][]provresult.Transformation    `json:"transformations,omitempty"`
	UnusedDeclaredSources []string                              `json:"unused_declared_sources"`
	SRPMAvailable         bool                                  `json:"srpm_available"`
	SpecValid             bool                                  `json:"spec_valid"`
	SourceExtractable     bool                                  `json:"source_extractable"`
}

var suggestPackageArchivesCmd = &cobra.Command{
	Use:   "suggest-package-archives",
	Short: "Suggest candidate remote archives for a source package's local archives",
	Run: func(cmd *cobra.Command, args []string) {
		if suggestArchivesPackageName == "" {
			fatalf("suggest-package-archives: --package-name is required")
		}
		ctx := cmd.Context()
		pkg, ws := newPackage(ctx, suggestArchivesPackageName, suggestArchivesSRPMFile, srcpkg.BuildDepsNo)
		defer ws.Release()

		localArchives, declaredSources := pkg.LocalAndDeclaredArchives()
		engine := newArchiveEngine()

		out := packageRemoteArchivesSuggestions{
			SourcePackageName:     pkg.SourcePackageName(),
			Suggestions:           map[string][]provresult.ArchiveSuggestion{},
			Transformations:       map[string][]provresult.Transformation{},
			SRPMAvailable:         pkg.SRPMAvailable(),
			SpecValid:             pkg.SpecValid(),
			SourceExtractable:     pkg.SourceExtractable(),
		}

		everyArchiveSuggested := len(localArchives) > 0
		var allUnused []string
		for i, local := range localArchives {
			result, err := suggestArchivesCached(ctx, engine, local, declaredSources)
			if err != nil {
				fatalf("suggesting archives for %s: %v", local, err)
			}
			basename := filepath.Base(local)
			out.Suggestions[basename] = result.Suggestions
			if suggestArchivesTransform && len(result.Transformations) > 0 {
				out.Transformations[basename] = result.Transformations
			}
			if len(result.Suggestions) == 0 {
				everyArchiveSuggested = false
			}
			if i == 0 {
				allUnused = result.UnusedDeclaredSources
				continue
			}
			unusedHere := map[string]bool{}
			for _, s := range result.UnusedDeclaredSources {
				unusedHere[s] = true
			}
			var stillUnused []string
			for _, s := range allUnused {
				if unusedHere[s] {
					stillUnused = append(stillUnused, s)
				}
			}
			allUnused = stillUnused
		}
		out.UnusedDeclaredSources = allUnused

		writeJSONOutput(suggestArchivesOutputPath, out)
		exitBool(everyArchiveSuggested)
	},
}

// archiveSuggestArgs is the cache-key fingerprint for one suggest-archives
// call: the local archive path plus the declared sources it's checked
// against.
type archiveSuggestArgs struct {
	LocalArchive    string
	DeclaredSources []string
}

func (a archiveSuggestArgs) FingerprintParts() []opcache.FingerprintPart {
	return []opcache.FingerprintPart{
		{Name: "LocalArchive", Value: a.LocalArchive},
		{Name: "DeclaredSources", Value: strings.Join(a.DeclaredSources, ",")},
	}
}

// suggestArchivesCached runs engine.Suggest through the shared operation
// cache when one is configured (--op-cache-directory), so repeated
// validation runs over the same package skip redundant network suggestion
// calls, per spec.md §4.9's disk_cached_operation.
func suggestArchivesCached(ctx context.Context, engine *suggestarchives.Engine, local string, declaredSources []string) (*suggestarchives.Result, error) {
	cache := sharedOpCache()
	if cache == nil {
		return engine.Suggest(ctx, local, declaredSources)
	}
	var result suggestarchives.Result
	err := cache.Call("suggest_package_archives", archiveSuggestArgs{LocalArchive: local, DeclaredSources: declaredSources}, cacheMode(), &result, func() error {
		r, err := engine.Suggest(ctx, local, declaredSources)
		if err != nil {
			return err
		}
		result = *r
		return nil
	})
	return &result, err
}

func writeJSONOutput(path string, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("encoding output: %v", err)
	}
	if path == "" {
		os.Stdout.Write(b)
		os.Stdout.Write([]byte("\n"))
		return
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		fatalf("writing %s: %v", path, err)
	}
}

func init() {
	suggestPackageArchivesCmd.Flags().StringVar(&suggestArchivesPackageName, "package-name", "", "name of the package to validate")
	suggestPackageArchivesCmd.Flags().StringVar(&suggestArchivesSRPMFile, "srpm-file", "", "use this local source RPM instead of downloading one")
	suggestPackageArchivesCmd.Flags().BoolVar(&suggestArchivesTransform, "transform-archives", false, "include Phase A archive transformations in the output")
	suggestPackageArchivesCmd.Flags().StringVar(&suggestArchivesOutputPath, "output-json-path", "", "write JSON output here instead of stdout")
	rootCmd.AddCommand(suggestPackageArchivesCmd)
}
