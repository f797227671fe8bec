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
	"github.com/spf13/cobra"

	"github.com/pvcheck/pvcheck/pkg/srcpkg"
	"github.com/pvcheck/pvcheck/pkg/validate"
)

var (
	validatePackageName        string
	validateInstallBuildDeps   string
	validateSRPMFile           string
	validateOutputPath         string
	validateAutotoolsDir       string
	validateApplyAutotools     bool
)

var validatePackageCmd = &cobra.Command{
	Use:   "validate-package",
	Short: "Run the full provenance-validation pipeline for one source package",
	Run: func(cmd *cobra.Command, args []string) {
		if validatePackageName == "" {
			fatalf("validate-package: --package is required")
		}
		ctx := cmd.Context()

		deps := srcpkg.BuildDepsNo
		switch validateInstallBuildDeps {
		case "", "no":
			deps = srcpkg.BuildDepsNo
		case "try":
			deps = srcpkg.BuildDepsTry
		case "yes":
			deps = srcpkg.BuildDepsAlways
		default:
			fatalf("validate-package: --install-build-deps must be one of yes, try, no")
		}

		pkg, ws := newPackage(ctx, validatePackageName, validateSRPMFile, deps)
		defer ws.Release()

		v := validate.NewValidator(newArchiveEngine(), newRepoEngine(), ws.Root(), sharedOpCache(), cacheMode())
		if validateApplyAutotools {
			v.RepoMatcher.AutotoolsCacheDir = validateAutotoolsDir
		}

		result, err := v.Validate(ctx, pkg)
		if err != nil {
			fatalf("validate-package: %v", err)
		}

		writeJSONOutput(validateOutputPath, result)
		exitBool(validate.Valid(result))
	},
}

func init() {
	validatePackageCmd.Flags().StringVar(&validatePackageName, "package", "", "name of the package to validate")
	validatePackageCmd.Flags().StringVar(&validateInstallBuildDeps, "install-build-deps", "no", "whether to install build dependencies [yes, try, no]")
	validatePackageCmd.Flags().StringVar(&validateSRPMFile, "srpm-file", "", "use this local source RPM instead of downloading one")
	validatePackageCmd.Flags().StringVar(&validateOutputPath, "output-json-path", "", "write JSON output here instead of stdout")
	validatePackageCmd.Flags().StringVar(&validateAutotoolsDir, "autotools-dir", "", "cache directory for the autotools build-system regenerator")
	validatePackageCmd.Flags().BoolVar(&validateApplyAutotools, "apply-autotools", false, "regenerate configure scripts via the autotools build system before matching")
	rootCmd.AddCommand(validatePackageCmd)
}
