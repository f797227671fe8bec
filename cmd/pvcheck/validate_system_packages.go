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
	"io"
	"strings"

	"github.com/cheggaaa/pb"
	"github.com/spf13/cobra"

	"github.com/pvcheck/pvcheck/internal/execx"
	"github.com/pvcheck/pvcheck/pkg/fleet"
	"github.com/pvcheck/pvcheck/pkg/provresult"
	"github.com/pvcheck/pvcheck/pkg/srcpkg"
	"github.com/pvcheck/pvcheck/pkg/validate"
)

// pbProgress adapts a cheggaaa/pb bar to fleet.Progress, exactly the
// Executor.Increment seam the teacher wires a progress bar through in
// tools/ctl/ctl.go.
type pbProgress struct {
	out io.Writer
	bar *pb.ProgressBar
}

func (p *pbProgress) Start(total int) {
	p.bar = pb.New(total)
	p.bar.Output = p.out
	p.bar.ShowTimeLeft = true
	p.bar.Start()
}

func (p *pbProgress) Increment() { p.bar.Increment() }
func (p *pbProgress) Finish()    { p.bar.Finish() }

var (
	validateSystemNrPackages    int
	validateSystemNrProcesses   int
	validateSystemExtraPackages []string
	validateSystemAutotoolsDir  string
	validateSystemApplyAutotools bool
	validateSystemOutputPath   string
)

// rpmPackageDatabase enumerates installed packages via `repoquery --nvr -a`,
// falling back to `rpm -qa`, mirroring all_system_packages.
type rpmPackageDatabase struct{}

func (rpmPackageDatabase) ListPackageNames(ctx context.Context) ([]string, error) {
	runner := execx.Runner{}
	if res, err := runner.Run(ctx, "repoquery", "--nvr", "-a", "--latest-limit", "1"); err == nil {
		return splitLines(res.Stdout), nil
	}
	if res, err := runner.Run(ctx, "repoquery", "--nvr", "-a"); err == nil {
		return splitLines(res.Stdout), nil
	}
	res, err := runner.Run(ctx, "rpm", "-qa")
	if err != nil {
		return nil, err
	}
	return splitLines(res.Stdout), nil
}

func splitLines(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}

// perPackageValidator builds a fresh Package/scratch workspace for every
// call, satisfying fleet.PackageValidator.
type perPackageValidator struct {
	applyAutotools bool
	autotoolsDir   string
}

func (v *perPackageValidator) ValidatePackage(ctx context.Context, packageName string) (provresult.PackageResult, bool, error) {
	pkg, ws := newPackage(ctx, packageName, "", srcpkg.BuildDepsNo)
	defer ws.Release()

	validator := validate.NewValidator(newArchiveEngine(), newRepoEngine(), ws.Root(), sharedOpCache(), cacheMode())
	if v.applyAutotools {
		validator.RepoMatcher.AutotoolsCacheDir = v.autotoolsDir
	}
	result, err := validator.Validate(ctx, pkg)
	if err != nil {
		return provresult.PackageResult{}, false, err
	}
	return result, validate.Valid(result), nil
}

var validateSystemPackagesCmd = &cobra.Command{
	Use:   "validate-system-packages",
	Short: "Validate a sample of the host's installed source packages",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		db := rpmPackageDatabase{}
		validator := &perPackageValidator{applyAutotools: validateSystemApplyAutotools, autotoolsDir: validateSystemAutotoolsDir}

		opts := fleet.Options{
			ExtraPackages: validateSystemExtraPackages,
			NrPackages:    validateSystemNrPackages,
			NrWorkers:     validateSystemNrProcesses,
			Progress:      &pbProgress{out: cmd.ErrOrStderr()},
		}
		result, valid, err := fleet.Run(ctx, db, validator, opts)
		if err != nil {
			fatalf("validate-system-packages: %v", err)
		}

		writeJSONOutput(validateSystemOutputPath, result)
		exitBool(valid)
	},
}

func init() {
	validateSystemPackagesCmd.Flags().IntVar(&validateSystemNrPackages, "nr-packages-to-check", 0, "cap the number of packages sampled (0 means every package)")
	validateSystemPackagesCmd.Flags().IntVar(&validateSystemNrProcesses, "nr-processes", 0, "number of concurrent worker processes (0 means host CPU count)")
	validateSystemPackagesCmd.Flags().StringArrayVar(&validateSystemExtraPackages, "extra-package", nil, "always include this package in the sample (repeatable)")
	validateSystemPackagesCmd.Flags().StringVar(&validateSystemAutotoolsDir, "autotools-dir", "", "cache directory for the autotools build-system regenerator")
	validateSystemPackagesCmd.Flags().BoolVar(&validateSystemApplyAutotools, "apply-autotools", false, "regenerate configure scripts via the autotools build system before matching")
	validateSystemPackagesCmd.Flags().StringVar(&validateSystemOutputPath, "output-json-path", "", "write JSON output here instead of stdout")
	rootCmd.AddCommand(validateSystemPackagesCmd)
}
