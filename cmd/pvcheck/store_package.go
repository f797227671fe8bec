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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pvcheck/pvcheck/pkg/srcpkg"
)

var (
	storePackageName string
	storeOutputDir   string
)

var storePackageCmd = &cobra.Command{
	Use:   "store-package",
	Short: "Fetch a package's source content and store it under --output-dir",
	Run: func(cmd *cobra.Command, args []string) {
		if storePackageName == "" || storeOutputDir == "" {
			fatalf("store-package: --package-name and --output-dir are required")
		}
		ctx := cmd.Context()
		pkg, ws := newPackage(ctx, storePackageName, "", srcpkg.BuildDepsNo)
		defer ws.Release()

		if err := pkg.StoreContent(storeOutputDir); err != nil {
			fatalf("store-package: %v", err)
		}

		stored := 0
		for _, sub := range []string{"SOURCE", "SRPM_CONTENT", "SPECS"} {
			if info, err := os.Stat(filepath.Join(storeOutputDir, sub)); err == nil && info.IsDir() {
				stored++
			}
		}
		exitBool(stored == 3)
	},
}

func init() {
	storePackageCmd.Flags().StringVar(&storePackageName, "package-name", "", "name of the package to store")
	storePackageCmd.Flags().StringVar(&storeOutputDir, "output-dir", "", "directory to store SOURCE/, SRPM_CONTENT/, and SPECS/ under")
	rootCmd.AddCommand(storePackageCmd)
}
