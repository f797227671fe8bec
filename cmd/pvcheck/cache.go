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
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cacheClean bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the operation cache",
	Run: func(cmd *cobra.Command, args []string) {
		c := sharedOpCache()
		if c == nil {
			fmt.Fprintln(os.Stderr, "cache: --op-cache-directory not set, nothing to do")
			os.Exit(0)
		}
		if cacheClean {
			if err := c.Clear(); err != nil {
				fatalf("cache: %v", err)
			}
		}
		stats := c.Stats()
		fmt.Printf("calls=%d hits=%d hash_errors=%d retrieve_errors=%d store_errors=%d\n",
			stats.Calls, stats.Hits, stats.HashErrors, stats.RetrieveErrors, stats.StoreErrors)
		os.Exit(0)
	},
}

func init() {
	cacheCmd.Flags().BoolVar(&cacheClean, "clean", false, "remove every entry from the operation cache")
	rootCmd.AddCommand(cacheCmd)
}
