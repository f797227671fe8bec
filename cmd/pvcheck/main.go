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

// Command pvcheck validates that a locally installed source package's
// content actually originates from the upstream it claims, by locating the
// declared sources, suggesting candidate remote archives and repositories,
// and byte/tree-comparing local content against them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pvcheck/pvcheck/internal/logx"
	"github.com/pvcheck/pvcheck/internal/opcache"
)

var (
	logLevel         string
	opCacheDirectory string
	overrideCache    bool
)

var rootCmd = &cobra.Command{
	Use:   "pvcheck [subcommand]",
	Short: "A CLI tool for validating package provenance against upstream sources",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logx.SetLevel(logx.ParseLevel(logLevel))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "level", "info", "log level [debug, info, warn, error]")
	rootCmd.PersistentFlags().StringVar(&opCacheDirectory, "op-cache-directory", "", "directory for the operation cache (default: disabled)")
	rootCmd.PersistentFlags().BoolVar(&overrideCache, "override-cache", false, "force the operation cache into write-only mode")
}

// sharedOpCache returns a new operation cache handle rooted at the cache
// directory given in the top-level flags, or nil when no cache directory was
// given. Each call builds its own handle; handles share only the on-disk
// entries.
func sharedOpCache() *opcache.Cache {
	if opCacheDirectory == "" {
		return nil
	}
	return opcache.New(opCacheDirectory)
}

// cacheMode returns the opcache.Mode every CLI-driven cache.Call site should
// use, honoring --override-cache.
func cacheMode() opcache.Mode {
	if overrideCache {
		return opcache.WriteOnly
	}
	return opcache.Normal
}

func exitBool(ok bool) {
	if ok {
		os.Exit(0)
	}
	os.Exit(1)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}
