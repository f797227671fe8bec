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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pvcheck/pvcheck/pkg/filematch"
)

var (
	matchFilesLeft  string
	matchFilesRight string
)

var matchFilesCmd = &cobra.Command{
	Use:   "match-files",
	Short: "Compare every file under --left against its counterpart under --right",
	Run: func(cmd *cobra.Command, args []string) {
		if matchFilesLeft == "" || matchFilesRight == "" {
			fatalf("match-files: --left and --right are required")
		}
		m := filematch.NewRandom()
		if err := m.MatchTrees(matchFilesLeft, matchFilesRight); err != nil {
			fatalf("match-files: %v", err)
		}
		stats := m.Stats()
		stats.SetRatios()
		b, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(b))
		exitBool(m.AllMatching())
	},
}

func init() {
	matchFilesCmd.Flags().StringVar(&matchFilesLeft, "left", "", "directory whose files must all be present and matching on the right")
	matchFilesCmd.Flags().StringVar(&matchFilesRight, "right", "", "directory to compare against")
	rootCmd.AddCommand(matchFilesCmd)
}
