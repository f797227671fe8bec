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

// Package fleet fans a package validator out across a package corpus: a
// fixed-size worker pool pulls package names off a shared job channel,
// each worker runs the single-package validator, and results are
// assembled into a system-wide report keyed by package name.
//
// Grounded on spec.md §4.9 and the teacher's job-channel-plus-WaitGroup
// worker pool (tools/benchmark/run/run.go), generalized from a fixed
// package list to the enumerate→union→shuffle→truncate selection spec.md
// requires.
package fleet

import (
	"context"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/pvcheck/pvcheck/pkg/provresult"
)

// PackageDatabase enumerates every package name known to the host package
// manager, the external collaborator behind "enumerate all packages from
// the host package database".
type PackageDatabase interface {
	ListPackageNames(ctx context.Context) ([]string, error)
}

// PackageValidator runs the single-package pipeline and reports whether
// the package is valid, per spec.md §4.8.
type PackageValidator interface {
	ValidatePackage(ctx context.Context, packageName string) (provresult.PackageResult, bool, error)
}

// Progress reports fleet-run progress to the caller, the seam
// cmd/pvcheck fills with a cheggaaa/pb bar (see the teacher's
// tools/ctl/ctl.go Executor.Increment pattern). A nil Progress in
// Options disables reporting entirely.
type Progress interface {
	Start(total int)
	Increment()
	Finish()
}

// Options configures one fleet-validator run.
type Options struct {
	ExtraPackages []string // always included, placed first
	NrPackages    int      // 0 means no cap
	NrWorkers     int      // 0 means host CPU count, clamped to [1, cpu count]
	Rand          *rand.Rand
	Progress      Progress // nil disables progress reporting
}

func (o Options) workers() int {
	n := o.NrWorkers
	cpu := runtime.NumCPU()
	if n <= 0 {
		n = cpu
	}
	if n < 1 {
		n = 1
	}
	if n > cpu {
		n = cpu
	}
	return n
}

// Run enumerates the package corpus, applies the extra/shuffle/truncate
// selection, and fans the resulting package list out to NrWorkers workers.
// A worker exception (error or panic-free failure from ValidatePackage)
// is logged and the whole run is marked invalid, but a partial report is
// still returned — an improvement over the original, which the spec
// explicitly calls out as acceptable since Non-goals only bind feature
// scope, not fault tolerance.
func Run(ctx context.Context, db PackageDatabase, validator PackageValidator, opts Options) (*provresult.SystemResult, bool, error) {
	all, err := db.ListPackageNames(ctx)
	if err != nil {
		return nil, false, err
	}
	names := selectPackages(all, opts)

	if opts.Progress != nil {
		opts.Progress.Start(len(names))
		defer opts.Progress.Finish()
	}

	jobs := make(chan string)
	go func() {
		for _, n := range names {
			jobs <- n
		}
		close(jobs)
	}()

	result := provresult.NewSystemResult()
	var mu sync.Mutex
	runValid := true

	var wg sync.WaitGroup
	for i := 0; i < opts.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				pkgResult, valid, err := validator.ValidatePackage(ctx, name)
				mu.Lock()
				if err != nil {
					log.Printf("validating package %s: %v", name, err)
					runValid = false
				} else {
					result.Report[name] = pkgResult
					if !valid {
						runValid = false
					}
				}
				mu.Unlock()
				if opts.Progress != nil {
					opts.Progress.Increment()
				}
			}
		}()
	}
	wg.Wait()

	return result, runValid, nil
}

// selectPackages implements spec.md §4.9's corpus selection: union extras
// with the full corpus (extras first, always included), shuffle the
// non-extra portion, then truncate to N.
func selectPackages(all []string, opts Options) []string {
	extraSet := map[string]bool{}
	out := append([]string(nil), opts.ExtraPackages...)
	for _, e := range opts.ExtraPackages {
		extraSet[e] = true
	}

	rest := make([]string, 0, len(all))
	for _, p := range all {
		if !extraSet[p] {
			rest = append(rest, p)
		}
	}

	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	r.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	out = append(out, rest...)
	if opts.NrPackages > 0 && opts.NrPackages < len(out) {
		out = out[:opts.NrPackages]
	}
	return out
}
