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
	"os"
	"path/filepath"

	"github.com/pvcheck/pvcheck/internal/config"
	"github.com/pvcheck/pvcheck/internal/scratch"
	"github.com/pvcheck/pvcheck/pkg/srcpkg"
	suggestarchives "github.com/pvcheck/pvcheck/pkg/suggest/archives"
	suggestrepos "github.com/pvcheck/pvcheck/pkg/suggest/repos"
)

// envRoot returns the root directory for bundled configuration files, per
// the ENVROOT environment variable, defaulting to the working directory.
func envRoot() string {
	if v := os.Getenv("ENVROOT"); v != "" {
		return v
	}
	return "."
}

// loadConfig loads every *.json document under ENVROOT/configuration,
// tolerating a missing directory
// (an empty Doc behaves as "no method parameters configured").
func loadConfig() config.Doc {
	dir := filepath.Join(envRoot(), "configuration")
	doc, err := config.Load(dir, "*.json")
	if err != nil {
		fatalf("loading configuration: %v", err)
	}
	if doc == nil {
		doc = config.Doc{}
	}
	return doc
}

// newPackage builds and initializes a source-package adapter backed by the
// default RPM provider, rooted in a fresh scratch workspace. The caller owns
// the returned workspace and must Release it.
func newPackage(ctx context.Context, packageName, srpmFile string, buildDeps srcpkg.BuildDepsPolicy) (*srcpkg.Package, *scratch.Workspace) {
	ws, err := scratch.New("", "pvcheck-"+packageName)
	if err != nil {
		fatalf("creating scratch workspace: %v", err)
	}
	provider := srcpkg.NewRPMProvider(ws.Root())
	pkg := srcpkg.NewPackage(packageName, srpmFile, buildDeps, provider)
	pkg.Initialize(ctx)
	return pkg, ws
}

func newArchiveEngine() *suggestarchives.Engine {
	return suggestarchives.NewEngine(loadConfig())
}

func newRepoEngine() *suggestrepos.Engine {
	return suggestrepos.NewEngine()
}
