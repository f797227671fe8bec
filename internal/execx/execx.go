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

// Package execx runs the external RPM toolchain (rpmspec, rpmbuild,
// yumdownloader, rpm2cpio, cpio, dnf/yum) and autotools/changelog
// collaborators the source-package adapter drives, each under an isolated
// HOME so rpmbuild's default macros and working directories stay confined
// to the package's scratch directory rather than the real user's.
package execx

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/pkg/errors"
)

// Result captures a finished command's output.
type Result struct {
	Stdout string
	Stderr string
}

// Runner executes external commands with an overridable HOME directory.
type Runner struct {
	// Home, when non-empty, is exported as HOME for every command this
	// Runner executes, isolating rpmbuild/rpm macro files per package.
	Home string
	// Dir, when non-empty, is the working directory for every command.
	Dir string
}

// Run executes name with args, returning combined stdout/stderr capture.
// A non-zero exit is reported as an error wrapping the captured stderr.
func (r Runner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Env = r.env()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		return res, errors.Wrapf(err, "running %s %v: %s", name, args, stderr.String())
	}
	return res, nil
}

// Pipe runs name1 | name2, feeding name1's stdout into name2's stdin, the
// pattern used to unpack an SRPM's cpio payload via rpm2cpio | cpio.
func (r Runner) Pipe(ctx context.Context, first, second []string) (Result, error) {
	c1 := exec.CommandContext(ctx, first[0], first[1:]...)
	c2 := exec.CommandContext(ctx, second[0], second[1:]...)
	c1.Dir, c2.Dir = r.Dir, r.Dir
	c1.Env, c2.Env = r.env(), r.env()
	pr, pw := os.Pipe()
	c1.Stdout = pw
	c2.Stdin = pr
	var stdout, stderr bytes.Buffer
	c2.Stdout = &stdout
	c1.Stderr = &stderr
	c2.Stderr = &stderr
	if err := c1.Start(); err != nil {
		pw.Close()
		pr.Close()
		return Result{}, errors.Wrapf(err, "starting %v", first)
	}
	if err := c2.Start(); err != nil {
		pw.Close()
		pr.Close()
		return Result{}, errors.Wrapf(err, "starting %v", second)
	}
	pw.Close()
	err1 := c1.Wait()
	err2 := c2.Wait()
	pr.Close()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err1 != nil {
		return res, errors.Wrapf(err1, "running %v: %s", first, stderr.String())
	}
	if err2 != nil {
		return res, errors.Wrapf(err2, "running %v: %s", second, stderr.String())
	}
	return res, nil
}

func (r Runner) env() []string {
	env := os.Environ()
	if r.Home != "" {
		env = append(env, "HOME="+r.Home)
	}
	return env
}
