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

package srcpkg

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/pvcheck/pvcheck/internal/execx"
)

// RPMProvider is the default Provider: it shells out to the host's RPM
// toolchain (yumdownloader/dnf, rpm2cpio, cpio, rpmbuild) via internal/execx
// exactly the way the original tool's package/rpm/utils.py does, rather
// than reimplementing any of dnf's dependency resolution or rpmbuild's
// patch application in Go.
type RPMProvider struct {
	// ScratchDir roots every subprocess's working directory and the
	// rpmbuild HOME used for prepared-tree regeneration.
	ScratchDir string
}

// NewRPMProvider returns a Provider rooted at scratchDir.
func NewRPMProvider(scratchDir string) *RPMProvider {
	return &RPMProvider{ScratchDir: scratchDir}
}

// Fetch downloads (or reuses a caller-supplied) source RPM and extracts its
// cpio payload with rpm2cpio|cpio, mirroring download_and_extract_source_package.
func (p *RPMProvider) Fetch(ctx context.Context, packageName, localSourceArchivePath string) (ProviderResult, error) {
	contentDir := filepath.Join(p.ScratchDir, "source_rpm_content")
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return ProviderResult{}, errors.Wrap(err, "creating source rpm content dir")
	}

	srpmPath := localSourceArchivePath
	if srpmPath == "" {
		provider := packageProvidingLatest(ctx, packageName)
		downloadDir := filepath.Join(p.ScratchDir, "download")
		if err := os.MkdirAll(downloadDir, 0o755); err != nil {
			return ProviderResult{}, errors.Wrap(err, "creating download dir")
		}
		runner := execx.Runner{Dir: downloadDir}
		if _, err := runner.Run(ctx, "yumdownloader", "--source", "--destdir", downloadDir, provider); err != nil {
			return ProviderResult{}, errors.Wrapf(err, "yumdownloader --source %s", provider)
		}
		matches, err := filepath.Glob(filepath.Join(downloadDir, "*.src.rpm"))
		if err != nil || len(matches) != 1 {
			return ProviderResult{}, errors.Errorf("expected exactly one .src.rpm for %s, found %d", packageName, len(matches))
		}
		srpmPath = matches[0]
	}

	runner := execx.Runner{Dir: contentDir}
	if _, err := runner.Pipe(ctx, []string{"rpm2cpio", srpmPath}, []string{"cpio", "-idmv"}); err != nil {
		return ProviderResult{}, errors.Wrap(err, "extracting src.rpm with rpm2cpio | cpio")
	}

	return ProviderResult{SourceArchivePath: srpmPath, ExtractedDir: contentDir}, nil
}

// InstallBuildDeps runs dnf builddep/yum-builddep for packageName,
// mirroring install_build_dependencies.
func (p *RPMProvider) InstallBuildDeps(ctx context.Context, packageName string) error {
	tool := systemInstallTool()
	runner := execx.Runner{}
	var err error
	if tool == "yum" {
		_, err = runner.Run(ctx, "yum-builddep", "-y", packageName)
	} else {
		_, err = runner.Run(ctx, "dnf", "builddep", "-y", packageName)
	}
	if err != nil {
		return errors.Wrapf(err, "installing build dependencies for %s", packageName)
	}
	return nil
}

// RegeneratePreparedTree runs `rpmbuild -bp` against the package's spec
// file under a dedicated HOME, mirroring prepare_rpmbuild_source. The
// prepared tree lives under <HOME>/rpmbuild/BUILD.
func (p *RPMProvider) RegeneratePreparedTree(ctx context.Context, extractedDir string) (string, error) {
	home := filepath.Join(p.ScratchDir, "rpmbuild_home")
	if err := os.MkdirAll(filepath.Join(home, "rpmbuild", "SPECS"), 0o755); err != nil {
		return "", errors.Wrap(err, "creating rpmbuild home")
	}

	specPath, err := findSpecFile(extractedDir)
	if err != nil {
		return "", err
	}

	setupRunner := execx.Runner{Home: home}
	_, _ = setupRunner.Run(ctx, "rpmdev-setuptree") // best-effort: some rpmbuild installs pre-create the tree

	specDest := filepath.Join(home, "rpmbuild", "SPECS", filepath.Base(specPath))
	if err := copyFile(specPath, specDest); err != nil {
		return "", errors.Wrap(err, "staging spec file")
	}
	if err := copyTree(extractedDir, filepath.Join(home, "rpmbuild", "SOURCES")); err != nil {
		return "", errors.Wrap(err, "staging sources")
	}

	buildRunner := execx.Runner{Home: home, Dir: filepath.Join(home, "rpmbuild")}
	if _, err := buildRunner.Run(ctx, "rpmbuild", "-bp", specDest); err != nil {
		return "", errors.Wrap(err, "rpmbuild -bp")
	}

	return filepath.Join(home, "rpmbuild", "BUILD"), nil
}

func systemInstallTool() string {
	if _, err := exec.LookPath("dnf"); err == nil {
		return "dnf"
	}
	return "yum"
}

// packageProvidingLatest runs `dnf provides packageName` when dnf is
// available. The command's output is not parsed: the function returns
// packageName unchanged in every case, so a virtual package name (e.g. an
// npm module) is not resolved to the RPM package that provides it.
func packageProvidingLatest(ctx context.Context, packageName string) string {
	if systemInstallTool() != "dnf" {
		return packageName
	}
	runner := execx.Runner{}
	if _, err := runner.Run(ctx, "dnf", "provides", packageName); err != nil {
		return packageName
	}
	return packageName
}
