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

// Package extract unpacks archives to disk, refusing any entry that would
// write outside the destination directory: absolute paths, "../" path
// traversal, and symlinks whose target escapes the destination. Device and
// other special files are skipped outright.
package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

// ErrUnsafePath is wrapped into the error returned when an archive entry
// would escape the destination directory.
var ErrUnsafePath = errors.New("unsafe archive entry path")

// Archive is the set of container formats a source-package archive might
// use; SUPPORTED_ARCHIVE_TYPES in the Python original derives the same set
// from shutil.get_unpack_formats().
type Archive int

const (
	Unknown Archive = iota
	Tar
	TarGz
	TarBz2
	TarXz
	Zip
)

// DetectByName guesses the archive format from a filename's extension.
func DetectByName(name string) Archive {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return TarGz
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return TarBz2
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return TarXz
	case strings.HasSuffix(lower, ".tar"):
		return Tar
	case strings.HasSuffix(lower, ".zip"):
		return Zip
	default:
		return Unknown
	}
}

// ToDir extracts the archive at srcPath into destDir, which must already
// exist. The archive format is detected from srcPath's name.
func ToDir(srcPath, destDir string) error {
	format := DetectByName(srcPath)
	f, err := os.Open(srcPath)
	if err != nil {
		return errors.Wrap(err, "opening archive")
	}
	defer f.Close()

	switch format {
	case Zip:
		return zipToDir(srcPath, destDir)
	case Tar:
		return tarToDir(f, destDir)
	case TarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return errors.Wrap(err, "opening gzip stream")
		}
		defer gz.Close()
		return tarToDir(gz, destDir)
	case TarBz2:
		return tarToDir(bzip2.NewReader(f), destDir)
	case TarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return errors.Wrap(err, "opening xz stream")
		}
		return tarToDir(xzr, destDir)
	default:
		return errors.Errorf("unsupported archive format for %s", srcPath)
	}
}

// ListMembers returns the basenames of the file entries in the archive at
// srcPath, without extracting it to disk: every non-directory entry of a zip
// archive, and only the regular-file entries of a tar archive.
func ListMembers(srcPath string) ([]string, error) {
	format := DetectByName(srcPath)
	if format == Zip {
		zr, err := zip.OpenReader(srcPath)
		if err != nil {
			return nil, errors.Wrap(err, "opening zip archive")
		}
		defer zr.Close()
		var names []string
		for _, zf := range zr.File {
			if !zf.FileInfo().IsDir() {
				names = append(names, filepath.Base(zf.Name))
			}
		}
		return names, nil
	}

	f, err := os.Open(srcPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening archive")
	}
	defer f.Close()

	var r io.Reader
	switch format {
	case Tar:
		r = f
	case TarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "opening gzip stream")
		}
		defer gz.Close()
		r = gz
	case TarBz2:
		r = bzip2.NewReader(f)
	case TarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "opening xz stream")
		}
		r = xzr
	default:
		return nil, errors.Errorf("unsupported archive format for %s", srcPath)
	}

	var names []string
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading tar entry")
		}
		if hdr.Typeflag == tar.TypeReg {
			names = append(names, filepath.Base(hdr.Name))
		}
	}
	return names, nil
}

// safeJoin resolves name against destDir, refusing any path that would
// escape destDir via an absolute path or "../" components.
func safeJoin(destDir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", errors.Wrapf(ErrUnsafePath, "absolute path %q", name)
	}
	cleaned := filepath.Join(destDir, name)
	if cleaned != destDir && !strings.HasPrefix(cleaned, destDir+string(os.PathSeparator)) {
		return "", errors.Wrapf(ErrUnsafePath, "path %q escapes destination", name)
	}
	return cleaned, nil
}

func tarToDir(r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading tar entry")
		}
		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrapf(err, "creating dir %s", target)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrapf(err, "creating parent dir for %s", target)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode&0o777))
			if err != nil {
				return errors.Wrapf(err, "creating file %s", target)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return errors.Wrapf(err, "writing %s", target)
			}
			out.Close()
		case tar.TypeSymlink:
			linkTarget := hdr.Linkname
			if filepath.IsAbs(linkTarget) {
				return errors.Wrapf(ErrUnsafePath, "absolute symlink target %q for %q", linkTarget, hdr.Name)
			}
			resolved := filepath.Join(filepath.Dir(target), linkTarget)
			if resolved != destDir && !strings.HasPrefix(resolved, destDir+string(os.PathSeparator)) {
				return errors.Wrapf(ErrUnsafePath, "symlink %q escapes destination", hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrapf(err, "creating parent dir for %s", target)
			}
			if err := os.Symlink(linkTarget, target); err != nil {
				return errors.Wrapf(err, "creating symlink %s", target)
			}
		default:
			// Device files, FIFOs, etc. are skipped outright.
			continue
		}
	}
}

func zipToDir(srcPath, destDir string) error {
	zr, err := zip.OpenReader(srcPath)
	if err != nil {
		return errors.Wrap(err, "opening zip archive")
	}
	defer zr.Close()
	for _, zf := range zr.File {
		target, err := safeJoin(destDir, zf.Name)
		if err != nil {
			return err
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrapf(err, "creating dir %s", target)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.Wrapf(err, "creating parent dir for %s", target)
		}
		rc, err := zf.Open()
		if err != nil {
			return errors.Wrapf(err, "opening zip entry %s", zf.Name)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, zf.Mode().Perm())
		if err != nil {
			rc.Close()
			return errors.Wrapf(err, "creating file %s", target)
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		out.Close()
		if copyErr != nil {
			return errors.Wrapf(copyErr, "writing %s", target)
		}
	}
	return nil
}
