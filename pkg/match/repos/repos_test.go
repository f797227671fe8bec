package repos

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/pvcheck/pvcheck/pkg/provresult"
)

// tarGzDir writes every regular file under srcDir into a new tar.gz at
// destPath, preserving srcDir's basename as the archive's single
// top-level directory.
func tarGzDir(destPath, srcDir string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	top := filepath.Base(srcDir)
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := tw.WriteHeader(&tar.Header{
			Name: filepath.Join(top, rel),
			Mode: 0644,
			Size: int64(len(content)),
		}); err != nil {
			return err
		}
		_, err = tw.Write(content)
		return err
	})
}

// createUpstreamRepo builds a real, filesystem-backed repo with one commit
// tagged v1.0.0, so gitx.CloneBare can clone it via go-git's local "file"
// transport without any network access.
func createUpstreamRepo(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "testfile"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("testfile"); err != nil {
		t.Fatal(err)
	}
	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(0, 0)}
	commitHash, err := wt.Commit("initial", &git.CommitOptions{Author: sig})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateTag("v1.0.0", commitHash, nil); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestMatchAllMatchingRepo(t *testing.T) {
	upstream := createUpstreamRepo(t, "hello")

	scratch := t.TempDir()
	localArchiveDir := filepath.Join(scratch, "local-extracted", "foo-1.0")
	if err := os.MkdirAll(localArchiveDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(localArchiveDir, "testfile"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	localArchivePath := writeDirAsTarGz(t, scratch, filepath.Dir(localArchiveDir))

	m := NewMatcher(scratch)
	results, err := m.MatchAll(context.Background(), localArchivePath, []provresult.RepoSuggestion{
		{RepoURL: upstream, Tag: "v1.0.0", Confidence: 1.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !results[0].Accessible {
		t.Errorf("expected accessible, got %+v", results[0])
	}
}

func writeDirAsTarGz(t *testing.T, scratch, srcDir string) string {
	t.Helper()
	archivePath := filepath.Join(scratch, "foo-1.0.tar.gz")
	if err := tarGzDir(archivePath, srcDir); err != nil {
		t.Fatal(err)
	}
	return archivePath
}

func TestSingleSubdir(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "only"), 0755)
	got, err := singleSubdir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "only") {
		t.Errorf("got %q", got)
	}
}
