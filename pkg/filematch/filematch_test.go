package filematch

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

const testToken = "\x00DATE\x00"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMatchTreesIdenticalFiles(t *testing.T) {
	left := filepath.Join(t.TempDir(), "a.txt")
	right := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, left, "hello world\n")
	writeFile(t, right, "hello world\n")

	m := New(testToken)
	if err := m.MatchTrees(left, right); err != nil {
		t.Fatal(err)
	}
	if !m.AllMatching() {
		t.Errorf("states = %v, want all matching", m.States)
	}
}

func TestMatchTreesDateAgnostic(t *testing.T) {
	left := filepath.Join(t.TempDir(), "CHANGELOG")
	right := filepath.Join(t.TempDir(), "CHANGELOG")
	writeFile(t, left, "released on 2024-01-05\n")
	writeFile(t, right, "released on 2026-07-31\n")

	m := New(testToken)
	if err := m.MatchTrees(left, right); err != nil {
		t.Fatal(err)
	}
	if !m.AllMatching() {
		t.Errorf("expected date-agnostic match, states = %v", m.States)
	}
}

func TestMatchTreesDifferentContent(t *testing.T) {
	left := filepath.Join(t.TempDir(), "a.txt")
	right := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, left, "version one\n")
	writeFile(t, right, "version two\n")

	m := New(testToken)
	if err := m.MatchTrees(left, right); err != nil {
		t.Fatal(err)
	}
	if m.AllMatching() {
		t.Fatal("expected a difference")
	}
	stats := m.Stats()
	if stats.FilesDifferent != 1 {
		t.Errorf("FilesDifferent = %d, want 1", stats.FilesDifferent)
	}
}

func TestMatchTreesDirectoryNoCounterpart(t *testing.T) {
	leftDir := t.TempDir()
	rightDir := t.TempDir()
	writeFile(t, filepath.Join(leftDir, "present.txt"), "same\n")
	writeFile(t, filepath.Join(rightDir, "present.txt"), "same\n")
	writeFile(t, filepath.Join(leftDir, "only-local.txt"), "orphan\n")

	m := New(testToken)
	if err := m.MatchTrees(leftDir, rightDir); err != nil {
		t.Fatal(err)
	}
	stats := m.Stats()
	if stats.FilesTotal != 2 {
		t.Fatalf("FilesTotal = %d, want 2", stats.FilesTotal)
	}
	if stats.FilesMatched != 1 || stats.FilesNoCounterpart != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if _, ok := stats.Conflicts["only-local.txt"]; !ok {
		t.Errorf("expected a conflict entry for only-local.txt, got %v", stats.Conflicts)
	}
}

func writeTestTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gw := gzip.NewWriter(f)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMatchTreesArchiveDescentFindsDifference(t *testing.T) {
	left := filepath.Join(t.TempDir(), "pkg.tar.gz")
	right := filepath.Join(t.TempDir(), "pkg.tar.gz")
	writeTestTarGz(t, left, map[string]string{"src/main.c": "int main(){return 0;}\n"})
	writeTestTarGz(t, right, map[string]string{"src/main.c": "int main(){return 1;}\n"})

	m := New(testToken)
	if err := m.MatchTrees(left, right); err != nil {
		t.Fatal(err)
	}
	if m.AllMatching() {
		t.Fatal("expected archive descent to surface the differing file")
	}
}

func TestMatchTreesArchiveDescentIdentical(t *testing.T) {
	left := filepath.Join(t.TempDir(), "pkg.tar.gz")
	right := filepath.Join(t.TempDir(), "pkg.tar.gz")
	writeTestTarGz(t, left, map[string]string{"src/main.c": "int main(){return 0;}\n"})
	writeTestTarGz(t, right, map[string]string{"src/main.c": "int main(){return 0;}\n"})

	m := New(testToken)
	if err := m.MatchTrees(left, right); err != nil {
		t.Fatal(err)
	}
	if !m.AllMatching() {
		t.Errorf("expected byte-identical archives to match, states = %v", m.States)
	}
}

func TestCompareBytesBinaryExtension(t *testing.T) {
	left := filepath.Join(t.TempDir(), "lib.a")
	right := filepath.Join(t.TempDir(), "lib.a")
	writeFile(t, left, "\x00\x01\x02binary")
	writeFile(t, right, "\x00\x01\x02binary")

	m := New(testToken)
	if err := m.MatchTrees(left, right); err != nil {
		t.Fatal(err)
	}
	if !m.AllMatching() {
		t.Errorf("states = %v", m.States)
	}
}

func TestDateAgnosticEqual(t *testing.T) {
	cases := []struct {
		left, right string
		want        State
	}{
		{"built 01/02/2024", "built 03/04/2026", Matching},
		{"built 2024-01-02", "built 2026-03-04", Matching},
		{"v1.0", "v2.0", Different},
	}
	for _, c := range cases {
		if got := dateAgnosticEqual(c.left, c.right, testToken); got != c.want {
			t.Errorf("dateAgnosticEqual(%q, %q) = %v, want %v", c.left, c.right, got, c.want)
		}
	}
}
