package archives

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pvcheck/pvcheck/internal/opcache"
	"github.com/pvcheck/pvcheck/pkg/provresult"
)

func writeTarGz(t *testing.T, path, topDir string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	for name, content := range files {
		full := filepath.Join(topDir, name)
		if err := tw.WriteHeader(&tar.Header{Name: full, Mode: 0644, Size: int64(len(content))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMatchAllIdentical(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "foo-1.0.tar.gz")
	writeTarGz(t, localPath, "foo-1.0", map[string]string{"README": "hello"})

	remotePath := filepath.Join(dir, "served", "foo-1.0.tar.gz")
	os.MkdirAll(filepath.Dir(remotePath), 0755)
	writeTarGz(t, remotePath, "foo-1.0", map[string]string{"README": "hello"})

	srv := httptest.NewServer(http.FileServer(http.Dir(filepath.Join(dir, "served"))))
	defer srv.Close()

	m := NewMatcher(http.DefaultClient, dir)
	results := m.MatchAll(context.Background(), localPath, []provresult.ArchiveSuggestion{
		{RemoteArchiveURL: srv.URL + "/foo-1.0.tar.gz", MethodName: "exact_basename", Confidence: 1.0},
	})
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !results[0].Accessible || !results[0].Matched {
		t.Errorf("result = %+v, want accessible+matched", results[0])
	}
}

func TestMatchAllUnreachableStillRecordsResult(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "foo-1.0.tar.gz")
	writeTarGz(t, localPath, "foo-1.0", map[string]string{"README": "hello"})

	m := NewMatcher(http.DefaultClient, dir)
	results := m.MatchAll(context.Background(), localPath, []provresult.ArchiveSuggestion{
		{RemoteArchiveURL: "http://127.0.0.1:1/does-not-exist.tar.gz", MethodName: "exact_basename", Confidence: 1.0},
	})
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Accessible {
		t.Error("expected not accessible")
	}
}

func TestMatchAllDedupesURLs(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "foo-1.0.tar.gz")
	writeTarGz(t, localPath, "foo-1.0", map[string]string{"README": "hello"})

	m := NewMatcher(http.DefaultClient, dir)
	suggestions := []provresult.ArchiveSuggestion{
		{RemoteArchiveURL: "http://example.invalid/a.tar.gz"},
		{RemoteArchiveURL: "http://example.invalid/a.tar.gz"},
	}
	results := m.MatchAll(context.Background(), localPath, suggestions)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (deduped)", len(results))
	}
}

func TestMatchAllHitsCacheOnSecondCall(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "foo-1.0.tar.gz")
	writeTarGz(t, localPath, "foo-1.0", map[string]string{"README": "hello"})

	remotePath := filepath.Join(dir, "served", "foo-1.0.tar.gz")
	os.MkdirAll(filepath.Dir(remotePath), 0755)
	writeTarGz(t, remotePath, "foo-1.0", map[string]string{"README": "hello"})

	var requests int
	handler := http.FileServer(http.Dir(filepath.Join(dir, "served")))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	cache := opcache.New(filepath.Join(dir, "opcache"))
	suggestions := []provresult.ArchiveSuggestion{
		{RemoteArchiveURL: srv.URL + "/foo-1.0.tar.gz", MethodName: "exact_basename", Confidence: 1.0},
	}

	for i := 0; i < 2; i++ {
		m := NewMatcher(http.DefaultClient, dir)
		m.Cache = cache
		results := m.MatchAll(context.Background(), localPath, suggestions)
		if len(results) != 1 || !results[0].Matched {
			t.Fatalf("call %d: results = %+v, want one matched result", i, results)
		}
	}
	if requests != 1 {
		t.Errorf("expected 1 download across both calls, got %d", requests)
	}
}

