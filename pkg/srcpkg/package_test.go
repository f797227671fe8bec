package srcpkg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pvcheck/pvcheck/pkg/provresult"
)

type fakeProvider struct {
	fetchErr      error
	buildDepsErr  error
	regenerateErr bool
	extractedDir  string
	specContent   string
}

func (f *fakeProvider) Fetch(ctx context.Context, packageName, localArchivePath string) (ProviderResult, error) {
	if f.fetchErr != nil {
		return ProviderResult{}, f.fetchErr
	}
	return ProviderResult{SourceArchivePath: "/scratch/foo.src.rpm", ExtractedDir: f.extractedDir}, nil
}

func (f *fakeProvider) InstallBuildDeps(ctx context.Context, packageName string) error {
	return f.buildDepsErr
}

func (f *fakeProvider) RegeneratePreparedTree(ctx context.Context, extractedDir string) (string, error) {
	if f.regenerateErr {
		return "", os.ErrInvalid
	}
	preparedDir := filepath.Join(extractedDir, "prepared")
	if err := os.MkdirAll(preparedDir, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(preparedDir, "foo.spec"), []byte(f.specContent), 0644); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(preparedDir, "foo-1.0.tar.gz"), []byte("data"), 0644); err != nil {
		return "", err
	}
	return preparedDir, nil
}

const testSpec = `
Name: foo
Version: 1.0
Source0: https://example.com/foo-1.0.tar.gz
`

func TestPackageInitializeHappyPath(t *testing.T) {
	dir := t.TempDir()
	p := NewPackage("foo", "", BuildDepsTry, &fakeProvider{extractedDir: dir, specContent: testSpec})
	p.Initialize(context.Background())

	if !p.SRPMAvailable() || !p.SpecValid() || !p.SourceExtractable() {
		t.Fatalf("expected all flags true: srpm=%v spec=%v extractable=%v", p.SRPMAvailable(), p.SpecValid(), p.SourceExtractable())
	}
	archives, declared := p.LocalAndDeclaredArchives()
	if len(archives) != 1 || filepath.Base(archives[0]) != "foo-1.0.tar.gz" {
		t.Errorf("archives = %v", archives)
	}
	if len(declared) != 1 {
		t.Errorf("declared = %v", declared)
	}
	if len(p.RepositoryURLs()) != 1 {
		t.Errorf("repository urls = %v", p.RepositoryURLs())
	}
}

func TestPackageInitializeFetchFailure(t *testing.T) {
	p := NewPackage("foo", "", BuildDepsNo, &fakeProvider{fetchErr: os.ErrNotExist})
	p.Initialize(context.Background())
	if p.SRPMAvailable() {
		t.Error("expected srpm_available = false")
	}
	archives, _ := p.LocalAndDeclaredArchives()
	if archives != nil {
		t.Errorf("expected no archives, got %v", archives)
	}
}

func TestPackageInitializeRegenerateFailureFallsBack(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "foo.spec"), []byte(testSpec), 0644); err != nil {
		t.Fatal(err)
	}
	p := NewPackage("foo", "", BuildDepsNo, &fakeProvider{extractedDir: dir, regenerateErr: true})
	p.Initialize(context.Background())
	if p.SourceExtractable() {
		t.Error("expected source_extractable = false")
	}
	if !p.SpecValid() {
		t.Error("expected spec still parses from the raw extracted dir")
	}
}

func TestMatchRemoteArchivesMatchingRequiresAllArchives(t *testing.T) {
	p := NewPackage("foo", "", BuildDepsNo, &fakeProvider{})
	results := map[string][]provresult.ArchiveMatch{
		"a.tar.gz": {{RemoteArchiveURL: "u1", Matched: true}},
		"b.tar.gz": {{RemoteArchiveURL: "u2", Matched: false}},
	}
	out := p.MatchRemoteArchives(results, map[string]string{"a.tar.gz": "h1", "b.tar.gz": "h2"}, nil)
	if out.Matching {
		t.Error("expected matching=false since b.tar.gz has no matched entry")
	}
}
