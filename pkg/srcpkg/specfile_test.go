package srcpkg

import (
	"strings"
	"testing"
)

const sampleSpec = `
Name: foo
Version: 1.2.0
Version: 1.10.0
Source0: https://example.com/foo-1.2.0.tar.gz
Source1:    foo-extra.patch
Source2:
# see https://github.com/foo/foo for upstream history
Summary: a package
`

func TestParseSpecFields(t *testing.T) {
	s, err := ParseSpec(strings.NewReader(sampleSpec))
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "foo" {
		t.Errorf("Name = %q, want foo", s.Name)
	}
	if s.Version != "1.10.0" {
		t.Errorf("Version = %q, want 1.10.0 (lexicographically smallest of 1.2.0/1.10.0)", s.Version)
	}
	if !s.MultipleVersions {
		t.Error("expected MultipleVersions = true")
	}
	wantSources := []string{"https://example.com/foo-1.2.0.tar.gz", "foo-extra.patch"}
	if len(s.Sources) != len(wantSources) {
		t.Fatalf("Sources = %v, want %v", s.Sources, wantSources)
	}
	for i, w := range wantSources {
		if s.Sources[i] != w {
			t.Errorf("Sources[%d] = %q, want %q", i, s.Sources[i], w)
		}
	}
	foundGithub := false
	for _, u := range s.DeclaredURLs {
		if u == "https://github.com/foo/foo" {
			foundGithub = true
		}
	}
	if !foundGithub {
		t.Errorf("expected declared URL scan to find github link in comment text, got %v", s.DeclaredURLs)
	}
}

func TestParseSpecRequiresExactlyOneName(t *testing.T) {
	_, err := ParseSpec(strings.NewReader("Version: 1.0\n"))
	if err == nil {
		t.Fatal("expected error for missing Name")
	}
	_, err = ParseSpec(strings.NewReader("Name: a\nName: b\n"))
	if err == nil {
		t.Fatal("expected error for duplicate Name")
	}
}

func TestNormalizePreparedPath(t *testing.T) {
	got := NormalizePreparedPath("/tmp/pvcheck-xyz123/foo.spec", "/tmp/pvcheck-xyz123")
	if got != "<prepared-source>/foo.spec" {
		t.Errorf("got %q", got)
	}
	got = NormalizePreparedPath("/other/path/foo.spec", "/tmp/pvcheck-xyz123")
	if got != "/other/path/foo.spec" {
		t.Errorf("expected passthrough, got %q", got)
	}
}
