package validate

import (
	"testing"

	"github.com/pvcheck/pvcheck/pkg/provresult"
)

func TestBestArchiveMatchPicksFirstMatched(t *testing.T) {
	results := []provresult.ArchiveMatch{
		{RemoteArchiveURL: "a", Matched: false},
		{RemoteArchiveURL: "b", Matched: true},
		{RemoteArchiveURL: "c", Matched: true},
	}
	best := bestArchiveMatch(results)
	if best == nil || best.RemoteArchiveURL != "b" {
		t.Fatalf("best = %+v, want b", best)
	}
}

func TestBestArchiveMatchNoneMatched(t *testing.T) {
	results := []provresult.ArchiveMatch{{RemoteArchiveURL: "a", Matched: false}}
	if got := bestArchiveMatch(results); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestValidRequiresBothSides(t *testing.T) {
	cases := []struct {
		archiveMatching, repoMatching, want bool
	}{
		{true, true, true},
		{true, false, false},
		{false, true, false},
		{false, false, false},
	}
	for _, c := range cases {
		result := provresult.PackageResult{
			ArchiveMatches: provresult.PackageArchiveMatches{Matching: c.archiveMatching},
			RepoMatches:    provresult.PackageRepoMatches{Matching: c.repoMatching},
		}
		if got := Valid(result); got != c.want {
			t.Errorf("Valid(archive=%v, repo=%v) = %v, want %v", c.archiveMatching, c.repoMatching, got, c.want)
		}
	}
}

func TestAccessibleURLs(t *testing.T) {
	results := []provresult.ArchiveMatch{
		{RemoteArchiveURL: "a", Accessible: true},
		{RemoteArchiveURL: "b", Accessible: false},
	}
	set := accessibleURLs(results)
	if !set["a"] || set["b"] {
		t.Errorf("set = %+v", set)
	}
}
