package repos

import "testing"

func TestProjectName(t *testing.T) {
	cases := map[string]string{
		"bottle-0.1.tar.gz":  "bottle",
		"httpd-2.4.62.tar.bz2": "httpd",
		"foo-1.2.3.zip":        "foo",
	}
	for in, want := range cases {
		if got := projectName(in); got != want {
			t.Errorf("projectName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractVersionInfoPlainVersion(t *testing.T) {
	info, err := ExtractVersionInfo("foo-1.2.3.tar.gz")
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != "1_2_3" {
		t.Errorf("version = %q, want 1_2_3", info.Version)
	}
	if info.Date != "" || info.Suffix != "" || info.IsCommitHash {
		t.Errorf("unexpected extras: %+v", info)
	}
}

func TestExtractVersionInfoWithDate(t *testing.T) {
	info, err := ExtractVersionInfo("foo-1.2.3-20230115.tar.gz")
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != "1_2_3" {
		t.Errorf("version = %q", info.Version)
	}
	if info.Date != "20230115" {
		t.Errorf("date = %q, want 20230115", info.Date)
	}
}

func TestExtractVersionInfoCommitHash(t *testing.T) {
	info, err := ExtractVersionInfo("foo-deadbeefcafe.tar.gz")
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsCommitHash {
		t.Errorf("expected commit hash classification, got %+v", info)
	}
}

func TestIsReleaseTag(t *testing.T) {
	cases := map[string]bool{
		"v1_2_3":      true,
		"1_2_3-rc1":   false,
		"1_2_3-beta":  false,
		"2_39_9000":   false,
	}
	for tag, want := range cases {
		if got := IsReleaseTag(tag); got != want {
			t.Errorf("IsReleaseTag(%q) = %v, want %v", tag, got, want)
		}
	}
}

func TestResolveTagExactVersion(t *testing.T) {
	candidates := BuildTagCandidates([]struct{ CommitHash, Tag string }{
		{CommitHash: "aaa", Tag: "v1.2.3"},
		{CommitHash: "bbb", Tag: "v1.2.4"},
	})
	info := VersionInfo{Version: "1_2_3"}
	hash, tag := ResolveTag("foo-1.2.3", candidates, info)
	if hash != "aaa" || tag != "v1.2.3" {
		t.Errorf("got (%q, %q), want (aaa, v1.2.3)", hash, tag)
	}
}

func TestResolveTagNoMatch(t *testing.T) {
	candidates := BuildTagCandidates([]struct{ CommitHash, Tag string }{
		{CommitHash: "aaa", Tag: "v9.9.9"},
	})
	info := VersionInfo{Version: "1_2_3"}
	hash, tag := ResolveTag("foo-1.2.3", candidates, info)
	if hash != "" || tag != "" {
		t.Errorf("expected no match, got (%q, %q)", hash, tag)
	}
}

func TestResolveTagDateTieBreak(t *testing.T) {
	candidates := BuildTagCandidates([]struct{ CommitHash, Tag string }{
		{CommitHash: "aaa", Tag: "release-1_2_3-20230115"},
		{CommitHash: "bbb", Tag: "release-1_2_3-20230116"},
	})
	info := VersionInfo{Version: "1_2_3", Date: "20230115"}
	hash, _ := ResolveTag("foo-1.2.3-20230115", candidates, info)
	if hash != "aaa" {
		t.Errorf("hash = %q, want aaa", hash)
	}
}
