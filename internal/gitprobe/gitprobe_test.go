package gitprobe

import (
	"context"
	"testing"
)

func TestLooksLikeRepo(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://github.com/foo/bar", true},
		{"https://github.com/foo/bar/archive/v1.0.tar.gz", false},
		{"https://example.com/foo/bar/releases/download/v1/x.tar.gz", false},
		{"https://example.com/pkg-1.0.tar.xz", false},
		{"https://gitlab.com/foo/bar.git", true},
	}
	for _, c := range cases {
		if got := LooksLikeRepo(c.url); got != c.want {
			t.Errorf("LooksLikeRepo(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestProberMemoizes(t *testing.T) {
	calls := 0
	p := &Prober{
		Runner: func(ctx context.Context, url string) (bool, error) {
			calls++
			return true, nil
		},
		cache: map[string]bool{},
	}
	ctx := context.Background()
	if !p.IsGitRepo(ctx, "https://github.com/foo/bar") {
		t.Fatal("expected true")
	}
	if !p.IsGitRepo(ctx, "https://github.com/foo/bar") {
		t.Fatal("expected true")
	}
	if calls != 1 {
		t.Errorf("expected 1 probe call, got %d", calls)
	}
}

func TestProberPrefilterAvoidsProbe(t *testing.T) {
	calls := 0
	p := &Prober{
		Runner: func(ctx context.Context, url string) (bool, error) {
			calls++
			return true, nil
		},
		cache: map[string]bool{},
	}
	if p.IsGitRepo(context.Background(), "https://example.com/pkg-1.0.tar.gz") {
		t.Fatal("expected false for archive URL")
	}
	if calls != 0 {
		t.Errorf("expected prefilter to avoid probing, got %d calls", calls)
	}
}
