package webscrape

import (
	"net/url"
	"testing"
)

func TestExtractLinksResolvesRelative(t *testing.T) {
	base, _ := url.Parse("https://example.com/releases/")
	body := []byte(`<html><body>
		<a href="pkg-1.0.tar.gz">v1.0</a>
		<a href="/abs/pkg-2.0.tar.gz">v2.0</a>
		<a href="https://other.example.com/pkg-3.0.tar.gz">v3.0</a>
		<a>no href</a>
	</body></html>`)
	links, err := ExtractLinks(base, body)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"https://example.com/releases/pkg-1.0.tar.gz",
		"https://example.com/abs/pkg-2.0.tar.gz",
		"https://other.example.com/pkg-3.0.tar.gz",
	}
	if len(links) != len(want) {
		t.Fatalf("got %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("link[%d] = %q, want %q", i, links[i], want[i])
		}
	}
}
