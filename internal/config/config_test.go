package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeJSON(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMergesListsAndNestedMaps(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "suggestions_a.json", `{
		"known_urls": {"known_urls": ["https://a.example.com"]},
		"_comment": "ignored"
	}`)
	writeJSON(t, dir, "suggestions_b.json", `{
		"known_urls": {"known_urls": ["https://b.example.com"], "_private": "ignored"}
	}`)
	doc, err := Load(dir, "suggestions_*.json")
	if err != nil {
		t.Fatal(err)
	}
	urls := StringSlice(doc["known_urls"], "known_urls")
	if len(urls) != 2 || urls[0] != "https://a.example.com" || urls[1] != "https://b.example.com" {
		t.Errorf("got %v", urls)
	}
	if _, ok := doc["known_urls"]["_private"]; ok {
		t.Error("underscore-prefixed key should have been ignored")
	}
}

func TestLoadRejectsScalarConflict(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "a.json", `{"m": {"x": "foo"}}`)
	writeJSON(t, dir, "b.json", `{"m": {"x": "bar"}}`)
	if _, err := Load(dir, "*.json"); err == nil {
		t.Fatal("expected conflict error")
	}
}
