package opcache

import (
	"path/filepath"
	"testing"
)

type argspec struct {
	Name     string
	Internal string // deliberately excluded from the fingerprint
}

func (a argspec) FingerprintParts() []FingerprintPart {
	return []FingerprintPart{{Name: "Name", Value: a.Name}}
}

type argsWithExcluded struct {
	Name      string
	Timestamp string
}

func (a argsWithExcluded) FingerprintParts() []FingerprintPart {
	return []FingerprintPart{{Name: "Name", Value: a.Name}}
}

func TestFingerprintExcludesPartsLeftOut(t *testing.T) {
	a := argsWithExcluded{Name: "pkg", Timestamp: "2026-01-01"}
	b := argsWithExcluded{Name: "pkg", Timestamp: "2099-12-31"}
	if Fingerprint(a) != Fingerprint(b) {
		t.Errorf("fingerprints should ignore fields left out of FingerprintParts: %q vs %q", Fingerprint(a), Fingerprint(b))
	}
}

func TestFingerprintDiffersOnIncludedParts(t *testing.T) {
	a := argspec{Name: "x"}
	b := argspec{Name: "y"}
	if Fingerprint(a) == Fingerprint(b) {
		t.Errorf("fingerprints should differ when an included part differs")
	}
}

func TestCallHitsOnSecondCall(t *testing.T) {
	c := New(t.TempDir())
	calls := 0
	compute := func() (string, error) {
		var out string
		err := c.Call("fetch", argspec{Name: "x"}, Normal, &out, func() error {
			calls++
			out = "value"
			return nil
		})
		return out, err
	}
	v1, err := compute()
	if err != nil {
		t.Fatal(err)
	}
	v2, err := compute()
	if err != nil {
		t.Fatal(err)
	}
	if v1 != "value" || v2 != "value" {
		t.Fatalf("unexpected values: %q %q", v1, v2)
	}
	if calls != 1 {
		t.Errorf("expected 1 underlying call, got %d", calls)
	}
	if c.Stats().Hits != 1 {
		t.Errorf("expected 1 hit, got %d", c.Stats().Hits)
	}
}

func TestWriteOnlyAlwaysRecomputes(t *testing.T) {
	c := New(t.TempDir())
	calls := 0
	var out string
	for i := 0; i < 2; i++ {
		err := c.Call("fetch", argspec{Name: "x"}, WriteOnly, &out, func() error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if calls != 2 {
		t.Errorf("expected 2 underlying calls under WriteOnly, got %d", calls)
	}
}

func TestClearRemovesAllEntries(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	var out string
	if err := c.Call("fetch", argspec{Name: "x"}, Normal, &out, func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*", "*.json"))
	if len(matches) != 0 {
		t.Errorf("expected no entries after Clear, found %v", matches)
	}
}
