package fleet

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/pvcheck/pvcheck/pkg/provresult"
)

type fakeDB struct{ names []string }

func (f *fakeDB) ListPackageNames(ctx context.Context) ([]string, error) { return f.names, nil }

type fakeValidator struct {
	mu      sync.Mutex
	calls   []string
	invalid map[string]bool
	failing map[string]bool
}

func (f *fakeValidator) ValidatePackage(ctx context.Context, name string) (provresult.PackageResult, bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if f.failing[name] {
		return provresult.PackageResult{}, false, errors.New("boom")
	}
	return provresult.PackageResult{}, !f.invalid[name], nil
}

func TestSelectPackagesExtrasFirstAndCapped(t *testing.T) {
	all := []string{"a", "b", "c", "d", "e"}
	opts := Options{ExtraPackages: []string{"z"}, NrPackages: 3, Rand: rand.New(rand.NewSource(42))}
	got := selectPackages(all, opts)
	if len(got) != 3 {
		t.Fatalf("got %d packages, want 3", len(got))
	}
	if got[0] != "z" {
		t.Errorf("extras should be first, got %v", got)
	}
}

func TestSelectPackagesNoCap(t *testing.T) {
	all := []string{"a", "b", "c"}
	opts := Options{Rand: rand.New(rand.NewSource(1))}
	got := selectPackages(all, opts)
	if len(got) != 3 {
		t.Fatalf("got %d, want 3", len(got))
	}
}

func TestRunAggregatesReportAndValidity(t *testing.T) {
	db := &fakeDB{names: []string{"pkg-a", "pkg-b", "pkg-c"}}
	v := &fakeValidator{invalid: map[string]bool{"pkg-b": true}}
	result, valid, err := Run(context.Background(), db, v, Options{NrWorkers: 2, Rand: rand.New(rand.NewSource(1))})
	if err != nil {
		t.Fatal(err)
	}
	if valid {
		t.Error("expected overall run invalid since pkg-b is invalid")
	}
	var names []string
	for n := range result.Report {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) != 3 {
		t.Fatalf("report has %d entries, want 3: %v", len(names), names)
	}
}

func TestRunWorkerErrorMarksInvalidButKeepsPartialReport(t *testing.T) {
	db := &fakeDB{names: []string{"pkg-a", "pkg-b"}}
	v := &fakeValidator{failing: map[string]bool{"pkg-a": true}}
	result, valid, err := Run(context.Background(), db, v, Options{NrWorkers: 1, Rand: rand.New(rand.NewSource(1))})
	if err != nil {
		t.Fatal(err)
	}
	if valid {
		t.Error("expected invalid run")
	}
	if _, ok := result.Report["pkg-b"]; !ok {
		t.Error("expected pkg-b to still be in the partial report")
	}
	if _, ok := result.Report["pkg-a"]; ok {
		t.Error("pkg-a failed validation and should not appear in the report")
	}
}

func TestOptionsWorkersClamped(t *testing.T) {
	o := Options{NrWorkers: 0}
	if got := o.workers(); got < 1 {
		t.Errorf("workers() = %d, want >= 1", got)
	}
}
