package scratch

import (
	"os"
	"testing"
)

func TestWorkspaceSubAndRelease(t *testing.T) {
	ws, err := New(t.TempDir(), "pkgname")
	if err != nil {
		t.Fatal(err)
	}
	root := ws.Root()
	if _, err := os.Stat(root); err != nil {
		t.Fatal(err)
	}
	sub, err := ws.Sub("rpm_home")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(sub); err != nil {
		t.Fatal(err)
	}
	if err := ws.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("expected root to be removed, stat err = %v", err)
	}
	if err := ws.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got %v", err)
	}
}

func TestWorkspaceSubAfterReleaseErrors(t *testing.T) {
	ws, err := New(t.TempDir(), "pkgname")
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Sub("x"); err == nil {
		t.Error("expected error calling Sub after Release")
	}
}
