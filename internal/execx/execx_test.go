package execx

import (
	"context"
	"strings"
	"testing"
)

func TestRunCapturesStdout(t *testing.T) {
	r := Runner{}
	res, err := r.Run(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("got %q", res.Stdout)
	}
}

func TestRunNonZeroExitWraps(t *testing.T) {
	r := Runner{}
	_, err := r.Run(context.Background(), "false")
	if err == nil {
		t.Fatal("expected error from `false`")
	}
}

func TestPipe(t *testing.T) {
	r := Runner{}
	res, err := r.Pipe(context.Background(), []string{"echo", "a\nb\nc"}, []string{"wc", "-l"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(res.Stdout) != "3" {
		t.Errorf("got %q", res.Stdout)
	}
}
