package gitx

import (
	"testing"

	"github.com/pvcheck/pvcheck/internal/gitx/gitxtest"
)

const history = `
commits:
  - id: c1
    message: initial
    files:
      a.txt: hello
  - id: c2
    message: add version marker
    parent: c1
    tag: v1.2.3
    files:
      a.txt: hello world
`

func TestListTagsAndTreeHash(t *testing.T) {
	repo, err := gitxtest.CreateRepoFromYAML(history, nil)
	if err != nil {
		t.Fatal(err)
	}

	tags, err := ListTags(repo.Repository)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].Tag != "v1.2.3" {
		t.Fatalf("tags = %+v, want one v1.2.3", tags)
	}
	wantHash := repo.Commits["c2"].String()
	if tags[0].CommitHash != wantHash {
		t.Errorf("commit hash = %s, want %s", tags[0].CommitHash, wantHash)
	}

	treeHash, err := TreeHash(repo.Repository, wantHash)
	if err != nil {
		t.Fatal(err)
	}
	if treeHash == "" {
		t.Error("expected a non-empty tree hash")
	}
}

func TestResolveCommit(t *testing.T) {
	repo, err := gitxtest.CreateRepoFromYAML(history, nil)
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := ResolveCommit(repo.Repository, "v1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	if resolved != repo.Commits["c2"].String() {
		t.Errorf("resolved = %s, want %s", resolved, repo.Commits["c2"].String())
	}
}
