// Copyright 2026 The pvcheck Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gitx wraps go-git with the small surface the repository
// suggester and repository matcher need: a minimal clone with no working
// tree materialized, tag enumeration, commit resolution, checkout, and
// tree-hash computation. Where the teacher's own gitx used go-git plumbing
// directly to synthesize diffs (see internal/gitdiff), this package uses
// the same plumbing/object packages to walk a real clone instead.
package gitx

import (
	"context"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
)

// CloneBare performs a minimal clone into dir: no working-tree checkout,
// so only the object database and refs are materialized on disk.
func CloneBare(ctx context.Context, dir, repoURL string) (*git.Repository, error) {
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:        repoURL,
		NoCheckout: true,
		Tags:       git.AllTags,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cloning %s", repoURL)
	}
	return repo, nil
}

// ResolveCommit resolves a full or abbreviated commit hash (or any git
// revision expression) to its full hash, mirroring `git rev-parse
// --verify`.
func ResolveCommit(repo *git.Repository, rev string) (string, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", errors.Wrapf(err, "resolving revision %s", rev)
	}
	return hash.String(), nil
}

// TagRef is one (commit hash, tag name) pair, mirroring the original's
// `git tag --list --format=%(objectname) %(refname:short)` output.
type TagRef struct {
	CommitHash string
	Tag        string
}

// ListTags enumerates every tag in repo as (commit_hash, tag) pairs,
// dereferencing annotated tags to the commit they point at.
func ListTags(repo *git.Repository) ([]TagRef, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "listing tags")
	}
	defer iter.Close()

	var refs []TagRef
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		commitHash, err := dereferenceToCommit(repo, ref.Hash())
		if err != nil {
			return nil // skip tags that don't point at a commit
		}
		refs = append(refs, TagRef{CommitHash: commitHash.String(), Tag: ref.Name().Short()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func dereferenceToCommit(repo *git.Repository, hash plumbing.Hash) (plumbing.Hash, error) {
	if _, err := repo.CommitObject(hash); err == nil {
		return hash, nil
	}
	tag, err := repo.TagObject(hash)
	if err != nil {
		return plumbing.ZeroHash, errors.Wrap(err, "not a tag or commit object")
	}
	commit, err := tag.Commit()
	if err != nil {
		return plumbing.ZeroHash, errors.Wrap(err, "dereferencing annotated tag")
	}
	return commit.Hash, nil
}

// CheckoutHash checks out the given commit hash into repo's working tree.
func CheckoutHash(repo *git.Repository, hash string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "getting worktree")
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(hash), Force: true}); err != nil {
		return errors.Wrapf(err, "checking out %s", hash)
	}
	return nil
}

// TreeHash returns the tree object hash of the commit at hash, the git
// analogue of `git rev-parse <hash>^{tree}`.
func TreeHash(repo *git.Repository, hash string) (string, error) {
	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return "", errors.Wrapf(err, "loading commit %s", hash)
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", errors.Wrapf(err, "loading tree for commit %s", hash)
	}
	return tree.Hash.String(), nil
}
