// Package gitinfo resolves the source revision a pipeline run was built from,
// so run ledger entries can be traced back to a commit.
package gitinfo

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// Info describes the repository state at build time.
type Info struct {
	Commit string // HEAD commit hash
	Dirty  bool   // uncommitted changes present in the worktree
}

// Lookup inspects the repository containing dir. It walks up to find the .git
// directory, so the contract may live in a subdirectory of the repo. Callers
// should treat an error as "not built from a repository" rather than fatal.
func Lookup(dir string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Info{}, fmt.Errorf("open repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return Info{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	info := Info{Commit: head.Hash().String()}

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repository; commit hash alone is still useful.
		return info, nil
	}
	status, err := wt.Status()
	if err != nil {
		return info, nil
	}
	info.Dirty = !status.IsClean()

	return info, nil
}
