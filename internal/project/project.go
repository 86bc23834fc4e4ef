// Package project locates a repository and the files git-trueblame keeps
// inside it.
package project

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jensroland/git-trueblame/internal/git"
)

// Paths holds the locations used for one repository.
type Paths struct {
	Root     string // worktree root
	GitDir   string // .git directory, resolved through worktree pointers
	CacheDir string // <gitdir>/trueblame/
	ReportDB string // <gitdir>/trueblame/report.db
}

// FindRoot returns the worktree root containing dir ("" for the current
// directory).
func FindRoot(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	return git.RevParseTopLevel(dir)
}

// NewPaths constructs all path constants from a worktree root.
func NewPaths(root string) Paths {
	gitDir := resolveGitDir(root)
	cache := filepath.Join(gitDir, "trueblame")
	return Paths{
		Root:     root,
		GitDir:   gitDir,
		CacheDir: cache,
		ReportDB: filepath.Join(cache, "report.db"),
	}
}

// resolveGitDir returns the git directory for root. In a linked worktree
// .git is a file holding "gitdir: <path>".
func resolveGitDir(root string) string {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil || info.IsDir() {
		return dotGit
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return dotGit
	}
	content := strings.TrimSpace(string(data))
	target, ok := strings.CutPrefix(content, "gitdir: ")
	if !ok {
		return dotGit
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	return target
}
