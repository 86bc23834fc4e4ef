// Package repo reads repository structure (revisions, trees, commit
// metadata) directly from the object database.
package repo

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotARepository is returned when no repository contains the path.
var ErrNotARepository = errors.New("not a git repository")

// Repo is an opened repository.
type Repo struct {
	root   string
	repo   *gitlib.Repository
	Logger *slog.Logger
}

// Open opens the repository containing path, searching parent directories.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	r, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gitlib.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", abs, ErrNotARepository)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}

	root := abs
	if wt, err := r.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	return &Repo{root: root, repo: r}, nil
}

// Root returns the worktree root.
func (r *Repo) Root() string { return r.root }

// ResolveRevision resolves rev (a branch, tag, HEAD~2, abbreviated hash)
// to a full commit hash.
func (r *Repo) ResolveRevision(rev string) (string, error) {
	if rev == "" {
		rev = "HEAD"
	}
	h, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", rev, err)
	}
	return h.String(), nil
}

// TrackedFiles lists the regular text files in the tree of commit hash,
// sorted by path. Binary files and paths matching any of ignoreGlobs are
// skipped.
func (r *Repo) TrackedFiles(hash string, ignoreGlobs []string) ([]string, error) {
	for _, g := range ignoreGlobs {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid ignore glob %q", g)
		}
	}

	commit, err := r.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", hash, err)
	}

	var files []string
	iter := tree.Files()
	defer iter.Close()
	for {
		f, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walk tree of %s: %w", hash, err)
		}
		if (f.Mode != filemode.Regular && f.Mode != filemode.Executable) || ignored(f.Name, ignoreGlobs) {
			continue
		}
		bin, err := f.IsBinary()
		if err != nil {
			r.logger().Warn("cannot inspect file", "path", f.Name, "error", err)
			continue
		}
		if bin {
			continue
		}
		files = append(files, f.Name)
	}

	sort.Strings(files)
	return files, nil
}

func ignored(path string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
	}
	return false
}

// CommitInfo is the metadata reported alongside a commit's contribution.
type CommitInfo struct {
	Hash        string
	AuthorName  string
	AuthorEmail string
	Date        time.Time
	Title       string
	Body        string
}

// CommitInfo reads metadata for hash. Unreadable commits yield a record
// with only Hash set.
func (r *Repo) CommitInfo(hash string) CommitInfo {
	info := CommitInfo{Hash: hash}
	c, err := r.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		r.logger().Warn("cannot read commit metadata", "commit", hash, "error", err)
		return info
	}
	return fromCommit(c)
}

func fromCommit(c *object.Commit) CommitInfo {
	title, body := splitMessage(c.Message)
	return CommitInfo{
		Hash:        c.Hash.String(),
		AuthorName:  c.Author.Name,
		AuthorEmail: c.Author.Email,
		Date:        c.Author.When,
		Title:       title,
		Body:        body,
	}
}

// splitMessage splits a commit message into its title line and body. Body
// lines lose the four-space indent `git log` output carries.
func splitMessage(msg string) (string, string) {
	msg = strings.TrimRight(msg, "\n")
	title, body, _ := strings.Cut(msg, "\n")
	lines := strings.Split(strings.Trim(body, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimPrefix(l, "    ")
	}
	return strings.TrimSpace(title), strings.Join(lines, "\n")
}

func (r *Repo) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
