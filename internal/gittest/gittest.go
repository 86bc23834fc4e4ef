// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Repo is a temporary repository.
type Repo struct {
	t   *testing.T
	Dir string
}

// New initializes an empty repository in a temp dir.
func New(t *testing.T) *Repo {
	t.Helper()
	r := &Repo{t: t, Dir: t.TempDir()}
	r.Git("init", "-q")
	r.Git("config", "user.email", "test@test.com")
	r.Git("config", "user.name", "Test")
	r.Git("config", "commit.gpgsign", "false")
	return r
}

// Write creates or replaces a file relative to the repo root.
func (r *Repo) Write(name, content string) {
	r.t.Helper()
	p := filepath.Join(r.Dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		r.t.Fatal(err)
	}
}

// Git runs git in the repo and returns trimmed stdout.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()
	return r.gitAs("Test", "test@test.com", args...)
}

// Commit stages everything and commits it as the given author,
// returning the new HEAD SHA.
func (r *Repo) Commit(name, email, msg string) string {
	r.t.Helper()
	r.gitAs(name, email, "add", "-A")
	r.gitAs(name, email, "commit", "-q", "-m", msg)
	return r.Git("rev-parse", "HEAD")
}

func (r *Repo) gitAs(name, email string, args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+name,
		"GIT_AUTHOR_EMAIL="+email,
		"GIT_COMMITTER_NAME="+name,
		"GIT_COMMITTER_EMAIL="+email,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}
