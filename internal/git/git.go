package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTimeout is returned when a git subprocess exceeds its time limit.
var ErrTimeout = errors.New("git command timed out")

// Runner executes git with the given arguments and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// Observer is told about each git invocation. It may be nil.
type Observer interface {
	GitCommand(ctx context.Context, op string, d time.Duration, err error)
}

// CLI runs the git executable inside a repository.
//
// At most maxProcs subprocesses run at once; callers beyond that block
// until a slot frees up or their context ends. Each subprocess is killed
// after timeout.
type CLI struct {
	root     string
	timeout  time.Duration
	sem      *semaphore.Weighted
	observer Observer
}

// NewCLI returns a Runner rooted at root. A maxProcs below one means one.
func NewCLI(root string, maxProcs int, timeout time.Duration, observer Observer) *CLI {
	if maxProcs < 1 {
		maxProcs = 1
	}
	return &CLI{
		root:     root,
		timeout:  timeout,
		sem:      semaphore.NewWeighted(int64(maxProcs)),
		observer: observer,
	}
}

// Root returns the repository directory commands run in.
func (c *CLI) Root() string {
	return c.root
}

// Run implements Runner.
func (c *CLI) Run(ctx context.Context, args ...string) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("git %s: %w after %s", strings.Join(args, " "), ErrTimeout, c.timeout)
		} else {
			err = fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
		}
	}
	if c.observer != nil && len(args) > 0 {
		c.observer.GitCommand(ctx, args[0], time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

// RevParseTopLevel returns the root of the repository containing dir.
func RevParseTopLevel(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not inside a git repository")
	}
	return strings.TrimSpace(string(out)), nil
}

// Client issues the history queries true blame needs.
type Client struct {
	Runner Runner
}

// Show returns the full patch of a commit, with rename detection and
// unquoted paths so "diff --git" headers can be parsed.
func (c Client) Show(ctx context.Context, hash string) (string, error) {
	out, err := c.Runner.Run(ctx,
		"-c", "core.quotePath=false",
		"show", "--no-color", "--no-ext-diff", "-M", "--format=medium", hash, "--")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// HasParent reports whether hash has at least one parent commit.
func (c Client) HasParent(ctx context.Context, hash string) (bool, error) {
	out, err := c.Runner.Run(ctx, "rev-list", "--parents", "-n", "1", hash, "--")
	if err != nil {
		return false, err
	}
	return len(strings.Fields(string(out))) > 1, nil
}

// ResolveRevision expands rev to a full commit hash.
func (c Client) ResolveRevision(ctx context.Context, rev string) (string, error) {
	out, err := c.Runner.Run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", rev, err)
	}
	return strings.TrimSpace(string(out)), nil
}
