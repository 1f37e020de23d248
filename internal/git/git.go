// Package git reads working-tree state (branch, uncommitted changes, recent
// commits) for monitored projects. Read-only: it never mutates a repository.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ChangeKind classifies one uncommitted file.
type ChangeKind string

const (
	KindAdded     ChangeKind = "added"
	KindModified  ChangeKind = "modified"
	KindDeleted   ChangeKind = "deleted"
	KindRenamed   ChangeKind = "renamed"
	KindUntracked ChangeKind = "untracked"
)

// FileChange is one entry of `git status --porcelain`.
type FileChange struct {
	Path string
	Kind ChangeKind
}

// Changes describes the uncommitted state of a working tree.
type Changes struct {
	FileCount   int
	Files       []FileChange
	DiffSummary string
}

// Paths returns the changed file paths in status order.
func (c *Changes) Paths() []string {
	paths := make([]string, len(c.Files))
	for i, f := range c.Files {
		paths[i] = f.Path
	}
	return paths
}

// CountKind returns how many files have the given kind.
func (c *Changes) CountKind(kind ChangeKind) int {
	n := 0
	for _, f := range c.Files {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Commit is one entry of the recent-commit log.
type Commit struct {
	Hash    string
	Time    time.Time
	Subject string
}

type Client struct {
	logger *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	return &Client{logger: logger}
}

// CurrentBranch returns the checked-out branch name for the repo at path.
func (c *Client) CurrentBranch(ctx context.Context, path string) (string, error) {
	out, err := c.run(ctx, path, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// UncommittedChanges returns the uncommitted state of the repo at path, or
// nil when the tree is clean.
func (c *Client) UncommittedChanges(ctx context.Context, path string) (*Changes, error) {
	out, err := c.run(ctx, path, "git", "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	files := parsePorcelain(out)
	if len(files) == 0 {
		return nil, nil
	}

	// Informational only; a repo without commits has no HEAD to diff against.
	summary, err := c.run(ctx, path, "git", "diff", "HEAD", "--shortstat")
	if err != nil {
		c.logger.Debug("diff summary unavailable", "path", path, "error", err)
		summary = ""
	}

	return &Changes{
		FileCount:   len(files),
		Files:       files,
		DiffSummary: strings.TrimSpace(summary),
	}, nil
}

// RecentCommits returns up to n most recent commits, newest first.
func (c *Client) RecentCommits(ctx context.Context, path string, n int) ([]Commit, error) {
	out, err := c.run(ctx, path, "git", "log", "-n", strconv.Itoa(n), "--pretty=format:%h%x09%ct%x09%s")
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

func (c *Client) run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	c.logger.Debug("exec", "cmd", name+" "+strings.Join(args, " "), "dir", dir)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w\n%s", name, strings.Join(args, " "), err, string(out))
	}
	return string(out), nil
}

// parsePorcelain turns `git status --porcelain` output into typed entries.
// Lines are "XY path"; renames are "XY old -> new" and report the new path.
func parsePorcelain(out string) []FileChange {
	var files []FileChange
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		status, path := line[:2], strings.TrimSpace(line[3:])
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		path = strings.Trim(path, `"`)
		if path == "" {
			continue
		}
		files = append(files, FileChange{Path: path, Kind: kindOf(status)})
	}
	return files
}

func kindOf(status string) ChangeKind {
	switch {
	case status == "??":
		return KindUntracked
	case strings.Contains(status, "R"):
		return KindRenamed
	case strings.Contains(status, "A"):
		return KindAdded
	case strings.Contains(status, "D"):
		return KindDeleted
	default:
		return KindModified
	}
}

func parseLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		unix, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		commits = append(commits, Commit{
			Hash:    parts[0],
			Time:    time.Unix(unix, 0),
			Subject: parts[2],
		})
	}
	return commits
}
