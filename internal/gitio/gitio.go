// Package gitio is the change-set and content source for the gate: staged
// added lines, tracked-file listings, and repository discovery. Diffing
// itself is delegated to git; this package only parses the unified output
// into (file, line) pairs.
package gitio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// AddedLine is one line introduced by the staged change set, with its line
// number in the post-image of the file.
type AddedLine struct {
	File       string
	Line       string
	LineNumber int
}

// Repo is a handle on a local git working tree.
type Repo struct {
	dir string
}

// Open resolves dir to its repository root.
func Open(ctx context.Context, dir string) (*Repo, error) {
	out, err := runGit(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%s is not inside a git repository: %w", dir, err)
	}
	return &Repo{dir: strings.TrimSpace(out)}, nil
}

// Root returns the repository root directory.
func (r *Repo) Root() string {
	return r.dir
}

// StagedAddedLines returns every added line of the staged change set for
// modified tracked non-deleted files, in diff order.
func (r *Repo) StagedAddedLines(ctx context.Context) ([]AddedLine, error) {
	out, err := runGit(ctx, r.dir,
		"diff", "--cached", "--unified=0", "--no-color", "--diff-filter=d")
	if err != nil {
		return nil, fmt.Errorf("staged diff: %w", err)
	}
	return ParseAddedLines(out), nil
}

// TrackedFiles lists all tracked paths relative to the repository root.
func (r *Repo) TrackedFiles(ctx context.Context) ([]string, error) {
	out, err := runGit(ctx, r.dir, "ls-files", "-z")
	if err != nil {
		return nil, fmt.Errorf("list tracked files: %w", err)
	}
	var files []string
	for _, f := range strings.Split(out, "\x00") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}

// ParseAddedLines extracts added lines with post-image line numbers from
// unified diff output produced with --unified=0.
func ParseAddedLines(diff string) []AddedLine {
	var (
		added   []AddedLine
		file    string
		lineNo  int
		inHunk  bool
		scanner = bufio.NewScanner(strings.NewReader(diff))
	)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "+++ "):
			file = strings.TrimPrefix(line, "+++ ")
			file = strings.TrimPrefix(file, "b/")
			inHunk = false
		case strings.HasPrefix(line, "@@"):
			lineNo = newFileStart(line)
			inHunk = lineNo > 0
		case inHunk && strings.HasPrefix(line, "+"):
			if file == "/dev/null" {
				continue
			}
			added = append(added, AddedLine{
				File:       file,
				Line:       strings.TrimPrefix(line, "+"),
				LineNumber: lineNo,
			})
			lineNo++
		case inHunk && strings.HasPrefix(line, "-"):
			// Removed lines do not advance the post-image counter.
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file" appears mid-hunk between the
			// removed and added sides; it neither adds a line nor ends the
			// hunk.
		default:
			inHunk = false
		}
	}
	return added
}

// newFileStart parses the post-image start line from a hunk header like
// "@@ -12,0 +13,2 @@". Returns 0 when the header is unparseable.
func newFileStart(header string) int {
	plus := strings.Index(header, "+")
	if plus < 0 {
		return 0
	}
	rest := header[plus+1:]
	if end := strings.IndexAny(rest, ", "); end >= 0 {
		rest = rest[:end]
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0
	}
	return n
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("git %s: %s", args[0], msg)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return stdout.String(), nil
}
