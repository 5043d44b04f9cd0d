package workflow

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pushgate/pushgate/internal/txn"
)

// Options selects which reference kinds an autopin pass rewrites.
type Options struct {
	Actions bool
	Images  bool
}

// PinDecision records one successful rewrite.
type PinDecision struct {
	Reference Reference
	// Rewritten is the pinned raw value that replaced the floating one.
	Rewritten string
}

// AutopinResult aggregates an autopin pass.
type AutopinResult struct {
	Pinned []PinDecision
	// Remaining are references still unpinned after the pass: kinds the
	// options excluded, malformed values, and resolution failures. A failed
	// resolution leaves the reference unpinned and flagged; it does not
	// abort the run.
	Remaining []Reference
}

// AllResolved reports whether the pass rewrote at least one reference and
// left no violations behind.
func (r AutopinResult) AllResolved() bool {
	return len(r.Pinned) > 0 && len(r.Remaining) == 0
}

// DigestResolver optionally extends a Resolver with container-image digest
// resolution. The stock GitHub resolver does not implement it; image
// references stay flagged unless a digest-capable collaborator is wired in.
type DigestResolver interface {
	// ResolveDigest returns the content digest for an image reference,
	// including the "sha256:" prefix.
	ResolveDigest(ctx context.Context, image string) (string, error)
}

// Autopin rewrites unpinned references under dir in place. All file writes
// happen inside one transaction, so a failed write rolls every rewritten
// file back. Re-running on already-pinned files is a no-op.
func Autopin(ctx context.Context, dir string, resolver Resolver, opts Options) (AutopinResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return AutopinResult{}, fmt.Errorf("workflow directory %s: %w", dir, ErrNoWorkflowDir)
	}
	if err != nil {
		return AutopinResult{}, fmt.Errorf("workflow directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return AutopinResult{}, fmt.Errorf("workflow directory %s: not a directory", dir)
	}

	var result AutopinResult
	err = txn.Run("autopin", func(tx *txn.Tx) error {
		return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			ext := filepath.Ext(path)
			if ext != ".yml" && ext != ".yaml" {
				return nil
			}
			return autopinFile(ctx, tx, path, resolver, opts, &result)
		})
	})
	if err != nil {
		return AutopinResult{}, err
	}
	return result, nil
}

func autopinFile(ctx context.Context, tx *txn.Tx, path string, resolver Resolver, opts Options, result *AutopinResult) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read workflow %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat workflow %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	changed := false

	for _, ref := range ExtractLines(path, lines) {
		if !ref.Unpinned() {
			continue
		}
		idx := ref.LineNumber - 1
		if idx < 0 || idx >= len(lines) {
			continue
		}

		rewritten, ok := rewriteReference(ctx, lines[idx], ref, resolver, opts)
		if !ok {
			result.Remaining = append(result.Remaining, ref)
			continue
		}
		newValue, newLine := rewritten.value, rewritten.line
		lines[idx] = newLine
		changed = true
		result.Pinned = append(result.Pinned, PinDecision{Reference: ref, Rewritten: newValue})
	}

	if !changed {
		return nil
	}
	return tx.AtomicWrite(path, []byte(strings.Join(lines, "\n")), info.Mode().Perm())
}

type rewrite struct {
	value string
	line  string
}

// rewriteReference resolves and rewrites one unpinned reference. ok is false
// when the reference is out of scope for the options, malformed, or its
// resolution failed.
func rewriteReference(ctx context.Context, line string, ref Reference, resolver Resolver, opts Options) (rewrite, bool) {
	if ref.Status == StatusMalformed {
		return rewrite{}, false
	}

	isImage := ref.Kind != KindAction || strings.HasPrefix(ref.RawValue, "docker://")
	if isImage {
		if !opts.Images {
			return rewrite{}, false
		}
		digests, capable := resolver.(DigestResolver)
		if !capable {
			return rewrite{}, false
		}
		digest, err := digests.ResolveDigest(ctx, ref.RawValue)
		if err != nil {
			fmt.Fprintf(os.Stderr, "autopin: %s:%d: %v\n", ref.File, ref.LineNumber, err)
			return rewrite{}, false
		}
		// The tag stays in place for readability; the digest pins it.
		newValue := ref.RawValue + "@" + digest
		return rewrite{
			value: newValue,
			line:  strings.Replace(line, ref.RawValue, newValue, 1),
		}, true
	}

	if !opts.Actions {
		return rewrite{}, false
	}
	owner, repo, tag, ok := parseActionRef(ref.RawValue)
	if !ok {
		return rewrite{}, false
	}
	sha, err := resolver.Resolve(ctx, owner, repo, tag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "autopin: %s:%d: %v\n", ref.File, ref.LineNumber, err)
		return rewrite{}, false
	}

	at := strings.LastIndex(ref.RawValue, "@")
	newValue := ref.RawValue[:at+1] + sha
	newLine := strings.Replace(line, ref.RawValue, newValue, 1)

	// Record the original floating tag as a trailing comment, unless the
	// line already carries one.
	valueEnd := strings.Index(line, ref.RawValue) + len(ref.RawValue)
	if !strings.Contains(line[valueEnd:], "#") {
		newLine += " # " + tag
	}

	return rewrite{value: newValue, line: newLine}, true
}

// parseActionRef splits "owner/repo[/path]@ref" into its parts.
func parseActionRef(value string) (owner, repo, ref string, ok bool) {
	at := strings.LastIndex(value, "@")
	if at <= 0 || at == len(value)-1 {
		return "", "", "", false
	}
	ref = value[at+1:]
	parts := strings.Split(value[:at], "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], ref, true
}
