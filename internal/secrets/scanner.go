package secrets

import (
	"path"
	"strings"
)

// Scanner applies the pattern catalog to lines from a content source.
type Scanner struct {
	patterns []Pattern
	allow    *Allowlist

	// excludePrefixes are path prefixes removed at source selection,
	// e.g. vendored trees and build output.
	excludePrefixes []string
	// lockFiles are base names exempt from the lockExempt pattern subset.
	// Allowlist rules still apply to lock files; the asymmetry is deliberate.
	lockFiles map[string]bool

	redact bool
}

// Options configures a Scanner.
type Options struct {
	Allowlist       *Allowlist
	ExcludePrefixes []string
	LockFiles       []string
	Redact          bool
}

// NewScanner builds a scanner over the static catalog.
func NewScanner(opts Options) *Scanner {
	allow := opts.Allowlist
	if allow == nil {
		allow = &Allowlist{}
	}
	locks := make(map[string]bool, len(opts.LockFiles))
	for _, name := range opts.LockFiles {
		locks[name] = true
	}
	return &Scanner{
		patterns:        Catalog(),
		allow:           allow,
		excludePrefixes: opts.ExcludePrefixes,
		lockFiles:       locks,
		redact:          opts.Redact,
	}
}

// Excluded reports whether a path is removed at source selection.
func (s *Scanner) Excluded(file string) bool {
	normalized := strings.ReplaceAll(file, "\\", "/")
	for _, prefix := range s.excludePrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}

// isLockFile reports whether the file's base name is a known lock file.
func (s *Scanner) isLockFile(file string) bool {
	return s.lockFiles[path.Base(strings.ReplaceAll(file, "\\", "/"))]
}

// ScanTarget checks a single line against the catalog. It returns at most
// one Finding: the first matching pattern wins, and a line matching any
// allowlist rule is exempt from all patterns.
func (s *Scanner) ScanTarget(t Target) *Finding {
	if s.Excluded(t.File) {
		return nil
	}
	// Allowlist check precedes the lock-file pattern cut, so lock files stay
	// subject to allowlist rules even though some patterns are skipped.
	if s.allow.Matches(t.Line) {
		return nil
	}
	lock := s.isLockFile(t.File)
	for _, p := range s.patterns {
		if lock && p.lockExempt {
			continue
		}
		start, end, ok := p.match(t.Line)
		if !ok {
			continue
		}
		line := t.Line
		if s.redact {
			line = line[:start] + RedactedPlaceholder + line[end:]
		}
		return &Finding{
			File:       t.File,
			LineNumber: t.LineNumber,
			Line:       line,
			PatternID:  p.ID,
			Category:   p.Category,
		}
	}
	return nil
}

// Scan runs the catalog over all targets, accumulating every Finding.
// Scanning never stops at the first match; a single run reports all
// violations.
func (s *Scanner) Scan(targets []Target) []Finding {
	var findings []Finding
	for _, t := range targets {
		if f := s.ScanTarget(t); f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}
