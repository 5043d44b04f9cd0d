package secrets

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Allowlist exempts otherwise-matching lines from all patterns. Rules are
// project-local regexes, one per line, with #-comments and blank lines
// ignored.
type Allowlist struct {
	rules []*regexp.Regexp
}

// LoadAllowlist reads an allowlist file. A missing file yields an empty
// allowlist; an unreadable or invalid file is an operational error.
func LoadAllowlist(path string) (*Allowlist, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Allowlist{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open allowlist %s: %w", path, err)
	}
	defer f.Close()

	a := &Allowlist{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		re, compileErr := regexp.Compile(line)
		if compileErr != nil {
			return nil, fmt.Errorf("allowlist %s:%d: %w", path, lineNo, compileErr)
		}
		a.rules = append(a.rules, re)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read allowlist %s: %w", path, err)
	}
	return a, nil
}

// Matches reports whether any rule matches the line.
func (a *Allowlist) Matches(line string) bool {
	for _, re := range a.rules {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Len returns the number of loaded rules.
func (a *Allowlist) Len() int {
	return len(a.rules)
}
