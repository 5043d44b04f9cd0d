package secrets

import (
	"regexp"
	"strings"
)

// Pattern is one static secret signature. Patterns are immutable and loaded
// once per run.
type Pattern struct {
	ID       string
	Category Category

	re *regexp.Regexp
	// valueGroup is the capture group holding the secret value, 0 for the
	// whole match. Redaction replaces only this span.
	valueGroup int
	// lockExempt patterns are skipped for lock files, which are dense with
	// hashes and base64 blobs that trip value-shaped signatures.
	lockExempt bool
	// validate optionally rejects matches whose captured value does not look
	// like a real secret (placeholder guards, entropy floor).
	validate func(value string) bool
}

// RedactedPlaceholder replaces captured secret values in redacted output.
const RedactedPlaceholder = "********"

// minGenericValueLen is the floor for generic key=value assignments; shorter
// values are overwhelmingly config noise.
const minGenericValueLen = 16

var placeholderWords = []string{
	"example", "sample", "placeholder", "changeme", "change_me",
	"your_", "your-", "dummy", "redacted", "xxxx",
}

// looksLikeSecret is the entropy-lite guard for generic assignments: a real
// secret value mixes letters and digits, while placeholders like
// YOUR_PASSWORD_HERE are letters and separators only.
func looksLikeSecret(value string) bool {
	if len(value) < minGenericValueLen {
		return false
	}
	lower := strings.ToLower(value)
	for _, w := range placeholderWords {
		if strings.Contains(lower, w) {
			return false
		}
	}
	var hasLetter, hasDigit bool
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}

// catalog is the static signature set. Ordering matters: the scanner reports
// the first matching pattern per line, so specific signatures precede the
// generic assignment catch-all.
var catalog = []Pattern{
	{
		ID:         "aws-access-key-id",
		Category:   CategoryCloudCredential,
		re:         regexp.MustCompile(`\b((?:A3T[A-Z0-9]|AKIA|ASIA|ABIA|ACCA)[0-9A-Z]{16})\b`),
		valueGroup: 1,
	},
	{
		ID:         "aws-secret-access-key",
		Category:   CategoryCloudCredential,
		re:         regexp.MustCompile(`(?i)\baws[a-z0-9_]*(?:secret|session)[a-z0-9_]*\s*[:=]\s*["']?([A-Za-z0-9/+=]{20,})`),
		valueGroup: 1,
	},
	{
		ID:         "github-token",
		Category:   CategoryForgeToken,
		re:         regexp.MustCompile(`\b(gh[pousr]_[A-Za-z0-9]{36,255})\b`),
		valueGroup: 1,
	},
	{
		ID:         "gitlab-token",
		Category:   CategoryForgeToken,
		re:         regexp.MustCompile(`\b(glpat-[A-Za-z0-9_\-]{20,})`),
		valueGroup: 1,
	},
	{
		ID:         "slack-token",
		Category:   CategoryForgeToken,
		re:         regexp.MustCompile(`\b(xox[baprs]-[A-Za-z0-9-]{10,})`),
		valueGroup: 1,
	},
	{
		ID:         "slack-webhook",
		Category:   CategoryWebhook,
		re:         regexp.MustCompile(`(https://hooks\.slack\.com/services/T[A-Za-z0-9_]+/B[A-Za-z0-9_]+/[A-Za-z0-9_]+)`),
		valueGroup: 1,
	},
	{
		ID:         "private-key",
		Category:   CategoryPrivateKey,
		re:         regexp.MustCompile(`-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY(?: BLOCK)?-----`),
		valueGroup: 0,
	},
	{
		ID:         "bearer-token",
		Category:   CategoryWebhook,
		re:         regexp.MustCompile(`(?i)\bbearer\s+([A-Za-z0-9\-._~+/]{30,}=*)`),
		valueGroup: 1,
		lockExempt: true,
		validate:   looksLikeSecret,
	},
	{
		ID:         "generic-secret-assignment",
		Category:   CategoryGenericSecret,
		re:         regexp.MustCompile(`(?i)\b(?:api[_-]?key|apikey|secret[_-]?key|secret|auth[_-]?token|access[_-]?token|token|password|passwd|pwd)\b["']?\s*[:=]\s*["']([^"']+)["']`),
		valueGroup: 1,
		lockExempt: true,
		validate:   looksLikeSecret,
	},
}

// Catalog returns the static pattern set.
func Catalog() []Pattern {
	return catalog
}

// match reports whether line trips this pattern and returns the span of the
// captured secret value.
func (p Pattern) match(line string) (start, end int, ok bool) {
	idx := p.re.FindStringSubmatchIndex(line)
	if idx == nil {
		return 0, 0, false
	}
	g := p.valueGroup * 2
	if g+1 >= len(idx) || idx[g] < 0 {
		g = 0
	}
	start, end = idx[g], idx[g+1]
	if p.validate != nil && !p.validate(line[start:end]) {
		return 0, 0, false
	}
	return start, end, true
}
