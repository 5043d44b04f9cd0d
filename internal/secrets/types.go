// Package secrets implements the line-level secret scanner: a static pattern
// catalog applied to staged-diff or full-tree content, filtered through a
// project-local allowlist. It is a fast local pre-filter — zero network
// calls, sub-second on typical change sets — and deliberately trades recall
// for that speed.
package secrets

// Origin says where a scanned line came from.
type Origin string

const (
	// OriginStaged marks lines added in the staged change set.
	OriginStaged Origin = "staged"
	// OriginFull marks lines read from full tracked-file content.
	OriginFull Origin = "full"
)

// Category classifies a pattern. The set is closed; switches over it should
// be exhaustive.
type Category string

const (
	CategoryCloudCredential Category = "cloud-credential"
	CategoryForgeToken      Category = "forge-token"
	CategoryGenericSecret   Category = "generic-secret"
	CategoryPrivateKey      Category = "private-key"
	CategoryWebhook         Category = "webhook"
)

// Target is a single (file, line) pair handed to the scanner.
type Target struct {
	File       string
	Line       string
	LineNumber int
	Origin     Origin
}

// Finding is one line that matched a pattern and no allowlist rule.
// Findings live only for the current run; they are never persisted.
type Finding struct {
	File       string
	LineNumber int
	// Line is the display form of the matched line. With redaction enabled
	// the captured secret value is replaced by a fixed placeholder while the
	// key name and punctuation are preserved.
	Line      string
	PatternID string
	Category  Category
}
