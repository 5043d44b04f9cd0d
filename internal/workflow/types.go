// Package workflow extracts third-party automation references from
// line-oriented workflow files and validates that each one is pinned to an
// immutable identifier. Block membership is tracked by indentation
// thresholds, not a document tree: a small state machine with explicit
// enter/exit transitions stands in for a full YAML parser. Upgrading to a
// real parser would change malformed-input behavior and is a conscious
// non-goal.
package workflow

import "regexp"

// Kind classifies where a reference appeared. The set is closed.
type Kind string

const (
	// KindAction is a `uses:` step reference (action or reusable workflow).
	KindAction Kind = "action"
	// KindContainerImage is an `image:` under `container:` or a bare
	// `container:` scalar.
	KindContainerImage Kind = "container-image"
	// KindServiceImage is an `image:` under `services:`.
	KindServiceImage Kind = "service-image"
)

// PinStatus is the pinning classification of a reference.
type PinStatus string

const (
	// StatusPinned means the reference resolves to an immutable identifier:
	// a 40-hex commit for actions, an @sha256: digest for images.
	StatusPinned PinStatus = "pinned"
	// StatusFloatingTag means the reference uses a mutable tag or branch.
	StatusFloatingTag PinStatus = "floating-tag"
	// StatusLocalPath marks ./ and .github/ references, always exempt.
	StatusLocalPath PinStatus = "local-path"
	// StatusMalformed marks values the classifier cannot interpret.
	StatusMalformed PinStatus = "malformed"
)

// Reference is one automation reference found in a workflow file.
type Reference struct {
	File       string
	LineNumber int
	Kind       Kind
	RawValue   string
	Status     PinStatus
}

// Unpinned reports whether the reference is a violation: not pinned and not
// exempt as a local path.
func (r Reference) Unpinned() bool {
	return r.Status == StatusFloatingTag || r.Status == StatusMalformed
}

var fullSHA = regexp.MustCompile(`^[0-9a-f]{40}$`)

// IsFullSHA reports whether s is exactly 40 lowercase hex characters.
func IsFullSHA(s string) bool {
	return fullSHA.MatchString(s)
}
