package workflow

// CheckResult aggregates a pin validation pass.
type CheckResult struct {
	References []Reference
	Violations []Reference
}

// Clean reports whether the pass found no violations.
func (r CheckResult) Clean() bool {
	return len(r.Violations) == 0
}

// Check validates every reference under dir. It never touches the network;
// the result is nonviolating iff every non-exempt reference is pinned.
func Check(dir string) (CheckResult, error) {
	refs, err := ExtractDir(dir)
	if err != nil {
		return CheckResult{}, err
	}
	result := CheckResult{References: refs}
	for _, ref := range refs {
		if ref.Unpinned() {
			result.Violations = append(result.Violations, ref)
		}
	}
	return result, nil
}
