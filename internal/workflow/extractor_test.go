package workflow

import (
	"strings"
	"testing"
)

const sampleWorkflow = `name: ci
on: push

jobs:
  build:
    runs-on: ubuntu-latest
    container:
      image: golang:1.23
      options: --cpus 2
    services:
      postgres:
        image: postgres:16
      cache:
        image: redis@sha256:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-go@0aaccfd150d50ccaeb58ebd88d36e91967a5f35b
      - uses: ./local/action
      - uses: .github/workflows/reuse.yml
      - uses: docker://alpine:3.20
      - name: after services
        image: not-a-reference
  lint:
    runs-on: ubuntu-latest
    container: node:20
`

func refByLine(refs []Reference, lineNo int) *Reference {
	for i := range refs {
		if refs[i].LineNumber == lineNo {
			return &refs[i]
		}
	}
	return nil
}

// TestExtractClassifiesWorkflowReferences walks a representative workflow and
// verifies kinds and pin statuses, including block-scoped image detection.
func TestExtractClassifiesWorkflowReferences(t *testing.T) {
	lines := strings.Split(sampleWorkflow, "\n")
	refs := ExtractLines("ci.yml", lines)

	want := []struct {
		lineNo int
		kind   Kind
		status PinStatus
		value  string
	}{
		{8, KindContainerImage, StatusFloatingTag, "golang:1.23"},
		{12, KindServiceImage, StatusFloatingTag, "postgres:16"},
		{14, KindServiceImage, StatusPinned, "redis@sha256:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{16, KindAction, StatusFloatingTag, "actions/checkout@v4"},
		{17, KindAction, StatusPinned, "actions/setup-go@0aaccfd150d50ccaeb58ebd88d36e91967a5f35b"},
		{18, KindAction, StatusLocalPath, "./local/action"},
		{19, KindAction, StatusLocalPath, ".github/workflows/reuse.yml"},
		{20, KindAction, StatusFloatingTag, "docker://alpine:3.20"},
		{25, KindContainerImage, StatusFloatingTag, "node:20"},
	}

	if len(refs) != len(want) {
		t.Fatalf("expected %d references, got %d: %+v", len(want), len(refs), refs)
	}
	for _, w := range want {
		ref := refByLine(refs, w.lineNo)
		if ref == nil {
			t.Errorf("no reference at line %d", w.lineNo)
			continue
		}
		if ref.Kind != w.kind || ref.Status != w.status || ref.RawValue != w.value {
			t.Errorf("line %d = {%s %s %q}, expected {%s %s %q}",
				w.lineNo, ref.Kind, ref.Status, ref.RawValue, w.kind, w.status, w.value)
		}
	}

	// The image: under steps is outside both blocks and must not be yielded.
	if ref := refByLine(refs, 22); ref != nil {
		t.Errorf("image outside container/services blocks leaked: %+v", ref)
	}
}

// TestBlockEndsAtEqualIndentation pins the indentation-threshold rule:
// a line indented at or below the block opener terminates the block.
func TestBlockEndsAtEqualIndentation(t *testing.T) {
	content := strings.Join([]string{
		"jobs:",
		"  a:",
		"    services:",
		"      db:",
		"        image: postgres:16",
		"    steps:",
		"      - name: x",
		"        image: unrelated:1",
	}, "\n")

	refs := ExtractLines("w.yml", strings.Split(content, "\n"))
	if len(refs) != 1 {
		t.Fatalf("expected 1 reference, got %d: %+v", len(refs), refs)
	}
	if refs[0].RawValue != "postgres:16" || refs[0].Kind != KindServiceImage {
		t.Errorf("got %+v", refs[0])
	}
}

func TestBlankAndCommentLinesDoNotEndBlocks(t *testing.T) {
	content := strings.Join([]string{
		"    container:",
		"",
		"      # which image to run in",
		"      image: golang:1.23",
	}, "\n")

	refs := ExtractLines("w.yml", strings.Split(content, "\n"))
	if len(refs) != 1 {
		t.Fatalf("expected 1 reference, got %d", len(refs))
	}
	if refs[0].Kind != KindContainerImage {
		t.Errorf("kind = %s", refs[0].Kind)
	}
}

func TestClassify(t *testing.T) {
	sha := strings.Repeat("0a", 20)
	tests := []struct {
		kind  Kind
		value string
		want  PinStatus
	}{
		{KindAction, "actions/checkout@" + sha, StatusPinned},
		{KindAction, "actions/checkout@v4", StatusFloatingTag},
		{KindAction, "actions/checkout@" + strings.Repeat("A", 40), StatusFloatingTag}, // uppercase hex is not a pin
		{KindAction, "actions/checkout@" + strings.Repeat("0", 39), StatusFloatingTag},
		{KindAction, "actions/checkout", StatusFloatingTag},
		{KindAction, "./scripts/act", StatusLocalPath},
		{KindAction, ".github/actions/build", StatusLocalPath},
		{KindAction, "docker://img:tag", StatusFloatingTag},
		{KindAction, "docker://img@sha256:" + strings.Repeat("a", 64), StatusPinned},
		{KindAction, "", StatusMalformed},
		{KindContainerImage, "nginx:latest", StatusFloatingTag},
		{KindContainerImage, "nginx@sha256:" + strings.Repeat("b", 64), StatusPinned},
		{KindServiceImage, "", StatusMalformed},
	}
	for _, tc := range tests {
		if got := Classify(tc.kind, tc.value); got != tc.want {
			t.Errorf("Classify(%s, %q) = %s, expected %s", tc.kind, tc.value, got, tc.want)
		}
	}
}

func TestSplitKeyValue(t *testing.T) {
	tests := []struct {
		in    string
		key   string
		value string
		ok    bool
	}{
		{"uses: actions/checkout@v4", "uses", "actions/checkout@v4", true},
		{"- uses: actions/checkout@v4", "uses", "actions/checkout@v4", true},
		{`uses: "actions/checkout@v4"`, "uses", "actions/checkout@v4", true},
		{"uses: actions/checkout@abc123 # v4", "uses", "actions/checkout@abc123", true},
		{"container:", "container", "", true},
		{"plain text line", "", "", false},
		{"run: echo hi", "run", "echo hi", true},
	}
	for _, tc := range tests {
		key, value, ok := splitKeyValue(tc.in)
		if key != tc.key || value != tc.value || ok != tc.ok {
			t.Errorf("splitKeyValue(%q) = (%q, %q, %v), expected (%q, %q, %v)",
				tc.in, key, value, ok, tc.key, tc.value, tc.ok)
		}
	}
}
