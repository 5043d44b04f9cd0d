package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func step(name string, code int, err error, ran *[]string) Step {
	return Step{Name: name, Run: func(ctx context.Context, out io.Writer) (int, error) {
		if ran != nil {
			*ran = append(*ran, name)
		}
		return code, err
	}}
}

func TestRunAllCleanIsClean(t *testing.T) {
	var out strings.Builder
	d := New([]Step{
		step("secrets", CodeClean, nil, nil),
		step("pins", CodeClean, nil, nil),
	}, false, &out)

	code, results := d.Run(context.Background())
	if code != CodeClean {
		t.Errorf("code = %d, expected clean", code)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
	if !strings.Contains(out.String(), "gate: clean") {
		t.Errorf("missing verdict: %s", out.String())
	}
}

// TestRunFailingStepDoesNotStopOthers verifies every step executes even when
// an early one reports violations, so one run surfaces all problems.
func TestRunFailingStepDoesNotStopOthers(t *testing.T) {
	var ran []string
	var out strings.Builder
	d := New([]Step{
		step("secrets", CodeViolations, nil, &ran),
		step("pins", CodeViolations, nil, &ran),
		step("extra", CodeClean, nil, &ran),
	}, false, &out)

	code, _ := d.Run(context.Background())
	if code != CodeViolations {
		t.Errorf("code = %d, expected violations", code)
	}
	if len(ran) != 3 {
		t.Errorf("all steps should run, got %v", ran)
	}
	if !strings.Contains(out.String(), "gate: blocked") {
		t.Errorf("missing verdict: %s", out.String())
	}
}

// TestRunOperationalErrorDominates verifies an operational step failure is
// distinguishable from plain violations in the aggregate code.
func TestRunOperationalErrorDominates(t *testing.T) {
	var out strings.Builder
	d := New([]Step{
		step("secrets", CodeViolations, nil, nil),
		step("pins", 0, errors.New("workflow dir unreadable"), nil),
	}, false, &out)

	code, _ := d.Run(context.Background())
	if code != CodeOperational {
		t.Errorf("code = %d, expected operational", code)
	}
	if !strings.Contains(out.String(), "workflow dir unreadable") {
		t.Errorf("operational error not reported: %s", out.String())
	}
}

func TestRunPerStepSummaryLines(t *testing.T) {
	var out strings.Builder
	d := New([]Step{
		step("secrets", CodeClean, nil, nil),
		step("pins", CodeViolations, nil, nil),
	}, false, &out)
	d.Run(context.Background())

	s := out.String()
	if !strings.Contains(s, "secrets") || !strings.Contains(s, "ok") {
		t.Errorf("missing ok summary: %s", s)
	}
	if !strings.Contains(s, "pins") || !strings.Contains(s, "violations") {
		t.Errorf("missing violation summary: %s", s)
	}
}

// TestRunParallelMatchesSerial verifies parallel execution is a pure
// optimization: same aggregate, same stable result order, and byte-identical
// output even when steps write multi-line reports concurrently.
func TestRunParallelMatchesSerial(t *testing.T) {
	reporting := func(name string, code int, lines int) Step {
		return Step{Name: name, Run: func(ctx context.Context, out io.Writer) (int, error) {
			for i := 0; i < lines; i++ {
				fmt.Fprintf(out, "%s: violation %d\n", name, i)
			}
			return code, nil
		}}
	}
	build := func(parallel bool, out *strings.Builder) *Dispatcher {
		return New([]Step{
			reporting("a", CodeClean, 0),
			reporting("b", CodeViolations, 20),
			reporting("c", CodeViolations, 20),
		}, parallel, out)
	}

	var serialOut, parallelOut strings.Builder
	serialCode, serialResults := build(false, &serialOut).Run(context.Background())
	parallelCode, parallelResults := build(true, &parallelOut).Run(context.Background())

	if serialCode != parallelCode {
		t.Errorf("codes differ: serial %d, parallel %d", serialCode, parallelCode)
	}
	for i := range serialResults {
		if serialResults[i].Name != parallelResults[i].Name {
			t.Errorf("result order differs at %d: %s vs %s",
				i, serialResults[i].Name, parallelResults[i].Name)
		}
	}
	if serialOut.String() != parallelOut.String() {
		t.Errorf("summaries differ:\n%s\nvs\n%s", serialOut.String(), parallelOut.String())
	}
}
