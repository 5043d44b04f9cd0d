// Package gate runs the push-time checks as an ordered list of independent
// steps and folds their exit codes into one verdict. One failing step never
// stops the others, so a single run reports every violation.
package gate

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pushgate/pushgate/internal/worker"
)

// Exit codes shared by the gate and the CLI.
const (
	CodeClean       = 0
	CodeViolations  = 1
	CodeAutopinned  = 2
	CodeOperational = 3
)

// Step is one independent check. Run writes its report to out and returns
// the step's exit code; a non-nil error marks an operational failure of that
// step only. Concurrent steps each receive a private writer, so a step must
// never print anywhere else.
type Step struct {
	Name string
	Run  func(ctx context.Context, out io.Writer) (int, error)
}

// StepResult records one step's outcome.
type StepResult struct {
	Name string
	Code int
	Err  error
}

// Dispatcher aggregates step outcomes into a single verdict.
type Dispatcher struct {
	steps    []Step
	parallel bool
	out      io.Writer
}

// New builds a dispatcher over an ordered step list. With parallel set the
// steps run concurrently; they share no mutable state, so this is purely an
// optimization and the reported order stays stable.
func New(steps []Step, parallel bool, out io.Writer) *Dispatcher {
	return &Dispatcher{steps: steps, parallel: parallel, out: out}
}

// Run executes every step, prints a per-step summary and the final verdict,
// and returns the aggregate exit code: the worst outcome across steps, with
// operational errors dominating violation codes.
func (d *Dispatcher) Run(ctx context.Context) (int, []StepResult) {
	results := d.execute(ctx)

	aggregate := CodeClean
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(d.out, "  %-12s error: %v\n", r.Name, r.Err)
			aggregate = CodeOperational
		case r.Code == CodeClean:
			fmt.Fprintf(d.out, "  %-12s ok\n", r.Name)
		default:
			fmt.Fprintf(d.out, "  %-12s violations (exit %d)\n", r.Name, r.Code)
			if aggregate < r.Code {
				aggregate = r.Code
			}
		}
	}

	switch aggregate {
	case CodeClean:
		fmt.Fprintln(d.out, "gate: clean")
	case CodeOperational:
		fmt.Fprintln(d.out, "gate: error")
	default:
		fmt.Fprintln(d.out, "gate: blocked")
	}
	return aggregate, results
}

func (d *Dispatcher) execute(ctx context.Context) []StepResult {
	if !d.parallel {
		results := make([]StepResult, 0, len(d.steps))
		for _, s := range d.steps {
			code, err := s.Run(ctx, d.out)
			results = append(results, StepResult{Name: s.Name, Code: code, Err: err})
		}
		return results
	}

	// Each step reports into a private buffer, flushed in step order below,
	// so concurrent runs produce the same bytes as serial ones.
	bufs := make([]bytes.Buffer, len(d.steps))
	idx := make([]int, len(d.steps))
	for i := range idx {
		idx[i] = i
	}
	pooled := worker.NewPool[int, StepResult](len(d.steps)).Process(idx, func(i int) (StepResult, error) {
		s := d.steps[i]
		code, err := s.Run(ctx, &bufs[i])
		return StepResult{Name: s.Name, Code: code, Err: err}, nil
	})

	results := make([]StepResult, len(pooled))
	for i, r := range pooled {
		_, _ = bufs[i].WriteTo(d.out)
		results[i] = r.Value
	}
	return results
}
