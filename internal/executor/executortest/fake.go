// Package executortest provides a scripted Runner for tests.
package executortest

import (
	"context"
	"strings"
	"sync"

	"github.com/jbweber/virtbuilder/internal/executor"
)

// Response is what the fake returns for a matching command.
type Response struct {
	Result *executor.Result
	Err    error
}

// Runner records every argv it receives and answers from a script keyed by
// command-line prefix. Commands without a matching entry succeed with an
// empty result.
type Runner struct {
	mu        sync.Mutex
	calls     [][]string
	responses []scripted
}

type scripted struct {
	prefix string
	resp   Response
}

// NewRunner returns an empty fake runner.
func NewRunner() *Runner {
	return &Runner{}
}

// On scripts the response for every command whose space-joined argv starts
// with prefix. Later registrations win over earlier ones.
func (r *Runner) On(prefix string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, scripted{prefix: prefix, resp: resp})
	return r
}

// OnExit scripts an exit status with optional stdout and stderr.
func (r *Runner) OnExit(prefix string, code int, stdout, stderr string) *Runner {
	return r.On(prefix, Response{Result: &executor.Result{ExitCode: code, Stdout: stdout, Stderr: stderr}})
}

// Run implements executor.Runner.
func (r *Runner) Run(_ context.Context, argv []string, _ executor.Options) (*executor.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, append([]string(nil), argv...))

	line := executor.CommandLine(argv)
	for i := len(r.responses) - 1; i >= 0; i-- {
		s := r.responses[i]
		if strings.HasPrefix(line, s.prefix) {
			if s.resp.Err != nil {
				return nil, s.resp.Err
			}
			res := *s.resp.Result
			return &res, nil
		}
	}

	return &executor.Result{}, nil
}

// Calls returns a copy of every argv received, in order.
func (r *Runner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Lines returns every received command as a space-joined line.
func (r *Runner) Lines() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = executor.CommandLine(c)
	}
	return out
}

// CountPrefix returns how many received commands start with prefix.
func (r *Runner) CountPrefix(prefix string) int {
	n := 0
	for _, l := range r.Lines() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}
