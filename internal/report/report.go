// Package report accumulates scenario verdicts, prints run progress, and
// derives the process exit status. It is the sole decider of aggregate
// success.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/simprobe/simprobe/internal/scenario"
)

const banner = "=================================================="

// Aggregator records verdicts in scenario order and writes the
// human-readable progress lines to one output stream.
type Aggregator struct {
	w        io.Writer
	verdicts []scenario.Verdict
}

// NewAggregator constructs an aggregator writing progress to w.
func NewAggregator(w io.Writer) (*Aggregator, error) {
	if w == nil {
		return nil, errors.New("output writer is required")
	}
	return &Aggregator{w: w}, nil
}

// Start announces the beginning of the run.
func (a *Aggregator) Start() {
	fmt.Fprintf(a.w, "🚀 Starting MCP server verification\n")
}

// ScenarioStarted prints the per-scenario banner.
func (a *Aggregator) ScenarioStarted(name string) {
	fmt.Fprintf(a.w, "\n%s\nRunning: %s\n%s\n", banner, name, banner)
}

// ScenarioFinished records one verdict and prints its outcome line.
func (a *Aggregator) ScenarioFinished(v scenario.Verdict) {
	a.verdicts = append(a.verdicts, v)

	switch v.Status {
	case scenario.StatusPassed:
		fmt.Fprintf(a.w, "✅ %s PASSED", v.Name)
	case scenario.StatusCrashed:
		fmt.Fprintf(a.w, "💥 %s CRASHED", v.Name)
	default:
		fmt.Fprintf(a.w, "❌ %s FAILED", v.Name)
	}
	if strings.TrimSpace(v.Detail) != "" {
		fmt.Fprintf(a.w, ": %s", v.Detail)
	}
	fmt.Fprintln(a.w)
}

// Summarize prints the final tally. Aggregate success is decided by
// ExitCode alone.
func (a *Aggregator) Summarize() {
	passed := 0
	for _, v := range a.verdicts {
		if v.Passed() {
			passed++
		}
	}
	fmt.Fprintf(a.w, "\n%s\nRESULTS: %d/%d scenarios passed\n%s\n", banner, passed, len(a.verdicts), banner)
}

// Verdicts returns the recorded verdicts in scenario order.
func (a *Aggregator) Verdicts() []scenario.Verdict {
	return append([]scenario.Verdict(nil), a.verdicts...)
}

// ExitCode derives the process exit status: 0 iff every scenario passed.
func (a *Aggregator) ExitCode() int {
	for _, v := range a.verdicts {
		if !v.Passed() {
			return 1
		}
	}
	if len(a.verdicts) == 0 {
		return 1
	}
	return 0
}

var _ scenario.Observer = (*Aggregator)(nil)
