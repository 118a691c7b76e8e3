// Package scenario sequences the fixed verification checks against the
// server, one isolated exchange per scenario, and converts every outcome
// into a Verdict.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/simprobe/simprobe/internal/classify"
	"github.com/simprobe/simprobe/internal/rpc"
	"github.com/simprobe/simprobe/internal/transport"
)

const (
	// StatusNotRun indicates a scenario that has not started.
	StatusNotRun = "not_run"
	// StatusRunning indicates a scenario currently executing.
	StatusRunning = "running"
	// StatusPassed indicates the scenario's check held.
	StatusPassed = "passed"
	// StatusFailed indicates the scenario's check did not hold.
	StatusFailed = "failed"
	// StatusCrashed indicates an uncaught fault while running the scenario.
	StatusCrashed = "crashed"
)

// DefaultPause is the fixed pause between scenarios.
const DefaultPause = 500 * time.Millisecond

// Verdict is the immutable outcome of one scenario.
type Verdict struct {
	Name   string
	Status string
	Detail string
}

// Passed reports whether the verdict is terminal-pass.
func (v Verdict) Passed() bool { return v.Status == StatusPassed }

// Scenario is one named check: a request builder step plus a pure
// evaluation of the classified response.
type Scenario struct {
	Name     string
	Build    func(b *rpc.Builder) (rpc.Request, error)
	Evaluate func(c classify.Classification) Verdict
}

// Exchanger performs one request/response exchange against a fresh
// server process.
type Exchanger interface {
	Exchange(ctx context.Context, req rpc.Request) (transport.Result, error)
}

// Observer receives scenario lifecycle notifications for progress
// reporting.
type Observer interface {
	ScenarioStarted(name string)
	ScenarioFinished(v Verdict)
}

// Config configures runner pacing.
type Config struct {
	Pause time.Duration
}

// Runner executes the scenario list in declared order, strictly
// sequentially, and never lets a scenario fault abort the run.
type Runner struct {
	exchanger Exchanger
	builder   *rpc.Builder
	scenarios []Scenario
	observer  Observer
	pause     time.Duration
	sleep     func(time.Duration)
}

// NewRunner constructs a runner over an explicit ordered scenario list.
func NewRunner(exchanger Exchanger, builder *rpc.Builder, scenarios []Scenario, observer Observer, cfg Config) (*Runner, error) {
	if exchanger == nil {
		return nil, errors.New("exchanger is required")
	}
	if builder == nil {
		return nil, errors.New("request builder is required")
	}
	if len(scenarios) == 0 {
		return nil, errors.New("at least one scenario is required")
	}
	pause := cfg.Pause
	if pause < 0 {
		pause = 0
	}
	return &Runner{
		exchanger: exchanger,
		builder:   builder,
		scenarios: append([]Scenario(nil), scenarios...),
		observer:  observer,
		pause:     pause,
		sleep:     time.Sleep,
	}, nil
}

// Run executes every scenario and returns verdicts in scenario order.
func (r *Runner) Run(ctx context.Context) []Verdict {
	if r == nil {
		return nil
	}

	verdicts := make([]Verdict, 0, len(r.scenarios))
	for i, sc := range r.scenarios {
		if r.observer != nil {
			r.observer.ScenarioStarted(sc.Name)
		}
		verdict := r.runOne(ctx, sc)
		verdicts = append(verdicts, verdict)
		if r.observer != nil {
			r.observer.ScenarioFinished(verdict)
		}
		if i < len(r.scenarios)-1 && r.pause > 0 {
			r.sleep(r.pause)
		}
	}
	return verdicts
}

func (r *Runner) runOne(ctx context.Context, sc Scenario) (verdict Verdict) {
	verdict = Verdict{Name: sc.Name, Status: StatusRunning}
	defer func() {
		if rec := recover(); rec != nil {
			verdict = Verdict{
				Name:   sc.Name,
				Status: StatusCrashed,
				Detail: fmt.Sprintf("panic: %v", rec),
			}
		}
	}()

	req, err := sc.Build(r.builder)
	if err != nil {
		return Verdict{Name: sc.Name, Status: StatusFailed, Detail: fmt.Sprintf("build request: %v", err)}
	}

	res, err := r.exchanger.Exchange(ctx, req)
	if err != nil {
		return Verdict{Name: sc.Name, Status: StatusFailed, Detail: fmt.Sprintf("exchange: %v", err)}
	}

	out := sc.Evaluate(classify.Classify(res))
	out.Name = sc.Name
	return out
}
