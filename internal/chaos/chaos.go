// internal/chaos/chaos.go
package chaos

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"stockroom/internal/clients"
)

// Comparison names how a sampled value is held against a limit.
type Comparison string

const (
	Equal   Comparison = "=="
	Below   Comparison = "<"
	AtMost  Comparison = "<="
	Above   Comparison = ">"
	AtLeast Comparison = ">="
)

// Bound is the range a steady-state metric has to stay within.
type Bound struct {
	Cmp   Comparison
	Limit float64
}

// Holds reports whether v satisfies b. NaN and unknown comparisons never hold.
func (b Bound) Holds(v float64) bool {
	switch b.Cmp {
	case Equal:
		return v == b.Limit
	case Below:
		return v < b.Limit
	case AtMost:
		return v <= b.Limit
	case Above:
		return v > b.Limit
	case AtLeast:
		return v >= b.Limit
	}
	return false
}

// Metric is a numeric signal queried from the running service.
type Metric struct {
	Name  string
	Query func(context.Context) (float64, error)
	Bound Bound
}

// Step is one piece of work run against the service.
type Step struct {
	Name string
	Run  func(context.Context) error
}

// Assertion is checked against the last sample of Metric.
type Assertion struct {
	Metric  string
	Check   func(float64) bool
	Message string
}

// Experiment states a hypothesis about the service and how to challenge it.
type Experiment struct {
	Name        string
	Hypothesis  string
	SteadyState []Metric
	Inject      []Step
	Rollback    []Step
	Assertions  []Assertion
	Duration    time.Duration
}

type Sample struct {
	At    time.Time
	Value float64
}

type Violation struct {
	Metric string
	Limit  float64
	Actual float64
	At     time.Time
}

// Failure is an error raised by a step or a metric query.
type Failure struct {
	At     time.Time
	Source string
	Err    string
}

// Result is what one experiment run observed.
type Result struct {
	Experiment       string
	Started          time.Time
	Finished         time.Time
	SteadyStateValid bool
	Held             bool
	Samples          map[string][]Sample
	Violations       []Violation
	Failures         []Failure
	FailedAssertions []string
	// MTTR is the time from the first violation to the first sample back
	// within bounds; nil when nothing broke or nothing recovered.
	MTTR *time.Duration
}

func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// ErrSteadyStateInvalid aborts an experiment before any step runs.
var ErrSteadyStateInvalid = errors.New("steady state invalid, experiment aborted")

// Engine runs experiments against an inventory service through its HTTP client.
type Engine struct {
	tracer         trace.Tracer
	logger         *zap.Logger
	client         *clients.InventoryClient
	sampleInterval time.Duration

	mu          sync.Mutex
	experiments []Experiment
	results     []Result
}

type Option func(*Engine)

// WithSampleInterval sets how often steady-state metrics are sampled while an
// experiment is observed.
func WithSampleInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.sampleInterval = d
	}
}

func NewEngine(client *clients.InventoryClient, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		tracer:         otel.Tracer("stockroom/chaos"),
		logger:         logger,
		client:         client,
		sampleInterval: time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) RegisterExperiment(exp Experiment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.experiments = append(e.experiments, exp)
}

// Experiments returns the registered experiments.
func (e *Engine) Experiments() []Experiment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Experiment(nil), e.experiments...)
}

// Results returns the results of every completed run.
func (e *Engine) Results() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Result(nil), e.results...)
}

// RunExperiment checks the steady state, injects the experiment's steps,
// samples its metrics for exp.Duration, rolls back and evaluates assertions.
func (e *Engine) RunExperiment(ctx context.Context, exp Experiment) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.run_experiment",
		trace.WithAttributes(attribute.String("experiment.name", exp.Name)),
	)
	defer span.End()

	result := &Result{
		Experiment: exp.Name,
		Started:    time.Now(),
		Samples:    make(map[string][]Sample),
	}

	span.AddEvent("steady_state")
	result.Violations = e.checkSteadyState(ctx, exp.SteadyState)
	if len(result.Violations) > 0 {
		return result, ErrSteadyStateInvalid
	}
	result.SteadyStateValid = true

	span.AddEvent("inject")
	for _, step := range exp.Inject {
		if err := step.Run(ctx); err != nil {
			result.Failures = append(result.Failures, Failure{At: time.Now(), Source: step.Name, Err: err.Error()})
			span.RecordError(err)
		}
	}

	span.AddEvent("observe")
	e.observe(ctx, exp, result)

	span.AddEvent("rollback")
	for _, step := range exp.Rollback {
		if err := step.Run(ctx); err != nil {
			e.logger.Warn("rollback step failed", zap.String("step", step.Name), zap.Error(err))
			span.RecordError(err)
		}
	}

	result.FailedAssertions = failedAssertions(exp.Assertions, result.Samples)
	result.Held = len(result.FailedAssertions) == 0
	result.Finished = time.Now()

	e.mu.Lock()
	e.results = append(e.results, *result)
	e.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("hypothesis_held", result.Held),
		attribute.Int("violations", len(result.Violations)),
	)
	return result, nil
}

// checkSteadyState returns a violation for every metric out of bounds. A
// query error counts as a violation with a NaN reading.
func (e *Engine) checkSteadyState(ctx context.Context, metrics []Metric) []Violation {
	var violations []Violation
	for _, m := range metrics {
		value, err := m.Query(ctx)
		if err != nil {
			e.logger.Warn("steady state query failed", zap.String("metric", m.Name), zap.Error(err))
			value = math.NaN()
		}
		if !m.Bound.Holds(value) {
			violations = append(violations, Violation{Metric: m.Name, Limit: m.Bound.Limit, Actual: value, At: time.Now()})
		}
	}
	return violations
}

// observe samples every steady-state metric until the experiment window
// closes. The window always ends with a final sample.
func (e *Engine) observe(ctx context.Context, exp Experiment, result *Result) {
	windowCtx, cancel := context.WithTimeout(ctx, exp.Duration)
	defer cancel()

	ticker := time.NewTicker(e.sampleInterval)
	defer ticker.Stop()

	var brokeAt time.Time
	sample := func() {
		for _, m := range exp.SteadyState {
			value, err := m.Query(ctx)
			now := time.Now()
			if err != nil {
				result.Failures = append(result.Failures, Failure{At: now, Source: m.Name, Err: err.Error()})
				continue
			}
			result.Samples[m.Name] = append(result.Samples[m.Name], Sample{At: now, Value: value})

			switch {
			case !m.Bound.Holds(value):
				if brokeAt.IsZero() {
					brokeAt = now
				}
				result.Violations = append(result.Violations, Violation{Metric: m.Name, Limit: m.Bound.Limit, Actual: value, At: now})
			case !brokeAt.IsZero() && result.MTTR == nil:
				mttr := now.Sub(brokeAt)
				result.MTTR = &mttr
			}
		}
	}

	for {
		select {
		case <-windowCtx.Done():
			sample()
			return
		case <-ticker.C:
			sample()
		}
	}
}

// failedAssertions returns the messages of assertions whose metric was never
// sampled or whose last sample fails the check.
func failedAssertions(assertions []Assertion, samples map[string][]Sample) []string {
	var failed []string
	for _, a := range assertions {
		s := samples[a.Metric]
		if len(s) == 0 || !a.Check(s[len(s)-1].Value) {
			failed = append(failed, a.Message)
		}
	}
	return failed
}

// GameDay is an ordered run of experiments with a pause between them.
type GameDay struct {
	Name      string
	Scenarios []Experiment
	Pause     time.Duration
}

// ExecuteGameDay runs every scenario in order and reports whether all
// hypotheses held.
func (e *Engine) ExecuteGameDay(ctx context.Context, day GameDay) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.game_day",
		trace.WithAttributes(attribute.String("gameday.name", day.Name)),
	)
	defer span.End()

	e.logger.Info("starting game day",
		zap.String("name", day.Name),
		zap.Int("scenarios", len(day.Scenarios)),
	)

	allHeld := true
	for i, scenario := range day.Scenarios {
		e.logger.Info("running experiment",
			zap.Int("index", i+1),
			zap.String("name", scenario.Name),
			zap.String("hypothesis", scenario.Hypothesis),
		)

		result, err := e.RunExperiment(ctx, scenario)
		if err != nil {
			e.logger.Error("experiment aborted", zap.String("name", scenario.Name), zap.Error(err))
			allHeld = false
			continue
		}
		e.logResult(result)
		allHeld = allHeld && result.Held

		if day.Pause > 0 && i < len(day.Scenarios)-1 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(day.Pause):
			}
		}
	}

	return allHeld, nil
}

func (e *Engine) logResult(result *Result) {
	fields := []zap.Field{
		zap.String("name", result.Experiment),
		zap.Bool("hypothesis_held", result.Held),
		zap.Int("violations", len(result.Violations)),
		zap.Int("failures", len(result.Failures)),
		zap.Duration("duration", result.Duration()),
	}
	if result.MTTR != nil {
		fields = append(fields, zap.Duration("mttr", *result.MTTR))
	}
	if result.Held {
		e.logger.Info("hypothesis held", fields...)
		return
	}
	e.logger.Warn("hypothesis violated", append(fields, zap.Strings("failed_assertions", result.FailedAssertions))...)
}
