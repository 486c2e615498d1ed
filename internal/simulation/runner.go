package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"combatsim/broker/internal/catalog"
	"combatsim/broker/internal/combat"
	"combatsim/broker/internal/logging"
)

// ErrUnexpected is returned when a trial fails in a way the engine does not model. The
// cause is logged, never returned.
var ErrUnexpected = errors.New("simulation: unexpected error")

const (
	// DefaultBatchSize is how many trials run between cancellation checks.
	DefaultBatchSize = 100
	// DefaultTrials is used when a request leaves the trial count unset.
	DefaultTrials = 100000
	// DefaultMaxTrials bounds a single request.
	DefaultMaxTrials = 1000000
)

// Progress is published after every batch.
type Progress struct {
	RunID     string `json:"runId"`
	Completed int    `json:"completed"`
	Requested int    `json:"requested"`
}

// Options tune a single run.
type Options struct {
	// Trials defaults to the runner's default trial count when zero.
	Trials int
	// Seed makes the run reproducible. A random seed is drawn when nil.
	Seed *uint64
	// Source overrides the generator entirely; Seed is ignored when set.
	Source combat.Source
	// OnProgress is invoked on the running goroutine after every batch.
	OnProgress func(Progress)
}

// Result is the aggregated outcome of a run.
type Result struct {
	RunID           string    `json:"runId"`
	Bot             string    `json:"bot"`
	Status          Status    `json:"status"`
	TrialsRequested int       `json:"trialsRequested"`
	TrialsCompleted int       `json:"trialsCompleted"`
	Seed            uint64    `json:"seed,omitempty"`
	ElapsedMs       float64   `json:"elapsedMs"`
	KillVolleys     Histogram `json:"killVolleys"`
	KillTUs         Histogram `json:"killTus"`
	VolleySummary   Summary   `json:"volleySummary"`
	TUSummary       Summary   `json:"tuSummary"`
}

// Runner executes Monte Carlo runs and tracks them while they are in flight.
type Runner struct {
	batchSize     int
	defaultTrials int
	maxTrials     int
	maxVolleys    int
	rules         string
	logger        *logging.Logger
	registry      *Registry
	monitor       *Monitor
	now           func() time.Time
}

// Option configures optional runner parameters at construction time.
type Option func(*Runner)

// WithBatchSize overrides how many trials run between cancellation checks.
func WithBatchSize(size int) Option {
	return func(r *Runner) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// WithTrialLimits overrides the default and maximum trials per run.
func WithTrialLimits(defaultTrials, maxTrials int) Option {
	return func(r *Runner) {
		if maxTrials > 0 {
			r.maxTrials = maxTrials
		}
		if defaultTrials > 0 {
			r.defaultTrials = defaultTrials
		}
	}
}

// WithCombatDefaults fills the volley cap and rules version of configurations that leave
// them unset.
func WithCombatDefaults(maxVolleys int, rules string) Option {
	return func(r *Runner) {
		if maxVolleys > 0 {
			r.maxVolleys = maxVolleys
		}
		r.rules = rules
	}
}

// WithLogger routes run logs to the provided logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistry shares a run registry between runners.
func WithRegistry(registry *Registry) Option {
	return func(r *Runner) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// WithMonitor records batch timings into the provided monitor.
func WithMonitor(monitor *Monitor) Option {
	return func(r *Runner) {
		if monitor != nil {
			r.monitor = monitor
		}
	}
}

// WithClock injects a deterministic clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewRunner constructs a runner with default limits.
func NewRunner(opts ...Option) *Runner {
	runner := &Runner{
		batchSize:     DefaultBatchSize,
		defaultTrials: DefaultTrials,
		maxTrials:     DefaultMaxTrials,
		maxVolleys:    combat.DefaultMaxVolleys,
		registry:      NewRegistry(),
		monitor:       NewMonitor(),
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(runner)
		}
	}
	runner.defaultTrials = min(runner.defaultTrials, runner.maxTrials)
	return runner
}

// Registry exposes the runs currently in flight.
func (r *Runner) Registry() *Registry { return r.registry }

// Monitor exposes the batch timing statistics.
func (r *Runner) Monitor() *Monitor { return r.monitor }

// Simulate validates cfg against the catalog and runs it. Configuration errors are
// returned before any random draw.
func (r *Runner) Simulate(ctx context.Context, cat *catalog.Catalog, cfg combat.Config, opts Options) (*Result, error) {
	if _, err := r.resolveTrials(opts.Trials); err != nil {
		return nil, err
	}
	if cfg.MaxVolleys == 0 {
		cfg.MaxVolleys = r.maxVolleys
	}
	if cfg.Rules == "" {
		cfg.Rules = r.rules
	}
	setup, err := combat.Build(cat, cfg)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, setup, opts)
}

// Run executes the trials of one validated setup. Cancellation and unwinnable fights are
// reported through Result.Status; the only error after validation is ErrUnexpected.
func (r *Runner) Run(ctx context.Context, setup *combat.Setup, opts Options) (*Result, error) {
	if setup == nil {
		return nil, errors.New("simulation: setup required")
	}
	trials, err := r.resolveTrials(opts.Trials)
	if err != nil {
		return nil, err
	}
	if setup.MaxVolleys <= 0 {
		capped := *setup
		capped.MaxVolleys = r.maxVolleys
		setup = &capped
	}

	//1.- Identify and register the run before the first trial.
	started := r.now()
	result := &Result{
		RunID:           uuid.NewString(),
		Bot:             setup.BotName,
		TrialsRequested: trials,
		KillVolleys:     Histogram{},
		KillTUs:         Histogram{},
	}
	logger := r.logger
	if logger == nil {
		logger = logging.LoggerFromContext(ctx)
	}
	logger = logger.With(logging.String("run_id", result.RunID), logging.String("bot", setup.BotName))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	lc := newLifecycle(logger)
	r.registry.add(RunInfo{ID: result.RunID, Bot: setup.BotName, Requested: trials, StartedAt: started}, cancel, lc)
	defer r.registry.remove(result.RunID)

	var rng combat.Source
	if opts.Source != nil {
		rng = opts.Source
	} else {
		result.Seed = rand.Uint64()
		if opts.Seed != nil {
			result.Seed = *opts.Seed
		}
		rng = combat.NewSource(result.Seed)
	}

	if err := lc.fire(eventStart); err != nil {
		return nil, err
	}
	logger.Info("simulation started", logging.Int("trials", trials), logging.Int("batch_size", r.batchSize))

	//2.- Drive the batches and settle the final state.
	event, runErr := r.execute(runCtx, setup, rng, result, opts.OnProgress)
	if err := lc.fire(event); err != nil {
		logger.Error("run lifecycle rejected transition", logging.Error(err))
	}
	result.Status = lc.status()
	result.VolleySummary = result.KillVolleys.Summarize()
	result.TUSummary = result.KillTUs.Summarize()
	elapsed := r.now().Sub(started)
	result.ElapsedMs = float64(elapsed) / float64(time.Millisecond)
	r.monitor.ObserveRun(result.Status)

	fields := []logging.Field{
		logging.String("status", string(result.Status)),
		logging.Int("trials_requested", trials),
		logging.Int("trials_completed", result.TrialsCompleted),
		logging.Duration("elapsed_ms", elapsed),
	}
	switch result.Status {
	case StatusFailed:
		var failure *trialPanic
		if errors.As(runErr, &failure) {
			fields = append(fields, logging.String("stack", string(failure.stack)))
		}
		logger.Error("simulation failed", append(fields, logging.Error(runErr))...)
		return result, ErrUnexpected
	case StatusAborted:
		logger.Warn("simulation aborted: volley cap reached", append(fields, logging.Int("max_volleys", setup.VolleyCap()))...)
	case StatusCancelled:
		logger.Info("simulation cancelled", fields...)
	default:
		logger.Info("simulation completed", append(fields, logging.Float64("mean_volleys", result.VolleySummary.Mean))...)
	}
	return result, nil
}

func (r *Runner) resolveTrials(requested int) (int, error) {
	if requested == 0 {
		return r.defaultTrials, nil
	}
	if requested < 0 || requested > r.maxTrials {
		return 0, combat.NewConfigError("trials", "must be between 1 and %d, got %d", r.maxTrials, requested)
	}
	return requested, nil
}

// execute runs batches until the requested trials finish, the context is cancelled, a
// trial hits the volley cap or a trial panics. It returns the lifecycle event to fire.
func (r *Runner) execute(ctx context.Context, setup *combat.Setup, rng combat.Source, result *Result, onProgress func(Progress)) (string, error) {
	for result.TrialsCompleted < result.TrialsRequested {
		//1.- Cancellation is only observed at batch boundaries.
		if ctx.Err() != nil {
			return eventCancel, nil
		}
		batchStart := r.now()
		end := min(result.TrialsCompleted+r.batchSize, result.TrialsRequested)
		ran := 0
		for result.TrialsCompleted < end {
			trial, err := runTrial(setup, rng)
			if err != nil {
				return eventFail, err
			}
			//2.- An unwinnable fight ends the run and stays out of the histograms.
			if trial.Outcome == combat.OutcomeAborted {
				return eventAbort, nil
			}
			result.KillVolleys[trial.Volleys]++
			result.KillTUs[trial.TUKey()]++
			result.TrialsCompleted++
			ran++
		}
		r.monitor.ObserveBatch(ran, r.now().Sub(batchStart))
		r.registry.progress(result.RunID, result.TrialsCompleted)
		if onProgress != nil {
			onProgress(Progress{RunID: result.RunID, Completed: result.TrialsCompleted, Requested: result.TrialsRequested})
		}
		runtime.Gosched()
	}
	return eventComplete, nil
}

type trialPanic struct {
	value any
	stack []byte
}

func (p *trialPanic) Error() string {
	return fmt.Sprintf("trial panicked: %v", p.value)
}

func runTrial(setup *combat.Setup, rng combat.Source) (result combat.TrialResult, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &trialPanic{value: recovered, stack: debug.Stack()}
		}
	}()
	return setup.RunTrial(rng), nil
}
