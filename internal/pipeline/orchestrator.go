// Package pipeline implements the run-lifecycle state machine that
// sequences the scoring stages, guards against concurrent execution,
// tracks progress and errors, and persists the parameters of the most
// recent successful run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ejayaguirre/geopulse/internal/domain"
	"github.com/ejayaguirre/geopulse/internal/observability"
	"github.com/ejayaguirre/geopulse/internal/scoring"
	"github.com/ejayaguirre/geopulse/internal/source"
	"github.com/ejayaguirre/geopulse/internal/store"
)

// Status is the pipeline lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Decision is the outcome of a run request.
type Decision string

const (
	DecisionStarted        Decision = "started"
	DecisionAlreadyRunning Decision = "already_running"
	DecisionReusedOutputs  Decision = "reused_outputs"
)

// Snapshot is an immutable copy of the pipeline state, safe to hand to
// concurrent readers.
type Snapshot struct {
	Status     Status                  `json:"status"`
	Step       string                  `json:"step"`
	Progress   int                     `json:"progress"`
	LastRun    *time.Time              `json:"last_run,omitempty"`
	LastParams *domain.ScoreParameters `json:"last_run_parameters,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// RunEvent describes a finished run for downstream consumers.
type RunEvent struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"` // "done" or "error"
	Region      string    `json:"region"`
	SiteCount   int       `json:"site_count"`
	CompletedAt time.Time `json:"completed_at"`
	Error       string    `json:"error,omitempty"`
}

// Notifier publishes run events. Implementations must be safe for
// concurrent use; publishing is best-effort and never fails a run.
type Notifier interface {
	PublishRunEvent(ctx context.Context, event RunEvent) error
}

// Options wires an Orchestrator.
type Options struct {
	Thermal       source.SignalSource
	GridProximity source.SignalSource
	Equity        source.SignalSource
	Outputs       *store.OutputStore
	Notifier      Notifier // nil disables run events
	Logger        *slog.Logger
	Metrics       *observability.Metrics
	GridCellDeg   float64
	Seed          int64
	RunTimeout    time.Duration
}

// Orchestrator owns the single process-wide pipeline state. All mutation
// happens under one mutex so the running guard is an atomic check-and-set,
// never a read-then-write open to a concurrent second trigger.
type Orchestrator struct {
	thermal  source.SignalSource
	gridProx source.SignalSource
	equity   source.SignalSource
	outputs  *store.OutputStore
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics

	gridCellDeg float64
	seed        int64
	runTimeout  time.Duration

	mu         sync.Mutex
	status     Status
	step       string
	progress   int
	runID      string
	lastRun    time.Time
	lastParams *domain.ScoreParameters
	lastErr    string
}

// New creates an Orchestrator in the Idle state. The last successful run's
// parameters and timestamp are restored from the output store when present,
// so restarts do not lose the persisted snapshot.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		thermal:     opts.Thermal,
		gridProx:    opts.GridProximity,
		equity:      opts.Equity,
		outputs:     opts.Outputs,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		gridCellDeg: opts.GridCellDeg,
		seed:        opts.Seed,
		runTimeout:  opts.RunTimeout,
		status:      StatusIdle,
	}
	if rec, err := opts.Outputs.LoadLastRun(); err != nil {
		opts.Logger.Warn("failed to restore last run record", "error", err)
	} else if rec != nil {
		o.lastRun = rec.CompletedAt
		params := rec.Parameters
		o.lastParams = &params
	}
	return o
}

// TriggerRun requests a scoring run under the given validated parameter
// snapshot. It returns immediately: DecisionStarted means the run proceeds
// in the background, DecisionAlreadyRunning means the request was rejected
// by the concurrency guard, and DecisionReusedOutputs means prior outputs
// satisfied a non-forced request without invoking any signal source.
func (o *Orchestrator) TriggerRun(params domain.ScoreParameters, force bool) Decision {
	decision := o.claim(force)
	if decision != DecisionStarted {
		return decision
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.runTimeout)
		defer cancel()
		if err := o.execute(ctx, params); err != nil {
			o.logger.Error("scoring run failed", "error", err)
		}
	}()
	return DecisionStarted
}

// RunSync executes a run on the caller's goroutine, for one-shot use.
// The same guard and reuse semantics apply as for TriggerRun.
func (o *Orchestrator) RunSync(ctx context.Context, params domain.ScoreParameters, force bool) error {
	switch o.claim(force) {
	case DecisionAlreadyRunning:
		return errors.New("a run is already in progress")
	case DecisionReusedOutputs:
		return nil
	}
	return o.execute(ctx, params)
}

// claim atomically applies the run-request transition rules and returns
// the resulting decision. On DecisionStarted the state is already Running
// when claim returns; no other trigger can start until this run finishes.
func (o *Orchestrator) claim(force bool) Decision {
	o.mu.Lock()
	if o.status == StatusRunning {
		o.mu.Unlock()
		o.metrics.RunsCompleted.WithLabelValues("rejected").Inc()
		return DecisionAlreadyRunning
	}
	if !force && o.outputs.OutputsReady() {
		o.status = StatusDone
		o.step = "reused previous outputs"
		o.progress = 100
		o.lastErr = ""
		o.mu.Unlock()
		o.metrics.RunsCompleted.WithLabelValues("reused").Inc()
		o.logger.Info("run request satisfied by existing outputs")
		return DecisionReusedOutputs
	}
	o.status = StatusRunning
	o.step = "starting"
	o.progress = 0
	o.runID = fmt.Sprintf("run-%d", clock.Now().UnixNano())
	o.lastErr = ""
	o.mu.Unlock()
	o.metrics.RunsStarted.Inc()
	return DecisionStarted
}

// Status returns the current state tuple as an independent copy. It never
// blocks on a running pipeline beyond the brief state mutex.
func (o *Orchestrator) Status() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		Status:   o.status,
		Step:     o.step,
		Progress: o.progress,
		Error:    o.lastErr,
	}
	if !o.lastRun.IsZero() {
		t := o.lastRun
		snap.LastRun = &t
	}
	if o.lastParams != nil {
		p := *o.lastParams
		snap.LastParams = &p
	}
	return snap
}

// CheckReadiness reports whether scored outputs are available to serve.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if o.outputs.OutputsReady() {
		return nil
	}
	return errors.New("no scoring outputs available yet")
}

// runState carries intermediate products between steps of one run.
type runState struct {
	params    domain.ScoreParameters
	grid      domain.Grid
	thermal   domain.ScalarField
	gridProx  domain.ScalarField
	equity    domain.ScalarField
	composite domain.CompositeField
	sites     []domain.CandidateSite
}

// step is one observable pipeline stage. Targets strictly increase;
// progress is advanced to the target only after the stage completes.
type step struct {
	label  string
	target int
	fn     func(ctx context.Context, run *runState) error
}

func (o *Orchestrator) steps() []step {
	return []step{
		{label: "fetch signal layers", target: 40, fn: o.fetchLayers},
		{label: "normalize and combine", target: 60, fn: o.normalizeAndCombine},
		{label: "extract candidate sites", target: 80, fn: o.extractSites},
		{label: "export outputs", target: 100, fn: o.exportOutputs},
	}
}

// execute runs all steps in order. Any step failure transitions to Error
// and halts; remaining steps are never attempted.
func (o *Orchestrator) execute(ctx context.Context, params domain.ScoreParameters) error {
	start := clock.Now()
	o.metrics.PipelineRunning.Set(1)
	defer o.metrics.PipelineRunning.Set(0)

	o.logger.Info("scoring run started",
		"region", params.Region.Name,
		"window", params.StartDate+".."+params.EndDate,
		"num_sites", params.NumSites,
		"percentile", params.Percentile,
	)

	run := &runState{
		params: params,
		grid:   domain.GridForRegion(params.Region, o.gridCellDeg),
	}

	for _, st := range o.steps() {
		o.enterStep(st.label)
		stepStart := clock.Now()
		if err := st.fn(ctx, run); err != nil {
			o.fail(params.Region.Name, st.label, err)
			return err
		}
		o.metrics.StepDuration.WithLabelValues(st.label).Observe(clock.Since(stepStart).Seconds())
		o.advance(st.target)
	}

	if err := o.complete(params, len(run.sites)); err != nil {
		return err
	}
	o.metrics.RunDuration.Observe(clock.Since(start).Seconds())
	return nil
}

func (o *Orchestrator) fetchLayers(ctx context.Context, run *runState) error {
	var err error
	if run.thermal, err = o.fetchLayer(ctx, o.thermal, run); err != nil {
		return err
	}
	if run.gridProx, err = o.fetchLayer(ctx, o.gridProx, run); err != nil {
		return err
	}
	run.equity, err = o.fetchLayer(ctx, o.equity, run)
	return err
}

func (o *Orchestrator) fetchLayer(ctx context.Context, src source.SignalSource, run *runState) (domain.ScalarField, error) {
	start := clock.Now()
	field, err := src.Fetch(ctx, run.grid, run.params)
	o.metrics.SourceFetchDuration.WithLabelValues(src.Name()).Observe(clock.Since(start).Seconds())
	if err != nil {
		return domain.ScalarField{}, err
	}
	o.logger.Debug("signal layer fetched", "source", src.Name(), "valid_cells", field.ValidCells())
	return field, nil
}

func (o *Orchestrator) normalizeAndCombine(_ context.Context, run *runState) error {
	composite, err := scoring.Combine(
		scoring.Normalize(run.thermal),
		scoring.Normalize(run.gridProx),
		scoring.Normalize(run.equity),
		run.params.Weights(),
	)
	if err != nil {
		return err
	}
	run.composite = composite
	return nil
}

func (o *Orchestrator) extractSites(_ context.Context, run *runState) error {
	run.sites = scoring.Extract(run.composite, run.params.Percentile, run.params.NumSites, o.seed)
	o.metrics.SitesExtracted.Observe(float64(len(run.sites)))
	if len(run.sites) == 0 {
		// Valid low-confidence outcome: nothing cleared the threshold.
		o.logger.Warn("extraction yielded no candidate sites",
			"percentile", run.params.Percentile, "region", run.params.Region.Name)
	}
	return nil
}

func (o *Orchestrator) exportOutputs(_ context.Context, run *runState) error {
	if err := o.outputs.WriteSites(run.sites); err != nil {
		return err
	}
	return o.outputs.WriteComposite(run.composite)
}

func (o *Orchestrator) enterStep(label string) {
	o.mu.Lock()
	o.step = label
	o.mu.Unlock()
}

func (o *Orchestrator) advance(target int) {
	o.mu.Lock()
	o.progress = target
	o.mu.Unlock()
}

// complete persists the parameter snapshot, then transitions to Done.
// A persistence failure is a run failure: Done is only ever observed with
// the snapshot durably written, and the error propagates to the caller.
func (o *Orchestrator) complete(params domain.ScoreParameters, siteCount int) error {
	now := clock.Now()
	rec := store.LastRun{Parameters: params, CompletedAt: now, SiteCount: siteCount}
	if err := o.outputs.WriteLastRun(rec); err != nil {
		o.fail(params.Region.Name, "persist run parameters", err)
		return err
	}

	o.mu.Lock()
	o.status = StatusDone
	o.step = "complete"
	o.progress = 100
	o.lastRun = now
	p := params
	o.lastParams = &p
	id := o.runID
	o.mu.Unlock()

	o.metrics.RunsCompleted.WithLabelValues("done").Inc()
	o.logger.Info("scoring run complete", "run_id", id, "sites", siteCount, "region", params.Region.Name)
	o.notify(RunEvent{
		RunID:       id,
		Status:      "done",
		Region:      params.Region.Name,
		SiteCount:   siteCount,
		CompletedAt: now,
	})
	return nil
}

// fail records the failing step and reason, surfaced verbatim to status
// readers. Prior successful outputs stay on disk untouched.
func (o *Orchestrator) fail(region, label string, err error) {
	o.mu.Lock()
	o.status = StatusError
	o.step = label
	o.lastErr = err.Error()
	id := o.runID
	o.mu.Unlock()

	o.metrics.RunsCompleted.WithLabelValues("error").Inc()
	o.logger.Error("pipeline step failed", "run_id", id, "step", label, "error", err)
	o.notify(RunEvent{
		RunID:       id,
		Status:      "error",
		Region:      region,
		CompletedAt: clock.Now(),
		Error:       err.Error(),
	})
}

// notify publishes a run event when a notifier is configured. Best-effort.
func (o *Orchestrator) notify(event RunEvent) {
	if o.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.notifier.PublishRunEvent(ctx, event); err != nil {
		o.metrics.RunEventErrors.Inc()
		o.logger.Warn("run event publish failed", "error", err)
		return
	}
	o.metrics.RunEventsPublished.Inc()
}
