package optimization

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ochestra-tech/tablescaler/internal/collector"
	"github.com/ochestra-tech/tablescaler/internal/config"
	"github.com/ochestra-tech/tablescaler/internal/metrics"
	"github.com/ochestra-tech/tablescaler/internal/providers"
	"github.com/ochestra-tech/tablescaler/internal/scaling"
	"github.com/ochestra-tech/tablescaler/internal/state"
)

// ErrExecutionFailure wraps a failed capacity change.
var ErrExecutionFailure = errors.New("execution failure")

// DataCollector gathers the inputs for one run
type DataCollector interface {
	Collect(ctx context.Context, cfg config.Config) (*collector.Collection, error)
}

// CapacityUpdater applies a capacity change to a table
type CapacityUpdater interface {
	UpdateCapacity(ctx context.Context, tableName string, reads, writes int64) (*providers.UpdateResult, error)
}

// Optimizer runs the collect, decide and apply cycle for one table
type Optimizer struct {
	ctx       context.Context
	config    config.Config
	collector DataCollector
	updater   CapacityUpdater
	store     state.Store
	history   *History
	logger    logrus.FieldLogger
	now       func() time.Time

	runMu    sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
}

// Option configures an Optimizer
type Option func(*Optimizer)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) { o.now = now }
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Optimizer) { o.logger = logger }
}

// WithHistorySize sets how many run outcomes are retained
func WithHistorySize(size int) Option {
	return func(o *Optimizer) { o.history = NewHistory(size) }
}

// NewOptimizer creates a new optimizer
func NewOptimizer(ctx context.Context, cfg config.Config, dataCollector DataCollector, updater CapacityUpdater, store state.Store, opts ...Option) *Optimizer {
	o := &Optimizer{
		ctx:       ctx,
		config:    cfg,
		collector: dataCollector,
		updater:   updater,
		store:     store,
		history:   NewHistory(defaultHistorySize),
		logger:    logrus.StandardLogger(),
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the policy the optimizer runs with
func (o *Optimizer) Config() config.Config {
	return o.config
}

// Start begins the periodic scaling loop
func (o *Optimizer) Start() error {
	if err := config.Validate(&o.config); err != nil {
		return err
	}
	go o.optimizationLoop()
	return nil
}

// Stop halts the scaling loop
func (o *Optimizer) Stop() {
	o.stopOnce.Do(func() { close(o.stopChan) })
}

// optimizationLoop runs immediately and then every check interval
func (o *Optimizer) optimizationLoop() {
	ticker := time.NewTicker(o.config.Period())
	defer ticker.Stop()

	o.runFromLoop()

	for {
		select {
		case <-ticker.C:
			o.runFromLoop()
		case <-o.stopChan:
			return
		case <-o.ctx.Done():
			return
		}
	}
}

func (o *Optimizer) runFromLoop() {
	if _, err := o.RunOnce(o.ctx); err != nil {
		o.logger.WithError(err).WithField("table", o.config.TableName).Error("Scaling run failed")
	}
}

// RunOnce performs a single scaling run. Runs are serialized. A returned error
// is fatal for the run; advisory throttle messages are carried in the report.
func (o *Optimizer) RunOnce(ctx context.Context) (*Report, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	runID := uuid.NewString()
	start := o.now()
	table := o.config.TableName

	report, err := o.run(ctx, runID, start)

	metrics.RunDuration.WithLabelValues(table).Observe(o.now().Sub(start).Seconds())
	entry := HistoryEntry{RunID: runID, FinishedAt: o.now(), Report: report}
	if err != nil {
		entry.Error = err.Error()
		metrics.RunsTotal.WithLabelValues(table, "failed").Inc()
	} else {
		metrics.RunsTotal.WithLabelValues(table, report.Outcome()).Inc()
	}
	o.history.Add(entry)

	return report, err
}

func (o *Optimizer) run(ctx context.Context, runID string, start time.Time) (*Report, error) {
	cfg := o.config
	log := o.logger.WithFields(logrus.Fields{"table": cfg.TableName, "run_id": runID})

	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	stats := o.loadStats(ctx, log)

	col, err := o.collector.Collect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if col.ThrottleErr != nil {
		metrics.CollectorDegraded.WithLabelValues(cfg.TableName).Inc()
	}

	current := col.Table.Provisioned
	eval := scaling.Evaluate(cfg, current, col.Series, o.now())
	o.observe(cfg.TableName, current, eval)

	report := newReport(runID, cfg.TableName, start, eval)
	report.ThrottleMetricsFailed = col.ThrottleErr != nil
	report.DryRun = cfg.DryRun
	if cfg.Debug {
		report.DynamoDBTable = col.Table
		report.ProvisionedThroughput = &current
		if len(col.Series.ThrottledRequests) > 0 {
			report.ThrottledRequests = col.Series.ThrottledRequests
		}
	}

	action := report.Action
	switch {
	case action.Actionable() && !cfg.DryRun:
		res, err := o.updater.UpdateCapacity(ctx, cfg.TableName, action.NewReads, action.NewWrites)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecutionFailure, err)
		}
		if cfg.Debug {
			report.UpdateResponse = res
		}
	case action.ScaleError != "":
		log.WithField("reason", eval.ThrottleReason).Info(action.ScaleError)
	}

	log.Info(report.Summary())

	report.RunTime = o.now().Sub(start)
	o.saveStats(ctx, log, stats.Record(o.now()))

	return report, nil
}

// observe publishes the inputs and outcome of an evaluation
func (o *Optimizer) observe(table string, current scaling.ProvisionedState, eval scaling.Evaluation) {
	metrics.ProvisionedCapacity.WithLabelValues(table, "read").Set(float64(current.ReadCapacityUnits))
	metrics.ProvisionedCapacity.WithLabelValues(table, "write").Set(float64(current.WriteCapacityUnits))
	metrics.WeightedAverage.WithLabelValues(table, "read").Set(eval.ReadSamples.WeightedAvg)
	metrics.WeightedAverage.WithLabelValues(table, "write").Set(eval.WriteSamples.WeightedAvg)
	metrics.DecisionsTotal.WithLabelValues(table, string(eval.Decision.ScaleDirection)).Inc()
	if eval.ThrottleReason != "" {
		metrics.DecreasesThrottled.WithLabelValues(table, string(eval.ThrottleReason)).Inc()
	}
}

// loadStats returns persisted run stats. A store failure only costs the
// bookkeeping, never the run.
func (o *Optimizer) loadStats(ctx context.Context, log logrus.FieldLogger) state.RunStats {
	stats, err := o.store.Load(ctx, o.config.TableName)
	if err != nil {
		log.WithError(err).Warn("Failed to load run stats")
		return state.RunStats{TableName: o.config.TableName}
	}
	if stats.TotalRuns > 0 {
		log.Infof("Last run at %s", stats.LastRunAt.Format(time.RFC3339))
		log.Infof("Container runs: %d", stats.TotalRuns)
	}
	return stats
}

func (o *Optimizer) saveStats(ctx context.Context, log logrus.FieldLogger, stats state.RunStats) {
	if err := o.store.Save(ctx, stats); err != nil {
		log.WithError(err).Warn("Failed to save run stats")
	}
}

// Stats returns the persisted run statistics
func (o *Optimizer) Stats(ctx context.Context) (state.RunStats, error) {
	return o.store.Load(ctx, o.config.TableName)
}

// Latest returns the most recent run outcome
func (o *Optimizer) Latest() (HistoryEntry, bool) {
	return o.history.Latest()
}

// History returns up to limit run outcomes, most recent first
func (o *Optimizer) History(limit int) []HistoryEntry {
	return o.history.List(limit)
}
