package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ochestra-tech/tablescaler/internal/config"
	"github.com/ochestra-tech/tablescaler/internal/providers"
	"github.com/ochestra-tech/tablescaler/internal/scaling"
)

var (
	// ErrCollectorFailure wraps a failed fetch that the run cannot proceed without.
	ErrCollectorFailure = errors.New("collector failure")

	// ErrResourceNotReady is returned when the table is not ACTIVE.
	ErrResourceNotReady = errors.New("resource not ready")
)

const statusActive = "ACTIVE"

// Collection holds everything fetched for one run
type Collection struct {
	Table     *providers.TableDescription
	Series    scaling.Series
	StartTime time.Time
	EndTime   time.Time

	// ThrottleErr is set when the throttled-request fetch failed and an empty
	// series was substituted.
	ThrottleErr error
}

// Collector gathers the table state and metric series a run needs
type Collector struct {
	tables  providers.TableProvider
	metrics providers.MetricsProvider
	now     func() time.Time
	logger  logrus.FieldLogger
}

// Option configures a Collector
type Option func(*Collector)

// WithClock overrides the time source used for the collection window
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Collector) { c.logger = logger }
}

// New creates a collector
func New(tables providers.TableProvider, metrics providers.MetricsProvider, opts ...Option) *Collector {
	c := &Collector{
		tables:  tables,
		metrics: metrics,
		now:     time.Now,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect issues the table description and the three metric fetches
// concurrently and waits for all of them. A failure of the description or of
// either consumed-capacity series aborts the collection; a failure of the
// throttled-request series is logged and treated as no throttling.
func (c *Collector) Collect(ctx context.Context, cfg config.Config) (*Collection, error) {
	end := c.now()
	col := &Collection{
		StartTime: end.Add(-cfg.LookbackWindow()),
		EndTime:   end,
	}

	query := func(metric string) providers.MetricQuery {
		return providers.MetricQuery{
			TableName:  cfg.TableName,
			MetricName: metric,
			Period:     cfg.Period(),
			StartTime:  col.StartTime,
			EndTime:    col.EndTime,
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		desc, err := c.tables.DescribeTable(gCtx, cfg.TableName)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCollectorFailure, err)
		}
		if desc.Status != statusActive {
			return fmt.Errorf("%w: table is in %s status - aborting", ErrResourceNotReady, desc.Status)
		}
		col.Table = desc
		return nil
	})

	g.Go(func() error {
		samples, err := c.metrics.GetMetricStatistics(gCtx, query(providers.MetricConsumedReadCapacity))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCollectorFailure, err)
		}
		col.Series.ConsumedReads = samples
		return nil
	})

	g.Go(func() error {
		samples, err := c.metrics.GetMetricStatistics(gCtx, query(providers.MetricConsumedWriteCapacity))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCollectorFailure, err)
		}
		col.Series.ConsumedWrites = samples
		return nil
	})

	g.Go(func() error {
		samples, err := c.metrics.GetMetricStatistics(gCtx, query(providers.MetricThrottledRequests))
		if err != nil {
			c.logger.WithError(err).Warn("throttled request metrics unavailable, assuming none")
			col.ThrottleErr = err
			samples = []scaling.MetricSample{}
		}
		col.Series.ThrottledRequests = samples
		c.logger.Infof("%d throttled requests", len(samples))
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return col, nil
}
