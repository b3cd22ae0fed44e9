package collector

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochestra-tech/tablescaler/internal/config"
	"github.com/ochestra-tech/tablescaler/internal/providers"
	"github.com/ochestra-tech/tablescaler/internal/scaling"
)

type fakeTables struct {
	desc *providers.TableDescription
	err  error
}

func (f *fakeTables) DescribeTable(_ context.Context, _ string) (*providers.TableDescription, error) {
	return f.desc, f.err
}

func (f *fakeTables) UpdateCapacity(_ context.Context, _ string, _, _ int64) (*providers.UpdateResult, error) {
	return nil, errors.New("not used")
}

type fakeMetrics struct {
	mu      sync.Mutex
	series  map[string][]scaling.MetricSample
	errs    map[string]error
	queries map[string]providers.MetricQuery
}

func (f *fakeMetrics) GetMetricStatistics(_ context.Context, q providers.MetricQuery) ([]scaling.MetricSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queries == nil {
		f.queries = make(map[string]providers.MetricQuery)
	}
	f.queries[q.MetricName] = q
	if err := f.errs[q.MetricName]; err != nil {
		return nil, err
	}
	return f.series[q.MetricName], nil
}

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestCollector(tables providers.TableProvider, metrics providers.MetricsProvider) *Collector {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(tables, metrics, WithClock(func() time.Time { return fixedNow }), WithLogger(logger))
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.TableName = "orders"
	return *cfg
}

func activeTable() *fakeTables {
	return &fakeTables{desc: &providers.TableDescription{
		TableName: "orders",
		Status:    "ACTIVE",
		Provisioned: scaling.ProvisionedState{
			ReadCapacityUnits:  10,
			WriteCapacityUnits: 3,
		},
	}}
}

func TestCollect_Success(t *testing.T) {
	metrics := &fakeMetrics{series: map[string][]scaling.MetricSample{
		providers.MetricConsumedReadCapacity:  {{Sum: 300}, {Sum: 600}},
		providers.MetricConsumedWriteCapacity: {{Sum: 90}},
		providers.MetricThrottledRequests:     {{Sum: 4}},
	}}
	c := newTestCollector(activeTable(), metrics)

	col, err := c.Collect(context.Background(), testConfig())
	require.NoError(t, err)

	assert.Equal(t, int64(10), col.Table.Provisioned.ReadCapacityUnits)
	assert.Len(t, col.Series.ConsumedReads, 2)
	assert.Len(t, col.Series.ConsumedWrites, 1)
	assert.Len(t, col.Series.ThrottledRequests, 1)
	assert.NoError(t, col.ThrottleErr)

	// 5 minute checks, 5 checks before scale down
	assert.Equal(t, fixedNow, col.EndTime)
	assert.Equal(t, fixedNow.Add(-25*time.Minute), col.StartTime)

	require.Len(t, metrics.queries, 3)
	q := metrics.queries[providers.MetricConsumedReadCapacity]
	assert.Equal(t, "orders", q.TableName)
	assert.Equal(t, 5*time.Minute, q.Period)
	assert.Equal(t, col.StartTime, q.StartTime)
}

func TestCollect_ThrottleFailureTolerated(t *testing.T) {
	metrics := &fakeMetrics{
		series: map[string][]scaling.MetricSample{
			providers.MetricConsumedReadCapacity: {{Sum: 300}},
		},
		errs: map[string]error{
			providers.MetricThrottledRequests: errors.New("throttling exception"),
		},
	}
	c := newTestCollector(activeTable(), metrics)

	col, err := c.Collect(context.Background(), testConfig())
	require.NoError(t, err)

	assert.NotNil(t, col.Series.ThrottledRequests)
	assert.Empty(t, col.Series.ThrottledRequests)
	assert.EqualError(t, col.ThrottleErr, "throttling exception")
}

func TestCollect_ConsumedMetricFailureIsFatal(t *testing.T) {
	for _, metric := range []string{providers.MetricConsumedReadCapacity, providers.MetricConsumedWriteCapacity} {
		t.Run(metric, func(t *testing.T) {
			metrics := &fakeMetrics{errs: map[string]error{metric: errors.New("boom")}}
			c := newTestCollector(activeTable(), metrics)

			col, err := c.Collect(context.Background(), testConfig())
			assert.Nil(t, col)
			assert.ErrorIs(t, err, ErrCollectorFailure)
			assert.ErrorContains(t, err, "boom")
		})
	}
}

func TestCollect_DescribeFailureIsFatal(t *testing.T) {
	c := newTestCollector(&fakeTables{err: errors.New("access denied")}, &fakeMetrics{})

	_, err := c.Collect(context.Background(), testConfig())
	assert.ErrorIs(t, err, ErrCollectorFailure)
}

func TestCollect_TableNotActive(t *testing.T) {
	tables := activeTable()
	tables.desc.Status = "UPDATING"
	c := newTestCollector(tables, &fakeMetrics{})

	_, err := c.Collect(context.Background(), testConfig())
	assert.ErrorIs(t, err, ErrResourceNotReady)
	assert.ErrorContains(t, err, "table is in UPDATING status")
}
