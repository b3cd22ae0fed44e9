package scaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochestra-tech/tablescaler/internal/config"
)

const testPeriod = 300.0

// samplesFromRates builds oldest-first samples whose per-second rate over the
// test period equals each given rate.
func samplesFromRates(rates ...float64) []MetricSample {
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	samples := make([]MetricSample, len(rates))
	for i, r := range rates {
		samples[i] = MetricSample{
			Sum:       r * testPeriod,
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
		}
	}
	return samples
}

func TestThresholdLimits(t *testing.T) {
	assert.Equal(t, Limits{Lower: 5, Upper: 7.5}, ThresholdLimits(10, config.Threshold{Lower: 0.5, Upper: 0.75}))
	assert.Equal(t, Limits{Lower: 1.2, Upper: 2.1}, ThresholdLimits(3, config.Threshold{Lower: 0.4, Upper: 0.7}))
	assert.Equal(t, Limits{Lower: 0.4, Upper: 0.7}, ThresholdLimits(1, config.Threshold{Lower: 0.4, Upper: 0.7}))
}

func TestAggregate_EmptySeries(t *testing.T) {
	stats := Aggregate(nil, testPeriod, Limits{Lower: 5, Upper: 7.5}, 200)

	assert.Empty(t, stats.Data)
	assert.Equal(t, 200.0, stats.Min)
	assert.Equal(t, -1.0, stats.Max)
	assert.Zero(t, stats.Avg)
	assert.Zero(t, stats.WeightedAvg)
	assert.Zero(t, stats.AboveThreshold)
	assert.Zero(t, stats.BelowThreshold)
}

func TestAggregate_EqualValues(t *testing.T) {
	stats := Aggregate(samplesFromRates(4, 4, 4, 4), testPeriod, Limits{Lower: 1, Upper: 8}, 200)

	assert.Equal(t, []float64{4, 4, 4, 4}, stats.Data)
	assert.Equal(t, 4.0, stats.Avg)
	assert.Equal(t, 4.0, stats.WeightedAvg)
	assert.Equal(t, 4.0, stats.Min)
	assert.Equal(t, 4.0, stats.Max)
}

func TestAggregate_IncreasingSeriesFavoursRecent(t *testing.T) {
	stats := Aggregate(samplesFromRates(1, 2, 3, 4, 5), testPeriod, Limits{Lower: 0.1, Upper: 100}, 200)

	assert.Equal(t, 3.0, stats.Avg)
	// (1*2 + 4*3 + 9*4 + 16*5) / (1 + 4 + 9 + 16)
	assert.Equal(t, 4.3, stats.WeightedAvg)
	assert.GreaterOrEqual(t, stats.WeightedAvg, stats.Avg)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 5.0, stats.Max)
}

func TestAggregate_ThresholdCounts(t *testing.T) {
	stats := Aggregate(samplesFromRates(7.5, 5, 6, 10, 1), testPeriod, Limits{Lower: 5, Upper: 7.5}, 200)

	assert.Equal(t, 2, stats.AboveThreshold, "7.5 and 10 are at or above the upper limit")
	assert.Equal(t, 2, stats.BelowThreshold, "5 and 1 are at or below the lower limit")
}

func TestAggregate_SingleSampleHasNoWeightedAverage(t *testing.T) {
	// The first sample carries weight zero.
	stats := Aggregate(samplesFromRates(9), testPeriod, Limits{Lower: 5, Upper: 7.5}, 200)

	assert.Equal(t, 9.0, stats.Avg)
	assert.Zero(t, stats.WeightedAvg)
	assert.Equal(t, 1, stats.AboveThreshold)
}

func TestAggregate_SubUnitRates(t *testing.T) {
	samples := []MetricSample{{Sum: 150}, {Sum: 100}, {Sum: 0}}
	stats := Aggregate(samples, testPeriod, Limits{Lower: 0.4, Upper: 0.7}, 100)

	require.Len(t, stats.Data, 3)
	assert.Equal(t, []float64{0.5, 0.33, 0}, stats.Data)
	assert.Equal(t, 0.0, stats.Min)
	assert.Equal(t, 0.5, stats.Max)
	assert.Equal(t, 2, stats.BelowThreshold, "0.5 sits between the limits")
	assert.Zero(t, stats.AboveThreshold)
}

func TestAggregate_AllZero(t *testing.T) {
	stats := Aggregate(samplesFromRates(0, 0, 0), testPeriod, Limits{Lower: 5, Upper: 7.5}, 200)

	assert.Zero(t, stats.Avg)
	assert.Zero(t, stats.WeightedAvg)
	assert.Equal(t, 3, stats.BelowThreshold)
}
