package scaling

import "github.com/ochestra-tech/tablescaler/internal/config"

// ThresholdLimits converts threshold fractions into absolute per-second limits
// for the given provisioned capacity.
func ThresholdLimits(provisioned int64, threshold config.Threshold) Limits {
	return Limits{
		Lower: Round(float64(provisioned)*threshold.Lower, 1),
		Upper: Round(float64(provisioned)*threshold.Upper, 1),
	}
}

// Aggregate converts per-period sums into per-second rates and summarizes them.
//
// Samples must be ordered oldest to newest: sample i carries weight i² in the
// weighted average. With no samples, Min is ceiling and Max is -1 so that
// neither extreme suggests a change.
func Aggregate(samples []MetricSample, periodSeconds float64, limits Limits, ceiling int64) AggregatedStats {
	stats := AggregatedStats{
		Data: make([]float64, 0, len(samples)),
		Min:  float64(ceiling),
		Max:  -1,
	}

	var sum, weightedSum, weightTotal float64
	for i, sample := range samples {
		rate := Round(sample.Sum/periodSeconds, 1)
		stats.Data = append(stats.Data, rate)

		if rate > stats.Max {
			stats.Max = rate
		}
		if rate < stats.Min {
			stats.Min = rate
		}

		weight := float64(i * i)
		sum += rate
		weightedSum += rate * weight
		weightTotal += weight

		if rate >= limits.Upper {
			stats.AboveThreshold++
		} else if rate <= limits.Lower {
			stats.BelowThreshold++
		}
	}

	if sum > 0 {
		stats.Avg = Round(sum/float64(len(stats.Data)), 1)
	}
	if weightedSum > 0 {
		stats.WeightedAvg = Round(weightedSum/weightTotal, 1)
	}

	return stats
}
