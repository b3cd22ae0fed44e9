package scaling

import (
	"errors"
	"time"

	"github.com/ochestra-tech/tablescaler/internal/config"
)

// Evaluation is the full outcome of one pass through the decision pipeline
type Evaluation struct {
	ReadLimits            Limits          `json:"readLimits"`
	WriteLimits           Limits          `json:"writeLimits"`
	ReadSamples           AggregatedStats `json:"readSamples"`
	WriteSamples          AggregatedStats `json:"writeSamples"`
	ThrottledRequestCount int             `json:"throttledRequestCount"`
	Decision              ScaleDecision   `json:"action"`

	// ThrottleReason is set when a Down decision was suppressed.
	ThrottleReason ThrottleReason `json:"throttleReason,omitempty"`
}

// Evaluate aggregates the collected series, decides a direction and applies
// the decrease throttle to Down decisions. The config is assumed valid.
func Evaluate(cfg config.Config, state ProvisionedState, series Series, now time.Time) Evaluation {
	period := cfg.Period().Seconds()

	eval := Evaluation{
		ReadLimits:            ThresholdLimits(state.ReadCapacityUnits, cfg.Reads.Threshold),
		WriteLimits:           ThresholdLimits(state.WriteCapacityUnits, cfg.Writes.Threshold),
		ThrottledRequestCount: len(series.ThrottledRequests),
	}
	eval.ReadSamples = Aggregate(series.ConsumedReads, period, eval.ReadLimits, cfg.Reads.Provisioned.Max)
	eval.WriteSamples = Aggregate(series.ConsumedWrites, period, eval.WriteLimits, cfg.Writes.Provisioned.Max)

	eval.Decision = Decide(Input{
		Config:                cfg,
		State:                 state,
		Reads:                 eval.ReadSamples,
		Writes:                eval.WriteSamples,
		ThrottledRequestCount: eval.ThrottledRequestCount,
	})

	if eval.Decision.ScaleDirection == DirectionDown {
		if err := CheckDecrease(cfg, state, now); err != nil {
			eval.Decision.ScaleError = err.Error()
			var te *ThrottleError
			if errors.As(err, &te) {
				eval.ThrottleReason = te.Reason
			}
		}
	}

	return eval
}
