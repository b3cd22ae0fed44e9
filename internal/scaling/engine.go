package scaling

import (
	"math"

	"github.com/ochestra-tech/tablescaler/internal/config"
)

// Input is everything a single decision is computed from
type Input struct {
	Config                config.Config
	State                 ProvisionedState
	Reads                 AggregatedStats
	Writes                AggregatedStats
	ThrottledRequestCount int
}

// Decide selects a scale direction and the bounded capacity targets.
//
// Up is considered before Down. A direction whose targets end up equal to the
// current capacity after clamping and rounding is reported as None.
func Decide(in Input) ScaleDecision {
	cfg := in.Config
	currentReads := in.State.ReadCapacityUnits
	currentWrites := in.State.WriteCapacityUnits

	decision := ScaleDecision{
		ScaleDirection: DirectionNone,
		NewReads:       currentReads,
		NewWrites:      currentWrites,
		CurrentReads:   currentReads,
		CurrentWrites:  currentWrites,
	}

	// The throttle signal is table-wide but gated by the read setting only.
	// Triggering an increase needs the count to exceed the setting; once an
	// increase is underway, reaching it is enough to grow reads as well.
	readsAbove := in.Reads.AboveThreshold >= cfg.Reads.NumChecksBeforeScaleUp
	throttled := in.ThrottledRequestCount > cfg.Reads.NumThrottledBeforeScaleUp
	readsUp := readsAbove || in.ThrottledRequestCount >= cfg.Reads.NumThrottledBeforeScaleUp
	writesUp := in.Writes.AboveThreshold >= cfg.Writes.NumChecksBeforeScaleUp

	readsDown := in.Reads.BelowThreshold >= cfg.NumChecksBeforeScaleDown
	writesDown := in.Writes.BelowThreshold >= cfg.NumChecksBeforeScaleDown

	switch {
	case readsAbove || throttled || writesUp:
		newReads := float64(currentReads)
		if readsUp {
			newReads = scaleUpTarget(currentReads, in.Reads.WeightedAvg, cfg.Reads.Rate.Increase, cfg.Reads.Rate.Increase, cfg.Reads.Provisioned.Max)
		}
		newWrites := float64(currentWrites)
		if writesUp {
			// The weighted-average ceiling for writes uses the read increase rate.
			newWrites = scaleUpTarget(currentWrites, in.Writes.WeightedAvg, cfg.Writes.Rate.Increase, cfg.Reads.Rate.Increase, cfg.Writes.Provisioned.Max)
		}

		decision.NewReads = RoundUnits(newReads)
		decision.NewWrites = RoundUnits(newWrites)
		if decision.NewReads > currentReads || decision.NewWrites > currentWrites {
			decision.ScaleDirection = DirectionUp
		}

	case readsDown || writesDown:
		newReads := scaleDownTarget(currentReads, in.Reads.WeightedAvg, cfg.Reads.Rate.Decrease, cfg.Reads.Provisioned.Min)
		newWrites := scaleDownTarget(currentWrites, in.Writes.WeightedAvg, cfg.Writes.Rate.Decrease, cfg.Writes.Provisioned.Min)

		decision.NewReads = RoundUnits(newReads)
		decision.NewWrites = RoundUnits(newWrites)
		if decision.NewReads < currentReads || decision.NewWrites < currentWrites {
			decision.ScaleDirection = DirectionDown
		}
	}

	if decision.ScaleDirection == DirectionNone {
		decision.NewReads = currentReads
		decision.NewWrites = currentWrites
	}

	return decision
}

// scaleUpTarget grows current by increaseRate, then clamps in order: below the
// recent weighted average grown by clampRate, below the ceiling, and never
// below current.
func scaleUpTarget(current int64, weightedAvg, increaseRate, clampRate float64, ceiling int64) float64 {
	cur := float64(current)

	target := Round(cur*(1+increaseRate), 1)
	target = clampAtMost(target, Round(weightedAvg*(1+clampRate), 1))
	target = clampAtMost(target, float64(ceiling))
	target = clampAtLeast(target, cur)

	return target
}

// scaleDownTarget shrinks current by decreaseRate but not below the recent
// weighted average, then clamps in order: not below the floor, never above
// current.
func scaleDownTarget(current int64, weightedAvg, decreaseRate float64, floor int64) float64 {
	cur := float64(current)

	target := math.Max(Round(cur*(1-decreaseRate), 1), weightedAvg)
	target = clampAtLeast(target, float64(floor))
	target = clampAtMost(target, cur)

	return target
}

func clampAtMost(value, limit float64) float64 {
	return math.Min(value, limit)
}

func clampAtLeast(value, limit float64) float64 {
	return math.Max(value, limit)
}
