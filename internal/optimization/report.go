package optimization

import (
	"fmt"
	"time"

	"github.com/ochestra-tech/tablescaler/internal/providers"
	"github.com/ochestra-tech/tablescaler/internal/scaling"
)

// Report is the result of one scaling run
type Report struct {
	RunID  string                `json:"runId"`
	Table  string                `json:"table"`
	Action scaling.ScaleDecision `json:"action"`

	ReadLowerLimit  float64                 `json:"readLowerLimit"`
	ReadUpperLimit  float64                 `json:"readUpperLimit"`
	WriteLowerLimit float64                 `json:"writeLowerLimit"`
	WriteUpperLimit float64                 `json:"writeUpperLimit"`
	ReadSamples     scaling.AggregatedStats `json:"readSamples"`
	WriteSamples    scaling.AggregatedStats `json:"writeSamples"`

	ThrottledRequestCount int  `json:"throttledRequestCount"`
	ThrottleMetricsFailed bool `json:"throttleMetricsFailed,omitempty"`
	DryRun                bool `json:"dryRun,omitempty"`

	StartDate time.Time     `json:"startDate"`
	RunTime   time.Duration `json:"runTime"`

	// Populated only when debug is enabled
	DynamoDBTable         *providers.TableDescription `json:"dynamoDBTable,omitempty"`
	ProvisionedThroughput *scaling.ProvisionedState   `json:"provisionedThroughput,omitempty"`
	ThrottledRequests     []scaling.MetricSample      `json:"throttledRequests,omitempty"`
	UpdateResponse        *providers.UpdateResult     `json:"dynamoUpdateResponse,omitempty"`
}

func newReport(runID, table string, start time.Time, eval scaling.Evaluation) *Report {
	return &Report{
		RunID:                 runID,
		Table:                 table,
		Action:                eval.Decision,
		ReadLowerLimit:        eval.ReadLimits.Lower,
		ReadUpperLimit:        eval.ReadLimits.Upper,
		WriteLowerLimit:       eval.WriteLimits.Lower,
		WriteUpperLimit:       eval.WriteLimits.Upper,
		ReadSamples:           eval.ReadSamples,
		WriteSamples:          eval.WriteSamples,
		ThrottledRequestCount: eval.ThrottledRequestCount,
		StartDate:             start,
	}
}

// Outcome classifies the run for metrics and status reporting
func (r *Report) Outcome() string {
	switch {
	case r.Action.ScaleError != "":
		return "throttled"
	case r.Action.Actionable() && r.DryRun:
		return "dry_run"
	case r.Action.Actionable():
		return "scaled"
	default:
		return "no_change"
	}
}

// Output returns what a one-shot invocation prints: the full report in debug
// mode, otherwise the decision alone.
func (r *Report) Output(debug bool) interface{} {
	if debug {
		return r
	}
	return r.Action
}

// Summary renders the one-line run outcome. A suppressed change is reported
// as its bare targets; the throttle message is logged on its own.
func (r *Report) Summary() string {
	a := r.Action
	usage := fmt.Sprintf("Pr:%d/%d Avg:%g/%g", a.CurrentReads, a.CurrentWrites, r.ReadSamples.Avg, r.WriteSamples.Avg)
	weighted := fmt.Sprintf("WeightedAvg:%g/%g", r.ReadSamples.WeightedAvg, r.WriteSamples.WeightedAvg)

	switch {
	case a.ScaleError != "":
		return fmt.Sprintf("%d/%d %s %s", a.NewReads, a.NewWrites, usage, weighted)
	case a.Actionable() && r.DryRun:
		return fmt.Sprintf("%s --DRY RUN %s-- to %d/%d %s %s", r.Table, directionLabel(a.ScaleDirection), a.NewReads, a.NewWrites, usage, weighted)
	case a.Actionable():
		return fmt.Sprintf("%s --SCALED %s-- to %d/%d %s %s", r.Table, directionLabel(a.ScaleDirection), a.NewReads, a.NewWrites, usage, weighted)
	default:
		return "Nothing to do " + usage
	}
}

func directionLabel(d scaling.Direction) string {
	switch d {
	case scaling.DirectionUp:
		return "UP"
	case scaling.DirectionDown:
		return "DOWN"
	default:
		return "NONE"
	}
}
