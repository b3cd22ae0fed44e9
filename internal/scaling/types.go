// Package scaling decides how the provisioned capacity of a table should change
// given recent utilization samples. Everything here is a pure function of its
// inputs; fetching samples and applying decisions happen elsewhere.
package scaling

import "time"

// Direction is the outcome of a scaling evaluation
type Direction string

const (
	DirectionNone Direction = "None"
	DirectionUp   Direction = "Up"
	DirectionDown Direction = "Down"
)

// MetricSample is one datapoint summed over a sampling period
type MetricSample struct {
	Sum       float64   `json:"sum"`
	Timestamp time.Time `json:"timestamp"`
}

// Limits are the absolute utilization thresholds derived from the current
// provisioned capacity.
type Limits struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// AggregatedStats summarizes a window of samples for one dimension
type AggregatedStats struct {
	Data           []float64 `json:"data"`
	Min            float64   `json:"min"`
	Max            float64   `json:"max"`
	Avg            float64   `json:"avg"`
	WeightedAvg    float64   `json:"weightedAvg"`
	AboveThreshold int       `json:"aboveThreshold"`
	BelowThreshold int       `json:"belowThreshold"`
}

// ProvisionedState is the table's current capacity and decrease bookkeeping
type ProvisionedState struct {
	ReadCapacityUnits      int64     `json:"readCapacityUnits"`
	WriteCapacityUnits     int64     `json:"writeCapacityUnits"`
	NumberOfDecreasesToday int64     `json:"numberOfDecreasesToday"`
	LastDecreaseDateTime   time.Time `json:"lastDecreaseDateTime"`
}

// ScaleDecision is the result of one evaluation
type ScaleDecision struct {
	ScaleDirection Direction `json:"scaleDirection"`
	NewReads       int64     `json:"newReads"`
	NewWrites      int64     `json:"newWrites"`
	CurrentReads   int64     `json:"currentReads"`
	CurrentWrites  int64     `json:"currentWrites"`
	ScaleError     string    `json:"scaleError,omitempty"`
}

// Actionable reports whether the decision should be applied to the table.
func (d ScaleDecision) Actionable() bool {
	return (d.ScaleDirection == DirectionUp || d.ScaleDirection == DirectionDown) && d.ScaleError == ""
}

// Series holds the raw time series collected for one run, oldest first
type Series struct {
	ConsumedReads     []MetricSample
	ConsumedWrites    []MetricSample
	ThrottledRequests []MetricSample
}
