package providers

import (
	"context"
	"time"

	"github.com/ochestra-tech/tablescaler/internal/scaling"
)

// Metric names published by DynamoDB in the AWS/DynamoDB namespace
const (
	MetricConsumedReadCapacity  = "ConsumedReadCapacityUnits"
	MetricConsumedWriteCapacity = "ConsumedWriteCapacityUnits"
	MetricThrottledRequests     = "ThrottledRequests"
)

// TableProvider describes and resizes a table
type TableProvider interface {
	DescribeTable(ctx context.Context, tableName string) (*TableDescription, error)
	UpdateCapacity(ctx context.Context, tableName string, reads, writes int64) (*UpdateResult, error)
}

// MetricsProvider fetches summed metric datapoints for a table
type MetricsProvider interface {
	GetMetricStatistics(ctx context.Context, query MetricQuery) ([]scaling.MetricSample, error)
}

// TableDescription is the subset of a table description the scaler uses
type TableDescription struct {
	TableName   string                   `json:"tableName"`
	Status      string                   `json:"status"`
	ItemCount   int64                    `json:"itemCount"`
	SizeBytes   int64                    `json:"sizeBytes"`
	Provisioned scaling.ProvisionedState `json:"provisioned"`

	// Raw is the full provider response, reported in debug mode only
	Raw interface{} `json:"raw,omitempty"`
}

// MetricQuery selects a metric time series for a table
type MetricQuery struct {
	TableName  string
	MetricName string
	Period     time.Duration
	StartTime  time.Time
	EndTime    time.Time
}

// UpdateResult reports the outcome of a capacity change
type UpdateResult struct {
	TableName string      `json:"tableName"`
	Status    string      `json:"status"`
	Reads     int64       `json:"reads"`
	Writes    int64       `json:"writes"`
	Raw       interface{} `json:"raw,omitempty"`
}
