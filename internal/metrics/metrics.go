package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scaler instruments, partitioned by table.

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablescaler",
		Subsystem: "optimizer",
		Name:      "runs_total",
		Help:      "Total scaling runs by outcome",
	}, []string{"table", "outcome"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tablescaler",
		Subsystem: "optimizer",
		Name:      "run_duration_seconds",
		Help:      "Scaling run duration including collection and execution",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"table"})

	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablescaler",
		Subsystem: "engine",
		Name:      "decisions_total",
		Help:      "Scale decisions by direction",
	}, []string{"table", "direction"})

	DecreasesThrottled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablescaler",
		Subsystem: "engine",
		Name:      "decreases_throttled_total",
		Help:      "Scale down decisions suppressed by the decrease policy",
	}, []string{"table", "reason"})

	CollectorDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tablescaler",
		Subsystem: "collector",
		Name:      "degraded_total",
		Help:      "Runs that proceeded without throttled request metrics",
	}, []string{"table"})

	ProvisionedCapacity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tablescaler",
		Subsystem: "table",
		Name:      "provisioned_capacity_units",
		Help:      "Provisioned capacity observed at the start of the last run",
	}, []string{"table", "dimension"})

	WeightedAverage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tablescaler",
		Subsystem: "table",
		Name:      "weighted_consumed_units",
		Help:      "Recency-weighted average consumed units per second over the last window",
	}, []string{"table", "dimension"})
)
