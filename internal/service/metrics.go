package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_sweep_runs_total",
			Help: "Completed sweep passes per background job",
		},
		[]string{"job"},
	)

	sweepItemErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_sweep_item_errors_total",
			Help: "Sessions that failed processing inside a sweep pass",
		},
		[]string{"job"},
	)

	sessionsActivated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_sessions_activated_total",
			Help: "Sessions transitioned PENDING to ACTIVE",
		},
		[]string{"source"}, // confirm, sweeper
	)

	sessionsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parking_sessions_cancelled_total",
			Help: "Pending sessions cancelled because the car never arrived",
		},
	)

	sessionsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parking_sessions_completed_total",
			Help: "Sessions ended and billed",
		},
	)
)
