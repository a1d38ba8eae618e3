package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UnitsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pinpoint_units_running",
		Help: "The number of test units currently executing",
	})

	UnitsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinpoint_units_executed_total",
		Help: "The number of test unit executions by the state they ended in",
	}, []string{"state"})

	OutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinpoint_outcomes_total",
		Help: "The number of terminal test outcomes reported to result collectors",
	}, []string{"result"})

	EngineTestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pinpoint_engine_tests_total",
		Help: "The number of tests run by the engine's default metrics listener",
	}, []string{"class", "result"})
)
