package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var scenariosSaved = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "planner_scenarios_saved_total",
	Help: "Scenarios saved to the results store.",
}, []string{"type"})
