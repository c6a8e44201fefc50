package draft

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "portal_frontend",
	Subsystem: "draft",
	Name:      "operations_total",
	Help:      "Draft calls to the portal by operation and outcome",
}, []string{"op", "outcome"})
