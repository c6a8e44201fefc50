package compose

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "portal_frontend",
	Subsystem: "compose",
	Name:      "active_sessions",
	Help:      "Open composition sessions",
})
