package upload

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal_frontend",
		Subsystem: "upload",
		Name:      "chunks_total",
		Help:      "Chunk PUTs accepted by the storage endpoint",
	})

	bytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal_frontend",
		Subsystem: "upload",
		Name:      "direct_bytes_total",
		Help:      "Bytes accepted by the storage endpoint on the direct path",
	})

	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal_frontend",
		Subsystem: "upload",
		Name:      "fallbacks_total",
		Help:      "Files retried through the multipart path, by reason",
	}, []string{"reason"})

	filesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal_frontend",
		Subsystem: "upload",
		Name:      "files_total",
		Help:      "Finished file uploads by final transport and outcome",
	}, []string{"transport", "outcome"})
)
