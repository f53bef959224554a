package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DecisionsTotal counts quota checks by quota name and result.
var DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "primepass",
	Subsystem: "quota",
	Name:      "decisions_total",
	Help:      "Quota checks by quota name and result.",
}, []string{"quota", "result"})
