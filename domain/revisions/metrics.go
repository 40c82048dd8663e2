package revisions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var recorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "osf_revisions_created_total",
	Help: "Revision records written, by kind.",
}, []string{"kind"})
