package ontology

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var lookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "osf_ontology_cache_lookups_total",
		Help: "Ontology metadata lookups by the tier that answered them.",
	},
	[]string{"tier", "kind"},
)
