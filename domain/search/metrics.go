package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "osf_index_documents_total",
		Help: "Documents submitted to the search index.",
	})
	schemaRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "osf_index_field_refreshes_total",
		Help: "Field directory refreshes triggered by new field names.",
	})
)
