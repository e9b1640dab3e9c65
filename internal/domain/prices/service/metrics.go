package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors updated by the service. A nil
// *Metrics records nothing.
type Metrics struct {
	loads        *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	records      *prometheus.GaugeVec
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	documents    *prometheus.CounterVec
	conflicts    *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unitprice",
			Name:      "table_loads_total",
			Help:      "Dataset loads by the source that produced the table.",
		}, []string{"dataset", "source"}),
		loadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "unitprice",
			Name:      "table_load_duration_seconds",
			Help:      "Time spent reading and normalizing a dataset.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"dataset"}),
		records: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "unitprice",
			Name:      "table_records",
			Help:      "Records in the most recently loaded table.",
		}, []string{"dataset"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unitprice",
			Name:      "cache_hits_total",
			Help:      "Table reads served from the cache.",
		}, []string{"dataset"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unitprice",
			Name:      "cache_misses_total",
			Help:      "Table reads that had to load the sources.",
		}, []string{"dataset"}),
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unitprice",
			Name:      "extract_documents_total",
			Help:      "Documents scanned by extraction runs.",
		}, []string{"dataset", "method"}),
		conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unitprice",
			Name:      "normalize_conflicts_total",
			Help:      "Same-key records with different values seen during normalization.",
		}, []string{"dataset"}),
	}
}

func (m *Metrics) observeLoad(dataset, source string, seconds float64, records int) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(dataset, source).Inc()
	m.loadDuration.WithLabelValues(dataset).Observe(seconds)
	m.records.WithLabelValues(dataset).Set(float64(records))
}

func (m *Metrics) cacheHit(dataset string) {
	if m != nil {
		m.cacheHits.WithLabelValues(dataset).Inc()
	}
}

func (m *Metrics) cacheMiss(dataset string) {
	if m != nil {
		m.cacheMisses.WithLabelValues(dataset).Inc()
	}
}

func (m *Metrics) document(dataset, method string) {
	if m != nil {
		m.documents.WithLabelValues(dataset, method).Inc()
	}
}

func (m *Metrics) conflict(dataset string, n int) {
	if m != nil && n > 0 {
		m.conflicts.WithLabelValues(dataset).Add(float64(n))
	}
}
