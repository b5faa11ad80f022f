package recordstream

import "github.com/prometheus/client_golang/prometheus"

// metrics are optional ambient counters instrumenting the dispatch
// loop. They exist purely for observability — nothing in this
// package's behavior depends on them — mirroring how pyroscope's own
// ingest loops are instrumented even where a full metrics reporting
// layer is out of scope.
type metrics struct {
	recordsTotal *prometheus.CounterVec
	errorsTotal  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recordstream_records_total",
			Help: "Number of body records decoded by type.",
		}, []string{"type"}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recordstream_errors_total",
			Help: "Number of body records that failed to parse or process.",
		}),
	}
	reg.MustRegister(m.recordsTotal, m.errorsTotal)
	return m
}

func (m *metrics) observeRecord(t RecordType) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(t.String()).Inc()
}

func (m *metrics) observeError() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}
