package ingest

import (
	stderrs "errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	flushOK     = "ok"
	flushFailed = "failed"
)

type metrics struct {
	ingested prometheus.Counter
	failed   prometheus.Counter
	dropped  prometheus.Counter
	flushes  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edgelog_ingest_events_ingested_total",
			Help: "Total number of events accepted by the ingestion endpoint",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edgelog_ingest_events_failed_total",
			Help: "Total number of events that could not be delivered",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edgelog_ingest_events_dropped_total",
			Help: "Total number of events dropped because the buffer was full",
		}),
		flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgelog_ingest_flushes_total",
				Help: "Total number of flushes by outcome",
			},
			[]string{"status"},
		),
	}
	if reg == nil {
		return m
	}
	m.ingested = register(reg, m.ingested).(prometheus.Counter)
	m.failed = register(reg, m.failed).(prometheus.Counter)
	m.dropped = register(reg, m.dropped).(prometheus.Counter)
	m.flushes = register(reg, m.flushes).(*prometheus.CounterVec)
	return m
}

// register returns the already registered collector when several clients
// share a registry.
func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stderrs.As(err, &are) {
			return are.ExistingCollector
		}
	}
	return c
}
