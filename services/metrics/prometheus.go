// Package metricsvc counts what the API does for Prometheus.
package metricsvc

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/campusrecords/campus/core/mark"
	"github.com/campusrecords/campus/core/transcript"
)

type Metrics struct {
	markRows *prometheus.CounterVec
	exports  *prometheus.CounterVec
	requests *prometheus.HistogramVec
}

var (
	_ mark.Recorder       = (*Metrics)(nil)
	_ transcript.Recorder = (*Metrics)(nil)
)

// New registers the campus collectors with reg. Use prometheus.DefaultRegisterer to serve them from promhttp.Handler().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		markRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campus",
			Name:      "mark_rows_total",
			Help:      "Submitted mark rows by kind and outcome.",
		}, []string{"kind", "status"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campus",
			Name:      "transcript_exports_total",
			Help:      "Transcript exports by format and result.",
		}, []string{"format", "result"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "campus",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP requests by method, route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
	reg.MustRegister(m.markRows, m.exports, m.requests)
	return m
}

func (m *Metrics) MarkWritten(kind mark.Kind, status string) {
	m.markRows.WithLabelValues(string(kind), status).Inc()
}

func (m *Metrics) TranscriptExported(format transcript.Format, cached bool, err error) {
	res := "rendered"
	switch {
	case err != nil:
		res = "failed"
	case cached:
		res = "cached"
	}
	m.exports.WithLabelValues(string(format), res).Inc()
}

// ObserveRequest records a served request. route is the registered path, e.g. /v1/subjects/:id.
func (m *Metrics) ObserveRequest(method, route string, code int, took time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Observe(took.Seconds())
}
