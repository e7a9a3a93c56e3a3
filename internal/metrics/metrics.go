// Package metrics exposes visitor lifecycle counters in the Prometheus
// text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"visitor-register-backend/internal/lifecycle"
	"visitor-register-backend/internal/model"
)

// Recorder counts lifecycle events and scan outcomes. It implements
// lifecycle.Notifier and lifecycle.ScanObserver.
type Recorder struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	scans    *prometheus.CounterVec
	imports  *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its own registry, including the Go
// runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visitor",
			Name:      "events_total",
			Help:      "Visitor lifecycle transitions by kind.",
		}, []string{"kind"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visitor",
			Name:      "scans_total",
			Help:      "Decoded QR codes and badges by outcome.",
		}, []string{"outcome"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visitor",
			Name:      "import_rows_total",
			Help:      "Rows read from import files, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		r.events,
		r.scans,
		r.imports,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

var (
	_ lifecycle.Notifier     = (*Recorder)(nil)
	_ lifecycle.ScanObserver = (*Recorder)(nil)
)

func (r *Recorder) Notify(ev model.VisitorEvent) {
	r.events.WithLabelValues(string(ev.Kind)).Inc()
}

func (r *Recorder) ObserveScan(outcome lifecycle.ScanOutcome) {
	r.scans.WithLabelValues(string(outcome)).Inc()
}

// ObserveImport records the accepted and skipped row counts of one import.
func (r *Recorder) ObserveImport(imported, skipped int) {
	r.imports.WithLabelValues("imported").Add(float64(imported))
	r.imports.WithLabelValues("skipped").Add(float64(skipped))
}

// Handler serves the registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
