// Package prom implements the observability hooks with Prometheus metrics.
//
//	m := prom.New(registry)
//	m.Install()
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	derrors "github.com/checklistapp/diagram/pkg/errors"
	"github.com/checklistapp/diagram/pkg/observability"
)

// Metrics collects editor, persistence and HTTP metrics.
type Metrics struct {
	connections  *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	imported     *prometheus.CounterVec
	saves        *prometheus.CounterVec
	saveDuration prometheus.Histogram
	loads        *prometheus.CounterVec
	requests     *prometheus.CounterVec
	reqDuration  *prometheus.HistogramVec
	reqErrors    *prometheus.CounterVec
}

// New registers the metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		connections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagram_connections_total",
			Help: "Connections made and removed, by operation",
		}, []string{"operation"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagram_rejections_total",
			Help: "Rejected editor operations by operation and error code",
		}, []string{"operation", "code"}),
		imported: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagram_import_items_total",
			Help: "Items seen by document import, by kind",
		}, []string{"kind"}),
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagram_saves_total",
			Help: "Diagram saves by result",
		}, []string{"result"}),
		saveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "diagram_save_duration_seconds",
			Help:    "Diagram save duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagram_loads_total",
			Help: "Diagram loads by whether a stored version was found",
		}, []string{"found"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagram_http_requests_total",
			Help: "Outbound HTTP responses by method and status",
		}, []string{"method", "status"}),
		reqDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "diagram_http_request_duration_seconds",
			Help:    "Outbound HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		reqErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "diagram_http_errors_total",
			Help: "Outbound HTTP requests that failed before a response",
		}, []string{"method"}),
	}
}

// Install makes m the active editor, persistence and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetEditorHooks(m)
	observability.SetPersistHooks(m)
	observability.SetHTTPHooks(m)
}

func (m *Metrics) OnConnect(source, target string) {
	m.connections.WithLabelValues("connect").Inc()
}

func (m *Metrics) OnDetach(source, target string) {
	m.connections.WithLabelValues("detach").Inc()
}

func (m *Metrics) OnReject(op string, err error) {
	code := derrors.GetCode(derrors.FromCore(err))
	m.rejections.WithLabelValues(op, string(code)).Inc()
}

func (m *Metrics) OnImport(boxes, arrows, dropped int) {
	m.imported.WithLabelValues("box").Add(float64(boxes))
	m.imported.WithLabelValues("arrow").Add(float64(arrows))
	m.imported.WithLabelValues("dropped").Add(float64(dropped))
}

func (m *Metrics) OnSaveStart(ctx context.Context, projectID string) {}

func (m *Metrics) OnSaveComplete(ctx context.Context, projectID string, version int, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.saves.WithLabelValues(result).Inc()
	m.saveDuration.Observe(duration.Seconds())
}

func (m *Metrics) OnLoad(ctx context.Context, projectID string, found bool) {
	m.loads.WithLabelValues(strconv.FormatBool(found)).Inc()
}

func (m *Metrics) OnRequest(ctx context.Context, method, host, path string) {}

func (m *Metrics) OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	m.reqDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Metrics) OnError(ctx context.Context, method, host, path string, err error) {
	m.reqErrors.WithLabelValues(method).Inc()
}

var (
	_ observability.EditorHooks  = (*Metrics)(nil)
	_ observability.PersistHooks = (*Metrics)(nil)
	_ observability.HTTPHooks    = (*Metrics)(nil)
)
