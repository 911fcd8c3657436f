package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Extraction pool
	ExtractionDuration *prometheus.HistogramVec
	ExtractionResults  *prometheus.CounterVec
	ExtractionInFlight prometheus.Gauge

	// Upstream services
	UpstreamDuration *prometheus.HistogramVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taxdesk",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taxdesk",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "taxdesk",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taxdesk",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taxdesk",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),

		ExtractionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taxdesk",
				Subsystem: "extraction",
				Name:      "duration_seconds",
				Help:      "Extraction process duration by pipeline and result",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"pipeline", "result"}, // result=ok|process_failed|parse_failed
		),
		ExtractionResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taxdesk",
				Subsystem: "extraction",
				Name:      "results_total",
				Help:      "Extraction outcomes by pipeline and result.",
			},
			[]string{"pipeline", "result"}, // also result=busy
		),
		ExtractionInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "taxdesk",
				Subsystem: "extraction",
				Name:      "in_flight",
				Help:      "Extraction processes currently running in this process.",
			},
		),

		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taxdesk",
				Subsystem: "upstream",
				Name:      "request_duration_seconds",
				Help:      "Latency of calls to report and chat services.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"service", "result"},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.ExtractionDuration, p.ExtractionResults, p.ExtractionInFlight,
		p.UpstreamDuration,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

func (p *Prom) ObserveExtraction(pipeline, result string, d time.Duration) {
	if d > 0 {
		p.ExtractionDuration.WithLabelValues(pipeline, result).Observe(d.Seconds())
	}
	p.ExtractionResults.WithLabelValues(pipeline, result).Inc()
}

func (p *Prom) ObserveUpstream(service, result string, d time.Duration) {
	p.UpstreamDuration.WithLabelValues(service, result).Observe(d.Seconds())
}
