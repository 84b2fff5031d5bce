// Package metrics exposes Prometheus counters for the chit engine and the
// HTTP layer. Metrics implements chit.Observer.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/chit-engine/chit"
)

type Metrics struct {
	registry *prometheus.Registry

	AuctionsSettled  *prometheus.CounterVec
	DividendPaidOut  *prometheus.CounterVec
	PaymentsRecorded *prometheus.CounterVec
	AmountCollected  *prometheus.CounterVec
	Rejections       *prometheus.CounterVec

	HTTPRequestsTotal     *prometheus.CounterVec
	ResponseTimeHistogram *prometheus.HistogramVec
}

var _ chit.Observer = (*Metrics)(nil)

// New registers every collector on a fresh registry, so tests and servers
// never share global state.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		AuctionsSettled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chit_auctions_settled_total",
				Help: "Total number of auctions posted",
			},
			[]string{"group_id"},
		),
		DividendPaidOut: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chit_roundoff_dividend_total",
				Help: "Sum of rounded dividends distributed, in currency units",
			},
			[]string{"group_id"},
		),
		PaymentsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chit_payments_recorded_total",
				Help: "Total number of payments recorded",
			},
			[]string{"status", "method"},
		),
		AmountCollected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chit_amount_collected_total",
				Help: "Sum of recorded payments, in currency units",
			},
			[]string{"group_id"},
		),
		Rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chit_rejections_total",
				Help: "Rejected operations by kind",
			},
			[]string{"op", "kind"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		ResponseTimeHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_time_seconds",
				Help:    "Histogram of response times",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// =============================================================================
// chit.Observer
// =============================================================================

func (m *Metrics) AuctionSettled(_ context.Context, g chit.Group, a chit.Auction) error {
	m.AuctionsSettled.WithLabelValues(string(g.ID)).Inc()
	m.DividendPaidOut.WithLabelValues(string(g.ID)).Add(a.Settlement.RoundoffDividend.InexactFloat64())
	return nil
}

func (m *Metrics) PaymentRecorded(_ context.Context, r chit.PaymentReceipt) error {
	m.PaymentsRecorded.WithLabelValues(string(r.Payment.Status), string(r.Payment.Method)).Inc()
	m.AmountCollected.WithLabelValues(string(r.Payment.GroupID)).Add(r.Payment.AmountPaid.InexactFloat64())
	return nil
}

func (m *Metrics) Rejected(_ context.Context, op string, err error) {
	m.Rejections.WithLabelValues(op, string(chit.KindOf(err))).Inc()
}

// =============================================================================
// HTTP MIDDLEWARE
// =============================================================================

// Middleware counts requests by route pattern, so path parameters do not
// explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.ResponseTimeHistogram.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
