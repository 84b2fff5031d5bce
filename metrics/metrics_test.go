package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/chit-engine/chit"
)

func TestMetrics_ObservesLedgerChanges(t *testing.T) {
	m := New()
	ctx := context.Background()

	g := chit.Group{ID: "grp-1"}
	a := chit.Auction{Settlement: chit.Settlement{RoundoffDividend: chit.MustMoney("5000")}}
	require.NoError(t, m.AuctionSettled(ctx, g, a))

	require.NoError(t, m.PaymentRecorded(ctx, chit.PaymentReceipt{Payment: chit.Payment{
		GroupID: "grp-1", Status: chit.PaymentPartial, Method: chit.MethodCash, AmountPaid: chit.MustMoney("4000"),
	}}))
	require.NoError(t, m.PaymentRecorded(ctx, chit.PaymentReceipt{Payment: chit.Payment{
		GroupID: "grp-1", Status: chit.PaymentCompleted, Method: chit.MethodCash, AmountPaid: chit.MustMoney("5500"),
	}}))

	m.Rejected(ctx, "record_payment", &chit.OverpaymentError{})
	m.Rejected(ctx, "record_payment", &chit.OverpaymentError{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuctionsSettled.WithLabelValues("grp-1")))
	assert.Equal(t, 5000.0, testutil.ToFloat64(m.DividendPaidOut.WithLabelValues("grp-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsRecorded.WithLabelValues("PARTIAL", "CASH")))
	assert.Equal(t, 9500.0, testutil.ToFloat64(m.AmountCollected.WithLabelValues("grp-1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Rejections.WithLabelValues("record_payment", "overpayment")))
}

func TestMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/groups/{groupID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/groups/{groupID}", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "http_requests_total")
}
