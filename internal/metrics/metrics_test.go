package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/tests/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tests/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/tests/{id}", "GET", "404")))
}

func TestCountersAndNilSafety(t *testing.T) {
	m := New()
	m.PromoValidated("valid")
	m.CheckoutFinished("created")
	m.OrderTransitioned("completed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.promoValidations.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues("created")))

	var none *Metrics
	assert.NotPanics(t, func() {
		none.PromoValidated("valid")
		none.CheckoutFinished("created")
		none.OrderTransitioned("completed")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.PromoValidated("expired")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_promo_validations_total")
}
