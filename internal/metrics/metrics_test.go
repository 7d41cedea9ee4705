package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveDeletion(OutcomeDeleted, "")
	m.ObserveDeletion(OutcomeDenied, "not_owner")
	m.ObserveDeletion(OutcomeDenied, "not_owner")
	m.ObserveRecalculation("deletion", nil, time.Now())
	m.ObserveRecalculation("manual", errors.New("boom"), time.Now())
	m.ObserveCache("hit")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LineItemDeletions.WithLabelValues(OutcomeDeleted, "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LineItemDeletions.WithLabelValues(OutcomeDenied, "not_owner")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recalculations.WithLabelValues("manual", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveDeletion(OutcomeDeleted, "")
	m.ObserveHTTP("GET", "/", 200)
	m.ObserveCache("miss")
	m.ObserveRecalculation("manual", nil, time.Now())
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodDelete, "/api/line_items/{id}", http.StatusNoContent)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `marketplace_orders_http_requests_total{method="DELETE",route="/api/line_items/{id}",status="204"} 1`)
}
