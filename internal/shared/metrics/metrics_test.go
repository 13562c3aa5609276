package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New("stablehub_test")
	r.Admission("create", "admitted")
	r.Admission("create", "admitted")
	r.Admission("create", "CAPACITY_EXCEEDED")
	r.Retry("update")
	r.PeakOccupancy(3, 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.admissions.WithLabelValues("create", "admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.admissions.WithLabelValues("create", "CAPACITY_EXCEEDED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retries.WithLabelValues("update")))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Admission("create", "admitted")
		r.Retry("create")
		r.PeakOccupancy(1, 1)
		r.SideEffectFailed("audit")
	})
	assert.Nil(t, r.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New("stablehub_test")
	r.Admission("update", "admitted")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stablehub_test_reservations_admission_decisions_total")
}
