package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRecordRefresh(t *testing.T) {
	success := counterValue(t, RefreshesTotal.WithLabelValues("success"))
	failure := counterValue(t, RefreshesTotal.WithLabelValues("failure"))

	RecordRefresh(nil)
	RecordRefresh(errors.New("rejected"))
	RecordRefresh(errors.New("rejected"))

	assert.Equal(t, success+1, counterValue(t, RefreshesTotal.WithLabelValues("success")))
	assert.Equal(t, failure+2, counterValue(t, RefreshesTotal.WithLabelValues("failure")))
}

func TestHandlerExposesCustomMetrics(t *testing.T) {
	RecordUpstream(http.MethodGet, http.StatusOK, 20*time.Millisecond)
	RecordUpstream(http.MethodGet, 0, time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `adoptify_web_upstream_requests_total{method="GET",status="200"}`)
	assert.Contains(t, string(body), `adoptify_web_upstream_requests_total{method="GET",status="0"}`)
	assert.Contains(t, string(body), "go_goroutines")
}
