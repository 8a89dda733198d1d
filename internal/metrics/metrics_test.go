package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordExport(t *testing.T) {
	m := New()
	m.RecordExport("viewport", "serialize", ResultOK, 120*time.Millisecond)
	m.RecordExport("viewport", "serialize", ResultOK, 80*time.Millisecond)
	m.RecordExport("full", "capture", ResultError, time.Second)
	m.RecordExport("full", "serialize", ResultSkipped, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExportsTotal.WithLabelValues("viewport", "serialize", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportsTotal.WithLabelValues("full", "capture", ResultError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ExportDuration))
}

func TestRecordImagesAndSanitized(t *testing.T) {
	m := New()
	m.RecordImages(3, 1, 0)
	m.RecordSanitized(5)
	m.RecordSanitized(0)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ImagesTotal.WithLabelValues(ImageReady)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImagesTotal.WithLabelValues(ImageFailed)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.SanitizedTotal))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordExport("viewport", "serialize", ResultOK, time.Second)
		m.RecordImages(1, 1, 1)
		m.RecordSanitized(1)
		m.RecordHTTP("GET", "/health", "200", time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordHTTP("GET", "/health", "200", time.Millisecond)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat2png_http_requests_total")
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
