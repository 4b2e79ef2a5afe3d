package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET /api/goals/{month}", "GET", "2xx"))

	RecordHTTPRequest("GET /api/goals/{month}", "GET", 200, 15*time.Millisecond)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET /api/goals/{month}", "GET", "2xx"))
	assert.Equal(t, before+1, after)
}

func TestRecordInsightRun(t *testing.T) {
	before := testutil.ToFloat64(insightFallbacks)

	RecordInsightRun("rules", true)
	RecordInsightRun("llm", false)

	assert.Equal(t, before+1, testutil.ToFloat64(insightFallbacks))
}

func TestRecordExport(t *testing.T) {
	RecordExport("s3", errors.New("denied"))
	assert.GreaterOrEqual(t, testutil.ToFloat64(exportsTotal.WithLabelValues("s3", "error")), 1.0)
}

func TestRecordActualsSaved(t *testing.T) {
	ts := time.Date(2026, time.October, 17, 8, 0, 0, 0, time.UTC)
	RecordActualsSaved(ts)
	RecordActualsSaved(time.Time{})

	assert.Equal(t, float64(ts.Unix()), testutil.ToFloat64(actualsSavedGauge))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "2xx", statusLabel(204))
	assert.Equal(t, "3xx", statusLabel(302))
	assert.Equal(t, "4xx", statusLabel(422))
	assert.Equal(t, "5xx", statusLabel(503))
}
