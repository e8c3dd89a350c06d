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

func TestObserveResolve(t *testing.T) {
	m := New(nil)

	m.ObserveResolve(time.Now(), nil)
	m.ObserveResolve(time.Now(), nil)
	m.ObserveResolve(time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResolverCalls.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolverCalls.WithLabelValues("error")))
}

func TestObserveOverlap(t *testing.T) {
	m := New(nil)

	m.ObserveOverlap("friends", 0)
	m.ObserveOverlap("group", 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OverlapRuns.WithLabelValues("friends", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OverlapRuns.WithLabelValues("group", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OverlapExcluded))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(nil)
	m.SyncRuns.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "freeslot_calendar_sync_runs_total")
}
