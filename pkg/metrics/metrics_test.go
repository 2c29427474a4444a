package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CacheHit()
	m.CacheMiss()
	m.ObserveStore("x", time.Now(), errors.New("boom"))
	m.ObserveCollectorRun(time.Now(), map[string]int{"repositories": 1}, nil)
	m.ObserveGitHub("search", 200, time.Now())

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCollectorRun(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveCollectorRun(time.Now(), map[string]int{"repositories": 3, "repositories_positions": 3}, nil)
	m.ObserveCollectorRun(time.Now(), nil, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollectorRunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollectorRunsTotal.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CollectorRowsTotal.WithLabelValues("repositories")))
	assert.Greater(t, testutil.ToFloat64(m.CollectorLastSuccessTS), 0.0)
}

func TestStoreAndCache(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveStore("hourly_deltas", time.Now(), nil)
	m.ObserveStore("hourly_deltas", time.Now(), errors.New("boom"))
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues("hourly_deltas")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/campaigns/{id}/hourly-views", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/campaigns/"+id+"/hourly-views", nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/campaigns/{id}/hourly-views", "400")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.CacheHit()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "trackx_cache_hits_total 1"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
