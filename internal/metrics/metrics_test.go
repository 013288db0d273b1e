package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservers(t *testing.T) {
	m := New()

	m.ObserveSolve("text", OutcomeSuccess)
	m.ObserveSolve("text", OutcomeSuccess)
	m.ObserveSolve("image", OutcomeQuotaExceeded)
	m.ObserveQuotaRejection("free")
	m.ObserveUserCreated()
	m.ObserveAIRequest("text", 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.solves.WithLabelValues("text", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.solves.WithLabelValues("image", OutcomeQuotaExceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.quotaRejections.WithLabelValues("free")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.usersCreated))
	assert.Equal(t, 1, testutil.CollectAndCount(m.aiDuration))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/solutions/{problemNumber}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/api/solutions/1", "/api/solutions/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/solutions/{problemNumber}", "404"))
	assert.Equal(t, 2.0, got)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveUserCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "stepwise_users_created_total 1"), "exposition:\n%s", body)
	assert.Contains(t, body, "go_goroutines")
}
