package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factory-tracker/internal/events"
	"factory-tracker/internal/middleware"
	"factory-tracker/internal/models"
	"factory-tracker/internal/services"
	"factory-tracker/internal/session"
	"factory-tracker/internal/tracker"
	"factory-tracker/internal/websocket"
)

func newTestRouter(t *testing.T) (http.Handler, *tracker.Registry) {
	t.Helper()

	b := events.NewBroadcaster(16, nil)
	t.Cleanup(b.Close)
	reg := tracker.NewRegistry(models.DefaultFactory, tracker.WithPublisher(b))

	return NewRouter(Deps{
		Registry: reg,
		Sessions: session.NewManager("test-secret", time.Hour),
		Devices:  services.NewTokenStore(),
		Hub:      websocket.NewHub(b, reg, nil),
		Started:  time.Now(),
	}), reg
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	router, reg := newTestRouter(t)
	tracker.SeedDemoDrivers(reg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(5), body["drivers"])
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drivers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_request_duration_seconds")
	assert.Contains(t, rec.Body.String(), "tracker_active_drivers")
}

func TestRouter_RegisterThroughAPI(t *testing.T) {
	t.Parallel()

	router, reg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/driver/register",
		strings.NewReader(`{"name":"Ali","phone":"+901","vehiclePlate":"34AA1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, ok := reg.FindByIdentity("+901", "34AA1")
	assert.True(t, ok)
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/driver/location", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_WebsocketRejectsBadToken(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token=bogus", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_DriverRoutesRateLimited(t *testing.T) {
	t.Parallel()

	b := events.NewBroadcaster(16, nil)
	t.Cleanup(b.Close)
	reg := tracker.NewRegistry(models.DefaultFactory, tracker.WithPublisher(b))

	router := NewRouter(Deps{
		Registry: reg,
		Sessions: session.NewManager("test-secret", time.Hour),
		Devices:  services.NewTokenStore(),
		Hub:      websocket.NewHub(b, reg, nil),
		Started:  time.Now(),
		Limiter:  middleware.NewRateLimiter(0.001, 1),
	})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/driver/location",
			strings.NewReader(`{"driverId":"nope","location":{"lat":1,"lng":2}}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNotFound, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drivers", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "dashboard reads are not throttled")
}
