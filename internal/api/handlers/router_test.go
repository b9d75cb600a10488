package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/langchou/evfleet/internal/alert"
	"github.com/langchou/evfleet/internal/filter"
	"github.com/langchou/evfleet/internal/fleet"
	"github.com/langchou/evfleet/internal/models"
	"github.com/langchou/evfleet/internal/service"
	"github.com/langchou/evfleet/internal/simulation"
	"github.com/langchou/evfleet/internal/sorting"
	"github.com/langchou/evfleet/internal/telemetry"
	"github.com/langchou/evfleet/internal/timeutil"
	"github.com/langchou/evfleet/pkg/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	clock  *timeutil.MockClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))

	vehicles := []models.Vehicle{
		{ID: "EV-001", Name: "Fleet Vehicle 1", Status: models.StatusActive,
			Telemetry: models.Telemetry{Speed: 60, BatteryLevel: 70, Temperature: 30, Odometer: 1000, ChargingStatus: models.ChargingDischarging}},
		{ID: "EV-002", Name: "Fleet Vehicle 2", Status: models.StatusInactive,
			Telemetry: models.Telemetry{BatteryLevel: 8, Temperature: 25, Odometer: 2000, ChargingStatus: models.ChargingCharging}},
	}
	store := fleet.NewStoreWithVehicles(vehicles, telemetry.NewGenerator(3), clock, logger)
	driver := simulation.NewDriver(store, clock, 2*time.Second, logger)
	alerts := alert.NewEngine(models.DefaultThresholds, alert.DefaultRetention, clock, logger)
	history := filter.NewHistory("")
	bridge := filter.NewBridge(history, clock, filter.DefaultSettleDelay, filter.DefaultSyncDelay, logger)
	hub := ws.NewHub(logger)

	dashboard := service.NewDashboardService(logger, store, driver, alerts, bridge, history, sorting.NewSorter(), hub)
	require.NoError(t, dashboard.Start(false))
	t.Cleanup(dashboard.Close)

	router := gin.New()
	NewHandler(logger, dashboard, hub).RegisterRoutes(router)
	return &testServer{router: router, clock: clock}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var payload map[string]interface{}
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	}
	return w, payload
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["simulating"])

	w, _ = s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "evfleet_alerts_active")
}

func TestVehicleRoutes(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/api/vehicles", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["total"])

	w, body = s.do(t, http.MethodGet, "/api/vehicles/EV-002", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EV-002", body["data"].(map[string]interface{})["id"])

	w, _ = s.do(t, http.MethodGet, "/api/vehicles/EV-999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = s.do(t, http.MethodPut, "/api/vehicles/EV-002/status", `{"status":"maintenance"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "maintenance", body["data"].(map[string]interface{})["status"])

	w, _ = s.do(t, http.MethodPut, "/api/vehicles/EV-002/status", `{"status":"parked"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/vehicles/EV-002/status", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodPatch, "/api/vehicles/EV-001/telemetry", `{"speed":95.5}`)
	assert.Equal(t, http.StatusOK, w.Code)
	tel := body["data"].(map[string]interface{})["telemetry"].(map[string]interface{})
	assert.Equal(t, 95.5, tel["speed"])
	assert.Equal(t, float64(70), tel["battery_level"])

	w, body = s.do(t, http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["data"].(map[string]interface{})["total"])
}

func TestSimulationRoutes(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/api/simulation/start", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["data"].(map[string]interface{})["running"])

	w, body = s.do(t, http.MethodPut, "/api/simulation/interval", `{"interval_ms":9000}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["clamped"])
	assert.Equal(t, float64(5000), body["data"].(map[string]interface{})["interval_ms"])

	w, body = s.do(t, http.MethodPut, "/api/simulation/interval", `{"interval_ms":0}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["clamped"])
	assert.Equal(t, float64(1000), body["data"].(map[string]interface{})["interval_ms"])

	w, body = s.do(t, http.MethodPut, "/api/simulation/interval", `{"interval_ms":10000000000000}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["clamped"])
	assert.Equal(t, float64(5000), body["data"].(map[string]interface{})["interval_ms"])

	w, _ = s.do(t, http.MethodPut, "/api/simulation/interval", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodPost, "/api/simulation/toggle", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["data"].(map[string]interface{})["running"])

	w, _ = s.do(t, http.MethodDelete, "/api/simulation/error", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, body = s.do(t, http.MethodGet, "/api/simulation", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["data"].(map[string]interface{})["running"])
}

func TestFilterRoutes(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/filters/status/flying", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/filters/status/inactive", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"inactive"}, body["data"].(map[string]interface{})["status"])

	s.clock.Advance(filter.DefaultSettleDelay)
	s.clock.Advance(filter.DefaultSyncDelay)

	_, body = s.do(t, http.MethodGet, "/api/vehicles", "")
	assert.Equal(t, float64(1), body["total"])

	_, body = s.do(t, http.MethodGet, "/api/filters", "")
	assert.Equal(t, "status=inactive", body["data"].(map[string]interface{})["query"])

	w, _ = s.do(t, http.MethodPost, "/api/navigation/back", "")
	assert.Equal(t, http.StatusOK, w.Code)
	_, body = s.do(t, http.MethodGet, "/api/vehicles", "")
	assert.Equal(t, float64(2), body["total"])

	w, _ = s.do(t, http.MethodPost, "/api/navigation/back", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/filters/query", `{"query":"charging=charging"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	s.clock.Advance(filter.DefaultSettleDelay)
	_, body = s.do(t, http.MethodGet, "/api/vehicles", "")
	assert.Equal(t, float64(1), body["total"])

	w, body = s.do(t, http.MethodDelete, "/api/filters", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["data"].(map[string]interface{})["charging"])
}

func TestSortRoutes(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPut, "/api/sort", `{"option":"battery"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"option": "battery", "order": "asc"}, body["data"])

	_, body = s.do(t, http.MethodGet, "/api/vehicles", "")
	first := body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "EV-002", first["id"])

	w, body = s.do(t, http.MethodPost, "/api/sort/toggle", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "desc", body["data"].(map[string]interface{})["order"])

	w, _ = s.do(t, http.MethodPut, "/api/sort", `{"option":"colour"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, body = s.do(t, http.MethodGet, "/api/sort", "")
	assert.Equal(t, map[string]interface{}{"option": "battery", "order": "desc"}, body["data"])
}

func TestAlertRoutes(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/api/alerts", "")
	assert.Equal(t, http.StatusOK, w.Code)
	alerts := body["data"].([]interface{})
	require.Len(t, alerts, 1)
	assert.Equal(t, float64(1), body["critical_count"])
	id := alerts[0].(map[string]interface{})["id"].(string)

	w, _ = s.do(t, http.MethodPost, "/api/alerts/"+id+"/read", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, body = s.do(t, http.MethodGet, "/api/alerts", "")
	assert.Equal(t, float64(0), body["unread_count"])

	_, body = s.do(t, http.MethodGet, "/api/alerts?group=vehicle", "")
	assert.Contains(t, body["data"], "EV-002")

	w, _ = s.do(t, http.MethodPost, "/api/alerts/missing/dismiss", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/alerts/"+id+"/dismiss", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, body = s.do(t, http.MethodPost, "/api/alerts/read", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["updated"])

	w, body = s.do(t, http.MethodDelete, "/api/alerts/dismissed", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["removed"])
}

func TestSnapshotRoute(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/api/snapshot", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Len(t, data["vehicles"], 2)
	assert.Equal(t, float64(2000), data["interval_ms"])
	assert.Equal(t, []interface{}{"EV-001", "EV-002"}, data["vehicle_ids"])
}
