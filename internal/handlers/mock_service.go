package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"deposition_dashboard/internal/connection"
	"deposition_dashboard/internal/hub"
	"deposition_dashboard/internal/models"
	"deposition_dashboard/internal/service"
	"deposition_dashboard/internal/telemetry"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

// mockEquipment records the last call as "method arg..." and returns err.
type mockEquipment struct {
	mu    sync.Mutex
	err   error
	calls []string
	last  []any
}

func (m *mockEquipment) record(name string, args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	m.last = args
	return m.err
}

func (m *mockEquipment) SetGasFlow(_ context.Context, line service.GasLine, value float64) error {
	return m.record("SetGasFlow", line, value)
}
func (m *mockEquipment) SetGasValve(_ context.Context, line service.GasLine, open bool) error {
	return m.record("SetGasValve", line, open)
}
func (m *mockEquipment) SetVacuum(_ context.Context, device service.VacuumDevice, on bool) error {
	return m.record("SetVacuum", device, on)
}
func (m *mockEquipment) SetFeederFrequency(_ context.Context, feeder int, hz float64) error {
	return m.record("SetFeederFrequency", feeder, hz)
}
func (m *mockEquipment) SetFeederRunning(_ context.Context, feeder int, on bool) error {
	return m.record("SetFeederRunning", feeder, on)
}
func (m *mockEquipment) SetShutter(_ context.Context, open bool) error {
	return m.record("SetShutter", open)
}

type mockEventLog struct {
	resp      []models.TelemetryEvent
	err       error
	lastQuery service.LogFilter
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.TelemetryEvent, error) {
	m.lastQuery = f
	return m.resp, m.err
}

func (m *mockEventLog) Prune(context.Context, time.Duration) (int64, error) { return 0, nil }

// stubSource feeds a real MonitoringService from a hub the test controls.
type stubSource struct{ h *hub.Hub }

func (s stubSource) Hub() *hub.Hub          { return s.h }
func (s stubSource) Stats() telemetry.Stats { return telemetry.Stats{} }

func newStubMonitoring(connected bool) (*service.MonitoringService, *hub.Hub) {
	v := hub.View{State: models.DefaultState(), Status: connection.Disconnected}
	if connected {
		v.Status, v.Connected = connection.Connected, true
	}
	h := hub.New(v)
	return service.NewMonitoringService(stubSource{h: h}, nil, "test"), h
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
