package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"deposition_dashboard/internal/service"
)

func postJSON(r http.Handler, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header = authHeader(token)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestEquipmentRoutes_Dispatch(t *testing.T) {
	cases := []struct {
		path, body string
		call       string
		args       []any
	}{
		{"/api/v1/equipment/gas/main/flow", `{"value":35.5}`, "SetGasFlow", []any{service.GasMain, 35.5}},
		{"/api/v1/equipment/gas/feeder/valve", `{"open":false}`, "SetGasValve", []any{service.GasFeeder, false}},
		{"/api/v1/equipment/vacuum/booster_pump", `{"on":true}`, "SetVacuum", []any{service.BoosterPump, true}},
		{"/api/v1/equipment/feeder/2/frequency", `{"value":800}`, "SetFeederFrequency", []any{2, 800.0}},
		{"/api/v1/equipment/feeder/1/run", `{"on":false}`, "SetFeederRunning", []any{1, false}},
		{"/api/v1/equipment/nozzle/shutter", `{"open":true}`, "SetShutter", []any{true}},
	}
	for _, tc := range cases {
		t.Run(tc.call, func(t *testing.T) {
			eq := &mockEquipment{}
			r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 7}, Equipment: eq})

			w := postJSON(r, tc.path, tc.body, "tok")
			if w.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if len(eq.calls) != 1 || eq.calls[0] != tc.call {
				t.Fatalf("calls: %v", eq.calls)
			}
			if fmt.Sprint(eq.last) != fmt.Sprint(tc.args) {
				t.Fatalf("args: got %v, want %v", eq.last, tc.args)
			}
		})
	}
}

func TestEquipmentRoutes_RequireOperator(t *testing.T) {
	eq := &mockEquipment{}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Equipment: eq})

	w := postJSON(r, "/api/v1/equipment/nozzle/shutter", `{"open":true}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", w.Code)
	}
	if len(eq.calls) != 0 {
		t.Fatalf("service must not be called: %v", eq.calls)
	}
}

func TestEquipmentRoutes_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		path string
		body string
		err  error
		code int
	}{
		{"missing field", "/api/v1/equipment/gas/main/flow", `{}`, nil, http.StatusBadRequest},
		{"bad feeder", "/api/v1/equipment/feeder/x/run", `{"on":true}`, nil, http.StatusBadRequest},
		{"invalid", "/api/v1/equipment/gas/main/flow", `{"value":500}`, fmt.Errorf("%w: out of range", service.ErrInvalidCommand), http.StatusBadRequest},
		{"disconnected", "/api/v1/equipment/nozzle/shutter", `{"open":true}`, service.ErrNotConnected, http.StatusConflict},
		{"apparatus refused", "/api/v1/equipment/nozzle/shutter", `{"open":true}`, fmt.Errorf("%w: 503", service.ErrCommandFailed), http.StatusBadGateway},
		{"other", "/api/v1/equipment/nozzle/shutter", `{"open":true}`, fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{
				Authorization: &mockAuth{parseID: 1},
				Equipment:     &mockEquipment{err: tc.err},
			})
			if w := postJSON(r, tc.path, tc.body, "tok"); w.Code != tc.code {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.code, w.Body.String())
			}
		})
	}
}
