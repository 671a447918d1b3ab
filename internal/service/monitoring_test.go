package service

import (
	"context"
	"errors"
	"testing"

	"deposition_dashboard/internal/connection"
	"deposition_dashboard/internal/hub"
	"deposition_dashboard/internal/models"
	"deposition_dashboard/internal/telemetry"
)

type fakeSource struct {
	h     *hub.Hub
	stats telemetry.Stats
}

func newFakeSource(connected bool) *fakeSource {
	v := hub.View{State: models.DefaultState(), Status: connection.Reconnecting, Error: "telemetry connection closed"}
	if connected {
		v = hub.View{State: models.DefaultState(), Status: connection.Connected, Connected: true}
	}
	return &fakeSource{h: hub.New(v), stats: telemetry.Stats{Accepted: 3, Rejected: 1}}
}

func (f *fakeSource) Hub() *hub.Hub          { return f.h }
func (f *fakeSource) Stats() telemetry.Stats { return f.stats }

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestMonitoringService_Subtree(t *testing.T) {
	src := newFakeSource(true)
	svc := NewMonitoringService(src, nil, "test")
	st := src.h.Current().State

	for name, want := range map[string]any{
		models.SubtreeEquipment: st.Equipment,
		models.SubtreeMotion:    st.Motion,
		models.SubtreeSafety:    st.Safety,
	} {
		got, err := svc.Subtree(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != want {
			t.Fatalf("%s: got %p, want %p", name, got, want)
		}
	}
	if _, err := svc.Subtree("plasma"); !errors.Is(err, ErrUnknownSubtree) {
		t.Fatalf("expected ErrUnknownSubtree, got %v", err)
	}
}

func TestMonitoringService_SubscribeSeesChanges(t *testing.T) {
	src := newFakeSource(false)
	svc := NewMonitoringService(src, nil, "test")

	initial, sub := svc.Subscribe()
	defer sub.Unsubscribe()
	if initial.Connected {
		t.Fatal("initial view should be disconnected")
	}

	src.h.Update(func(v hub.View) hub.View {
		v.Status, v.Connected, v.Error = connection.Connected, true, ""
		return v
	})
	got := <-sub.C()
	if !got.Connected || got.Status != connection.Connected {
		t.Fatalf("unexpected view: %+v", got)
	}
}

func TestMonitoringService_Health(t *testing.T) {
	dbDown := pingerFunc(func(context.Context) error { return errors.New("database is locked") })
	dbUp := pingerFunc(func(context.Context) error { return nil })

	tests := []struct {
		name      string
		connected bool
		db        Pinger
		want      string
	}{
		{name: "connected, no db", connected: true, want: HealthHealthy},
		{name: "connected, db up", connected: true, db: dbUp, want: HealthHealthy},
		{name: "telemetry down", connected: false, db: dbUp, want: HealthDegraded},
		{name: "db down wins", connected: false, db: dbDown, want: HealthUnhealthy},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewMonitoringService(newFakeSource(tc.connected), tc.db, "1.2.3").Health(context.Background())
			if h.Status != tc.want {
				t.Fatalf("status: got %q, want %q (%+v)", h.Status, tc.want, h.Components)
			}
			if h.ServiceName != ServiceName || h.Version != "1.2.3" || h.Uptime < 0 {
				t.Fatalf("unexpected header fields: %+v", h)
			}
			tel := h.Components["telemetry"]
			if tel.Details["accepted"] != int64(3) {
				t.Fatalf("telemetry details: %+v", tel.Details)
			}
			if !tc.connected && tel.Message != "telemetry connection closed" {
				t.Fatalf("telemetry message: %q", tel.Message)
			}
			if _, ok := h.Components["database"]; ok != (tc.db != nil) {
				t.Fatalf("database component presence: %v", ok)
			}
		})
	}
}
