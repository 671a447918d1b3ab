package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deposition_dashboard/internal/hub"
	"deposition_dashboard/internal/models"
	"deposition_dashboard/internal/telemetry"
)

const (
	ServiceName = "deposition-dashboard"

	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

var ErrUnknownSubtree = errors.New("unknown state sub-tree")

// TelemetrySource is the read side of the telemetry client.
type TelemetrySource interface {
	Hub() *hub.Hub
	Stats() telemetry.Stats
}

// Pinger reports whether a dependency is reachable; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health is the /health payload.
type Health struct {
	Status      string                     `json:"status"`
	ServiceName string                     `json:"service_name"`
	Version     string                     `json:"version"`
	Uptime      float64                    `json:"uptime"` // seconds
	Components  map[string]ComponentHealth `json:"components"`
}

type ComponentHealth struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type MonitoringService struct {
	src     TelemetrySource
	db      Pinger
	started time.Time
	version string
}

func NewMonitoringService(src TelemetrySource, db Pinger, version string) *MonitoringService {
	return &MonitoringService{src: src, db: db, started: time.Now(), version: version}
}

// Current returns the latest view: state, connection status and error.
func (s *MonitoringService) Current() hub.View {
	return s.src.Hub().Current()
}

// Subtree returns one top-level sub-tree of the current state by wire name.
func (s *MonitoringService) Subtree(name string) (any, error) {
	st := s.Current().State
	switch name {
	case models.SubtreeEquipment:
		return st.Equipment, nil
	case models.SubtreeMotion:
		return st.Motion, nil
	case models.SubtreeSafety:
		return st.Safety, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubtree, name)
	}
}

// Subscribe delivers every change of the view. The caller must Unsubscribe.
func (s *MonitoringService) Subscribe() (hub.View, *hub.Subscription[hub.View]) {
	return hub.Subscribe(s.src.Hub(), hub.SelectView)
}

func (s *MonitoringService) Health(ctx context.Context) Health {
	v := s.Current()
	stats := s.src.Stats()

	tel := ComponentHealth{
		Status: HealthHealthy,
		Details: map[string]any{
			"connection": v.Status.String(),
			"accepted":   stats.Accepted,
			"rejected":   stats.Rejected,
			"ignored":    stats.Ignored,
		},
	}
	if !v.Connected {
		tel.Status = HealthDegraded
		tel.Message = v.Error
	}

	h := Health{
		Status:      HealthHealthy,
		ServiceName: ServiceName,
		Version:     s.version,
		Uptime:      time.Since(s.started).Seconds(),
		Components:  map[string]ComponentHealth{"telemetry": tel},
	}

	if s.db != nil {
		dbHealth := ComponentHealth{Status: HealthHealthy}
		if err := s.db.PingContext(ctx); err != nil {
			dbHealth = ComponentHealth{Status: HealthUnhealthy, Message: err.Error()}
		}
		h.Components["database"] = dbHealth
	}

	for _, c := range h.Components {
		switch {
		case c.Status == HealthUnhealthy:
			h.Status = HealthUnhealthy
		case c.Status == HealthDegraded && h.Status == HealthHealthy:
			h.Status = HealthDegraded
		}
	}
	return h
}
