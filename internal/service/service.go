package service

import (
	"context"
	"time"

	"deposition_dashboard/internal/hub"
	"deposition_dashboard/internal/logger"
	"deposition_dashboard/internal/metrics"
	"deposition_dashboard/internal/models"
	"deposition_dashboard/internal/repository"
	"deposition_dashboard/internal/telemetry"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Equipment issues commands to the apparatus. Every call fails with
// ErrNotConnected while telemetry is down.
type Equipment interface {
	SetGasFlow(ctx context.Context, line GasLine, value float64) error
	SetGasValve(ctx context.Context, line GasLine, open bool) error
	SetVacuum(ctx context.Context, device VacuumDevice, on bool) error
	SetFeederFrequency(ctx context.Context, feeder int, hz float64) error
	SetFeederRunning(ctx context.Context, feeder int, on bool) error
	SetShutter(ctx context.Context, open bool) error
}

// Monitoring exposes the synchronized state, read-only.
type Monitoring interface {
	Current() hub.View
	Subtree(name string) (any, error)
	Subscribe() (hub.View, *hub.Subscription[hub.View])
	Health(ctx context.Context) Health
}

// EventLog exposes the diagnostics log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.TelemetryEvent, error)
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// Simulator stands in for the apparatus during development.
// Stop via context cancellation in main() for graceful shutdown.
type Simulator interface {
	Run(ctx context.Context, tick time.Duration)
	Frame(subtrees ...string) ([]byte, error)
	Heartbeat(now time.Time) []byte
	Execute(cmd Command) error
}

// Service aggregates all sub-services. Simulator is nil unless enabled.
type Service struct {
	Equipment
	Monitoring
	EventLog
	Simulator
	Authorization
}

// Deps are the non-repository collaborators of the services.
type Deps struct {
	Telemetry *telemetry.Client
	DB        Pinger
	Metrics   *metrics.Telemetry
	Log       *logger.Logger
	Version   string

	Commands  EquipmentConfig
	Auth      AuthConfig
	Simulator bool
}

type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

// NewService wires the repository layer and the telemetry client into
// concrete services.
func NewService(repos *repository.Repository, d Deps) *Service {
	cmds := d.Commands
	if cmds.Connected == nil {
		cmds.Connected = d.Telemetry.Connected
	}

	s := &Service{
		Equipment:     NewEquipmentService(cmds, repos.EventRepo, d.Metrics, d.Log),
		Monitoring:    NewMonitoringService(d.Telemetry, d.DB, d.Version),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, d.Auth.SigningKey, d.Auth.TokenTTL),
	}
	if d.Simulator {
		s.Simulator = NewSimulatorService(d.Log)
	}
	return s
}
