package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"deposition_dashboard/internal/logger"
	"deposition_dashboard/internal/metrics"
	"deposition_dashboard/internal/models"
	"deposition_dashboard/internal/repository"
)

const defaultCommandTimeout = 5 * time.Second

var (
	// ErrNotConnected is returned while the telemetry stream is down; a
	// command must not be issued against state the operator cannot see.
	ErrNotConnected  = errors.New("telemetry not connected")
	ErrCommandFailed = errors.New("equipment command failed")
)

// EquipmentService sends one-shot commands to the apparatus command service.
type EquipmentService struct {
	baseURL   string
	client    *http.Client
	connected func() bool
	eventRepo repository.EventRepo
	metrics   *metrics.Telemetry
	log       *logger.Logger
}

// EquipmentConfig configures EquipmentService.
type EquipmentConfig struct {
	BaseURL string
	Timeout time.Duration
	// Connected gates commands; nil means always allowed.
	Connected func() bool
	Client    *http.Client
}

func NewEquipmentService(cfg EquipmentConfig, eventRepo repository.EventRepo, m *metrics.Telemetry, log *logger.Logger) *EquipmentService {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultCommandTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &EquipmentService{
		baseURL:   cfg.BaseURL,
		client:    client,
		connected: cfg.Connected,
		eventRepo: eventRepo,
		metrics:   m,
		log:       log,
	}
}

func (s *EquipmentService) SetGasFlow(ctx context.Context, line GasLine, value float64) error {
	cmd, err := GasFlowCommand(line, value)
	if err != nil {
		return err
	}
	return s.Send(ctx, cmd)
}

func (s *EquipmentService) SetGasValve(ctx context.Context, line GasLine, open bool) error {
	cmd, err := GasValveCommand(line, open)
	if err != nil {
		return err
	}
	return s.Send(ctx, cmd)
}

func (s *EquipmentService) SetVacuum(ctx context.Context, device VacuumDevice, on bool) error {
	cmd, err := VacuumCommand(device, on)
	if err != nil {
		return err
	}
	return s.Send(ctx, cmd)
}

func (s *EquipmentService) SetFeederFrequency(ctx context.Context, feeder int, hz float64) error {
	cmd, err := FeederFrequencyCommand(feeder, hz)
	if err != nil {
		return err
	}
	return s.Send(ctx, cmd)
}

func (s *EquipmentService) SetFeederRunning(ctx context.Context, feeder int, on bool) error {
	cmd, err := FeederRunCommand(feeder, on)
	if err != nil {
		return err
	}
	return s.Send(ctx, cmd)
}

func (s *EquipmentService) SetShutter(ctx context.Context, open bool) error {
	return s.Send(ctx, ShutterCommand(open))
}

// Send posts cmd and records the outcome. Non-2xx responses wrap ErrCommandFailed.
func (s *EquipmentService) Send(ctx context.Context, cmd Command) error {
	if s.connected != nil && !s.connected() {
		s.metrics.ObserveCommand(cmd.Name, "not_connected", 0)
		return ErrNotConnected
	}

	start := time.Now()
	err := s.post(ctx, cmd)
	took := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.log.Warnw("equipment_command_failed", "command", cmd.Name, "err", err)
	} else {
		s.log.Infow("equipment_command_sent", "command", cmd.Name, "took", took.String())
	}
	s.metrics.ObserveCommand(cmd.Name, outcome, took)
	s.recordCommand(ctx, cmd, outcome, err)
	return err
}

func (s *EquipmentService) post(ctx context.Context, cmd Command) error {
	var body io.Reader = http.NoBody
	if cmd.Body != nil {
		b, err := json.Marshal(cmd.Body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", cmd.Name, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+cmd.Path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", cmd.Name, err)
	}
	if cmd.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCommandFailed, cmd.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ErrCommandFailed, cmd.Name, resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *EquipmentService) recordCommand(ctx context.Context, cmd Command, outcome string, cmdErr error) {
	if s.eventRepo == nil {
		return
	}
	meta := map[string]any{"command": cmd.Name, "path": cmd.Path, "outcome": outcome}
	if cmd.Body != nil {
		meta["body"] = cmd.Body
	}
	if cmdErr != nil {
		meta["error"] = cmdErr.Error()
	}
	err := s.eventRepo.Append(ctx, models.TelemetryEvent{
		OccurredAt:  time.Now().UTC(),
		Type:        models.EventCommand,
		Description: cmd.Name + " " + outcome,
		Metadata:    meta,
	})
	if err != nil {
		s.log.Errorw("equipment_command_record_failed", "command", cmd.Name, "err", err)
	}
}
