package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"deposition_dashboard/internal/models"
	"deposition_dashboard/internal/telemetry"
)

func mustCommand(t *testing.T) func(Command, error) Command {
	return func(cmd Command, err error) Command {
		t.Helper()
		if err != nil {
			t.Fatalf("build command: %v", err)
		}
		return cmd
	}
}

func execAll(t *testing.T, s *SimulatorService, cmds ...Command) {
	t.Helper()
	for _, c := range cmds {
		if err := s.Execute(c); err != nil {
			t.Fatalf("Execute %s: %v", c.Name, err)
		}
	}
}

func TestSimulator_FramesPassValidation(t *testing.T) {
	s := NewSimulatorService(nil)

	full, err := s.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	v, rej := telemetry.Validate(full)
	if rej != nil {
		t.Fatalf("full frame rejected: %v", rej)
	}
	if got := v.Update.Keys(); len(got) != 3 {
		t.Fatalf("full frame keys: %v", got)
	}

	partial, err := s.Frame(models.SubtreeMotion)
	if err != nil {
		t.Fatalf("Frame(motion): %v", err)
	}
	v, rej = telemetry.Validate(partial)
	if rej != nil {
		t.Fatalf("partial frame rejected: %v", rej)
	}
	if got := v.Update.Keys(); len(got) != 1 || got[0] != models.SubtreeMotion {
		t.Fatalf("partial frame keys: %v", got)
	}

	if _, err := s.Frame("plasma"); !errors.Is(err, ErrUnknownSubtree) {
		t.Fatalf("expected ErrUnknownSubtree, got %v", err)
	}
}

func TestSimulator_HeartbeatIsIgnoredByValidator(t *testing.T) {
	s := NewSimulatorService(nil)
	_, rej := telemetry.Validate(s.Heartbeat(time.Unix(1700000000, 0)))
	if rej == nil || !rej.Benign() {
		t.Fatalf("heartbeat should be a benign rejection, got %v", rej)
	}
}

func TestSimulator_PumpDown(t *testing.T) {
	s := NewSimulatorService(nil)
	execAll(t, s,
		mustCommand(t)(VacuumCommand(GateValve, true)),
		mustCommand(t)(VacuumCommand(MechanicalPump, true)),
		mustCommand(t)(VacuumCommand(BoosterPump, true)),
	)

	for i := 0; i < 60; i++ {
		s.Advance(time.Second)
	}

	if p := s.eq.Vacuum.ChamberPressure; p > ProcessReadyTorr {
		t.Fatalf("chamber should be pumped down, got %.3f torr", p)
	}
	if s.eq.Pressures.Chamber != s.eq.Vacuum.ChamberPressure {
		t.Fatal("chamber gauge must mirror vacuum pressure")
	}
	if !s.safety.Process.ProcessReady {
		t.Fatalf("process should be ready: %+v", s.safety.Process)
	}

	execAll(t, s, mustCommand(t)(VacuumCommand(GateValve, false)))
	before := s.eq.Vacuum.ChamberPressure
	s.Advance(10 * time.Second)
	if s.eq.Vacuum.ChamberPressure <= before {
		t.Fatal("pressure should rise with the gate valve closed")
	}
}

func TestSimulator_GasFlowSlewsToSetpoint(t *testing.T) {
	s := NewSimulatorService(nil)
	execAll(t, s,
		mustCommand(t)(GasFlowCommand(GasMain, 50)),
		mustCommand(t)(GasValveCommand(GasMain, true)),
	)

	s.Advance(time.Second)
	if got := s.eq.Gas.MainFlowMeasured; got != MainFlowSlewPerSec {
		t.Fatalf("after 1s: got %.1f, want %.1f", got, MainFlowSlewPerSec)
	}
	s.Advance(5 * time.Second)
	if got := s.eq.Gas.MainFlowMeasured; got != 50 {
		t.Fatalf("should settle at setpoint, got %.1f", got)
	}
	if !s.safety.Process.GasFlowStable {
		t.Fatal("flow should be stable at setpoint")
	}

	execAll(t, s, mustCommand(t)(GasValveCommand(GasMain, false)))
	s.Advance(10 * time.Second)
	if got := s.eq.Gas.MainFlowMeasured; got != 0 {
		t.Fatalf("closed valve should drop flow to 0, got %.1f", got)
	}
	if math.Abs(s.eq.Pressures.Nozzle-s.eq.Vacuum.ChamberPressure) > 1e-9 {
		t.Fatal("nozzle pressure should equal chamber pressure without flow")
	}
}

func TestSimulator_Commands(t *testing.T) {
	s := NewSimulatorService(nil)
	execAll(t, s,
		mustCommand(t)(FeederFrequencyCommand(2, 800)),
		mustCommand(t)(FeederRunCommand(2, true)),
		ShutterCommand(true),
	)
	s.Advance(time.Second)

	if s.eq.Feeder2.Frequency != 800 || !s.eq.Feeder2.Running || !s.eq.Nozzle.ShutterOpen {
		t.Fatalf("commands not applied: %+v %+v", s.eq.Feeder2, s.eq.Nozzle)
	}
	if !s.safety.Process.PowderFeedActive {
		t.Fatal("powder feed should be active")
	}

	frame, err := s.Frame(models.SubtreeEquipment)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Data struct {
			Equipment models.Equipment `json:"equipment"`
		} `json:"data"`
	}
	if err := json.Unmarshal(frame, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Data.Equipment.Feeder2.Frequency != 800 {
		t.Fatalf("frame does not carry the new frequency: %s", frame)
	}
}

func TestSimulator_BoosterInterlock(t *testing.T) {
	s := NewSimulatorService(nil)
	err := s.Execute(mustCommand(t)(VacuumCommand(BoosterPump, true)))
	if !errors.Is(err, ErrInterlock) {
		t.Fatalf("expected ErrInterlock, got %v", err)
	}

	execAll(t, s,
		mustCommand(t)(VacuumCommand(MechanicalPump, true)),
		mustCommand(t)(VacuumCommand(BoosterPump, true)),
		mustCommand(t)(VacuumCommand(MechanicalPump, false)),
	)
	if s.eq.Vacuum.BoosterPump {
		t.Fatal("stopping the mechanical pump must stop the booster")
	}
}

func TestSimulator_BadCommandLeavesStateUntouched(t *testing.T) {
	s := NewSimulatorService(nil)
	before := s.eq

	err := s.Execute(Command{Name: "gas.main_flow", Body: map[string]any{"value": "lots"}})
	if !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
	if err := s.Execute(Command{Name: "laser.fire"}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if s.eq != before {
		t.Fatal("state changed on a failed command")
	}
}

func TestSimulator_RunStopsOnCancel(t *testing.T) {
	s := NewSimulatorService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	s.mu.Lock()
	p := s.eq.Vacuum.ChamberPressure
	s.mu.Unlock()
	if p != AtmosphereTorr {
		t.Fatalf("idle vented chamber should stay at atmosphere, got %.2f", p)
	}
}
