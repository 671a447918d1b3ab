package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"deposition_dashboard/internal/logger"
	"deposition_dashboard/internal/models"
)

// ----------- Simulation constants -----------
const (
	AtmosphereTorr      = 760.0
	BasePressureTorr    = 0.05
	LeakTorrPerSec      = 0.2
	FlowLoadTorrPerSLPM = 0.004 // chamber pressure floor added per SLPM of gas
	MechPumpRate        = 0.15  // 1/s, exponential pump-down constant
	BoosterPumpRate     = 0.6   // 1/s, added on top of the mechanical pump
	MainFlowSlewPerSec  = 20.0  // SLPM/s
	FeederFlowSlewPerS  = 2.0   // SLPM/s
	FlowStableBand      = 0.5   // SLPM
	ProcessReadyTorr    = 1.0

	MainSupplyTorr   = 80.0
	RegulatorTorr    = 60.0
	FeederSupplyTorr = 15.0
	NozzlePerSLPM    = 0.6
)

// ErrInterlock is returned for commands the simulated PLC refuses.
var ErrInterlock = errors.New("interlock")

// SimulatorService stands in for the apparatus: it evolves a SystemState
// over time, renders it as telemetry frames and applies equipment commands.
type SimulatorService struct {
	mu     sync.Mutex
	eq     models.Equipment
	motion models.Motion
	safety models.Safety
	log    *logger.Logger
}

// NewSimulatorService returns a vented, idle apparatus with homed axes.
func NewSimulatorService(log *logger.Logger) *SimulatorService {
	if log == nil {
		log = logger.Nop()
	}
	s := &SimulatorService{
		eq:     *models.DefaultEquipment(),
		motion: *models.DefaultMotion(),
		safety: *models.DefaultSafety(),
		log:    log,
	}
	s.eq.Vacuum.ChamberPressure = AtmosphereTorr
	s.eq.Pressures = models.PressureState{
		Chamber:    AtmosphereTorr,
		MainSupply: MainSupplyTorr,
		Regulator:  RegulatorTorr,
	}
	homed := models.AxisState{InPosition: true, Homed: true}
	s.motion.Status = models.MotionStatus{XAxis: homed, YAxis: homed, ZAxis: homed, ModuleReady: true}
	s.safety.Hardware = models.HardwareSafety{MotionEnabled: true, PLCConnected: true, PositionValid: true}
	return s
}

// Run ticks at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.Advance(now.Sub(last))
			last = now
		}
	}
}

// Advance moves the simulation forward by d.
func (s *SimulatorService) Advance(d time.Duration) {
	dt := d.Seconds()
	if dt <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g := &s.eq.Gas
	g.MainFlowMeasured = slew(g.MainFlowMeasured, flowTarget(g.MainValve, g.MainFlow), MainFlowSlewPerSec*dt)
	g.FeederFlowMeasured = slew(g.FeederFlowMeasured, flowTarget(g.FeederValve, g.FeederFlow), FeederFlowSlewPerS*dt)

	v := &s.eq.Vacuum
	load := (g.MainFlowMeasured + g.FeederFlowMeasured) * FlowLoadTorrPerSLPM
	p := v.ChamberPressure
	if v.GateValve && v.MechPump {
		rate := MechPumpRate
		if v.BoosterPump {
			rate += BoosterPumpRate
		}
		floor := BasePressureTorr + load
		p = floor + (p-floor)*math.Exp(-rate*dt)
	} else {
		p = math.Min(AtmosphereTorr, p+(LeakTorrPerSec+load)*dt)
	}
	v.ChamberPressure = p

	pr := &s.eq.Pressures
	pr.Chamber = p
	pr.Nozzle = p + g.MainFlowMeasured*NozzlePerSLPM
	pr.Feeder = 0
	if g.FeederValve {
		pr.Feeder = FeederSupplyTorr
	}

	stable := math.Abs(g.MainFlowMeasured-flowTarget(g.MainValve, g.MainFlow)) < FlowStableBand &&
		math.Abs(g.FeederFlowMeasured-flowTarget(g.FeederValve, g.FeederFlow)) < FlowStableBand
	s.safety.Process = models.ProcessSafety{
		GasFlowStable:    stable,
		PowderFeedActive: s.eq.Feeder1.Running || s.eq.Feeder2.Running,
		ProcessReady:     stable && p < ProcessReadyTorr && !s.safety.Safety.EmergencyStop,
	}
}

// Execute applies one equipment command.
func (s *SimulatorService) Execute(cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, v := &s.eq.Gas, &s.eq.Vacuum
	var err error
	switch cmd.Name {
	case "gas.main_flow":
		err = setFloat(&g.MainFlow, cmd, "value")
	case "gas.feeder_flow":
		err = setFloat(&g.FeederFlow, cmd, "value")
	case "gas.main_valve":
		err = setBool(&g.MainValve, cmd, "open")
	case "gas.feeder_valve":
		err = setBool(&g.FeederValve, cmd, "open")
	case "vacuum.gate_valve":
		err = setBool(&v.GateValve, cmd, "on")
	case "vacuum.mechanical_pump":
		err = setBool(&v.MechPump, cmd, "on")
		if !v.MechPump {
			v.BoosterPump = false
		}
	case "vacuum.booster_pump":
		var on bool
		if on, err = bodyBool(cmd, "on"); err == nil {
			if on && !v.MechPump {
				return fmt.Errorf("%w: booster pump needs the mechanical pump running", ErrInterlock)
			}
			v.BoosterPump = on
		}
	case "feeder1.frequency":
		err = setFloat(&s.eq.Feeder1.Frequency, cmd, "value")
	case "feeder2.frequency":
		err = setFloat(&s.eq.Feeder2.Frequency, cmd, "value")
	case "feeder1.on", "feeder1.off":
		s.eq.Feeder1.Running = cmd.Name == "feeder1.on"
	case "feeder2.on", "feeder2.off":
		s.eq.Feeder2.Running = cmd.Name == "feeder2.on"
	case "nozzle.shutter":
		err = setBool(&s.eq.Nozzle.ShutterOpen, cmd, "open")
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}
	if err != nil {
		return err
	}
	s.log.Infow("simulator_command_applied", "command", cmd.Name)
	return nil
}

type simFrame struct {
	Type string       `json:"type"`
	Data simFrameData `json:"data"`
}

type simFrameData struct {
	Equipment *models.Equipment `json:"equipment,omitempty"`
	Motion    *models.Motion    `json:"motion,omitempty"`
	Safety    *models.Safety    `json:"safety,omitempty"`
}

// Frame renders the current state as a state_update frame carrying the
// named sub-trees, or all of them when none are named.
func (s *SimulatorService) Frame(subtrees ...string) ([]byte, error) {
	if len(subtrees) == 0 {
		subtrees = models.Subtrees
	}

	s.mu.Lock()
	eq, motion, safety := s.eq, s.motion, s.safety
	s.mu.Unlock()

	var data simFrameData
	for _, name := range subtrees {
		switch name {
		case models.SubtreeEquipment:
			data.Equipment = &eq
		case models.SubtreeMotion:
			data.Motion = &motion
		case models.SubtreeSafety:
			data.Safety = &safety
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubtree, name)
		}
	}
	return json.Marshal(simFrame{Type: "state_update", Data: data})
}

// Heartbeat returns a frame of a type the telemetry client ignores.
func (s *SimulatorService) Heartbeat(now time.Time) []byte {
	return []byte(fmt.Sprintf(`{"type":"heartbeat","ts":%d}`, now.Unix()))
}

// helpers
func flowTarget(open bool, setpoint float64) float64 {
	if !open {
		return 0
	}
	return setpoint
}

func slew(current, target, step float64) float64 {
	switch {
	case current < target:
		return math.Min(current+step, target)
	case current > target:
		return math.Max(current-step, target)
	default:
		return current
	}
}

// setFloat and setBool leave dst untouched on error.
func setFloat(dst *float64, cmd Command, key string) error {
	f, err := bodyFloat(cmd, key)
	if err == nil {
		*dst = f
	}
	return err
}

func setBool(dst *bool, cmd Command, key string) error {
	b, err := bodyBool(cmd, key)
	if err == nil {
		*dst = b
	}
	return err
}

func bodyFloat(cmd Command, key string) (float64, error) {
	if f, ok := cmd.Body[key].(float64); ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s: %q must be a number", ErrInvalidCommand, cmd.Name, key)
}

func bodyBool(cmd Command, key string) (bool, error) {
	if b, ok := cmd.Body[key].(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("%w: %s: %q must be a boolean", ErrInvalidCommand, cmd.Name, key)
}
