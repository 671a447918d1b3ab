package models

// GasState holds the two independently valved gas lines.
type GasState struct {
	MainFlow           float64 `json:"main_flow"`            // setpoint, SLPM
	MainFlowMeasured   float64 `json:"main_flow_measured"`   // SLPM
	FeederFlow         float64 `json:"feeder_flow"`          // setpoint, SLPM
	FeederFlowMeasured float64 `json:"feeder_flow_measured"` // SLPM
	MainValve          bool    `json:"main_valve"`
	FeederValve        bool    `json:"feeder_valve"`
}

type VacuumState struct {
	ChamberPressure float64 `json:"chamber_pressure"` // torr
	GateValve       bool    `json:"gate_valve"`
	MechPump        bool    `json:"mech_pump"`
	BoosterPump     bool    `json:"booster_pump"`
	VentValve       bool    `json:"vent_valve"`
}

type FeederState struct {
	Running   bool    `json:"running"`
	Frequency float64 `json:"frequency"` // Hz
}

// DeagglomeratorState carries the duty cycle; a higher duty cycle means a lower speed.
type DeagglomeratorState struct {
	DutyCycle float64 `json:"duty_cycle"` // %
}

type NozzleState struct {
	ActiveNozzle int  `json:"active_nozzle"` // 1 | 2
	ShutterOpen  bool `json:"shutter_open"`
}

// PressureState holds the five named gauge readings, all in torr.
type PressureState struct {
	Chamber    float64 `json:"chamber"`
	Feeder     float64 `json:"feeder"`
	MainSupply float64 `json:"main_supply"`
	Nozzle     float64 `json:"nozzle"`
	Regulator  float64 `json:"regulator"`
}

// Equipment is the equipment sub-tree of SystemState.
type Equipment struct {
	Gas       GasState            `json:"gas"`
	Vacuum    VacuumState         `json:"vacuum"`
	Feeder1   FeederState         `json:"feeder1"`
	Feeder2   FeederState         `json:"feeder2"`
	Deagg1    DeagglomeratorState `json:"deagg1"`
	Deagg2    DeagglomeratorState `json:"deagg2"`
	Nozzle    NozzleState         `json:"nozzle"`
	Pressures PressureState       `json:"pressures"`
}

type Position struct {
	X float64 `json:"x"` // mm
	Y float64 `json:"y"` // mm
	Z float64 `json:"z"` // mm
}

type AxisState struct {
	Position   float64 `json:"position"` // mm
	InPosition bool    `json:"in_position"`
	Moving     bool    `json:"moving"`
	Error      bool    `json:"error"`
	Homed      bool    `json:"homed"`
}

type MotionStatus struct {
	XAxis       AxisState `json:"x_axis"`
	YAxis       AxisState `json:"y_axis"`
	ZAxis       AxisState `json:"z_axis"`
	ModuleReady bool      `json:"module_ready"`
}

// AxisParameters are the optional motion profile settings of one axis.
type AxisParameters struct {
	Velocity     float64 `json:"velocity"`
	Acceleration float64 `json:"acceleration"`
	Deceleration float64 `json:"deceleration"`
}

type MotionParameters struct {
	X *AxisParameters `json:"x,omitempty"`
	Y *AxisParameters `json:"y,omitempty"`
	Z *AxisParameters `json:"z,omitempty"`
}

// Motion is the motion sub-tree of SystemState.
type Motion struct {
	Position   Position          `json:"position"`
	Status     MotionStatus      `json:"status"`
	Parameters *MotionParameters `json:"parameters,omitempty"`
}

type HardwareSafety struct {
	MotionEnabled bool `json:"motion_enabled"`
	PLCConnected  bool `json:"plc_connected"`
	PositionValid bool `json:"position_valid"`
}

type ProcessSafety struct {
	GasFlowStable    bool `json:"gas_flow_stable"`
	PowderFeedActive bool `json:"powder_feed_active"`
	ProcessReady     bool `json:"process_ready"`
}

type InterlockSafety struct {
	EmergencyStop bool `json:"emergency_stop"`
	InterlocksOK  bool `json:"interlocks_ok"`
	LimitsOK      bool `json:"limits_ok"`
}

// Safety is the safety sub-tree of SystemState.
type Safety struct {
	Hardware HardwareSafety  `json:"hardware"`
	Process  ProcessSafety   `json:"process"`
	Safety   InterlockSafety `json:"safety"`
}

// SystemState is the root snapshot. Sub-trees are held by pointer so that
// consumers can detect change by reference; none of them is ever nil.
// A published SystemState must be treated as read-only.
type SystemState struct {
	Equipment *Equipment `json:"equipment"`
	Motion    *Motion    `json:"motion"`
	Safety    *Safety    `json:"safety"`
}

// Sub-tree keys as they appear on the wire.
const (
	SubtreeEquipment = "equipment"
	SubtreeMotion    = "motion"
	SubtreeSafety    = "safety"
)

// Subtrees lists the top-level keys of SystemState in wire order.
var Subtrees = []string{SubtreeEquipment, SubtreeMotion, SubtreeSafety}

// Clone returns a deep copy of the motion sub-tree.
func (m *Motion) Clone() *Motion {
	out := *m
	if m.Parameters != nil {
		p := *m.Parameters
		p.X = cloneAxisParameters(p.X)
		p.Y = cloneAxisParameters(p.Y)
		p.Z = cloneAxisParameters(p.Z)
		out.Parameters = &p
	}
	return &out
}

func cloneAxisParameters(p *AxisParameters) *AxisParameters {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Clone returns a copy of the equipment sub-tree.
func (e *Equipment) Clone() *Equipment {
	out := *e
	return &out
}

// Clone returns a copy of the safety sub-tree.
func (s *Safety) Clone() *Safety {
	out := *s
	return &out
}
