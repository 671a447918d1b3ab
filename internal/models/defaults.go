package models

// Physical ranges of the apparatus. They are plausibility bounds for
// diagnostics only; values outside them are still displayed.
const (
	DutyCycleMin = 20.0
	DutyCycleMax = 35.0

	FeederFrequencyMin  = 200.0
	FeederFrequencyMax  = 1200.0
	FeederFrequencyStep = 200.0

	MainFlowMax   = 100.0 // SLPM
	FeederFlowMax = 10.0  // SLPM
)

// DefaultEquipment returns the equipment sub-tree shown before any telemetry arrives.
func DefaultEquipment() *Equipment {
	return &Equipment{
		Feeder1: FeederState{Frequency: FeederFrequencyMin},
		Feeder2: FeederState{Frequency: FeederFrequencyMin},
		// highest duty cycle means the deagglomerator is effectively off
		Deagg1: DeagglomeratorState{DutyCycle: DutyCycleMax},
		Deagg2: DeagglomeratorState{DutyCycle: DutyCycleMax},
		Nozzle: NozzleState{ActiveNozzle: 1},
	}
}

func DefaultMotion() *Motion {
	return &Motion{}
}

func DefaultSafety() *Safety {
	return &Safety{
		Safety: InterlockSafety{InterlocksOK: true, LimitsOK: true},
	}
}

// DefaultState returns a fully populated snapshot with fresh sub-trees.
func DefaultState() *SystemState {
	return &SystemState{
		Equipment: DefaultEquipment(),
		Motion:    DefaultMotion(),
		Safety:    DefaultSafety(),
	}
}
