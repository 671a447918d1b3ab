package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"deposition_dashboard/internal/models"
)

var (
	ErrInvalidCommand = errors.New("invalid equipment command")
	ErrUnknownCommand = errors.New("unknown equipment command")
)

type GasLine string

const (
	GasMain   GasLine = "main"
	GasFeeder GasLine = "feeder"
)

type VacuumDevice string

const (
	GateValve      VacuumDevice = "gate_valve"
	MechanicalPump VacuumDevice = "mechanical_pump"
	BoosterPump    VacuumDevice = "booster_pump"
)

// Command is one equipment request as sent to the command service.
type Command struct {
	Name string         `json:"name"` // stable label, e.g. gas.main_flow
	Path string         `json:"path"` // relative to the command service base URL
	Body map[string]any `json:"body,omitempty"`
}

func GasFlowCommand(line GasLine, value float64) (Command, error) {
	limit, err := flowMax(line)
	if err != nil {
		return Command{}, err
	}
	if value < 0 || value > limit {
		return Command{}, fmt.Errorf("%w: %s flow %.2f outside [0, %.0f]", ErrInvalidCommand, line, value, limit)
	}
	name := string(line) + "_flow"
	return Command{Name: "gas." + name, Path: "/equipment/gas/" + name, Body: map[string]any{"value": value}}, nil
}

func GasValveCommand(line GasLine, open bool) (Command, error) {
	if _, err := flowMax(line); err != nil {
		return Command{}, err
	}
	name := string(line) + "_valve"
	return Command{Name: "gas." + name, Path: "/equipment/gas/" + name, Body: map[string]any{"open": open}}, nil
}

func VacuumCommand(device VacuumDevice, on bool) (Command, error) {
	switch device {
	case GateValve, MechanicalPump, BoosterPump:
	default:
		return Command{}, fmt.Errorf("%w: vacuum device %q", ErrInvalidCommand, device)
	}
	return Command{Name: "vacuum." + string(device), Path: "/equipment/vacuum/" + string(device), Body: map[string]any{"on": on}}, nil
}

func FeederFrequencyCommand(feeder int, hz float64) (Command, error) {
	if err := checkFeeder(feeder); err != nil {
		return Command{}, err
	}
	if hz < models.FeederFrequencyMin || hz > models.FeederFrequencyMax {
		return Command{}, fmt.Errorf("%w: feeder%d frequency %.0f outside [%.0f, %.0f]",
			ErrInvalidCommand, feeder, hz, models.FeederFrequencyMin, models.FeederFrequencyMax)
	}
	return Command{
		Name: fmt.Sprintf("feeder%d.frequency", feeder),
		Path: fmt.Sprintf("/equipment/feeder%d/frequency", feeder),
		Body: map[string]any{"value": hz},
	}, nil
}

func FeederRunCommand(feeder int, on bool) (Command, error) {
	if err := checkFeeder(feeder); err != nil {
		return Command{}, err
	}
	action := "off"
	if on {
		action = "on"
	}
	return Command{
		Name: fmt.Sprintf("feeder%d.%s", feeder, action),
		Path: fmt.Sprintf("/equipment/feeder%d/%s", feeder, action),
	}, nil
}

func ShutterCommand(open bool) Command {
	return Command{Name: "nozzle.shutter", Path: "/equipment/nozzle/shutter", Body: map[string]any{"open": open}}
}

// ParseCommand turns an incoming request path and JSON body back into a
// validated Command. It accepts exactly the requests the builders produce.
func ParseCommand(path string, body []byte) (Command, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "equipment" {
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, path)
	}
	group, action := parts[1], parts[2]

	var payload struct {
		Value *float64 `json:"value"`
		Open  *bool    `json:"open"`
		On    *bool    `json:"on"`
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return Command{}, fmt.Errorf("%w: body: %v", ErrInvalidCommand, err)
		}
	}
	missing := func(field string) error {
		return fmt.Errorf("%w: %s requires %q", ErrInvalidCommand, path, field)
	}

	switch {
	case group == "gas" && strings.HasSuffix(action, "_flow"):
		if payload.Value == nil {
			return Command{}, missing("value")
		}
		return GasFlowCommand(GasLine(strings.TrimSuffix(action, "_flow")), *payload.Value)
	case group == "gas" && strings.HasSuffix(action, "_valve"):
		if payload.Open == nil {
			return Command{}, missing("open")
		}
		return GasValveCommand(GasLine(strings.TrimSuffix(action, "_valve")), *payload.Open)
	case group == "vacuum":
		if payload.On == nil {
			return Command{}, missing("on")
		}
		return VacuumCommand(VacuumDevice(action), *payload.On)
	case group == "nozzle" && action == "shutter":
		if payload.Open == nil {
			return Command{}, missing("open")
		}
		return ShutterCommand(*payload.Open), nil
	case strings.HasPrefix(group, "feeder"):
		feeder, err := feederIndex(group)
		if err != nil {
			return Command{}, err
		}
		switch action {
		case "frequency":
			if payload.Value == nil {
				return Command{}, missing("value")
			}
			return FeederFrequencyCommand(feeder, *payload.Value)
		case "on", "off":
			return FeederRunCommand(feeder, action == "on")
		}
	}
	return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, path)
}

func flowMax(line GasLine) (float64, error) {
	switch line {
	case GasMain:
		return models.MainFlowMax, nil
	case GasFeeder:
		return models.FeederFlowMax, nil
	default:
		return 0, fmt.Errorf("%w: gas line %q", ErrInvalidCommand, line)
	}
}

func checkFeeder(n int) error {
	if n != 1 && n != 2 {
		return fmt.Errorf("%w: feeder %d", ErrInvalidCommand, n)
	}
	return nil
}

func feederIndex(group string) (int, error) {
	switch group {
	case "feeder1":
		return 1, nil
	case "feeder2":
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownCommand, group)
	}
}
