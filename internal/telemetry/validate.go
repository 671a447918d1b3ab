package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"deposition_dashboard/internal/models"
)

// MessageTypeStateUpdate is the only frame type that may mutate state.
const MessageTypeStateUpdate = "state_update"

// Reason classifies why a frame was not applied.
type Reason string

const (
	ReasonParseError             Reason = "parse_error"
	ReasonUnrecognizedType       Reason = "unrecognized_type"
	ReasonMissingData            Reason = "missing_data"
	ReasonMissingEquipmentFields Reason = "missing_equipment_fields"
	ReasonInvalidNozzle          Reason = "invalid_nozzle"
	ReasonInvalidMotion          Reason = "invalid_motion"
	ReasonInvalidSafety          Reason = "invalid_safety"
	ReasonDecodeError            Reason = "decode_error"
)

// Required sub-keys per sub-tree, in the order they are reported.
var (
	requiredEquipmentFields = []string{"gas", "vacuum", "feeder1", "feeder2", "deagg1", "deagg2", "nozzle", "pressures"}
	requiredMotionFields    = []string{"position", "status"}
	requiredSafetyFields    = []string{"hardware", "process", "safety"}
)

// Rejection describes a dropped frame.
type Rejection struct {
	Reason Reason
	Fields []string // missing or invalid keys, when known
	Detail string
}

func (r *Rejection) Error() string {
	var b strings.Builder
	b.WriteString(string(r.Reason))
	if len(r.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(r.Fields, ", "))
		b.WriteString("]")
	}
	if r.Detail != "" {
		b.WriteString(": ")
		b.WriteString(r.Detail)
	}
	return b.String()
}

// Benign reports whether the frame is simply of another type sharing the channel.
func (r *Rejection) Benign() bool {
	return r.Reason == ReasonUnrecognizedType
}

// Validated is an accepted frame.
type Validated struct {
	Update models.StateUpdate
	// Warnings lists values outside the apparatus' physical ranges. They
	// are informational; the values are still applied.
	Warnings []string
}

// Validate decides whether raw can be merged into the store. It never panics
// and never partially accepts a frame.
func Validate(raw []byte) (Validated, *Rejection) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Validated{}, &Rejection{Reason: ReasonParseError, Detail: err.Error()}
	}

	var typ string
	if err := json.Unmarshal(envelope["type"], &typ); err != nil || typ != MessageTypeStateUpdate {
		return Validated{}, &Rejection{Reason: ReasonUnrecognizedType, Detail: describeType(envelope["type"])}
	}

	data, ok := objectFields(envelope["data"])
	if !ok {
		return Validated{}, &Rejection{Reason: ReasonMissingData}
	}

	var out Validated

	if sub, present := presentValue(data, models.SubtreeEquipment); present {
		fields, _ := objectFields(sub)
		if missing := missingObjects(fields, requiredEquipmentFields); len(missing) > 0 {
			return Validated{}, &Rejection{Reason: ReasonMissingEquipmentFields, Fields: missing}
		}
		if rej := checkNozzle(fields["nozzle"]); rej != nil {
			return Validated{}, rej
		}
		out.Update.Equipment = sub
		out.Warnings = append(out.Warnings, plausibilityWarnings(sub)...)
	}

	if sub, present := presentValue(data, models.SubtreeMotion); present {
		fields, _ := objectFields(sub)
		if missing := missingObjects(fields, requiredMotionFields); len(missing) > 0 {
			return Validated{}, &Rejection{Reason: ReasonInvalidMotion, Fields: missing}
		}
		out.Update.Motion = sub
	}

	if sub, present := presentValue(data, models.SubtreeSafety); present {
		fields, _ := objectFields(sub)
		if missing := missingObjects(fields, requiredSafetyFields); len(missing) > 0 {
			return Validated{}, &Rejection{Reason: ReasonInvalidSafety, Fields: missing}
		}
		out.Update.Safety = sub
	}

	return out, nil
}

// presentValue returns the value under key unless it is absent or null.
func presentValue(obj map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := obj[key]
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

// objectFields decodes raw as a JSON object. Anything else reports false.
func objectFields(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if !isObject(raw) {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func missingObjects(fields map[string]json.RawMessage, required []string) []string {
	var missing []string
	for _, key := range required {
		if !isObject(fields[key]) {
			missing = append(missing, key)
		}
	}
	return missing
}

func checkNozzle(raw json.RawMessage) *Rejection {
	var nozzle struct {
		ActiveNozzle *float64 `json:"active_nozzle"`
	}
	if err := json.Unmarshal(raw, &nozzle); err != nil {
		return &Rejection{Reason: ReasonInvalidNozzle, Fields: []string{"nozzle.active_nozzle"}, Detail: err.Error()}
	}
	if nozzle.ActiveNozzle == nil {
		return &Rejection{Reason: ReasonInvalidNozzle, Fields: []string{"nozzle.active_nozzle"}, Detail: "missing"}
	}
	if n := *nozzle.ActiveNozzle; n != 1 && n != 2 {
		return &Rejection{Reason: ReasonInvalidNozzle, Fields: []string{"nozzle.active_nozzle"}, Detail: fmt.Sprintf("got %v, want 1 or 2", n)}
	}
	return nil
}

// plausibilityWarnings reports equipment values outside the physical ranges.
// Leaves that do not decode as numbers are left for the store to judge.
func plausibilityWarnings(raw json.RawMessage) []string {
	var eq struct {
		Gas struct {
			MainFlow   *float64 `json:"main_flow"`
			FeederFlow *float64 `json:"feeder_flow"`
		} `json:"gas"`
		Feeder1 struct {
			Frequency *float64 `json:"frequency"`
		} `json:"feeder1"`
		Feeder2 struct {
			Frequency *float64 `json:"frequency"`
		} `json:"feeder2"`
		Deagg1 struct {
			DutyCycle *float64 `json:"duty_cycle"`
		} `json:"deagg1"`
		Deagg2 struct {
			DutyCycle *float64 `json:"duty_cycle"`
		} `json:"deagg2"`
	}
	if err := json.Unmarshal(raw, &eq); err != nil {
		return nil
	}

	var warnings []string
	check := func(name string, v *float64, lo, hi float64) {
		if v != nil && (*v < lo || *v > hi) {
			warnings = append(warnings, fmt.Sprintf("%s=%v outside [%v, %v]", name, *v, lo, hi))
		}
	}
	check("gas.main_flow", eq.Gas.MainFlow, 0, models.MainFlowMax)
	check("gas.feeder_flow", eq.Gas.FeederFlow, 0, models.FeederFlowMax)
	check("feeder1.frequency", eq.Feeder1.Frequency, models.FeederFrequencyMin, models.FeederFrequencyMax)
	check("feeder2.frequency", eq.Feeder2.Frequency, models.FeederFrequencyMin, models.FeederFrequencyMax)
	check("deagg1.duty_cycle", eq.Deagg1.DutyCycle, models.DutyCycleMin, models.DutyCycleMax)
	check("deagg2.duty_cycle", eq.Deagg2.DutyCycle, models.DutyCycleMin, models.DutyCycleMax)

	step := func(name string, v *float64) {
		if v != nil && math.Mod(*v, models.FeederFrequencyStep) != 0 {
			warnings = append(warnings, fmt.Sprintf("%s=%v not a multiple of %v", name, *v, models.FeederFrequencyStep))
		}
	}
	step("feeder1.frequency", eq.Feeder1.Frequency)
	step("feeder2.frequency", eq.Feeder2.Frequency)
	return warnings
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func describeType(raw json.RawMessage) string {
	if raw == nil {
		return "missing type"
	}
	return "type " + string(raw)
}
