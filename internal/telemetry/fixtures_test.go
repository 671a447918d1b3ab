package telemetry

const (
	equipmentJSON = `{
		"gas": {"main_flow": 40, "main_flow_measured": 39.5, "feeder_flow": 5, "feeder_flow_measured": 4.9, "main_valve": true, "feeder_valve": false},
		"vacuum": {"chamber_pressure": 0.25, "gate_valve": true, "mech_pump": true, "booster_pump": false, "vent_valve": false},
		"feeder1": {"running": true, "frequency": 600},
		"feeder2": {"running": false, "frequency": 200},
		"deagg1": {"duty_cycle": 25},
		"deagg2": {"duty_cycle": 35},
		"nozzle": {"active_nozzle": 1, "shutter_open": false},
		"pressures": {"chamber": 0.25, "feeder": 12, "main_supply": 80, "nozzle": 45, "regulator": 60}
	}`

	motionJSON = `{
		"position": {"x": 10.5, "y": -3, "z": 42},
		"status": {
			"x_axis": {"position": 10.5, "in_position": true, "moving": false, "error": false, "homed": true},
			"y_axis": {"position": -3, "in_position": true, "moving": false, "error": false, "homed": true},
			"z_axis": {"position": 42, "in_position": false, "moving": true, "error": false, "homed": true},
			"module_ready": true
		}
	}`

	safetyJSON = `{
		"hardware": {"motion_enabled": true, "plc_connected": true, "position_valid": true},
		"process": {"gas_flow_stable": true, "powder_feed_active": false, "process_ready": true},
		"safety": {"emergency_stop": false, "interlocks_ok": true, "limits_ok": true}
	}`
)

func stateUpdateFrame(data string) []byte {
	return []byte(`{"type":"state_update","data":` + data + `}`)
}
