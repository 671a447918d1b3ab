package service

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseCommand_MatchesBuilders(t *testing.T) {
	build := func(c Command, err error) Command {
		if err != nil {
			t.Fatalf("builder: %v", err)
		}
		return c
	}
	cmds := []Command{
		build(GasFlowCommand(GasMain, 35)),
		build(GasFlowCommand(GasFeeder, 4.5)),
		build(GasValveCommand(GasFeeder, true)),
		build(VacuumCommand(MechanicalPump, false)),
		build(FeederFrequencyCommand(1, 600)),
		build(FeederRunCommand(2, true)),
		build(FeederRunCommand(1, false)),
		ShutterCommand(true),
	}

	for _, want := range cmds {
		t.Run(want.Name, func(t *testing.T) {
			var body []byte
			if want.Body != nil {
				var err error
				if body, err = json.Marshal(want.Body); err != nil {
					t.Fatal(err)
				}
			}
			got, err := ParseCommand(want.Path, body)
			if err != nil {
				t.Fatalf("ParseCommand(%s): %v", want.Path, err)
			}
			if got.Name != want.Name || got.Path != want.Path {
				t.Fatalf("got %s %s, want %s %s", got.Name, got.Path, want.Name, want.Path)
			}
			for k, v := range want.Body {
				if got.Body[k] != v {
					t.Fatalf("body[%s]: got %v, want %v", k, got.Body[k], v)
				}
			}
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []struct {
		path string
		body string
		want error
	}{
		{"/equipment/gas", ``, ErrUnknownCommand},
		{"/motion/x/move", `{"value":1}`, ErrUnknownCommand},
		{"/equipment/feeder3/on", ``, ErrUnknownCommand},
		{"/equipment/feeder1/spin", ``, ErrUnknownCommand},
		{"/equipment/gas/main_flow", `{}`, ErrInvalidCommand},
		{"/equipment/gas/main_flow", `{"value":101}`, ErrInvalidCommand},
		{"/equipment/gas/main_flow", `{"value":"high"}`, ErrInvalidCommand},
		{"/equipment/gas/argon_valve", `{"open":true}`, ErrInvalidCommand},
		{"/equipment/vacuum/turbo_pump", `{"on":true}`, ErrInvalidCommand},
		{"/equipment/nozzle/shutter", `{"on":true}`, ErrInvalidCommand},
		{"/equipment/feeder2/frequency", `{"value":1300}`, ErrInvalidCommand},
	}
	for _, tc := range tests {
		_, err := ParseCommand(tc.path, []byte(tc.body))
		if !errors.Is(err, tc.want) {
			t.Errorf("ParseCommand(%s, %s): got %v, want %v", tc.path, tc.body, err, tc.want)
		}
	}
}
