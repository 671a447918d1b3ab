package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// walkNoNull fails on any JSON null found under v.
func walkNoNull(t *testing.T, path string, v any) {
	t.Helper()
	switch x := v.(type) {
	case nil:
		t.Errorf("%s is null", path)
	case map[string]any:
		for k, child := range x {
			walkNoNull(t, path+"."+k, child)
		}
	case []any:
		for _, child := range x {
			walkNoNull(t, path+"[]", child)
		}
	}
}

func TestDefaultState_EveryLeafPopulated(t *testing.T) {
	st := DefaultState()
	require.NotNil(t, st.Equipment)
	require.NotNil(t, st.Motion)
	require.NotNil(t, st.Safety)

	b, err := json.Marshal(st)
	require.NoError(t, err)

	var tree map[string]any
	require.NoError(t, json.Unmarshal(b, &tree))
	walkNoNull(t, "state", tree)

	for _, key := range Subtrees {
		assert.Contains(t, tree, key)
	}
	eq := tree["equipment"].(map[string]any)
	for _, key := range []string{"gas", "vacuum", "feeder1", "feeder2", "deagg1", "deagg2", "nozzle", "pressures"} {
		assert.Contains(t, eq, key)
	}
}

func TestDefaultState_Values(t *testing.T) {
	st := DefaultState()

	assert.Equal(t, 1, st.Equipment.Nozzle.ActiveNozzle)
	assert.False(t, st.Equipment.Nozzle.ShutterOpen)
	assert.Equal(t, FeederFrequencyMin, st.Equipment.Feeder1.Frequency)
	assert.Equal(t, FeederFrequencyMin, st.Equipment.Feeder2.Frequency)
	assert.Equal(t, DutyCycleMax, st.Equipment.Deagg1.DutyCycle)
	assert.Equal(t, DutyCycleMax, st.Equipment.Deagg2.DutyCycle)
	assert.True(t, st.Safety.Safety.InterlocksOK)
	assert.True(t, st.Safety.Safety.LimitsOK)
	assert.False(t, st.Safety.Safety.EmergencyStop)
	assert.False(t, st.Motion.Status.ModuleReady)
	assert.Nil(t, st.Motion.Parameters)
}

func TestDefaultState_FreshSubtrees(t *testing.T) {
	a, b := DefaultState(), DefaultState()
	assert.NotSame(t, a.Equipment, b.Equipment)
	assert.NotSame(t, a.Motion, b.Motion)
	assert.NotSame(t, a.Safety, b.Safety)
}

func TestMotionClone_DeepCopiesParameters(t *testing.T) {
	m := &Motion{Parameters: &MotionParameters{X: &AxisParameters{Velocity: 10}}}
	c := m.Clone()

	c.Parameters.X.Velocity = 20
	assert.Equal(t, 10.0, m.Parameters.X.Velocity)
	assert.NotSame(t, m.Parameters, c.Parameters)
	assert.Nil(t, c.Parameters.Y)
}
