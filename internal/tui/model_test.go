package tui

import (
	"strings"
	"testing"

	"deposition_dashboard/internal/connection"
	"deposition_dashboard/internal/hub"
	"deposition_dashboard/internal/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_RendersInitialView(t *testing.T) {
	m := NewModel(hub.View{State: models.DefaultState(), Status: connection.Reconnecting, Error: "telemetry connection closed"}, nil)
	out := m.View()

	assert.Contains(t, out, "reconnecting")
	assert.Contains(t, out, "telemetry connection closed")
	assert.Contains(t, out, "Equipment")
	assert.Contains(t, out, "Motion")
	assert.Contains(t, out, "Safety")
	assert.Nil(t, m.Init(), "no updates channel means nothing to listen for")
}

func TestModel_FollowsHub(t *testing.T) {
	h := hub.New(hub.View{State: models.DefaultState(), Status: connection.Connecting})
	initial, sub := hub.Subscribe(h, hub.SelectView)
	defer sub.Unsubscribe()

	m := NewModel(initial, sub.C())
	cmd := m.Init()
	require.NotNil(t, cmd)

	st := models.DefaultState()
	eq := st.Equipment.Clone()
	eq.Vacuum.ChamberPressure = 0.123
	st.Equipment = eq
	h.Publish(hub.View{State: st, Status: connection.Connected, Connected: true})

	msg := cmd()
	require.IsType(t, viewMsg{}, msg)

	next, cmd := m.Update(msg)
	require.NotNil(t, cmd, "model keeps listening after an update")
	out := next.View()
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "0.123 torr")
}

func TestModel_ClosedChannelStopsListening(t *testing.T) {
	ch := make(chan hub.View)
	close(ch)
	m := NewModel(hub.View{}, ch)
	assert.Nil(t, m.Init()())
	assert.NotPanics(t, func() { _ = m.View() }, "nil state renders defaults")
}

func TestModel_Quit(t *testing.T) {
	m := NewModel(hub.View{State: models.DefaultState()}, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	next, cmd := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.Nil(t, cmd)
	for _, line := range strings.Split(next.View(), "\n") {
		assert.LessOrEqual(t, len([]rune(stripANSI(line))), 40)
	}
}

// stripANSI drops CSI escape sequences.
func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			i += 2
			for i < len(s) && (s[i] < 0x40 || s[i] > 0x7e) {
				i++
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
