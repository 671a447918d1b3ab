// Package tui renders the synchronized state in a terminal. It is a plain
// hub consumer: it never talks to the telemetry connection directly.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deposition_dashboard/internal/connection"
	"deposition_dashboard/internal/hub"
	"deposition_dashboard/internal/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type viewMsg struct{ view hub.View }

// Model is the bubbletea model of the dashboard.
type Model struct {
	view    hub.View
	updates <-chan hub.View
	width   int
}

// NewModel starts from initial and follows updates until it is closed.
func NewModel(initial hub.View, updates <-chan hub.View) Model {
	return Model{view: initial, updates: updates}
}

// Run shows the dashboard until the user quits or ctx is canceled.
func Run(ctx context.Context, h *hub.Hub, opts ...tea.ProgramOption) error {
	initial, sub := hub.Subscribe(h, hub.SelectView)
	defer sub.Unsubscribe()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(NewModel(initial, sub.C()), opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return listenForView(m.updates)
}

// listenForView blocks until the hub delivers a new view.
func listenForView(ch <-chan hub.View) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return viewMsg{view: v}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case viewMsg:
		m.view = msg.view
		return m, listenForView(m.updates)
	}
	return m, nil
}

func (m Model) View() string {
	st := m.view.State
	if st == nil {
		st = models.DefaultState()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(equipmentPanel(st.Equipment)),
		lipgloss.JoinVertical(lipgloss.Left,
			panelStyle.Render(motionPanel(st.Motion)),
			panelStyle.Render(safetyPanel(st.Safety)),
		),
	)
	out := lipgloss.JoinVertical(lipgloss.Left, m.header(), body, helpStyle.Render("q: quit"))
	if m.width > 0 {
		out = lipgloss.NewStyle().MaxWidth(m.width).Render(out)
	}
	return out
}

func (m Model) header() string {
	color := colorFault
	switch m.view.Status {
	case connection.Connected:
		color = colorOK
	case connection.Connecting, connection.Reconnecting:
		color = colorWarn
	}
	line := titleStyle.Render("Deposition") + badgeStyle.Background(color).Render(m.view.Status.String())
	if m.view.Error != "" {
		line += " " + errorStyle.Render(m.view.Error)
	}
	return line
}

func equipmentPanel(eq *models.Equipment) string {
	g, v, p := eq.Gas, eq.Vacuum, eq.Pressures
	return section("Equipment",
		row("main flow", fmt.Sprintf("%.1f / %.1f SLPM %s", g.MainFlowMeasured, g.MainFlow, onOff(g.MainValve, "open", "closed"))),
		row("feeder flow", fmt.Sprintf("%.1f / %.1f SLPM %s", g.FeederFlowMeasured, g.FeederFlow, onOff(g.FeederValve, "open", "closed"))),
		row("chamber", fmt.Sprintf("%.3f torr", v.ChamberPressure)),
		row("pumps", fmt.Sprintf("gate %s  mech %s  booster %s",
			onOff(v.GateValve, "open", "closed"), onOff(v.MechPump, "on", "off"), onOff(v.BoosterPump, "on", "off"))),
		row("feeder 1", fmt.Sprintf("%.0f Hz %s", eq.Feeder1.Frequency, onOff(eq.Feeder1.Running, "running", "stopped"))),
		row("feeder 2", fmt.Sprintf("%.0f Hz %s", eq.Feeder2.Frequency, onOff(eq.Feeder2.Running, "running", "stopped"))),
		row("deagglomerators", fmt.Sprintf("%.0f%%  %.0f%%", eq.Deagg1.DutyCycle, eq.Deagg2.DutyCycle)),
		row("nozzle", fmt.Sprintf("#%d shutter %s", eq.Nozzle.ActiveNozzle, onOff(eq.Nozzle.ShutterOpen, "open", "closed"))),
		row("pressures", fmt.Sprintf("noz %.1f  reg %.1f  sup %.1f  fdr %.1f", p.Nozzle, p.Regulator, p.MainSupply, p.Feeder)),
	)
}

func motionPanel(mo *models.Motion) string {
	s := mo.Status
	return section("Motion",
		row("position", fmt.Sprintf("X %.2f  Y %.2f  Z %.2f mm", mo.Position.X, mo.Position.Y, mo.Position.Z)),
		row("x axis", axis(s.XAxis)),
		row("y axis", axis(s.YAxis)),
		row("z axis", axis(s.ZAxis)),
		row("module", flag(s.ModuleReady)),
	)
}

func safetyPanel(sf *models.Safety) string {
	return section("Safety",
		row("plc", flag(sf.Hardware.PLCConnected)),
		row("motion enabled", flag(sf.Hardware.MotionEnabled)),
		row("position valid", flag(sf.Hardware.PositionValid)),
		row("gas flow stable", flag(sf.Process.GasFlowStable)),
		row("process ready", flag(sf.Process.ProcessReady)),
		row("interlocks", flag(sf.Safety.InterlocksOK)),
		row("limits", flag(sf.Safety.LimitsOK)),
		row("e-stop", onOff(sf.Safety.EmergencyStop,
			lipgloss.NewStyle().Foreground(colorFault).Render("ACTIVE"), "clear")),
	)
}

func axis(a models.AxisState) string {
	var tags []string
	if a.Homed {
		tags = append(tags, "homed")
	}
	if a.Moving {
		tags = append(tags, "moving")
	}
	if a.InPosition {
		tags = append(tags, "in position")
	}
	if a.Error {
		tags = append(tags, errorStyle.Render("error"))
	}
	return fmt.Sprintf("%.2f mm %s", a.Position, strings.Join(tags, ", "))
}

func section(title string, rows ...string) string {
	return titleStyle.Render(title) + "\n" + strings.Join(rows, "\n")
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func flag(ok bool) string {
	if ok {
		return lipgloss.NewStyle().Foreground(colorOK).Render("ok")
	}
	return lipgloss.NewStyle().Foreground(colorFault).Render("no")
}

func onOff(b bool, on, off string) string {
	if b {
		return on
	}
	return off
}
