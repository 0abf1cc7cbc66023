// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/viscam/pkg/visca"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	positionInterval = time.Second // Position readout refresh
	commandTimeout   = 3 * time.Second
	stopTimeout      = 2 * time.Second
	maxLogEntries    = 100
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// eventLogEntry is one line of the event log
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// controlKeyMap binds the joystick keys
type controlKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	UpLeft    key.Binding
	UpRight   key.Binding
	DownLeft  key.Binding
	DownRight key.Binding
	Stop      key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	FocusFar  key.Binding
	FocusNear key.Binding
	LensStop  key.Binding
	Faster    key.Binding
	Slower    key.Binding
	Home      key.Binding
	Goto      key.Binding
	Preset    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultControlKeys() controlKeyMap {
	return controlKeyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "tilt up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "tilt down")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan left")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan right")),
		UpLeft:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "up-left")),
		UpRight:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "up-right")),
		DownLeft:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "down-left")),
		DownRight: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "down-right")),
		Stop:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "stop")),
		ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
		FocusFar:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "focus far")),
		FocusNear: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "focus near")),
		LensStop:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop zoom/focus")),
		Faster:    key.NewBinding(key.WithKeys(">", "."), key.WithHelp(">", "faster")),
		Slower:    key.NewBinding(key.WithKeys("<", ","), key.WithHelp("<", "slower")),
		Home:      key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "home")),
		Goto:      key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "goto")),
		Preset:    key.NewBinding(key.WithKeys("0", "1", "2", "3", "4", "5"), key.WithHelp("0-5", "recall preset")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k controlKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Stop, k.ZoomIn, k.ZoomOut, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k controlKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Stop},
		{k.UpLeft, k.UpRight, k.DownLeft, k.DownRight},
		{k.ZoomIn, k.ZoomOut, k.FocusFar, k.FocusNear, k.LensStop},
		{k.Faster, k.Slower, k.Home, k.Goto, k.Preset},
		{k.Help, k.Quit},
	}
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	ctx      context.Context
	cam      *visca.Camera
	stats    *visca.Statistics
	connInfo string

	keys      controlKeyMap
	help      help.Model
	gotoInput textinput.Model
	entering  bool

	// Head state
	motion      visca.Motion
	pan, tilt   float64
	hasPosition bool
	polling     bool
	readFailing bool

	events []eventLogEntry

	// UI state
	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type positionMsg struct {
	pan, tilt float64
	err       error
}

type commandDoneMsg struct {
	what string
	err  error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(ctx context.Context, s *Session) controlModel {
	ti := textinput.New()
	ti.Placeholder = "pan,tilt"
	ti.CharLimit = 16
	ti.Width = 16

	return controlModel{
		ctx:       ctx,
		cam:       s.Camera,
		stats:     s.Stats,
		connInfo:  s.Describe(),
		keys:      defaultControlKeys(),
		help:      help.New(),
		gotoInput: ti,
		events:    make([]eventLogEntry, 0),
		width:     80,
		height:    24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return tea.Batch(controlTickCmd(), m.fetchPosition())
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(positionInterval, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.entering {
			return m.handleGotoInput(msg)
		}
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case controlTickMsg:
		if m.polling {
			return m, controlTickCmd()
		}
		m.polling = true
		return m, tea.Batch(controlTickCmd(), m.fetchPosition())

	case positionMsg:
		m.polling = false
		if msg.err != nil {
			// log the first failure of a run only
			if !m.readFailing {
				m.addLogEntry(fmt.Sprintf("position: %s", describeError(msg.err)), true)
			}
			m.readFailing = true
			break
		}
		m.readFailing = false
		m.pan, m.tilt, m.hasPosition = msg.pan, msg.tilt, true

	case commandDoneMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s: %s", msg.what, describeError(msg.err)), true)
		} else {
			m.addLogEntry(msg.what, false)
		}
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, k.Up):
		return m.move(visca.MoveUp)
	case key.Matches(msg, k.Down):
		return m.move(visca.MoveDown)
	case key.Matches(msg, k.Left):
		return m.move(visca.MoveLeft)
	case key.Matches(msg, k.Right):
		return m.move(visca.MoveRight)
	case key.Matches(msg, k.UpLeft):
		return m.move(visca.MoveUpLeft)
	case key.Matches(msg, k.UpRight):
		return m.move(visca.MoveUpRight)
	case key.Matches(msg, k.DownLeft):
		return m.move(visca.MoveDownLeft)
	case key.Matches(msg, k.DownRight):
		return m.move(visca.MoveDownRight)
	case key.Matches(msg, k.Stop):
		return m.move(visca.MoveStop)

	case key.Matches(msg, k.ZoomIn):
		return m, m.run("zoom in", func(ctx context.Context) error {
			return m.cam.Zoom(ctx, visca.DriveTele, visca.StandardSpeed)
		})
	case key.Matches(msg, k.ZoomOut):
		return m, m.run("zoom out", func(ctx context.Context) error {
			return m.cam.Zoom(ctx, visca.DriveWide, visca.StandardSpeed)
		})
	case key.Matches(msg, k.FocusFar):
		return m, m.run("focus far", func(ctx context.Context) error {
			return m.cam.Focus(ctx, visca.DriveFar, visca.StandardSpeed)
		})
	case key.Matches(msg, k.FocusNear):
		return m, m.run("focus near", func(ctx context.Context) error {
			return m.cam.Focus(ctx, visca.DriveNear, visca.StandardSpeed)
		})
	case key.Matches(msg, k.LensStop):
		return m, m.run("zoom/focus stop", func(ctx context.Context) error {
			if err := m.cam.Zoom(ctx, visca.DriveStop, 0); err != nil {
				return err
			}
			return m.cam.Focus(ctx, visca.DriveStop, 0)
		})

	case key.Matches(msg, k.Faster):
		return m.changeSpeed(1)
	case key.Matches(msg, k.Slower):
		return m.changeSpeed(-1)

	case key.Matches(msg, k.Home):
		return m, m.runLong("home", func(ctx context.Context) error {
			return m.cam.Do(ctx, "home")
		})
	case key.Matches(msg, k.Goto):
		m.entering = true
		m.gotoInput.SetValue("")
		return m, m.gotoInput.Focus()
	case key.Matches(msg, k.Preset):
		slot := int(msg.String()[0] - '0')
		return m, m.runLong(fmt.Sprintf("recall preset %d", slot), func(ctx context.Context) error {
			return m.cam.Memory(ctx, visca.MemoryRecall, slot)
		})
	}
	return m, nil
}

func (m controlModel) handleGotoInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.entering = false
		m.gotoInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.entering = false
		m.gotoInput.Blur()
		pan, tilt, err := parsePanTilt(m.gotoInput.Value())
		if err != nil {
			m.addLogEntry(err.Error(), true)
			return m, nil
		}
		return m, m.runLong(fmt.Sprintf("goto %.1f,%.1f", pan, tilt), func(ctx context.Context) error {
			return m.cam.GotoPanTilt(ctx, pan, tilt)
		})
	}

	var cmd tea.Cmd
	m.gotoInput, cmd = m.gotoInput.Update(msg)
	return m, cmd
}

func (m controlModel) move(motion visca.Motion) (tea.Model, tea.Cmd) {
	m.motion = motion
	return m, m.run("move "+motion.String(), func(ctx context.Context) error {
		return m.cam.Move(ctx, motion)
	})
}

// changeSpeed steps both drive speeds, keeping them inside the limits
func (m controlModel) changeSpeed(delta int) (tea.Model, tea.Cmd) {
	s := m.cam.Session()
	pan := max(visca.MinSpeed, min(visca.MaxPanSpeed, int(s.PanSpeed)+delta))
	tilt := max(visca.MinSpeed, min(visca.MaxTiltSpeed, int(s.TiltSpeed)+delta))
	if err := m.cam.SetSpeed(pan, tilt); err != nil {
		m.addLogEntry(err.Error(), true)
		return m, nil
	}
	m.addLogEntry(fmt.Sprintf("speed pan %d, tilt %d", pan, tilt), false)

	// a running drive picks up the new speed when it is re-issued
	if m.motion != visca.MoveStop {
		return m.move(m.motion)
	}
	return m, nil
}

// run executes a camera call off the UI goroutine
func (m controlModel) run(what string, fn func(ctx context.Context) error) tea.Cmd {
	return m.runWithin(what, commandTimeout, fn)
}

// runLong is run for commands that complete only when the head stops moving
func (m controlModel) runLong(what string, fn func(ctx context.Context) error) tea.Cmd {
	return m.runWithin(what, cfg.Completion+commandTimeout, fn)
}

func (m controlModel) runWithin(what string, timeout time.Duration, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return commandDoneMsg{what: what, err: fn(ctx)}
	}
}

func (m controlModel) fetchPosition() tea.Cmd {
	ctx, cam := m.ctx, m.cam
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		pan, tilt, err := cam.PanTilt(ctx)
		return positionMsg{pan: pan, tilt: tilt, err: err}
	}
}

func (m controlModel) View() string {
	if m.quitting {
		return "Stopping camera...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	s.WriteString(titleStyle.Render("VISCAM CONTROL"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s", m.connInfo)))
	s.WriteString("\n\n")

	joystick := boxStyle.Render(renderJoystick(m.motion, statsValueStyle, headerStyle))
	head := boxStyle.Width(m.width - lipgloss.Width(joystick) - 5).
		Render(m.renderHead(statsLabelStyle, statsValueStyle, warningStyle))
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, joystick, " ", head))
	s.WriteString("\n")

	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n")

	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, errorStyle, headerStyle, boxStyle))
	s.WriteString("\n")

	s.WriteString(m.help.View(m.keys))
	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

// joystick cells, row by row
var joystickLayout = [3][3]visca.Motion{
	{visca.MoveUpLeft, visca.MoveUp, visca.MoveUpRight},
	{visca.MoveLeft, visca.MoveStop, visca.MoveRight},
	{visca.MoveDownLeft, visca.MoveDown, visca.MoveDownRight},
}

var joystickGlyphs = map[visca.Motion]string{
	visca.MoveUpLeft:    "↖",
	visca.MoveUp:        "↑",
	visca.MoveUpRight:   "↗",
	visca.MoveLeft:      "←",
	visca.MoveStop:      "■",
	visca.MoveRight:     "→",
	visca.MoveDownLeft:  "↙",
	visca.MoveDown:      "↓",
	visca.MoveDownRight: "↘",
}

func renderJoystick(active visca.Motion, activeStyle, idleStyle lipgloss.Style) string {
	var s strings.Builder
	for r, row := range joystickLayout {
		for c, motion := range row {
			if c > 0 {
				s.WriteString(" ")
			}
			style := idleStyle
			if motion == active {
				style = activeStyle
			}
			s.WriteString(style.Render(joystickGlyphs[motion]))
		}
		if r < len(joystickLayout)-1 {
			s.WriteString("\n")
		}
	}
	return s.String()
}

func (m controlModel) renderHead(labelStyle, valueStyle, warningStyle lipgloss.Style) string {
	var s strings.Builder

	s.WriteString(labelStyle.Render("Position: "))
	if m.hasPosition {
		s.WriteString(valueStyle.Render(fmt.Sprintf("pan %6.1f°  tilt %6.1f°", m.pan, m.tilt)))
	} else {
		s.WriteString(warningStyle.Render("unknown"))
	}
	s.WriteString("\n")

	speed := m.cam.Session()
	s.WriteString(labelStyle.Render("Speed:    "))
	s.WriteString(valueStyle.Render(fmt.Sprintf("pan %d/%d  tilt %d/%d",
		speed.PanSpeed, visca.MaxPanSpeed, speed.TiltSpeed, visca.MaxTiltSpeed)))
	s.WriteString("\n")

	s.WriteString(labelStyle.Render("Goto:     "))
	if m.entering {
		s.WriteString(m.gotoInput.View())
	} else {
		s.WriteString(warningStyle.Render("press g"))
	}
	return s.String()
}

func (m controlModel) renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle lipgloss.Style) string {
	st := m.stats.Snapshot()
	total := st.Commands + st.Queries

	failStyle := valueStyle
	if st.Failed > 0 {
		failStyle = errorStyle
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("Exchanges:"), valueStyle.Render(fmt.Sprintf("%d", total)),
		labelStyle.Render("Failed:"), failStyle.Render(fmt.Sprintf("%d", st.Failed)),
		labelStyle.Render("Retries:"), valueStyle.Render(fmt.Sprintf("%d", st.Retries)),
		labelStyle.Render("Latency:"), valueStyle.Render(st.MeanLatency.Round(time.Millisecond).String()),
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f/s", st.ExchangeRate)),
	)
	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(labelStyle, warningStyle, errorStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	// Leave room for the header, panels and help footer
	logHeight := max(3, m.height-18)
	startIdx := max(0, len(m.events)-logHeight)

	if len(m.events) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.events); i++ {
			entry := m.events[i]
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
			if i < len(m.events)-1 {
				s.WriteString("\n")
			}
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.events = append(m.events, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	if len(m.events) > maxLogEntries {
		m.events = m.events[len(m.events)-maxLogEntries:]
	}
}

// parsePanTilt parses "PAN,TILT" in degrees
func parsePanTilt(s string) (float64, float64, error) {
	ps, ts, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("goto wants PAN,TILT, got %q", s)
	}
	pan, err := parseAngle(strings.TrimSpace(ps))
	if err != nil {
		return 0, 0, err
	}
	tilt, err := parseAngle(strings.TrimSpace(ts))
	if err != nil {
		return 0, 0, err
	}
	return pan, tilt, nil
}
