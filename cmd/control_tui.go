// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/monsoon/pkg/appliance"
	"github.com/Thermoquad/monsoon/pkg/link"
	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const temperatureStep = 0.5

// Focus states
const (
	focusSettingList = iota
	focusValueInput
	focusButton
	focusCount
)

var settingHints = map[string]string{
	appliance.ChannelOperationalMode:   "AUTO | COOL | DRY | HEAT | FAN_ONLY",
	appliance.ChannelTargetTemperature: "17 to 30 in 0.5 steps",
	appliance.ChannelFanSpeed:          "SILENT | LOW | MEDIUM | HIGH | AUTO | OFF",
	appliance.ChannelSwingMode:         "OFF | VERTICAL | HORIZONTAL | BOTH",
}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// commander is the part of appliance.Handler the TUI drives.
type commander interface {
	HandleCommand(ctx context.Context, channel string, value appliance.Value) error
}

// setting is one commandable channel
type setting struct {
	channel string
	value   string
}

// Implement list.Item interface
func (s setting) Title() string { return s.channel }
func (s setting) Description() string {
	if s.value == "" {
		return "?"
	}
	return s.value
}
func (s setting) FilterValue() string { return s.channel }

func (s setting) hint() string {
	if h, ok := settingHints[s.channel]; ok {
		return h
	}
	return "ON | OFF"
}

type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	ctx      context.Context
	handler  commander
	connInfo string

	// Appliance state
	initialized bool
	status      link.Status
	values      map[string]string
	settings    []setting
	settingList list.Model

	// Command outcomes
	stats         *link.Statistics
	pending       int
	eventLog      []eventLogEntry
	maxLogEntries int

	// Control
	valueInput   textinput.Model
	spinner      spinner.Model
	focusedField int

	// UI state
	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

// controlBatchMsg carries the handler events collected since the last batch
type controlBatchMsg struct {
	statuses []link.Status
	updates  []appliance.Update
}

type initializedMsg struct {
	err error
}

type commandResultMsg struct {
	channel string
	value   appliance.Value
	err     error
	elapsed time.Duration
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(ctx context.Context, h commander, connInfo string) controlModel {
	ti := textinput.New()
	ti.Placeholder = "value"
	ti.CharLimit = 12
	ti.Width = 14

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	var settings []setting
	for _, ch := range appliance.Channels() {
		if ch == appliance.ChannelPromptTone {
			continue
		}
		settings = append(settings, setting{channel: ch})
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	settingList := list.New([]list.Item{}, delegate, 30, 10)
	settingList.Title = "Settings"
	settingList.SetShowStatusBar(false)
	settingList.SetShowHelp(false)
	settingList.SetFilteringEnabled(false)

	m := controlModel{
		ctx:           ctx,
		handler:       h,
		connInfo:      connInfo,
		values:        make(map[string]string),
		settings:      settings,
		settingList:   settingList,
		stats:         link.NewStatistics(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		valueInput:    ti,
		spinner:       sp,
		focusedField:  focusSettingList,
		width:         80,
		height:        24,
	}
	m.updateSettingList()
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return tea.Batch(controlTickCmd(), m.spinner.Tick)
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.settingList, _ = m.settingList.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		m.stats.CalculateRates()
		return m, controlTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case initializedMsg:
		m.initialized = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Connection failed: %v (retrying every poll)", msg.err), true)
		} else {
			m.addLogEntry("Connected", false)
		}

	case controlBatchMsg:
		for _, s := range msg.statuses {
			m.status = s
			m.addLogEntry("Status: "+s.String(), s.Kind == link.StatusOffline)
		}
		for _, u := range msg.updates {
			m.values[u.Channel] = u.Value.String()
		}
		if len(msg.updates) > 0 {
			m.updateSettingList()
		}

	case commandResultMsg:
		if m.pending > 0 {
			m.pending--
		}
		m.stats.Update(msg.err, nil)
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Failed to set %s to %s: %v", msg.channel, msg.value, msg.err), true)
		} else if msg.value.Kind == appliance.KindRefresh {
			m.addLogEntry(fmt.Sprintf("Refreshed in %v", msg.elapsed.Round(time.Millisecond)), false)
		} else {
			m.addLogEntry(fmt.Sprintf("Set %s to %s in %v", msg.channel, msg.value, msg.elapsed.Round(time.Millisecond)), false)
		}
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		return m.cycleFocus(1), nil

	case "shift+tab":
		return m.cycleFocus(-1), nil

	case "enter":
		return m.handleEnter()
	}

	// Typing goes to the input while it has focus
	if m.focusedField == focusValueInput {
		var cmd tea.Cmd
		m.valueInput, cmd = m.valueInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "r":
		return m.sendCommand(appliance.ChannelPower, appliance.Refresh())

	case "p":
		return m.sendCommand(appliance.ChannelPower, appliance.OnOff(m.values[appliance.ChannelPower] != "ON"))

	case "+", "=":
		return m.nudgeTemperature(temperatureStep)

	case "-":
		return m.nudgeTemperature(-temperatureStep)
	}

	if m.focusedField == focusSettingList {
		var cmd tea.Cmd
		m.settingList, cmd = m.settingList.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m controlModel) cycleFocus(delta int) controlModel {
	m.focusedField = (m.focusedField + delta + focusCount) % focusCount

	if m.focusedField == focusValueInput {
		m.valueInput.Focus()
	} else {
		m.valueInput.Blur()
	}

	return m
}

func (m controlModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.focusedField == focusSettingList {
		return m.cycleFocus(1), nil
	}

	selected := m.getSelectedSetting()
	if selected == nil {
		return m, nil
	}

	raw := strings.TrimSpace(m.valueInput.Value())
	if raw == "" {
		m.addLogEntry(fmt.Sprintf("Enter a value for %s (%s)", selected.channel, selected.hint()), true)
		return m, nil
	}
	m.valueInput.SetValue("")

	return m.sendCommand(selected.channel, appliance.ParseValue(raw))
}

// sendCommand runs the command off the UI goroutine and reports back with
// a commandResultMsg.
func (m controlModel) sendCommand(channel string, value appliance.Value) (tea.Model, tea.Cmd) {
	if !m.initialized {
		m.addLogEntry("Cannot send command: still connecting", true)
		return m, nil
	}
	if err := appliance.Accepts(channel, value); err != nil {
		m.addLogEntry(fmt.Sprintf("Not sent: %v", err), true)
		return m, nil
	}

	m.pending++
	h, ctx := m.handler, m.ctx
	return m, func() tea.Msg {
		start := time.Now()
		err := h.HandleCommand(ctx, channel, value)
		return commandResultMsg{channel: channel, value: value, err: err, elapsed: time.Since(start)}
	}
}

func (m controlModel) nudgeTemperature(delta float64) (tea.Model, tea.Cmd) {
	current, err := strconv.ParseFloat(m.values[appliance.ChannelTargetTemperature], 64)
	if err != nil {
		m.addLogEntry("Target temperature not known yet", true)
		return m, nil
	}
	target := midea.ClampTargetTemperature(current + delta)
	return m.sendCommand(appliance.ChannelTargetTemperature, appliance.Number(target))
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
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

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	buttonStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12")).
		Padding(0, 2)

	focusedButtonStyle := buttonStyle.
		Background(lipgloss.Color("10"))

	// Header
	s.WriteString(titleStyle.Render("MONSOON CONTROL"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch p=power +/-=temp r=refresh", m.connInfo)))
	s.WriteString("\n")

	var statusText string
	switch m.status.Kind {
	case link.StatusOnline:
		statusText = statsValueStyle.Render(m.status.String())
	case link.StatusOffline:
		statusText = errorStyle.Render(m.status.String())
	default:
		statusText = warningStyle.Render(m.status.String())
	}
	s.WriteString(fmt.Sprintf(" %s %s", statsLabelStyle.Render("Status:"), statusText))
	if !m.initialized || m.pending > 0 {
		s.WriteString(" " + m.spinner.View())
	}
	s.WriteString("\n\n")

	// Layout: left panel (settings) | right panel (control)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusSettingList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	settingPanel := listStyle.Render(m.settingList.View())

	controlContent := m.renderControlPanel(statsLabelStyle, statsValueStyle, headerStyle, buttonStyle, focusedButtonStyle)
	controlPanel := boxStyle.Width(rightWidth).Render(controlContent)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, settingPanel, " ", controlPanel))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	s.WriteString(m.renderTelemetry(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderControlPanel(statsLabelStyle, statsValueStyle, headerStyle, buttonStyle, focusedButtonStyle lipgloss.Style) string {
	var s strings.Builder

	selected := m.getSelectedSetting()
	if selected == nil {
		s.WriteString(headerStyle.Render("No setting selected"))
		return s.String()
	}

	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Setting:"), selected.channel))
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Current:"), statsValueStyle.Render(selected.Description())))
	s.WriteString(headerStyle.Render(selected.hint()))
	s.WriteString("\n\n")

	s.WriteString(statsLabelStyle.Render("New value: "))
	if m.focusedField == focusValueInput {
		s.WriteString(m.valueInput.View())
	} else {
		val := m.valueInput.Value()
		if val == "" {
			val = m.valueInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	s.WriteString("\n\n")

	btnText := "[ Apply ]"
	if m.focusedField == focusButton {
		s.WriteString(focusedButtonStyle.Render(btnText))
	} else {
		s.WriteString(buttonStyle.Render(btnText))
	}

	return s.String()
}

func (m controlModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	var okPercent, errorPercent float64
	if m.stats.TotalExchanges > 0 {
		okPercent = float64(m.stats.ValidResponses) * 100.0 / float64(m.stats.TotalExchanges)
		errorPercent = float64(m.stats.Errors()) * 100.0 / float64(m.stats.TotalExchanges)
	}

	errorText := statsValueStyle.Render("0.0%")
	if errorPercent > 0 {
		errorText = errorStyle.Render(fmt.Sprintf("%.1f%%", errorPercent))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Commands:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalExchanges)),
		statsLabelStyle.Render("OK:"), statsValueStyle.Render(fmt.Sprintf("%.1f%%", okPercent)),
		statsLabelStyle.Render("Errors:"), errorText,
		statsLabelStyle.Render("Timeouts:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Timeouts)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderTelemetry(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	var content strings.Builder
	content.WriteString(statsLabelStyle.Render("TELEMETRY"))
	content.WriteString(" | ")

	if len(m.values) == 0 {
		content.WriteString("No status received")
		return boxStyle.Width(m.width - 4).Render(content.String())
	}

	fields := []struct {
		label   string
		channel string
		unit    string
	}{
		{"Indoor:", appliance.ChannelIndoorTemperature, "C"},
		{"Outdoor:", appliance.ChannelOutdoorTemperature, "C"},
		{"Humidity:", appliance.ChannelHumidity, "%"},
		{"Target:", appliance.ChannelTargetTemperature, "C"},
		{"Mode:", appliance.ChannelOperationalMode, ""},
		{"Fan:", appliance.ChannelFanSpeed, ""},
	}
	for _, f := range fields {
		content.WriteString(fmt.Sprintf("%s %s  ",
			statsLabelStyle.Render(f.label),
			statsValueStyle.Render(m.values[f.channel]+f.unit)))
	}

	if m.values[appliance.ChannelApplianceError] == "ON" {
		content.WriteString(errorStyle.Render("APPLIANCE ERROR"))
	}

	return boxStyle.Width(m.width - 4).Render(content.String())
}

func (m controlModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	logHeight := min(8, len(m.eventLog))
	startIdx := len(m.eventLog) - logHeight

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m *controlModel) getSelectedSetting() *setting {
	idx := m.settingList.Index()
	if idx < 0 || idx >= len(m.settings) {
		return nil
	}
	return &m.settings[idx]
}

func (m *controlModel) updateSettingList() {
	items := make([]list.Item, len(m.settings))
	for i := range m.settings {
		m.settings[i].value = m.values[m.settings[i].channel]
		items[i] = m.settings[i]
	}
	m.settingList.SetItems(items)
}

func (m *controlModel) updateListSize() {
	listHeight := max(m.height/3, 5)
	m.settingList.SetSize(28, listHeight)
}
