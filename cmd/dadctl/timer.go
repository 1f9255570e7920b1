package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Krimson/dadguide/internal/app"
	"github.com/Krimson/dadguide/internal/contraction"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cba6f7"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387"))

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#89b4fa"))

	activeClockStyle = clockStyle.BorderForeground(lipgloss.Color("#f38ba8"))

	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("#1e1e2e")).
			Background(lipgloss.Color("#f38ba8"))
)

// contractionPort - то, что таймеру нужно от Manager
type contractionPort interface {
	ToggleContraction(ctx context.Context) (*app.ContractionResult, error)
	ContractionStatus() contraction.Status
}

type tickMsg time.Time

// toggledMsg приходит после старта или остановки замера
type toggledMsg struct {
	result *app.ContractionResult
	err    error
}

// timerModel - интерактивный таймер схваток с одной кнопкой
type timerModel struct {
	port    contractionPort
	status  contraction.Status
	warning string
	err     error
}

func newTimerModel(port contractionPort) timerModel {
	return timerModel{port: port, status: port.ContractionStatus()}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m timerModel) toggle() tea.Cmd {
	return func() tea.Msg {
		result, err := m.port.ToggleContraction(context.Background())
		return toggledMsg{result: result, err: err}
	}
}

func (m timerModel) Init() tea.Cmd { return tick() }

func (m timerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "enter", "s":
			return m, m.toggle()
		}

	case tickMsg:
		m.status = m.port.ContractionStatus()
		return m, tick()

	case toggledMsg:
		m.err = msg.err
		if msg.result != nil {
			m.status = msg.result.Status
			m.warning = msg.result.Warning
		}
	}
	return m, nil
}

func (m timerModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Contraction Timer"))
	sb.WriteString("\n\n")

	clock := clockStyle
	label := "press space to start"
	if m.status.Timing {
		clock = activeClockStyle
		label = "contraction in progress, press space to stop"
	}
	sb.WriteString(clock.Render(contraction.FormatTime(float64(m.status.Elapsed))))
	sb.WriteString("\n")
	sb.WriteString(hintStyle.Render(label))
	sb.WriteString("\n\n")

	if s := m.status.Summary; s != nil {
		fmt.Fprintf(&sb, "Avg duration %s   Avg frequency %s\n",
			contraction.FormatTime(s.AvgDuration), contraction.FormatTime(s.AvgFrequency))
	}
	for i, c := range m.status.Log {
		if i == 5 {
			fmt.Fprintf(&sb, "... %d more\n", len(m.status.Log)-i)
			break
		}
		started := time.UnixMilli(c.StartTime).Format("15:04")
		fmt.Fprintf(&sb, "%s  %s", started, contraction.FormatTime(float64(c.Duration)))
		if freq, ok := contraction.FrequencySince(m.status.Log, i); ok {
			fmt.Fprintf(&sb, "  every %s", contraction.FormatTime(float64(freq)))
		}
		sb.WriteString("\n")
	}

	if a := m.status.Alert; a != nil {
		sb.WriteString("\n")
		sb.WriteString(alertStyle.Render(a.Title))
		sb.WriteString("\n")
		sb.WriteString(a.Message)
		sb.WriteString("\n")
	}
	if m.warning != "" {
		sb.WriteString(warningStyle.Render("warning: " + m.warning))
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString(warningStyle.Render("error: " + m.err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(hintStyle.Render("space: start/stop  q: quit"))
	return sb.String()
}

func newTimerCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "timer",
		Short: "Interactive contraction timer",
		RunE: withSession(dbPath, func(_ context.Context, _ *cobra.Command, _ []string, m *app.Manager) error {
			_, err := tea.NewProgram(newTimerModel(m), tea.WithAltScreen()).Run()
			return err
		}),
	}
}
