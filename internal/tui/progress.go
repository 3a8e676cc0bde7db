// Package tui renders live execution progress for flowboard run.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flowboardhq/flowboard/internal/executor"
)

// Messages sent by the run loop into the program.
type (
	// WaveStartedMsg announces that a wave began executing.
	WaveStartedMsg struct {
		Index int // zero-based
		Size  int
	}

	// TaskStartedMsg announces that a task's action was invoked.
	TaskStartedMsg struct {
		ID string
	}

	// TaskFinishedMsg announces a task outcome.
	TaskFinishedMsg struct {
		ID      string
		Outcome executor.Outcome
	}

	// RunFinishedMsg carries the final report and ends the program.
	RunFinishedMsg struct {
		Report *executor.Report
	}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ProgressModel is the bubbletea model behind `run --watch`.
type ProgressModel struct {
	spinner    spinner.Model
	totalWaves int
	totalTasks int

	wave      int
	waveSize  int
	running   map[string]bool
	succeeded int
	failed    int
	skipped   int

	report   *executor.Report
	quitting bool
}

// NewProgress returns a model sized to the plan being executed.
func NewProgress(totalWaves, totalTasks int) ProgressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle
	return ProgressModel{
		spinner:    sp,
		totalWaves: totalWaves,
		totalTasks: totalTasks,
		running:    make(map[string]bool),
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case WaveStartedMsg:
		m.wave = msg.Index + 1
		m.waveSize = msg.Size
		return m, nil

	case TaskStartedMsg:
		m.running[msg.ID] = true
		return m, nil

	case TaskFinishedMsg:
		delete(m.running, msg.ID)
		switch msg.Outcome {
		case executor.OutcomeSucceeded:
			m.succeeded++
		case executor.OutcomeFailed:
			m.failed++
		case executor.OutcomeSkipped:
			m.skipped++
		}
		return m, nil

	case RunFinishedMsg:
		m.report = msg.Report
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		// The run itself is not cancelled here; ctrl+c only detaches the
		// view and lets the command's signal handling take over.
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ProgressModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", m.spinner.View(),
		titleStyle.Render(fmt.Sprintf("Wave %d/%d", m.wave, m.totalWaves)))

	for _, id := range sortedKeys(m.running) {
		fmt.Fprintf(&b, "  %s %s\n", runningStyle.Render("▶"), id)
	}

	done := m.succeeded + m.failed + m.skipped
	fmt.Fprintf(&b, "\n%d/%d done  %s  %s  %s\n",
		done, m.totalTasks,
		okStyle.Render(fmt.Sprintf("%d ok", m.succeeded)),
		failStyle.Render(fmt.Sprintf("%d failed", m.failed)),
		skipStyle.Render(fmt.Sprintf("%d skipped", m.skipped)))
	return b.String()
}

// Report returns the final report once the run has finished, nil before.
func (m ProgressModel) Report() *executor.Report {
	return m.report
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
