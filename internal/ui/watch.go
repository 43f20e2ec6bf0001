package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// JobSnapshot is the subset of a rebuild job's state the watch view renders.
// Decoupled from asyncjob.Job so this package doesn't import it.
type JobSnapshot struct {
	TaskID       string
	Status       string
	TotalIndexed int
	ActiveIndex  string
	ErrorMessage string
}

// PollFunc fetches the latest job snapshot. Returning an error stops polling
// and surfaces the error in the view.
type PollFunc func() (JobSnapshot, error)

type jobPolledMsg struct {
	snap JobSnapshot
	err  error
}

type watchModel struct {
	poll     PollFunc
	interval time.Duration
	spinner  spinner.Model
	styles   Styles
	snap     JobSnapshot
	err      error
	done     bool
}

// NewWatchModel builds a bubbletea program model that polls a rebuild job
// and renders its progress until it reaches a terminal status.
func NewWatchModel(poll PollFunc, interval time.Duration, noColor bool) tea.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	styles := GetStyles(noColor)
	if !noColor {
		s.Style = styles.Active
	}

	return watchModel{
		poll:     poll,
		interval: interval,
		spinner:  s,
		styles:   styles,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.pollCmd())
}

func (m watchModel) pollCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.poll()
		return jobPolledMsg{snap: snap, err: err}
	}
}

func (m watchModel) waitCmd() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return m.pollCmd()()
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case jobPolledMsg:
		if msg.err != nil {
			m.err = msg.err
			m.done = true
			return m, tea.Quit
		}
		m.snap = msg.snap
		if msg.snap.Status != "running" {
			m.done = true
			return m, tea.Quit
		}
		return m, m.waitCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("error: %v\n", m.err))
	}

	if m.snap.TaskID == "" {
		return fmt.Sprintf("%s waiting for job...\n", m.spinner.View())
	}

	var line string
	switch m.snap.Status {
	case "succeeded":
		line = m.styles.Success.Render(fmt.Sprintf("done: %d candidates indexed into %s",
			m.snap.TotalIndexed, m.snap.ActiveIndex))
	case "failed":
		line = m.styles.Error.Render(fmt.Sprintf("failed: %s", m.snap.ErrorMessage))
	default:
		line = fmt.Sprintf("%s rebuilding (%d indexed so far)", m.spinner.View(), m.snap.TotalIndexed)
	}

	return fmt.Sprintf("task %s\n%s\n", m.snap.TaskID, line)
}
