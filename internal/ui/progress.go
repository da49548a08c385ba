package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"keel/internal/pipeline"
)

type progressModel struct {
	title   string
	events  <-chan pipeline.Event
	spinner spinner.Model
	prog    progress.Model
	items   []stageItem
	index   map[pipeline.Stage]int
	methods int
	lastKey string
	width   int
	done    bool
}

type stageItem struct {
	stage  pipeline.Stage
	status string
}

type eventMsg pipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders layout-pipeline
// progress: one row per stage, with a live counter of committed methods.
func NewProgressModel(title string, events <-chan pipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76 // Default width

	stages := []pipeline.Stage{
		pipeline.StageLoad,
		pipeline.StageDiscover,
		pipeline.StageFinalize,
		pipeline.StageEmit,
	}
	items := make([]stageItem, 0, len(stages))
	index := make(map[pipeline.Stage]int, len(stages))
	for i, stage := range stages {
		items = append(items, stageItem{stage: stage, status: "queued"})
		index[stage] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(pipeline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := m.width - statusWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}

	for _, item := range m.items {
		name := string(item.stage)
		if item.stage == pipeline.StageDiscover && m.methods > 0 {
			name = fmt.Sprintf("%s (%d methods)", name, m.methods)
			if m.lastKey != "" && item.status == "working" {
				name = fmt.Sprintf("%s %s", name, truncate(m.lastKey, nameWidth-len(name)-1))
			}
		}
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%12s", item.status))
		b.WriteString(fmt.Sprintf("  %s %s", statusStyled, truncate(name, nameWidth)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev pipeline.Event) tea.Cmd {
	if ev.Item != "" {
		// Per-method commit inside the discover stage.
		if ev.Status == pipeline.StatusDone {
			m.methods++
			m.lastKey = ev.Item
		}
		return nil
	}
	idx, ok := m.index[ev.Stage]
	if !ok {
		return nil
	}
	switch ev.Status {
	case pipeline.StatusQueued:
		m.items[idx].status = "queued"
	case pipeline.StatusWorking:
		m.items[idx].status = "working"
	case pipeline.StatusDone:
		m.items[idx].status = "done"
	case pipeline.StatusError:
		m.items[idx].status = "error"
	}

	total := 0.0
	for _, item := range m.items {
		switch item.status {
		case "done", "error":
			total += 1.0
		case "working":
			total += 0.5
		}
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "working":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
