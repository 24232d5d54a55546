package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nick-dorsch/slotplan/internal/ui/components"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// AgendaModel shows the schedule in a scrollable view.
type AgendaModel struct {
	agenda   *components.Agenda
	tasks    []models.Task
	quitting bool
}

func NewAgendaModel(tasks []models.Task) AgendaModel {
	a := components.NewAgenda(80, 20)
	a.SetTasks(tasks)
	return AgendaModel{agenda: a, tasks: tasks}
}

func (m AgendaModel) Init() tea.Cmd {
	return nil
}

func (m AgendaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.agenda.SetSize(msg.Width, msg.Height-2)
		return m, nil
	}
	return m, m.agenda.Update(msg)
}

func (m AgendaModel) View() string {
	if m.quitting {
		return ""
	}
	return m.agenda.View() + "\n" + helpStyle.Render("(arrow keys or j/k to scroll, q to quit)")
}

func RunAgenda(tasks []models.Task) error {
	_, err := tea.NewProgram(NewAgendaModel(tasks), tea.WithAltScreen()).Run()
	return err
}
