package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

var (
	dayStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	entryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	unscheduledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Italic(true)

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// Agenda renders tasks grouped by day in a scrollable viewport.
type Agenda struct {
	viewport viewport.Model
	content  string
	ready    bool
}

func NewAgenda(width, height int) *Agenda {
	a := &Agenda{}
	a.SetSize(width, height)
	return a
}

func (a *Agenda) SetSize(width, height int) {
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !a.ready {
		a.viewport = viewport.New(vpWidth, height)
		a.ready = true
	} else {
		a.viewport.Width = vpWidth
		a.viewport.Height = height
	}
	a.updateContent()
}

// SetTasks replaces the agenda content. Scheduled tasks are listed by date
// and start time; unscheduled ones follow at the end.
func (a *Agenda) SetTasks(tasks []models.Task) {
	a.content = RenderAgenda(tasks)
	a.updateContent()
	a.viewport.GotoTop()
}

func (a *Agenda) updateContent() {
	width := a.viewport.Width
	if width > 0 {
		a.viewport.SetContent(lipgloss.NewStyle().Width(width).Render(a.content))
	} else {
		a.viewport.SetContent(a.content)
	}
}

func (a *Agenda) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return cmd
}

func (a *Agenda) View() string {
	if !a.ready {
		return ""
	}

	if a.viewport.TotalLineCount() <= a.viewport.Height {
		return a.viewport.View()
	}

	h := a.viewport.Height
	handlePos := int(float64(h-1) * a.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, a.viewport.View(), sb.String())
}

// RenderAgenda formats tasks as a plain day-by-day listing.
func RenderAgenda(tasks []models.Task) string {
	var scheduled, loose []models.Task
	for _, t := range tasks {
		if t.IsScheduled() {
			scheduled = append(scheduled, t)
		} else {
			loose = append(loose, t)
		}
	}
	sort.SliceStable(scheduled, func(i, j int) bool {
		a, b := scheduled[i], scheduled[j]
		if *a.ScheduledDate != *b.ScheduledDate {
			return *a.ScheduledDate < *b.ScheduledDate
		}
		return *a.ScheduledTime < *b.ScheduledTime
	})

	var sb strings.Builder
	day := ""
	for _, t := range scheduled {
		if *t.ScheduledDate != day {
			if day != "" {
				sb.WriteString("\n")
			}
			day = *t.ScheduledDate
			sb.WriteString(dayStyle.Render(day))
			sb.WriteString("\n")
		}
		start, _ := t.Start()
		end, _ := t.End()
		line := fmt.Sprintf("  %s-%s  %s", start.Format("15:04"), end.Format("15:04"), t.Name)
		if t.AssignedTo != nil {
			line += "  @" + *t.AssignedTo
		}
		sb.WriteString(entryStyle.Render(line))
		sb.WriteString("\n")
	}

	if len(loose) > 0 {
		if day != "" {
			sb.WriteString("\n")
		}
		sb.WriteString(unscheduledStyle.Render("unscheduled"))
		sb.WriteString("\n")
		for _, t := range loose {
			sb.WriteString(unscheduledStyle.Render(fmt.Sprintf("  %s (%gh)", t.Name, t.Duration)))
			sb.WriteString("\n")
		}
	}

	if sb.Len() == 0 {
		return unscheduledStyle.Render("No tasks")
	}
	return strings.TrimRight(sb.String(), "\n")
}
