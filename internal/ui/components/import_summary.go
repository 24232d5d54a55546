package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nick-dorsch/slotplan/internal/importer"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

var (
	importedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 1)

	skippedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)

	summaryHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	subTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)
)

// ImportSummary renders the outcome of an import: placed tasks, skipped
// rows and scheduler notices, each in its own box.
type ImportSummary struct {
	Imported []models.Task
	Skipped  []importer.Skipped
	Notices  []string
	Width    int
	Title    string
}

func NewImportSummary(width int) *ImportSummary {
	return &ImportSummary{
		Width: width,
		Title: "Import",
	}
}

func (c *ImportSummary) View() string {
	var boxes []string

	if len(c.Imported) > 0 {
		lines := make([]string, 0, len(c.Imported))
		for _, t := range c.Imported {
			lines = append(lines, describeTask(t))
		}
		boxes = append(boxes, c.renderBox(fmt.Sprintf("Imported (%d)", len(c.Imported)), lines, importedStyle, "✓"))
	}

	if len(c.Skipped) > 0 {
		lines := make([]string, 0, len(c.Skipped))
		for _, s := range c.Skipped {
			// rows are reported 1-based after the header
			lines = append(lines, fmt.Sprintf("row %d: %s", s.Index+1, s.Reason))
		}
		boxes = append(boxes, c.renderBox(fmt.Sprintf("Skipped (%d)", len(c.Skipped)), lines, skippedStyle, "✗"))
	}

	if len(c.Notices) > 0 {
		boxes = append(boxes, c.renderBox("Notices", c.Notices, noticeStyle, "!"))
	}

	var content string
	if len(boxes) == 0 {
		content = placeholderStyle.Render("Nothing imported")
	} else {
		content = strings.Join(boxes, "\n")
	}

	if c.Title != "" {
		return summaryHeaderStyle.Render(c.Title) + "\n" + content
	}
	return content
}

func describeTask(t models.Task) string {
	where := "unscheduled"
	if t.IsScheduled() {
		where = *t.ScheduledDate + " " + (*t.ScheduledTime)[:5]
	}
	s := fmt.Sprintf("%s (%gh) %s", t.Name, t.Duration, where)
	if t.AssignedTo != nil {
		s += " @" + *t.AssignedTo
	}
	return s
}

func (c *ImportSummary) renderBox(title string, items []string, style lipgloss.Style, icon string) string {
	boxWidth := c.Width

	subTitle := subTitleStyle.Foreground(style.GetForeground()).Render(title)

	innerWidth := boxWidth - 4
	if innerWidth < 0 {
		innerWidth = 0
	}
	itemWidth := innerWidth - 2
	if itemWidth < 0 {
		itemWidth = 0
	}

	var lines []string
	for _, item := range items {
		wrapped := lipgloss.NewStyle().Width(itemWidth).Render(item)
		for i, line := range strings.Split(wrapped, "\n") {
			if i == 0 {
				lines = append(lines, fmt.Sprintf("%s %s", icon, line))
			} else {
				lines = append(lines, fmt.Sprintf("  %s", line))
			}
		}
	}

	body := strings.Join(lines, "\n")
	return style.Width(boxWidth).Render(subTitle + "\n" + body)
}
