package ui

import (
	"todoapp/internal/client"
	"todoapp/internal/domain/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	tabStyle      = lipgloss.NewStyle().Padding(0, 1)
	activeTab     = tabStyle.Bold(true).Underline(true).Foreground(lipgloss.Color("12"))

	priorityStyles = map[models.Priority]lipgloss.Style{
		models.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		models.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

func noticeStyle(kind client.NoticeKind) lipgloss.Style {
	switch kind {
	case client.NoticeSuccess:
		return successStyle
	case client.NoticeError:
		return errorStyle
	default:
		return accentStyle
	}
}

func priorityBadge(p models.Priority) string {
	style, ok := priorityStyles[p]
	if !ok {
		style = mutedStyle
	}
	return style.Render("[" + string(p) + "]")
}
