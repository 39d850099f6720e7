package ui

import (
	"fmt"
	"strings"

	"todoapp/internal/domain/models"
)

var filterLabels = map[models.Filter]string{
	models.FilterAll:       "All",
	models.FilterCompleted: "Completed",
	models.FilterPending:   "Pending",
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.tabsView())
	b.WriteString("\n")
	if line := m.searchView(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.listView())
	b.WriteString("\n")

	if m.notice != nil {
		b.WriteString(noticeStyle(m.notice.Kind).Render(m.notice.Message))
	}
	b.WriteString("\n")

	switch m.mode {
	case modeAdd:
		b.WriteString(mutedStyle.Render("New todo ") + priorityBadge(m.addPriority) + "\n")
		b.WriteString(m.input.View() + "\n")
		b.WriteString(m.help.View(inputKeys{keys: m.keys, priority: true}))
	case modeEdit:
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Edit #%d", m.editID)) + "\n")
		b.WriteString(m.input.View() + "\n")
		b.WriteString(m.help.View(inputKeys{keys: m.keys}))
	case modeSearch:
		b.WriteString(m.help.View(inputKeys{keys: m.keys}))
	default:
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

func (m Model) headerView() string {
	s := m.app.Stats()
	header := fmt.Sprintf("%s   %s %d done  %s %d pending  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), s.Completed,
		pendingStyle.Render("•"), s.Pending,
		accentStyle.Render("Total"), s.Total,
	)
	if s.PriorityCounts != nil {
		header += mutedStyle.Render(fmt.Sprintf("   high %d  medium %d  low %d",
			s.PriorityCounts.High, s.PriorityCounts.Medium, s.PriorityCounts.Low))
	}
	if m.busy {
		header += " " + m.spinner.View()
	}
	return header
}

func (m Model) tabsView() string {
	current := m.app.Filter()
	tabs := make([]string, 0, len(models.Filters))
	for _, f := range models.Filters {
		if f == current {
			tabs = append(tabs, activeTab.Render(filterLabels[f]))
		} else {
			tabs = append(tabs, tabStyle.Render(filterLabels[f]))
		}
	}
	return strings.Join(tabs, mutedStyle.Render("|"))
}

func (m Model) searchView() string {
	if m.mode == modeSearch {
		return "Search " + m.input.View()
	}
	if q := m.app.Search(); q != "" {
		return mutedStyle.Render("Search: " + q)
	}
	return ""
}

func (m Model) listView() string {
	visible := m.app.Filtered()
	if len(visible) == 0 {
		switch {
		case !m.loaded:
			return mutedStyle.Render("Loading todos...")
		case len(m.app.Todos()) == 0:
			return mutedStyle.Render("No todos yet. Press a to add one.")
		default:
			return mutedStyle.Render("No todos match.")
		}
	}

	lines := make([]string, 0, len(visible))
	for i, t := range visible {
		lines = append(lines, m.rowView(t, i == m.cursor))
	}
	return strings.Join(lines, "\n")
}

func (m Model) rowView(t models.Todo, selected bool) string {
	box := mutedStyle.Render(boxUnchecked)
	text := t.Text
	if t.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(t.Text)
	}

	line := fmt.Sprintf("%s %s %s", box, priorityBadge(t.Priority), text)
	if !t.CreatedAt.IsZero() {
		line += "  " + mutedStyle.Render(t.CreatedAt.Local().Format("Jan 2 15:04"))
	}

	prefix := "  "
	if selected {
		prefix = selectedStyle.Render(">") + " "
	}
	return prefix + line
}
