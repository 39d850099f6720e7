package main

import (
	"encoding/json"
	"fmt"
	"io"

	"todoapp/internal/client"
	"todoapp/internal/domain/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Faint(true).Strikethrough(true)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

func printOK(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("✔ "+msg))
}

func printFail(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("✖ "+msg))
}

// consoleNotifier prints controller notices, one per line.
type consoleNotifier struct {
	w io.Writer
}

func (n consoleNotifier) Notify(notice client.Notice) {
	switch notice.Kind {
	case client.NoticeSuccess:
		printOK(n.w, notice.Message)
	case client.NoticeError:
		printFail(n.w, notice.Message)
	default:
		fmt.Fprintln(n.w, accentStyle.Render("• "+notice.Message))
	}
}

func (consoleNotifier) SetBusy(bool) {}

func printTodo(w io.Writer, t models.Todo) {
	box := mutedStyle.Render(boxUnchecked)
	text := t.Text
	if t.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(t.Text)
	}
	fmt.Fprintf(w, "%s %4d  %-8s %s\n", box, t.ID, "["+string(t.Priority)+"]", text)
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
