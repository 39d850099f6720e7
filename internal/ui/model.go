// Package ui is the interactive terminal view over client.App.
package ui

import (
	"context"
	"strings"
	"time"

	"todoapp/internal/client"
	"todoapp/internal/domain/models"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeEdit
	modeSearch
)

const noticeTTL = 3 * time.Second

type opDoneMsg struct {
	op  string
	err error
}

type clearNoticeMsg struct{ seq int }

type Model struct {
	ctx     context.Context
	app     *client.App
	bridge  *Bridge
	timeout time.Duration

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	input   textinput.Model

	mode        mode
	cursor      int
	editID      int
	addPriority models.Priority
	busy        bool
	loaded      bool
	notice      *client.Notice
	noticeSeq   int
}

// New builds the view. bridge must be the notifier app was created with.
func New(ctx context.Context, app *client.App, bridge *Bridge, timeout time.Duration) Model {
	if timeout <= 0 {
		timeout = client.DefaultTimeout
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	return Model{
		ctx:         ctx,
		app:         app,
		bridge:      bridge,
		timeout:     timeout,
		keys:        defaultKeyMap(),
		help:        help.New(),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		input:       ti,
		addPriority: models.PriorityMedium,
	}
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, app *client.App, bridge *Bridge, timeout time.Duration, opts ...tea.ProgramOption) error {
	defer bridge.Close()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(New(ctx, app, bridge, timeout), opts...).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.wait(), m.load())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case noticeMsg:
		n := client.Notice(msg)
		m.notice = &n
		m.noticeSeq++
		seq := m.noticeSeq
		return m, tea.Batch(m.bridge.wait(), tea.Tick(noticeTTL, func(time.Time) tea.Msg {
			return clearNoticeMsg{seq: seq}
		}))

	case busyMsg:
		m.busy = bool(msg)
		if m.busy {
			return m, tea.Batch(m.bridge.wait(), m.spinner.Tick)
		}
		return m, m.bridge.wait()

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case opDoneMsg:
		if msg.op == "load" {
			m.loaded = true
		}
		m.clampCursor()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.app.Filtered()
	app := m.app

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(visible)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Add):
		m.mode = modeAdd
		m.addPriority = models.PriorityMedium
		m.input.Reset()
		m.input.Placeholder = "What needs to be done?"
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Edit):
		t, ok := m.selected(visible)
		if !ok {
			return m, nil
		}
		m.mode = modeEdit
		m.editID = t.ID
		m.input.Placeholder = ""
		m.input.SetValue(t.Text)
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Priority):
		t, ok := m.selected(visible)
		if !ok {
			return m, nil
		}
		next := t.Priority.Next()
		return m, m.run("priority", func(ctx context.Context) error {
			_, err := app.Update(ctx, t.ID, models.UpdateTodoRequest{Priority: &next})
			return err
		})

	case key.Matches(msg, m.keys.Toggle):
		t, ok := m.selected(visible)
		if !ok {
			return m, nil
		}
		return m, m.run("toggle", func(ctx context.Context) error {
			_, err := app.ToggleCompleted(ctx, t.ID)
			return err
		})

	case key.Matches(msg, m.keys.Delete):
		t, ok := m.selected(visible)
		if !ok {
			return m, nil
		}
		return m, m.run("delete", func(ctx context.Context) error {
			return app.Remove(ctx, t.ID)
		})

	case key.Matches(msg, m.keys.Filter):
		app.SetFilter(app.Filter().Next())
		m.cursor = 0

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.input.Placeholder = "search todos"
		m.input.SetValue(app.Search())
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Reload):
		return m, m.load()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	app := m.app

	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.mode == modeSearch {
			app.SetSearch("")
			m.cursor = 0
		}
		return m.closeInput(), nil

	case key.Matches(msg, m.keys.Submit):
		value := m.input.Value()
		switch m.mode {
		case modeAdd:
			priority := m.addPriority
			cmd := m.run("add", func(ctx context.Context) error {
				_, err := app.Add(ctx, value, priority)
				return err
			})
			if strings.TrimSpace(value) == "" {
				return m, cmd
			}
			return m.closeInput(), cmd
		case modeEdit:
			id := m.editID
			cmd := m.run("edit", func(ctx context.Context) error {
				_, err := app.Update(ctx, id, models.UpdateTodoRequest{Text: &value})
				return err
			})
			if strings.TrimSpace(value) == "" {
				return m, cmd
			}
			return m.closeInput(), cmd
		}
		return m.closeInput(), nil

	case m.mode == modeAdd && key.Matches(msg, m.keys.NextOnInput):
		m.addPriority = m.addPriority.Next()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeSearch {
		app.SetSearch(m.input.Value())
		m.cursor = 0
	}
	return m, cmd
}

func (m Model) closeInput() Model {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.Reset()
	return m
}

func (m Model) selected(visible []models.Todo) (models.Todo, bool) {
	if m.cursor < 0 || m.cursor >= len(visible) {
		return models.Todo{}, false
	}
	return visible[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.app.Filtered())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) load() tea.Cmd {
	return m.run("load", m.app.Load)
}

// run performs op off the update loop. Outcome notices arrive separately
// through the bridge.
func (m Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	parent, timeout := m.ctx, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}
