package ui

import (
	"sync"

	"todoapp/internal/client"

	tea "github.com/charmbracelet/bubbletea"
)

type noticeMsg client.Notice

type busyMsg bool

// Bridge carries controller notices and busy transitions into the Bubble Tea
// program. It implements client.Notifier.
type Bridge struct {
	events chan tea.Msg
	done   chan struct{}
	once   sync.Once
}

func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan tea.Msg, 32),
		done:   make(chan struct{}),
	}
}

func (b *Bridge) Notify(n client.Notice) { b.send(noticeMsg(n)) }

func (b *Bridge) SetBusy(busy bool) { b.send(busyMsg(busy)) }

// Close releases senders blocked on a program that is no longer reading.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.events <- msg:
	case <-b.done:
	}
}

// wait delivers the next event. The model re-arms it after every event.
func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return nil
		}
	}
}
