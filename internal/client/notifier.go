package client

import (
	"strings"
	"sync"
	"unicode"
)

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is a short, transient message for the user.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Notifier receives user-facing notices and busy/idle transitions.
type Notifier interface {
	Notify(Notice)
	SetBusy(busy bool)
}

type NopNotifier struct{}

func (NopNotifier) Notify(Notice) {}
func (NopNotifier) SetBusy(bool) {}

// busyCounter collapses overlapping round trips into a single busy period.
// The notifier is called outside mu. sendMu orders those calls.
type busyCounter struct {
	mu       sync.Mutex
	inflight int
	reported bool
	sendMu   sync.Mutex
	notifier Notifier
}

func (b *busyCounter) begin() func() {
	b.mu.Lock()
	b.inflight++
	changed := b.inflight == 1
	b.mu.Unlock()
	if changed {
		b.publish()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.inflight--
			changed := b.inflight == 0
			b.mu.Unlock()
			if changed {
				b.publish()
			}
		})
	}
}

// publish reports the current state if it differs from the last one sent.
func (b *busyCounter) publish() {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	b.mu.Lock()
	busy := b.inflight > 0
	changed := busy != b.reported
	b.reported = busy
	b.mu.Unlock()

	if changed {
		b.notifier.SetBusy(busy)
	}
}

func (b *busyCounter) busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inflight > 0
}

func sentence(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return msg
	}
	r := []rune(msg)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
