package ui

import (
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers a message to the UI event loop. *tea.Program is one.
type Sender interface {
	Send(msg tea.Msg)
}

// Queue carries updates from the listener and tray goroutines to the UI
// event loop. Post never blocks, so it is safe to call from inside Update.
type Queue struct {
	ch chan tea.Msg

	once sync.Once
	done chan struct{}
}

// NewQueue creates a queue holding up to size undelivered messages.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{
		ch:   make(chan tea.Msg, size),
		done: make(chan struct{}),
	}
}

// Post schedules msg for the UI. It is dropped when the queue is full or
// closed.
func (q *Queue) Post(msg tea.Msg) {
	select {
	case <-q.done:
		return
	default:
	}
	select {
	case q.ch <- msg:
	default:
		slog.Warn("[ui] update queue full, message dropped", "msg", msg)
	}
}

// Run forwards posted messages to s until Close. It is the queue's single
// consumer.
func (q *Queue) Run(s Sender) {
	for {
		select {
		case <-q.done:
			return
		case msg := <-q.ch:
			s.Send(msg)
		}
	}
}

// Close stops Run and discards later posts.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

// QuitAndWait posts Quit and waits up to timeout for done, which the caller
// closes once the UI has exited. It reports whether that happened in time.
func (q *Queue) QuitAndWait(done <-chan struct{}, timeout time.Duration) bool {
	q.Post(Quit{})
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
