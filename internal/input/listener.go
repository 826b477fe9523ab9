package input

import (
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"autokeybind/internal/keys"
)

// ErrListenerRunning is returned by Start on a running listener.
var ErrListenerRunning = errors.New("listener already running")

// KeyHandler receives key transitions on the keyboard goroutine.
type KeyHandler func(k keys.Key, down bool)

// MouseHandler receives button transitions on the mouse goroutine.
type MouseHandler func(x, y, button int, pressed bool)

// Listener fans a Source out to a keyboard goroutine and a mouse goroutine.
// A panicking handler is logged and the event dropped; the goroutine keeps
// running.
type Listener struct {
	src Source

	hmu   sync.RWMutex
	onKey []KeyHandler
	onBtn []MouseHandler

	mu       sync.Mutex
	running  bool
	keyLane  *lane
	btnLane  *lane
	demuxEnd chan struct{}
}

// lane is one consumer goroutine with its own stop signal.
type lane struct {
	events  chan Event
	stop    chan struct{}
	done    chan struct{}
	stopped sync.Once
}

func newLane() *lane {
	return &lane{
		events: make(chan Event, 64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (l *lane) halt() {
	l.stopped.Do(func() { close(l.stop) })
	<-l.done
}

// NewListener creates a listener over src.
func NewListener(src Source) *Listener {
	return &Listener{src: src}
}

// OnKey registers a keyboard handler. Handlers run in registration order.
func (l *Listener) OnKey(h KeyHandler) {
	l.hmu.Lock()
	defer l.hmu.Unlock()
	l.onKey = append(l.onKey, h)
}

// OnMouse registers a mouse button handler.
func (l *Listener) OnMouse(h MouseHandler) {
	l.hmu.Lock()
	defer l.hmu.Unlock()
	l.onBtn = append(l.onBtn, h)
}

// Start starts the source and both listener goroutines.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrListenerRunning
	}

	events, err := l.src.Start()
	if err != nil {
		return err
	}

	l.keyLane, l.btnLane = newLane(), newLane()
	l.demuxEnd = make(chan struct{})
	l.running = true

	go l.demux(events, l.keyLane, l.btnLane, l.demuxEnd)
	go l.runKeyboard(l.keyLane)
	go l.runMouse(l.btnLane)

	slog.Info("[input] listening for global keyboard and mouse events")
	return nil
}

func (l *Listener) demux(events <-chan Event, kb, ms *lane, end chan struct{}) {
	defer close(end)
	for ev := range events {
		target := ms
		if ev.Kind.Keyboard() {
			target = kb
		}
		select {
		case target.events <- ev:
		case <-target.stop:
		}
	}
}

func (l *Listener) runKeyboard(ln *lane) {
	defer close(ln.done)
	for {
		select {
		case <-ln.stop:
			return
		case ev := <-ln.events:
			l.hmu.RLock()
			handlers := l.onKey
			l.hmu.RUnlock()
			for _, h := range handlers {
				safeCall("keyboard", func() { h(ev.Key, ev.Kind == KeyDown) })
			}
		}
	}
}

func (l *Listener) runMouse(ln *lane) {
	defer close(ln.done)
	for {
		select {
		case <-ln.stop:
			return
		case ev := <-ln.events:
			l.hmu.RLock()
			handlers := l.onBtn
			l.hmu.RUnlock()
			for _, h := range handlers {
				safeCall("mouse", func() { h(ev.X, ev.Y, ev.Button, ev.Kind == MouseDown) })
			}
		}
	}
}

func safeCall(lane string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[input] handler panic recovered, event dropped",
				"listener", lane,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// StopKeyboard stops delivering keyboard events and waits for the keyboard
// goroutine to exit.
func (l *Listener) StopKeyboard() {
	l.mu.Lock()
	ln := l.keyLane
	l.mu.Unlock()
	if ln != nil {
		ln.halt()
	}
}

// StopMouse stops delivering mouse events and waits for the mouse goroutine
// to exit.
func (l *Listener) StopMouse() {
	l.mu.Lock()
	ln := l.btnLane
	l.mu.Unlock()
	if ln != nil {
		ln.halt()
	}
}

// Stop shuts down keyboard delivery, then mouse delivery, then the source.
func (l *Listener) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	l.StopKeyboard()
	l.StopMouse()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = false
	err := l.src.Stop()
	<-l.demuxEnd
	slog.Info("[input] listener stopped")
	return err
}
