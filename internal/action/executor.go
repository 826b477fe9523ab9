// Package action drives the OS pointer to carry out a binding.
package action

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"autokeybind/internal/profile"
)

// DefaultSettleDelay lets the target UI register a button press before the
// pointer moves away during a drag.
const DefaultSettleDelay = 100 * time.Millisecond

// DefaultQueueSize bounds the number of triggers waiting for the worker.
const DefaultQueueSize = 16

// Pointer is the OS pointer driver.
type Pointer interface {
	Position() (x, y int)
	MoveTo(x, y int)
	Click(x, y int)
	DoubleClick(x, y int)
	ButtonDown()
	ButtonUp()
}

// Executor performs bindings against a Pointer. Execute runs inline; Submit
// hands the binding to a worker goroutine so the caller never waits on the
// drag settle delay.
type Executor struct {
	pointer Pointer
	settle  atomic.Int64
	sleep   func(time.Duration)

	mu      sync.Mutex
	queue   chan profile.Binding
	wg      sync.WaitGroup
	running bool
}

// NewExecutor creates an executor for p.
func NewExecutor(p Pointer) *Executor {
	e := &Executor{
		pointer: p,
		sleep:   time.Sleep,
	}
	e.settle.Store(int64(DefaultSettleDelay))
	return e
}

// SetSettleDelay changes the drag settle delay. Non-positive values restore
// the default.
func (e *Executor) SetSettleDelay(d time.Duration) {
	if d <= 0 {
		d = DefaultSettleDelay
	}
	e.settle.Store(int64(d))
}

// SettleDelay returns the current drag settle delay.
func (e *Executor) SettleDelay() time.Duration {
	return time.Duration(e.settle.Load())
}

// Execute performs b synchronously. Coordinates are passed to the driver as
// they are; unknown kinds behave like click-and-return.
func (e *Executor) Execute(b profile.Binding) {
	x, y := b.Coords.X, b.Coords.Y

	switch b.Kind {
	case profile.ClickAndStay:
		e.pointer.Click(x, y)

	case profile.DoubleClickAndReturn:
		ox, oy := e.pointer.Position()
		e.pointer.DoubleClick(x, y)
		e.pointer.MoveTo(ox, oy)

	case profile.DragAndReturn:
		ox, oy := e.pointer.Position()
		e.pointer.MoveTo(x, y)
		e.pointer.ButtonDown()
		e.sleep(e.SettleDelay())
		e.pointer.MoveTo(ox, oy)
		e.pointer.ButtonUp()

	default:
		ox, oy := e.pointer.Position()
		e.pointer.Click(x, y)
		e.pointer.MoveTo(ox, oy)
	}
}

// Start launches the worker goroutine with a queue of the given size.
func (e *Executor) Start(queueSize int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	e.queue = make(chan profile.Binding, queueSize)
	e.running = true

	q := e.queue
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for b := range q {
			e.Execute(b)
		}
	}()
}

// Submit queues b for the worker without blocking. It reports false when the
// worker is not running or the queue is full, in which case the trigger is
// dropped.
func (e *Executor) Submit(b profile.Binding) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		slog.Warn("[action] executor not running, trigger dropped", "binding", b.String())
		return false
	}
	select {
	case e.queue <- b:
		return true
	default:
		slog.Warn("[action] queue full, trigger dropped", "binding", b.String())
		return false
	}
}

// Stop drains pending actions and waits for the worker to exit.
func (e *Executor) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.queue)
	e.mu.Unlock()

	e.wg.Wait()
}
