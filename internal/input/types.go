// Package input delivers global keyboard and mouse events to the dispatch
// engine and capture mode.
package input

import (
	"time"

	"autokeybind/internal/keys"
)

// Kind is the type of an input event.
type Kind int

const (
	KeyDown Kind = iota + 1
	KeyUp
	MouseDown
	MouseUp
)

func (k Kind) String() string {
	switch k {
	case KeyDown:
		return "key_down"
	case KeyUp:
		return "key_up"
	case MouseDown:
		return "mouse_down"
	case MouseUp:
		return "mouse_up"
	}
	return "unknown"
}

// Keyboard reports whether the event comes from the keyboard hook.
func (k Kind) Keyboard() bool {
	return k == KeyDown || k == KeyUp
}

// Mouse buttons as reported by the hook.
const (
	ButtonPrimary   = 1
	ButtonSecondary = 2
	ButtonMiddle    = 3
)

// Event is a keyboard or mouse transition.
type Event struct {
	Kind      Kind
	Key       keys.Key // keyboard events
	X, Y      int      // mouse events, screen pixels
	Button    int      // mouse events
	Timestamp time.Time
}

// Pressed reports whether the event is a key or button press.
func (e Event) Pressed() bool {
	return e.Kind == KeyDown || e.Kind == MouseDown
}

// Source produces global input events until stopped.
type Source interface {
	Start() (<-chan Event, error)
	Stop() error
}
