package input

import (
	"errors"
	"sync"
	"time"

	hook "github.com/robotn/gohook"

	"autokeybind/internal/keys"
)

// ErrHookRunning is returned when the global hook is started twice.
var ErrHookRunning = errors.New("global hook already running")

// undefinedChar is what the hook reports when a key has no character.
const undefinedChar = 0xFFFF

// HookSource reads the OS-wide keyboard and mouse hook through gohook. Only
// one may run per process.
type HookSource struct {
	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewHookSource returns an idle hook source.
func NewHookSource() *HookSource {
	return &HookSource{}
}

// Start installs the hook and returns the translated event stream. The
// channel is closed after Stop.
func (h *HookSource) Start() (<-chan Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil, ErrHookRunning
	}

	raw := hook.Start()
	out := make(chan Event, 64)
	h.done = make(chan struct{})
	h.running = true

	go func(done chan struct{}) {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case ev, ok := <-raw:
				if !ok {
					return
				}
				if e, ok := translate(ev); ok {
					select {
					case out <- e:
					case <-done:
						return
					}
				}
			}
		}
	}(h.done)

	return out, nil
}

// Stop removes the hook.
func (h *HookSource) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return nil
	}
	h.running = false
	close(h.done)
	hook.End()
	return nil
}

// translate maps a gohook event onto Event. Typed-character, move, drag and
// wheel events are dropped, as are keys the hook could not identify.
func translate(ev hook.Event) (Event, bool) {
	e := Event{Timestamp: ev.When}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	switch ev.Kind {
	case hook.KeyHold:
		e.Kind = KeyDown
	case hook.KeyUp:
		e.Kind = KeyUp
	case hook.MouseHold:
		e.Kind = MouseDown
	case hook.MouseDown:
		// gohook reports the button release as MouseDown.
		e.Kind = MouseUp
	default:
		return Event{}, false
	}

	if e.Kind.Keyboard() {
		e.Key = keyOf(ev)
		if e.Key == (keys.Key{}) {
			return Event{}, false
		}
		return e, true
	}
	e.X, e.Y = int(ev.X), int(ev.Y)
	e.Button = int(ev.Button)
	return e, true
}

func keyOf(ev hook.Event) keys.Key {
	if ev.Keycode != 0 {
		k := keys.FromCode(ev.Keycode)
		if k.Char == 0 && ev.Keychar != 0 && ev.Keychar != undefinedChar {
			k.Char = ev.Keychar
		}
		return k
	}
	if s := []rune(hook.RawcodetoKeychar(ev.Rawcode)); len(s) == 1 {
		return keys.FromChar(s[0])
	}
	if ev.Keychar != 0 && ev.Keychar != undefinedChar {
		return keys.Key{Char: ev.Keychar}
	}
	return keys.Key{}
}
