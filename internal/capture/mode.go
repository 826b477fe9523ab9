// Package capture records where a binding should click: it turns the next
// primary mouse press into a coordinate, and records key combos for new
// bindings.
package capture

import (
	"fmt"
	"log/slog"
	"sync"

	"autokeybind/internal/input"
	"autokeybind/internal/profile"
)

// Store is the part of the profile store capture writes through.
type Store interface {
	Active() string
	Bindings(name string) (map[string]profile.Binding, error)
	SetBinding(name, key string, kind profile.ActionKind, at profile.Coord) error
}

// Pending is the binding waiting for its coordinate.
type Pending struct {
	Profile    string // empty: the active profile at click time
	Key        string
	Kind       profile.ActionKind
	UpdateOnly bool
}

// Result describes a finished capture.
type Result struct {
	Profile string
	Key     string
	Binding profile.Binding
	Err     error
}

// ChangeFunc is told whenever capture is armed or disarmed.
type ChangeFunc func(armed bool, p Pending)

// ResultFunc is told about every captured click.
type ResultFunc func(Result)

// Mode is the capture state machine. HandleClick runs on the mouse listener
// goroutine; Arm and Cancel come from the UI.
type Mode struct {
	store Store

	mu      sync.Mutex
	armed   bool
	pending Pending

	cbMu     sync.Mutex
	onChange []ChangeFunc
	onResult []ResultFunc
}

// NewMode creates a disarmed capture mode writing to store.
func NewMode(store Store) *Mode {
	return &Mode{store: store}
}

// OnChange registers fn for arm/disarm notifications.
func (m *Mode) OnChange(fn ChangeFunc) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// OnResult registers fn for captured clicks.
func (m *Mode) OnResult(fn ResultFunc) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.onResult = append(m.onResult, fn)
}

// Arm waits for a click to place a new binding for key in the profile that is
// active when the click lands. Arming again replaces the pending binding.
func (m *Mode) Arm(key string, kind profile.ActionKind) error {
	if key == "" {
		return profile.ErrEmptyCombo
	}
	return m.arm(Pending{Key: key, Kind: profile.ParseActionKind(string(kind))})
}

// ArmUpdate waits for a click to move an existing binding. Its key and action
// kind are kept.
func (m *Mode) ArmUpdate(name, key string) error {
	binds, err := m.store.Bindings(name)
	if err != nil {
		return err
	}
	cur, ok := binds[key]
	if !ok {
		return fmt.Errorf("%w: %q", profile.ErrUnknownBinding, key)
	}
	return m.arm(Pending{Profile: name, Key: key, Kind: cur.Kind, UpdateOnly: true})
}

func (m *Mode) arm(p Pending) error {
	m.mu.Lock()
	if m.armed {
		slog.Debug("[capture] re-armed, previous pending binding replaced", "key", m.pending.Key)
	}
	m.armed = true
	m.pending = p
	m.mu.Unlock()

	slog.Info("[capture] armed, waiting for click", "key", p.Key, "kind", p.Kind, "update", p.UpdateOnly)
	m.changed(true, p)
	return nil
}

// Cancel disarms without writing anything.
func (m *Mode) Cancel() {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return
	}
	m.armed = false
	p := m.pending
	m.pending = Pending{}
	m.mu.Unlock()

	slog.Info("[capture] cancelled", "key", p.Key)
	m.changed(false, Pending{})
}

// Armed reports whether a click is awaited, and for what.
func (m *Mode) Armed() (bool, Pending) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed, m.pending
}

// HandleClick consumes the first primary-button press while armed and writes
// its coordinate as the pending binding. Releases, other buttons and clicks
// while disarmed are ignored. It reports whether the click was consumed.
func (m *Mode) HandleClick(x, y, button int, pressed bool) (Result, bool) {
	if !pressed || button != input.ButtonPrimary {
		return Result{}, false
	}

	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return Result{}, false
	}
	p := m.pending
	m.armed = false
	m.pending = Pending{}
	m.mu.Unlock()

	name := p.Profile
	if name == "" {
		name = m.store.Active()
	}
	at := profile.Coord{X: x, Y: y}
	res := Result{
		Profile: name,
		Key:     p.Key,
		Binding: profile.Binding{Coords: at, Kind: p.Kind},
	}
	res.Err = m.store.SetBinding(name, p.Key, p.Kind, at)
	if res.Err != nil {
		slog.Warn("[capture] binding not written", "profile", name, "key", p.Key, "error", res.Err)
	} else {
		slog.Info("[capture] location captured", "profile", name, "key", p.Key, "x", x, "y", y)
	}

	m.changed(false, Pending{})
	m.result(res)
	return res, true
}

func (m *Mode) changed(armed bool, p Pending) {
	m.cbMu.Lock()
	fns := make([]ChangeFunc, len(m.onChange))
	copy(fns, m.onChange)
	m.cbMu.Unlock()
	for _, fn := range fns {
		fn(armed, p)
	}
}

func (m *Mode) result(r Result) {
	m.cbMu.Lock()
	fns := make([]ResultFunc, len(m.onResult))
	copy(fns, m.onResult)
	m.cbMu.Unlock()
	for _, fn := range fns {
		fn(r)
	}
}
