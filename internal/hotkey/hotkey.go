// Package hotkey tracks held keys from the global hook and fires the binding
// for each newly formed combination.
package hotkey

import (
	"log/slog"
	"sync"

	"autokeybind/internal/keys"
	"autokeybind/internal/profile"
)

// Resolver finds the binding for a canonical combo in the active profile.
type Resolver interface {
	Lookup(combo string) (profile.Binding, bool)
}

// Submitter carries out a binding.
type Submitter interface {
	Submit(b profile.Binding) bool
}

// TriggerFunc is told about every combo that matched a binding.
type TriggerFunc func(combo string, b profile.Binding)

// Engine is the dispatch state machine. It is driven by the keyboard listener
// goroutine while the UI reads Combo for display.
type Engine struct {
	mu      sync.Mutex
	pressed map[uint32]keys.Key
	order   []uint32

	resolver Resolver
	actions  Submitter

	cbMu      sync.Mutex
	onTrigger []TriggerFunc
}

// NewEngine creates an engine that looks combos up in r and hands matches to s.
func NewEngine(r Resolver, s Submitter) *Engine {
	return &Engine{
		pressed:  make(map[uint32]keys.Key),
		resolver: r,
		actions:  s,
	}
}

// OnTrigger registers fn to run after a binding has been submitted.
func (e *Engine) OnTrigger(fn TriggerFunc) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.onTrigger = append(e.onTrigger, fn)
}

// UpdateState applies a key transition. Only a key-down that extends the
// pressed set triggers a lookup.
func (e *Engine) UpdateState(k keys.Key, isDown bool) {
	if isDown {
		e.KeyDown(k)
	} else {
		e.KeyUp(k)
	}
}

// KeyDown adds k to the pressed set and, if that formed a new combo bound in
// the active profile, submits its action once. Auto-repeat of a held key is
// ignored. It returns the combo that was looked up, or "" if none was.
func (e *Engine) KeyDown(k keys.Key) string {
	e.mu.Lock()
	id := k.ID()
	if _, held := e.pressed[id]; held {
		e.mu.Unlock()
		return ""
	}
	e.pressed[id] = k
	e.order = append(e.order, id)
	combo := e.comboLocked()
	e.mu.Unlock()

	b, ok := e.resolver.Lookup(combo)
	if !ok {
		return combo
	}

	slog.Debug("[hotkey] matched", "combo", combo, "binding", b.String())
	if e.actions.Submit(b) {
		e.fire(combo, b)
	}
	return combo
}

// KeyUp removes k from the pressed set. Releases never trigger.
func (e *Engine) KeyUp(k keys.Key) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := k.ID()
	if _, held := e.pressed[id]; !held {
		return
	}
	delete(e.pressed, id)
	for i, o := range e.order {
		if o == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Reset forgets every held key, e.g. after the hook restarts and releases
// may have been missed.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pressed = make(map[uint32]keys.Key)
	e.order = nil
}

// Combo returns the canonical combo of the keys held right now.
func (e *Engine) Combo() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.comboLocked()
}

func (e *Engine) comboLocked() string {
	held := make([]keys.Key, 0, len(e.order))
	for _, id := range e.order {
		held = append(held, e.pressed[id])
	}
	return keys.ComboString(held)
}

func (e *Engine) fire(combo string, b profile.Binding) {
	e.cbMu.Lock()
	fns := make([]TriggerFunc, len(e.onTrigger))
	copy(fns, e.onTrigger)
	e.cbMu.Unlock()

	for _, fn := range fns {
		fn(combo, b)
	}
}
