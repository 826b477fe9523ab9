package capture

import (
	"sync"

	"autokeybind/internal/keys"
)

// Recorder collects a key combo for a new binding. It sees the same key
// events as the dispatch engine and records them only while recording. Keys
// already held when recording starts, such as the key that started it, are
// left out until released and pressed again. The combo is not checked for
// uniqueness.
type Recorder struct {
	mu        sync.Mutex
	recording bool
	pressed   map[uint32]keys.Key
	order     []uint32
	last      string

	// down is every key physically held, recording or not; stale is the
	// part of it that was already down at Start.
	down  map[uint32]bool
	stale map[uint32]bool

	onComplete func(combo string)
}

// NewRecorder returns an idle recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		pressed: make(map[uint32]keys.Key),
		down:    make(map[uint32]bool),
		stale:   make(map[uint32]bool),
	}
}

// OnComplete sets fn to run, on the keyboard goroutine, when every key of a
// recorded combo has been released. Recording stops at that point.
func (r *Recorder) OnComplete(fn func(combo string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = fn
}

// Start begins a fresh recording.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = true
	r.pressed = make(map[uint32]keys.Key)
	r.order = nil
	r.last = ""
	r.stale = make(map[uint32]bool, len(r.down))
	for id := range r.down {
		r.stale[id] = true
	}
}

// Recording reports whether a recording is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Combo returns the combo recorded so far.
func (r *Recorder) Combo() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.comboLocked(); c != "" {
		return c
	}
	return r.last
}

// UpdateState feeds a key transition. Outside a recording it only tracks
// which keys are held.
func (r *Recorder) UpdateState(k keys.Key, isDown bool) {
	if isDown {
		r.KeyDown(k)
	} else {
		r.KeyUp(k)
	}
}

// KeyDown adds k to the recorded set.
func (r *Recorder) KeyDown(k keys.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := k.ID()
	r.down[id] = true
	if !r.recording || r.stale[id] {
		return
	}
	if _, held := r.pressed[id]; held {
		return
	}
	r.pressed[id] = k
	r.order = append(r.order, id)
	r.last = r.comboLocked()
}

// KeyUp removes k. Releasing the last held key completes the recording.
func (r *Recorder) KeyUp(k keys.Key) {
	r.mu.Lock()
	id := k.ID()
	delete(r.down, id)
	delete(r.stale, id)
	if !r.recording {
		r.mu.Unlock()
		return
	}
	if _, held := r.pressed[id]; !held {
		r.mu.Unlock()
		return
	}
	delete(r.pressed, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if len(r.pressed) > 0 || r.last == "" {
		r.mu.Unlock()
		return
	}
	r.recording = false
	combo := r.last
	fn := r.onComplete
	r.mu.Unlock()

	if fn != nil {
		fn(combo)
	}
}

// Stop ends the recording and returns the combo held right now, or the last
// combo formed if every key was already released.
func (r *Recorder) Stop() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	if c := r.comboLocked(); c != "" {
		return c
	}
	return r.last
}

func (r *Recorder) comboLocked() string {
	held := make([]keys.Key, 0, len(r.order))
	for _, id := range r.order {
		held = append(held, r.pressed[id])
	}
	return keys.ComboString(held)
}
