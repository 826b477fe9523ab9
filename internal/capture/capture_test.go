package capture

import (
	"errors"
	"path/filepath"
	"testing"

	"autokeybind/internal/input"
	"autokeybind/internal/keys"
	"autokeybind/internal/profile"
)

func newStore(t *testing.T) *profile.Store {
	t.Helper()
	s := profile.NewStore(filepath.Join(t.TempDir(), "profiles.json"))
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCaptureWritesFirstPrimaryPress(t *testing.T) {
	store := newStore(t)
	m := NewMode(store)

	if err := m.Arm("B", profile.ClickAndStay); err != nil {
		t.Fatal(err)
	}

	// releases and other buttons pass through
	if _, ok := m.HandleClick(5, 5, input.ButtonPrimary, false); ok {
		t.Error("release consumed")
	}
	if _, ok := m.HandleClick(5, 5, input.ButtonSecondary, true); ok {
		t.Error("secondary press consumed")
	}

	res, ok := m.HandleClick(10, 10, input.ButtonPrimary, true)
	if !ok {
		t.Fatal("armed primary press not consumed")
	}
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Profile != profile.DefaultProfileName || res.Key != "B" {
		t.Errorf("result = %+v", res)
	}

	// the second click is not captured
	if _, ok := m.HandleClick(20, 20, input.ButtonPrimary, true); ok {
		t.Error("click after disarm consumed")
	}

	b, ok := store.Lookup("B")
	if !ok {
		t.Fatal("binding B missing")
	}
	want := profile.Binding{Coords: profile.Coord{X: 10, Y: 10}, Kind: profile.ClickAndStay}
	if b != want {
		t.Errorf("binding = %v, want %v", b, want)
	}

	// persisted
	reloaded := profile.NewStore(store.Path())
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if b, _ := reloaded.Lookup("B"); b != want {
		t.Errorf("reloaded binding = %v, want %v", b, want)
	}
}

func TestCancelWritesNothing(t *testing.T) {
	store := newStore(t)
	m := NewMode(store)

	if err := m.Arm("Ctrl+A", profile.ClickAndReturn); err != nil {
		t.Fatal(err)
	}
	m.Cancel()
	if armed, _ := m.Armed(); armed {
		t.Error("still armed after Cancel")
	}
	if _, ok := m.HandleClick(1, 1, input.ButtonPrimary, true); ok {
		t.Error("click consumed after cancel")
	}
	if _, ok := store.Lookup("Ctrl+A"); ok {
		t.Error("binding written after cancel")
	}
}

func TestArmEmptyCombo(t *testing.T) {
	m := NewMode(newStore(t))
	if err := m.Arm("", profile.ClickAndReturn); !errors.Is(err, profile.ErrEmptyCombo) {
		t.Errorf("Arm(\"\") = %v, want ErrEmptyCombo", err)
	}
	if armed, _ := m.Armed(); armed {
		t.Error("armed with empty combo")
	}
}

func TestRearmLastWriterWins(t *testing.T) {
	store := newStore(t)
	m := NewMode(store)

	_ = m.Arm("A", profile.ClickAndReturn)
	_ = m.Arm("S", profile.DragAndReturn)
	m.HandleClick(3, 4, input.ButtonPrimary, true)

	if _, ok := store.Lookup("A"); ok {
		t.Error("first pending binding was written")
	}
	if b, _ := store.Lookup("S"); b.Kind != profile.DragAndReturn || b.Coords != (profile.Coord{X: 3, Y: 4}) {
		t.Errorf("S = %v", b)
	}
}

func TestArmUpdateKeepsKeyAndKind(t *testing.T) {
	store := newStore(t)
	if err := store.CreateProfile("Work"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetBinding("Work", "F1", profile.DoubleClickAndReturn, profile.Coord{X: 1, Y: 1}); err != nil {
		t.Fatal(err)
	}

	m := NewMode(store)
	if err := m.ArmUpdate("Work", "F2"); !errors.Is(err, profile.ErrUnknownBinding) {
		t.Errorf("ArmUpdate unknown key = %v", err)
	}
	if err := m.ArmUpdate("Work", "F1"); err != nil {
		t.Fatal(err)
	}
	_, p := m.Armed()
	if !p.UpdateOnly || p.Kind != profile.DoubleClickAndReturn {
		t.Errorf("pending = %+v", p)
	}

	// the update targets Work even though Default is active
	res, _ := m.HandleClick(300, 400, input.ButtonPrimary, true)
	if res.Profile != "Work" {
		t.Errorf("result profile = %q, want Work", res.Profile)
	}
	binds, _ := store.Bindings("Work")
	want := profile.Binding{Coords: profile.Coord{X: 300, Y: 400}, Kind: profile.DoubleClickAndReturn}
	if binds["F1"] != want {
		t.Errorf("F1 = %v, want %v", binds["F1"], want)
	}
}

func TestNewBindingGoesToActiveAtClickTime(t *testing.T) {
	store := newStore(t)
	_ = store.CreateProfile("Games")
	m := NewMode(store)

	_ = m.Arm("A", profile.ClickAndStay)
	if err := store.SetActive("Games"); err != nil {
		t.Fatal(err)
	}
	m.HandleClick(7, 7, input.ButtonPrimary, true)

	if binds, _ := store.Bindings("Games"); len(binds) != 1 {
		t.Errorf("Games bindings = %v", binds)
	}
	if binds, _ := store.Bindings(profile.DefaultProfileName); len(binds) != 0 {
		t.Errorf("Default bindings = %v", binds)
	}
}

func TestCaptureIntoDeletedProfileReportsError(t *testing.T) {
	store := newStore(t)
	_ = store.CreateProfile("Temp")
	_ = store.SetBinding("Temp", "A", profile.ClickAndStay, profile.Coord{})

	m := NewMode(store)
	if err := m.ArmUpdate("Temp", "A"); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteProfile("Temp"); err != nil {
		t.Fatal(err)
	}

	var got []Result
	m.OnResult(func(r Result) { got = append(got, r) })
	res, ok := m.HandleClick(1, 2, input.ButtonPrimary, true)
	if !ok || !errors.Is(res.Err, profile.ErrUnknownProfile) {
		t.Errorf("HandleClick = %+v, %v", res, ok)
	}
	if len(got) != 1 {
		t.Errorf("result callbacks = %d, want 1", len(got))
	}
}

func TestChangeNotifications(t *testing.T) {
	m := NewMode(newStore(t))
	var states []bool
	m.OnChange(func(armed bool, _ Pending) { states = append(states, armed) })

	_ = m.Arm("A", profile.ClickAndReturn)
	m.HandleClick(0, 0, input.ButtonPrimary, true)
	_ = m.Arm("A", profile.ClickAndReturn)
	m.Cancel()
	m.Cancel() // no-op when disarmed

	want := []bool{true, false, true, false}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
}

func TestRecorder(t *testing.T) {
	ctrl := keys.FromCode(keys.CodeCtrlL)
	shift := keys.FromCode(keys.CodeShiftR)
	a := keys.FromCode(keys.CodeA)

	t.Run("ignores keys while idle", func(t *testing.T) {
		r := NewRecorder()
		r.KeyDown(a)
		if got := r.Stop(); got != "" {
			t.Errorf("Stop() = %q, want empty", got)
		}
	})

	t.Run("stop while held returns current combo", func(t *testing.T) {
		r := NewRecorder()
		r.Start()
		r.KeyDown(shift)
		r.KeyDown(a)
		r.KeyDown(a) // repeat
		if got := r.Stop(); got != "Shift+A" {
			t.Errorf("Stop() = %q, want Shift+A", got)
		}
		if r.Recording() {
			t.Error("still recording")
		}
	})

	t.Run("stop after release returns last combo", func(t *testing.T) {
		r := NewRecorder()
		r.Start()
		r.UpdateState(ctrl, true)
		r.UpdateState(a, true)
		r.UpdateState(a, false)
		if got := r.Combo(); got != "Ctrl" {
			t.Errorf("Combo() = %q, want Ctrl", got)
		}
		if got := r.Stop(); got != "Ctrl" {
			t.Errorf("Stop() = %q, want Ctrl", got)
		}
	})

	t.Run("full release completes", func(t *testing.T) {
		r := NewRecorder()
		var completed []string
		r.OnComplete(func(c string) { completed = append(completed, c) })
		r.Start()
		r.KeyDown(ctrl)
		r.KeyDown(a)
		r.KeyUp(ctrl)
		r.KeyUp(a)

		if len(completed) != 1 || completed[0] != "Ctrl+A" {
			t.Errorf("completed = %v, want [Ctrl+A]", completed)
		}
		if r.Recording() {
			t.Error("recording after completion")
		}
		// further keys are ignored
		r.KeyDown(a)
		r.KeyUp(a)
		if len(completed) != 1 {
			t.Errorf("completed twice: %v", completed)
		}
	})

	t.Run("key held at start is left out", func(t *testing.T) {
		r := NewRecorder()
		var completed []string
		r.OnComplete(func(c string) { completed = append(completed, c) })

		// the key that opened the recording is still down
		r.UpdateState(a, true)
		r.Start()
		r.UpdateState(a, true) // auto-repeat
		r.UpdateState(a, true)
		if got := r.Combo(); got != "" {
			t.Errorf("Combo() = %q after repeats, want empty", got)
		}
		r.UpdateState(a, false)
		if len(completed) != 0 {
			t.Fatalf("releasing the held key completed %v", completed)
		}

		// pressed again after release, it counts
		r.UpdateState(ctrl, true)
		r.UpdateState(a, true)
		r.UpdateState(a, false)
		r.UpdateState(ctrl, false)
		if len(completed) != 1 || completed[0] != "Ctrl+A" {
			t.Errorf("completed = %v, want [Ctrl+A]", completed)
		}
	})

	t.Run("start clears previous recording", func(t *testing.T) {
		r := NewRecorder()
		r.Start()
		r.KeyDown(a)
		r.Stop()
		r.Start()
		if got := r.Stop(); got != "" {
			t.Errorf("Stop() = %q, want empty", got)
		}
	})
}
