package profile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "profiles.json"))
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func readFile(t *testing.T, path string) map[string]map[string]map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var out map[string]map[string]map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("file is not the canonical shape: %v\n%s", err, data)
	}
	return out
}

func TestLoadMissingFileCreatesDefault(t *testing.T) {
	s := newTestStore(t)

	if got := s.Profiles(); len(got) != 1 || got[0] != DefaultProfileName {
		t.Fatalf("Profiles() = %v, want [Default]", got)
	}
	if s.Active() != DefaultProfileName {
		t.Errorf("Active() = %q, want Default", s.Active())
	}

	onDisk := readFile(t, s.Path())
	def, ok := onDisk[DefaultProfileName]
	if !ok {
		t.Fatalf("file has no Default profile: %v", onDisk)
	}
	if binds, ok := def["keybinds"]; !ok || len(binds) != 0 {
		t.Errorf("Default keybinds = %v, want empty", def["keybinds"])
	}
}

func TestLoadCorruptFileSelfHeals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := s.Profiles(); len(got) != 1 || got[0] != DefaultProfileName {
		t.Errorf("Profiles() = %v, want [Default]", got)
	}
	readFile(t, path)
}

func TestLoadLegacyAndVersionedBindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	content := `{
  "Game": {
    "keybinds": {
      "a": [10, 20],
      "Ctrl+B": {"coords": [30, 40], "type": "Drag and Return"},
      "C": {"coords": [50, 60], "type": "Teleport"},
      "D": 3,
      "E": {"coords": [1]}
    }
  }
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Active() != "Game" {
		t.Errorf("Active() = %q, want Game", s.Active())
	}

	binds, err := s.Bindings("Game")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]Binding{
		"A":      {Coords: Coord{10, 20}, Kind: ClickAndReturn},
		"Ctrl+B": {Coords: Coord{30, 40}, Kind: DragAndReturn},
		"C":      {Coords: Coord{50, 60}, Kind: ClickAndReturn},
	}
	if len(binds) != len(want) {
		t.Fatalf("Bindings() = %v, want %v", binds, want)
	}
	for k, w := range want {
		if binds[k] != w {
			t.Errorf("binding %q = %v, want %v", k, binds[k], w)
		}
	}

	// the rewrite uses the object form everywhere
	onDisk := readFile(t, path)
	a, ok := onDisk["Game"]["keybinds"]["A"].(map[string]any)
	if !ok {
		t.Fatalf("legacy binding not rewritten: %v", onDisk["Game"]["keybinds"])
	}
	if a["type"] != string(ClickAndReturn) {
		t.Errorf("rewritten type = %v", a["type"])
	}
}

func TestLoadKeepsGoodProfilesBesideMalformedOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	content := `{
  "Work": {"keybinds": {"Ctrl+A": {"coords": [1, 2], "type": "Click and Stay"}}},
  "Broken": {"keybinds": []},
  "Odd": 7
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := s.Profiles(); len(got) != 3 || got[0] != "Broken" || got[1] != "Odd" || got[2] != "Work" {
		t.Fatalf("Profiles() = %v, want [Broken Odd Work]", got)
	}
	work, err := s.Bindings("Work")
	if err != nil {
		t.Fatal(err)
	}
	if work["Ctrl+A"] != (Binding{Coords: Coord{1, 2}, Kind: ClickAndStay}) {
		t.Errorf("Work bindings = %v", work)
	}
	if broken, _ := s.Bindings("Broken"); len(broken) != 0 {
		t.Errorf("Broken bindings = %v, want none", broken)
	}

	onDisk := readFile(t, path)
	if _, ok := onDisk["Work"]["keybinds"]["Ctrl+A"]; !ok {
		t.Errorf("Work lost from rewritten file: %v", onDisk)
	}
}

func TestLoadNormalizesSideSpecificKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	content := `{
  "Default": {"keybinds": {
    "Ctrl_L+a": [10, 10],
    "Shift_R+F2": {"coords": [20, 20], "type": "Click and Stay"},
    "Alt+B": [1, 1],
    "Alt_L+b": [2, 2]
  }}
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		combo string
		want  Binding
	}{
		{"Ctrl+A", Binding{Coords: Coord{10, 10}, Kind: ClickAndReturn}},
		{"Shift+F2", Binding{Coords: Coord{20, 20}, Kind: ClickAndStay}},
		{"Alt+B", Binding{Coords: Coord{1, 1}, Kind: ClickAndReturn}},
	}
	for _, tt := range tests {
		got, ok := s.Lookup(tt.combo)
		if !ok || got != tt.want {
			t.Errorf("Lookup(%q) = %v, %v; want %v", tt.combo, got, ok, tt.want)
		}
	}
	if binds, _ := s.Bindings("Default"); len(binds) != 3 {
		t.Errorf("Bindings() = %v, want 3 entries", binds)
	}
}

func TestSaveReloadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetBinding(DefaultProfileName, "Ctrl+A", DoubleClickAndReturn, Coord{100, 200}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBinding(DefaultProfileName, "F5", ClickAndStay, Coord{-5, 7}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateProfile("Other"); err != nil {
		t.Fatal(err)
	}

	reloaded := NewStore(s.Path())
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}

	for _, name := range s.Profiles() {
		before, _ := s.Bindings(name)
		after, err := reloaded.Bindings(name)
		if err != nil {
			t.Fatalf("profile %q missing after reload", name)
		}
		if len(before) != len(after) {
			t.Fatalf("profile %q: %v != %v", name, before, after)
		}
		for k, v := range before {
			if after[k] != v {
				t.Errorf("profile %q key %q: %v != %v", name, k, after[k], v)
			}
		}
	}
}

func TestLookup(t *testing.T) {
	s := newTestStore(t)
	want := Binding{Coords: Coord{100, 200}, Kind: ClickAndReturn}
	if err := s.SetBinding(DefaultProfileName, "Ctrl+A", want.Kind, want.Coords); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBinding(DefaultProfileName, "b", ClickAndStay, Coord{1, 2}); err != nil {
		t.Fatal(err)
	}

	got, ok := s.Lookup("Ctrl+A")
	if !ok || got != want {
		t.Errorf("Lookup(Ctrl+A) = %v, %v; want %v", got, ok, want)
	}

	// lowercase fallback for old single-character bindings
	if got, ok := s.Lookup("B"); !ok || got.Coords != (Coord{1, 2}) {
		t.Errorf("Lookup(B) = %v, %v; want fallback to b", got, ok)
	}

	if _, ok := s.Lookup("Ctrl+Z"); ok {
		t.Error("Lookup(Ctrl+Z) should miss")
	}
	if _, ok := s.Lookup(""); ok {
		t.Error("empty combo must never match")
	}
}

func TestLookupFollowsActiveProfile(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateProfile("Other"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBinding("Other", "A", ClickAndStay, Coord{5, 5}); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Lookup("A"); ok {
		t.Fatal("binding of an inactive profile must not match")
	}
	if err := s.SetActive("Other"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Lookup("A"); !ok {
		t.Error("binding should match after switching profiles")
	}
}

func TestDeleteLastProfileRefused(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteProfile(DefaultProfileName)
	if !errors.Is(err, ErrLastProfile) {
		t.Fatalf("DeleteProfile() error = %v, want ErrLastProfile", err)
	}
	if got := s.Profiles(); len(got) != 1 || got[0] != DefaultProfileName {
		t.Errorf("Profiles() = %v after refused delete", got)
	}
}

func TestDeleteActiveProfileRepoints(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateProfile("Work"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetActive("Work"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteProfile("Work"); err != nil {
		t.Fatal(err)
	}
	if s.Active() != DefaultProfileName {
		t.Errorf("Active() = %q, want Default", s.Active())
	}
}

func TestRenameActiveProfile(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetBinding(DefaultProfileName, "A", ClickAndStay, Coord{3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := s.RenameProfile(DefaultProfileName, "Main"); err != nil {
		t.Fatal(err)
	}

	if s.Active() != "Main" {
		t.Errorf("Active() = %q, want Main", s.Active())
	}
	if got := s.Profiles(); len(got) != 1 || got[0] != "Main" {
		t.Errorf("Profiles() = %v, want [Main]", got)
	}
	binds, err := s.Bindings("Main")
	if err != nil {
		t.Fatal(err)
	}
	if binds["A"] != (Binding{Coords: Coord{3, 4}, Kind: ClickAndStay}) {
		t.Errorf("bindings changed by rename: %v", binds)
	}
}

func TestUserInputErrors(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateProfile("Work"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		op   func() error
		want error
	}{
		{"duplicate create", func() error { return s.CreateProfile("Work") }, ErrDuplicateProfile},
		{"empty create", func() error { return s.CreateProfile("  ") }, ErrEmptyName},
		{"rename onto existing", func() error { return s.RenameProfile("Work", DefaultProfileName) }, ErrDuplicateProfile},
		{"rename unknown", func() error { return s.RenameProfile("Nope", "X") }, ErrUnknownProfile},
		{"activate unknown", func() error { return s.SetActive("Nope") }, ErrUnknownProfile},
		{"empty combo", func() error { return s.SetBinding("Work", "", ClickAndStay, Coord{}) }, ErrEmptyCombo},
		{"bind unknown profile", func() error { return s.SetBinding("Nope", "A", ClickAndStay, Coord{}) }, ErrUnknownProfile},
		{"delete unknown binding", func() error { return s.DeleteBinding("Work", "Q") }, ErrUnknownBinding},
		{"kind of unknown binding", func() error { return s.SetBindingKind("Work", "Q", ClickAndStay) }, ErrUnknownBinding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if got := s.Profiles(); len(got) != 2 {
		t.Errorf("Profiles() = %v, refused operations must not mutate", got)
	}
}

func TestSetBindingKindKeepsCoords(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetBinding(DefaultProfileName, "A", ClickAndReturn, Coord{9, 9}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBindingKind(DefaultProfileName, "A", DragAndReturn); err != nil {
		t.Fatal(err)
	}
	b, _ := s.Lookup("A")
	if b != (Binding{Coords: Coord{9, 9}, Kind: DragAndReturn}) {
		t.Errorf("binding = %v", b)
	}
}

func TestClearAndDeleteBinding(t *testing.T) {
	s := newTestStore(t)
	for _, k := range []string{"A", "B", "C"} {
		if err := s.SetBinding(DefaultProfileName, k, ClickAndReturn, Coord{}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.DeleteBinding(DefaultProfileName, "A"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Lookup("A"); ok {
		t.Error("A still bound after delete")
	}
	if err := s.ClearBindings(DefaultProfileName); err != nil {
		t.Fatal(err)
	}
	if binds, _ := s.Bindings(DefaultProfileName); len(binds) != 0 {
		t.Errorf("Bindings() = %v after clear", binds)
	}
}

func TestChangeCallback(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.RegisterChangeCallback(func() { calls++ })

	_ = s.CreateProfile("X")
	_ = s.SetActive("X")
	_ = s.SetActive("X") // no change
	_ = s.CreateProfile("X")

	if calls != 2 {
		t.Errorf("callback ran %d times, want 2", calls)
	}
}

func TestConcurrentLookupDuringEdits(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if b, ok := s.Lookup("A"); ok && b.Kind == "" {
				t.Error("observed a partially written binding")
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		if err := s.SetBinding(DefaultProfileName, "A", DragAndReturn, Coord{i, i}); err != nil {
			t.Fatal(err)
		}
		if err := s.DeleteBinding(DefaultProfileName, "A"); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()
}
