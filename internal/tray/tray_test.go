package tray

import "testing"

func TestMenuBuilding(t *testing.T) {
	tr := New("AutoKeybind", "tooltip")

	a := tr.AddMenuItem("Settings", func() {})
	tr.AddSeparator()
	q := tr.AddQuitItem("Quit")

	if a != 0 || q != 2 {
		t.Errorf("ids = %d, %d; want 0, 2", a, q)
	}
	if tr.items[1] != nil {
		t.Error("separator should be nil")
	}
}

func TestChoicesFollowRenames(t *testing.T) {
	tr := New("AutoKeybind", "")

	// without a choice menu, choices are ignored
	tr.SetChoices([]string{"Default"}, "Default")
	if _, ok := tr.choiceAt(0); ok {
		t.Fatal("choice stored without a menu")
	}

	var chosen []string
	tr.SetChoiceMenu("Profiles", func(name string) { chosen = append(chosen, name) })
	tr.SetChoices([]string{"Default", "Games"}, "Default")

	tests := []struct {
		names []string
		slot  int
		want  string
		ok    bool
	}{
		{[]string{"Default", "Games"}, 1, "Games", true},
		// Default renamed to Work: slot 0 now switches to Work
		{[]string{"Games", "Work"}, 1, "Work", true},
		// a profile added later gets a new slot
		{[]string{"Games", "Music", "Work"}, 2, "Work", true},
		// a deleted profile's slot no longer resolves
		{[]string{"Games"}, 1, "", false},
	}
	for _, tt := range tests {
		tr.SetChoices(tt.names, tt.names[0])
		got, ok := tr.choiceAt(tt.slot)
		if ok != tt.ok || got != tt.want {
			t.Errorf("names %v: choiceAt(%d) = %q, %v; want %q, %v", tt.names, tt.slot, got, ok, tt.want, tt.ok)
		}
	}

	// callers' slices are copied
	names := []string{"X"}
	tr.SetChoices(names, "X")
	names[0] = "Y"
	if got, _ := tr.choiceAt(0); got != "X" {
		t.Errorf("choiceAt(0) = %q, want X", got)
	}
	if len(chosen) != 0 {
		t.Errorf("onChoose ran without a click: %v", chosen)
	}
}

func TestExitRequest(t *testing.T) {
	tr := New("AutoKeybind", "")
	q := tr.AddQuitItem("Quit")

	select {
	case <-tr.ExitRequested():
		t.Fatal("exit requested before Quit")
	default:
	}

	tr.items[q].Callback()
	tr.RequestExit() // repeated requests are harmless

	select {
	case <-tr.ExitRequested():
	default:
		t.Fatal("Quit did not request exit")
	}

	// Stop before Run must not touch systray
	tr.Stop()
}

func TestIconHeader(t *testing.T) {
	icon := getIcon()
	if len(icon) != 1118 {
		t.Fatalf("icon size = %d", len(icon))
	}
	if icon[2] != 0x01 || icon[4] != 0x01 {
		t.Error("not an ICO header")
	}
}
