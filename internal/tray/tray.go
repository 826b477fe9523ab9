// Package tray provides system tray functionality using getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID       int
	Title    string
	Callback func()
	item     *systray.MenuItem
}

// choiceMenu is a submenu of names with the current one checked. Its entries
// can be replaced while the tray runs; surplus slots are hidden.
type choiceMenu struct {
	title    string
	onChoose func(name string)
	names    []string
	current  string

	parent *systray.MenuItem
	slots  []*systray.MenuItem
}

// Tray manages the system tray icon and menu. Its only link back to the rest
// of the app is the callbacks it runs and the exit request it signals.
type Tray struct {
	title   string
	tooltip string

	mu     sync.Mutex
	items  []*MenuItem
	choice *choiceMenu
	ready  bool
	quitCh chan struct{}

	exitOnce sync.Once
	exitCh   chan struct{}
}

// New creates a new system tray
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		items:   make([]*MenuItem, 0),
		quitCh:  make(chan struct{}),
		exitCh:  make(chan struct{}),
	}
}

// AddMenuItem adds a menu item to the tray. Items must be added before Run.
func (t *Tray) AddMenuItem(title string, callback func()) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.items)
	t.items = append(t.items, &MenuItem{
		ID:       id,
		Title:    title,
		Callback: callback,
	})
	return id
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil) // nil indicates separator
}

// AddQuitItem adds an item that requests exit.
func (t *Tray) AddQuitItem(title string) int {
	return t.AddMenuItem(title, t.RequestExit)
}

// SetChoiceMenu puts a submenu at the top of the menu. onChoose runs with
// the clicked name. Call before Run.
func (t *Tray) SetChoiceMenu(title string, onChoose func(name string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.choice = &choiceMenu{title: title, onChoose: onChoose}
}

// SetChoices replaces the names listed in the choice submenu and checks
// current. It may be called at any time.
func (t *Tray) SetChoices(names []string, current string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.choice == nil {
		return
	}
	t.choice.names = append([]string(nil), names...)
	t.choice.current = current
	if t.ready {
		t.applyChoicesLocked()
	}
}

// choiceAt returns the name shown in slot i.
func (t *Tray) choiceAt(i int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.choice == nil || i < 0 || i >= len(t.choice.names) {
		return "", false
	}
	return t.choice.names[i], true
}

func (t *Tray) applyChoicesLocked() {
	c := t.choice
	for i, name := range c.names {
		if i == len(c.slots) {
			item := c.parent.AddSubMenuItem(name, "")
			c.slots = append(c.slots, item)
			go t.watchChoice(i, item.ClickedCh)
		}
		item := c.slots[i]
		item.SetTitle(name)
		item.Show()
		if name == c.current {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	for _, item := range c.slots[len(c.names):] {
		item.Hide()
	}
}

func (t *Tray) watchChoice(slot int, clicked chan struct{}) {
	for {
		select {
		case <-clicked:
			name, ok := t.choiceAt(slot)
			t.mu.Lock()
			fn := t.choice.onChoose
			t.mu.Unlock()
			if ok && fn != nil {
				fn(name)
			}
		case <-t.quitCh:
			return
		}
	}
}

// RequestExit signals that the user asked to quit. It does not stop anything
// by itself.
func (t *Tray) RequestExit() {
	t.exitOnce.Do(func() { close(t.exitCh) })
}

// ExitRequested is closed once exit has been requested.
func (t *Tray) ExitRequested() <-chan struct{} {
	return t.exitCh
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, t.onExit)
}

func (t *Tray) onExit() {
	close(t.quitCh)
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(getIcon())

	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = true

	if t.choice != nil {
		t.choice.parent = systray.AddMenuItem(t.choice.title, "")
		t.applyChoicesLocked()
		systray.AddSeparator()
	}

	for _, menuItem := range t.items {
		if menuItem == nil {
			systray.AddSeparator()
			continue
		}
		item := systray.AddMenuItem(menuItem.Title, "")
		menuItem.item = item

		// Handle clicks in goroutine
		if menuItem.Callback != nil {
			go func(mi *MenuItem, clicked chan struct{}) {
				for {
					select {
					case <-clicked:
						mi.Callback()
					case <-t.quitCh:
						return
					}
				}
			}(menuItem, item.ClickedCh)
		}
	}
}

// Stop stops the tray
func (t *Tray) Stop() {
	t.mu.Lock()
	ready := t.ready
	t.mu.Unlock()
	if ready {
		systray.Quit()
	}
}

// getIcon returns a placeholder icon (valid 16x16 ICO)
func getIcon() []byte {
	icon := make([]byte, 1118)
	// ICO Header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon Directory
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00,
		0x16, 0x00, 0x00, 0x00, // Offset
	})
	// DIB Header
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00, // Size
		0x10, 0x00, 0x00, 0x00, // Width
		0x20, 0x00, 0x00, 0x00, // Height (16 * 2 for icon)
		0x01, 0x00, // Planes
		0x20, 0x00, // BPP
		0x00, 0x00, 0x00, 0x00, // Compression
		0x00, 0x04, 0x00, 0x00, // Image Size
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
	// Opaque pointer-blue pixels; BGRA, bottom-up.
	for i := 62; i < 62+1024; i += 4 {
		icon[i], icon[i+1], icon[i+2], icon[i+3] = 0xD0, 0x80, 0x30, 0xFF
	}
	return icon
}
